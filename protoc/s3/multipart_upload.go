package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// PartLimits bounds the parts of a multipart upload.
type PartLimits struct {
	// MaxObjectSize is the largest object the bucket accepts, 5 TB on AWS.
	MaxObjectSize int64 `json:"maxObjectSize" mapstructure:"max_object_size"`
	// MinPartSize is the smallest part but the last one, 5 MB on AWS.
	MinPartSize int64 `json:"minPartSize" mapstructure:"min_part_size"`
	// MaxPartSize is the largest part, 5 GB on AWS.
	MaxPartSize int64 `json:"maxPartSize" mapstructure:"max_part_size"`
	// PreferredPartSize is used whenever the upload fits in MaxMultipartParts
	// parts of this size. Smaller files are put in one request.
	PreferredPartSize int64 `json:"preferredPartSize" mapstructure:"preferred_part_size"`
	// MaxMultipartParts is the part count limit, 10000 on AWS.
	MaxMultipartParts int64 `json:"maxMultipartParts" mapstructure:"max_multipart_parts"`
	// MaxBufferedParts is how many parts are read ahead of the uploads.
	MaxBufferedParts int64 `json:"maxBufferedParts" mapstructure:"max_buffered_parts"`
	// TemporaryDirectory holds the buffered parts, the OS default when empty
	// and memory with TempDirUseMemory.
	TemporaryDirectory string `json:"temporaryDirectory" mapstructure:"temporary_directory"`
}

func (l PartLimits) withDefaults() PartLimits {
	if l.MaxObjectSize <= 0 {
		l.MaxObjectSize = 5 * 1024 * 1024 * 1024 * 1024 // 5TB
	}
	if l.MinPartSize <= 0 {
		l.MinPartSize = 5 * 1024 * 1024 // 5MB
	}
	if l.MaxPartSize <= 0 {
		l.MaxPartSize = 5 * 1024 * 1024 * 1024 // 5GB
	}
	if l.PreferredPartSize <= 0 {
		l.PreferredPartSize = 50 * 1024 * 1024 // 50MB
	}
	if l.MaxMultipartParts <= 0 {
		l.MaxMultipartParts = 10000
	}
	if l.MaxBufferedParts <= 0 {
		l.MaxBufferedParts = 20
	}
	return l
}

// calcOptimalPartSize returns the part size that fits size in at most
// MaxMultipartParts parts, PreferredPartSize when possible.
func (l PartLimits) calcOptimalPartSize(size int64) (optimalPartSize int64, err error) {
	switch {
	case size <= l.PreferredPartSize*l.MaxMultipartParts:
		optimalPartSize = l.PreferredPartSize
	// integer division rounds down, an inexact result needs one more byte per
	// part to fit in MaxMultipartParts
	case size%l.MaxMultipartParts == 0:
		optimalPartSize = size / l.MaxMultipartParts
	default:
		optimalPartSize = size/l.MaxMultipartParts + 1
	}

	if optimalPartSize > l.MaxPartSize {
		return optimalPartSize, fmt.Errorf(
			"calcOptimalPartSize: to upload %v bytes optimalPartSize %v must exceed MaxPartSize %v",
			size, optimalPartSize, l.MaxPartSize)
	}
	return optimalPartSize, nil
}

// multipartUpload streams req.Body as parts uploaded concurrently, the
// upload is aborted on any failure.
func (s *Store) multipartUpload(ctx context.Context, req protoc.UploadRequest) (etag string, err error) {
	op := "multipart put " + req.Path
	var partSize int64
	if partSize, err = s.calcOptimalPartSize(req.Size); err != nil {
		return
	}

	key := s.objectKey(req.Path)
	var created *awss3.CreateMultipartUploadOutput
	if created, err = s.api.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Metadata: mtimeOf(req.ModTime),
	}); err != nil {
		err = mapError(op, err)
		return
	}
	uploadID := created.UploadId
	defer func() {
		if err == nil {
			return
		}
		if _, abortErr := s.api.AbortMultipartUpload(context.WithoutCancel(ctx), &awss3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			UploadId: uploadID,
		}); abortErr != nil && !isAwsError[*types.NoSuchUpload](abortErr) {
			s.logger.Error(abortErr, "failed to abort multipart upload", "key", key)
		}
	}()

	producer, partChan := newPartProducer(req.Body, s.MaxBufferedParts, s.TemporaryDirectory)
	producerCtx, cancelProducer := context.WithCancel(ctx)
	defer func() {
		cancelProducer()
		producer.closeUnreadParts()
	}()
	go producer.produce(producerCtx, partSize)

	var (
		parts    []*types.CompletedPart
		uploaded int64
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for partNumber := int32(1); ; partNumber++ {
		// acquire before reading so at most the backlog waits on disk
		if err = s.partSemaphore.Acquire(egCtx, 1); err != nil {
			break
		}
		part, more := <-partChan
		if !more {
			s.partSemaphore.Release(1)
			break
		}
		completed := &types.CompletedPart{PartNumber: aws.Int32(partNumber)}
		parts = append(parts, completed)
		uploaded += part.size

		eg.Go(func() error {
			defer s.partSemaphore.Release(1)
			defer func() {
				if closeErr := part.close(); closeErr != nil {
					s.logger.Error(closeErr, "failed to remove buffered part", "part", *completed.PartNumber)
				}
			}()
			out, putErr := s.api.UploadPart(egCtx, &awss3.UploadPartInput{
				Bucket:        aws.String(s.bucket),
				Key:           aws.String(key),
				UploadId:      uploadID,
				PartNumber:    completed.PartNumber,
				Body:          part.reader,
				ContentLength: aws.Int64(part.size),
			})
			if putErr != nil {
				return mapError(fmt.Sprintf("%s: part %d", op, *completed.PartNumber), putErr)
			}
			completed.ETag = out.ETag
			return nil
		})
	}
	if waitErr := eg.Wait(); waitErr != nil {
		err = waitErr
	}
	if err != nil {
		return
	}
	if producer.err != nil {
		err = fmt.Errorf("%s: read body: %w", op, producer.err)
		return
	}
	if uploaded != req.Size {
		err = fmt.Errorf("%s: read %d bytes, expected %d", op, uploaded, req.Size)
		return
	}

	var completedOut *awss3.CompleteMultipartUploadOutput
	if completedOut, err = s.api.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: lo.Map(parts, func(p *types.CompletedPart, _ int) types.CompletedPart { return *p }),
		},
	}); err != nil {
		err = mapError(op, err)
		return
	}
	etag = aws.ToString(completedOut.ETag)
	return
}
