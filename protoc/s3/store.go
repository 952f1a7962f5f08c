package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/derektruong/cloudxfer/internal/protocutils"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	personalPrefix = "personal"
	spacesPrefix   = "spaces"
	uploadsPrefix  = "uploads"

	mtimeMetadata = "mtime"

	defaultCopyConcurrency = 4
	defaultPartConcurrency = 4
)

// Store is the protoc.RemoteStore of one space of a bucket.
type Store struct {
	logger logr.Logger
	api    protoc.S3API
	bucket string
	prefix string

	copySemaphore *semaphore.Weighted
	partSemaphore *semaphore.Weighted

	// limits of the multipart upload of large files
	PartLimits
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPartLimits replaces the multipart limits, zero fields keep their default.
func WithPartLimits(limits PartLimits) StoreOption {
	return func(s *Store) {
		s.PartLimits = limits.withDefaults()
	}
}

// NewStore creates the store of a space, the personal space when spaceID is
// empty.
func NewStore(logger logr.Logger, api protoc.S3API, bucket, spaceID string, options ...StoreOption) (s *Store) {
	prefix := personalPrefix
	if spaceID != "" {
		prefix = path.Join(spacesPrefix, spaceID)
	}
	s = &Store{
		logger:        logger.WithName("s3.store"),
		api:           api,
		bucket:        bucket,
		prefix:        prefix,
		copySemaphore: semaphore.NewWeighted(defaultCopyConcurrency),
		partSemaphore: semaphore.NewWeighted(defaultPartConcurrency),
		PartLimits:    PartLimits{}.withDefaults(),
	}
	for _, opt := range options {
		opt(s)
	}
	return
}

func (s *Store) Exists(ctx context.Context, remotePath string) (exists bool, err error) {
	if _, err = s.Stat(ctx, remotePath); err == nil {
		return true, nil
	}
	if protocNotFound(err) {
		return false, nil
	}
	return
}

func (s *Store) Stat(ctx context.Context, remotePath string) (stat protoc.FileStat, err error) {
	key := s.objectKey(remotePath)
	if key == s.prefix {
		return protoc.FileStat{Path: "/", Size: -1, IsDir: true}, nil
	}

	var out *awss3.HeadObjectOutput
	if out, err = s.head(ctx, key); err == nil {
		stat = protoc.FileStat{
			Path:    remotePath,
			Size:    aws.ToInt64(out.ContentLength),
			ModTime: modTimeOf(out.Metadata, out.LastModified),
			ETag:    aws.ToString(out.ETag),
		}
		return
	}
	if !protocNotFound(err) {
		return
	}
	if out, err = s.head(ctx, key+"/"); err != nil {
		return
	}
	stat = protoc.FileStat{
		Path:    remotePath,
		Size:    -1,
		ModTime: modTimeOf(out.Metadata, out.LastModified),
		IsDir:   true,
	}
	return
}

func (s *Store) MakeDirectory(ctx context.Context, dirPath string, recursive bool) (err error) {
	dirs := protocutils.Ancestors(dirPath)
	if len(dirs) == 0 {
		return fmt.Errorf("mkdir /: %w", protoc.ErrAlreadyExists)
	}
	if !recursive {
		parent := protocutils.ParentDir(dirPath)
		if parent != "/" {
			var stat protoc.FileStat
			if stat, err = s.Stat(ctx, parent); err != nil {
				return
			}
			if !stat.IsDir {
				return fmt.Errorf("mkdir %s: parent is a file: %w", dirPath, protoc.ErrAlreadyExists)
			}
		}
		dirs = dirs[len(dirs)-1:]
	}

	for i, dir := range dirs {
		var exists bool
		if exists, err = s.markerExists(ctx, s.objectKey(dir)+"/"); err != nil {
			return
		}
		if exists {
			if i == len(dirs)-1 {
				return fmt.Errorf("mkdir %s: %w", dir, protoc.ErrAlreadyExists)
			}
			continue
		}
		if err = s.putMarker(ctx, s.objectKey(dir)+"/"); err != nil {
			return
		}
	}
	return
}

// Upload puts small files in one request and streams the others as a
// multipart upload. Conditional writes always use a single request.
func (s *Store) Upload(ctx context.Context, req protoc.UploadRequest) (etag string, err error) {
	if req.Size > s.PreferredPartSize && req.IfMatch == "" {
		return s.multipartUpload(ctx, req)
	}
	input := &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(req.Path)),
		Body:          req.Body,
		ContentLength: aws.Int64(req.Size),
		Metadata:      mtimeOf(req.ModTime),
	}
	if req.IfMatch != "" {
		input.IfMatch = aws.String(req.IfMatch)
	}

	var out *awss3.PutObjectOutput
	if out, err = s.api.PutObject(ctx, input); err != nil {
		err = mapError("put "+req.Path, err)
		return
	}
	etag = aws.ToString(out.ETag)
	return
}

func (s *Store) Download(ctx context.Context, remotePath string) (body io.ReadCloser, stat protoc.FileStat, err error) {
	var out *awss3.GetObjectOutput
	if out, err = s.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(remotePath)),
	}); err != nil {
		err = mapError("get "+remotePath, err)
		return
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	body = out.Body
	stat = protoc.FileStat{
		Path:    remotePath,
		Size:    size,
		ModTime: modTimeOf(out.Metadata, out.LastModified),
		ETag:    aws.ToString(out.ETag),
	}
	return
}

func (s *Store) Move(ctx context.Context, srcPath, dstPath string, overwrite bool) (err error) {
	if !overwrite {
		var exists bool
		if exists, err = s.Exists(ctx, dstPath); err != nil {
			return
		}
		if exists {
			return fmt.Errorf("move %s: %w", dstPath, protoc.ErrPreconditionFailed)
		}
	}
	srcKey := s.objectKey(srcPath)
	if _, err = s.api.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.objectKey(dstPath)),
		CopySource: aws.String(s.copySource(srcKey)),
	}); err != nil {
		return mapError("move "+srcPath, err)
	}
	return s.deleteKeys(ctx, []string{srcKey})
}

func (s *Store) Delete(ctx context.Context, remotePath string) (err error) {
	key := s.objectKey(remotePath)
	var keys []string
	if keys, err = s.listKeys(ctx, key+"/"); err != nil {
		return
	}
	return s.deleteKeys(ctx, append(keys, key))
}

func (s *Store) CreateChunkFolder(ctx context.Context, folderID string) (err error) {
	marker := s.chunkFolderKey(folderID)
	var exists bool
	if exists, err = s.markerExists(ctx, marker); err != nil {
		return
	}
	if exists {
		return fmt.Errorf("create chunk folder %s: %w", folderID, protoc.ErrAlreadyExists)
	}
	return s.putMarker(ctx, marker)
}

func (s *Store) UploadChunk(ctx context.Context, folderID string, index int, body io.Reader, size int64) (err error) {
	if _, err = s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.chunkKey(folderID, index)),
		Body:          body,
		ContentLength: aws.Int64(size),
	}); err != nil {
		err = mapError(fmt.Sprintf("put chunk %s/%d", folderID, index), err)
	}
	return
}

func (s *Store) AssembleChunks(ctx context.Context, req protoc.AssembleRequest) (etag string, err error) {
	op := "assemble " + req.FolderID
	if req.IfMatch != "" {
		var out *awss3.HeadObjectOutput
		if out, err = s.head(ctx, s.objectKey(req.Target)); err != nil {
			if protocNotFound(err) {
				err = fmt.Errorf("%s: %w", op, protoc.ErrPreconditionFailed)
			}
			return
		}
		if aws.ToString(out.ETag) != req.IfMatch {
			err = fmt.Errorf("%s: %w", op, protoc.ErrPreconditionFailed)
			return
		}
	}

	var chunks []types.Object
	if chunks, err = s.listChunks(ctx, req.FolderID); err != nil {
		return
	}
	if len(chunks) == 0 {
		err = fmt.Errorf("%s: no chunks: %w", op, protoc.ErrNotFound)
		return
	}
	total := lo.SumBy(chunks, func(o types.Object) int64 { return aws.ToInt64(o.Size) })
	if total != req.Size {
		err = fmt.Errorf("%s: chunks hold %d bytes, expected %d", op, total, req.Size)
		return
	}

	targetKey := s.objectKey(req.Target)
	if len(chunks) == 1 {
		var out *awss3.CopyObjectOutput
		if out, err = s.api.CopyObject(ctx, &awss3.CopyObjectInput{
			Bucket:            aws.String(s.bucket),
			Key:               aws.String(targetKey),
			CopySource:        aws.String(s.copySource(aws.ToString(chunks[0].Key))),
			Metadata:          mtimeOf(req.ModTime),
			MetadataDirective: types.MetadataDirectiveReplace,
		}); err != nil {
			err = mapError(op, err)
			return
		}
		if out.CopyObjectResult != nil {
			etag = aws.ToString(out.CopyObjectResult.ETag)
		}
	} else if etag, err = s.multipartCopy(ctx, targetKey, chunks, req); err != nil {
		return
	}

	if rmErr := s.DeleteChunkFolder(ctx, req.FolderID); rmErr != nil {
		s.logger.Error(rmErr, "failed to remove assembled chunk folder", "folderID", req.FolderID)
	}
	return
}

func (s *Store) DeleteChunkFolder(ctx context.Context, folderID string) (err error) {
	var keys []string
	if keys, err = s.listKeys(ctx, s.chunkFolderKey(folderID)); err != nil {
		return
	}
	return s.deleteKeys(ctx, keys)
}

func (s *Store) ListChunkFolders(ctx context.Context) (folders []protoc.ChunkFolder, err error) {
	paginator := awss3.NewListObjectsV2Paginator(s.api, &awss3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(uploadsPrefix + "/"),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		var page *awss3.ListObjectsV2Output
		if page, err = paginator.NextPage(ctx); err != nil {
			err = mapError("list chunk folders", err)
			return
		}
		for _, p := range page.CommonPrefixes {
			marker := aws.ToString(p.Prefix)
			folder := protoc.ChunkFolder{ID: path.Base(strings.TrimSuffix(marker, "/"))}
			if out, headErr := s.head(ctx, marker); headErr == nil {
				folder.ModTime = aws.ToTime(out.LastModified)
			}
			folders = append(folders, folder)
		}
	}
	return
}

func (s *Store) multipartCopy(
	ctx context.Context,
	targetKey string,
	chunks []types.Object,
	req protoc.AssembleRequest,
) (etag string, err error) {
	op := "assemble " + req.FolderID
	var created *awss3.CreateMultipartUploadOutput
	if created, err = s.api.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(targetKey),
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
			Key:      aws.String(targetKey),
			UploadId: uploadID,
		}); abortErr != nil && !isAwsError[*types.NoSuchUpload](abortErr) {
			s.logger.Error(abortErr, "failed to abort multipart copy", "key", targetKey)
		}
	}()

	parts := make([]types.CompletedPart, len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		if err = s.copySemaphore.Acquire(egCtx, 1); err != nil {
			break
		}
		eg.Go(func() error {
			defer s.copySemaphore.Release(1)
			partNumber := aws.Int32(int32(i + 1))
			out, copyErr := s.api.UploadPartCopy(egCtx, &awss3.UploadPartCopyInput{
				Bucket:     aws.String(s.bucket),
				Key:        aws.String(targetKey),
				UploadId:   uploadID,
				PartNumber: partNumber,
				CopySource: aws.String(s.copySource(aws.ToString(chunk.Key))),
			})
			if copyErr != nil {
				return mapError(fmt.Sprintf("%s: part %d", op, i+1), copyErr)
			}
			part := types.CompletedPart{PartNumber: partNumber}
			if out.CopyPartResult != nil {
				part.ETag = out.CopyPartResult.ETag
			}
			parts[i] = part
			return nil
		})
	}
	if waitErr := eg.Wait(); waitErr != nil {
		err = waitErr
	}
	if err != nil {
		return
	}

	input := &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(targetKey),
		UploadId:        uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	}
	if req.IfMatch != "" {
		input.IfMatch = aws.String(req.IfMatch)
	}
	var completed *awss3.CompleteMultipartUploadOutput
	if completed, err = s.api.CompleteMultipartUpload(ctx, input); err != nil {
		err = mapError(op, err)
		return
	}
	etag = aws.ToString(completed.ETag)
	return
}

func (s *Store) head(ctx context.Context, key string) (out *awss3.HeadObjectOutput, err error) {
	if out, err = s.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		err = mapError("head "+key, err)
	}
	return
}

func (s *Store) markerExists(ctx context.Context, key string) (exists bool, err error) {
	if _, err = s.head(ctx, key); err == nil {
		return true, nil
	}
	if protocNotFound(err) {
		return false, nil
	}
	return
}

func (s *Store) putMarker(ctx context.Context, key string) (err error) {
	if _, err = s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	}); err != nil {
		err = mapError("put "+key, err)
	}
	return
}

// listChunks lists the chunk objects of a folder in index order.
func (s *Store) listChunks(ctx context.Context, folderID string) (chunks []types.Object, err error) {
	marker := s.chunkFolderKey(folderID)
	err = s.eachObject(ctx, marker, func(o types.Object) {
		if aws.ToString(o.Key) != marker {
			chunks = append(chunks, o)
		}
	})
	return
}

func (s *Store) listKeys(ctx context.Context, prefix string) (keys []string, err error) {
	err = s.eachObject(ctx, prefix, func(o types.Object) {
		keys = append(keys, aws.ToString(o.Key))
	})
	return
}

// eachObject visits the objects under prefix in key order.
func (s *Store) eachObject(ctx context.Context, prefix string, fn func(types.Object)) (err error) {
	paginator := awss3.NewListObjectsV2Paginator(s.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		var page *awss3.ListObjectsV2Output
		if page, err = paginator.NextPage(ctx); err != nil {
			return mapError("list "+prefix, err)
		}
		for _, o := range page.Contents {
			fn(o)
		}
	}
	return
}

func (s *Store) deleteKeys(ctx context.Context, keys []string) (err error) {
	for _, batch := range lo.Chunk(keys, 1000) {
		var out *awss3.DeleteObjectsOutput
		if out, err = s.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: lo.Map(batch, func(key string, _ int) types.ObjectIdentifier {
					return types.ObjectIdentifier{Key: aws.String(key)}
				}),
				Quiet: aws.Bool(true),
			},
		}); err != nil {
			return mapError("delete", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("delete %s: %s: %w", aws.ToString(first.Key), aws.ToString(first.Message), protoc.ErrUnexpectedStatus)
		}
	}
	return
}

func (s *Store) objectKey(remotePath string) string {
	clean := strings.TrimPrefix(path.Clean("/"+remotePath), "/")
	if clean == "" {
		return s.prefix
	}
	return s.prefix + "/" + clean
}

func (s *Store) chunkFolderKey(folderID string) string {
	return uploadsPrefix + "/" + folderID + "/"
}

func (s *Store) chunkKey(folderID string, index int) string {
	return fmt.Sprintf("%s%08d", s.chunkFolderKey(folderID), index)
}

func (s *Store) copySource(key string) string {
	return s.bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

func mtimeOf(modTime time.Time) map[string]string {
	if modTime.IsZero() {
		return nil
	}
	return map[string]string{mtimeMetadata: strconv.FormatInt(modTime.Unix(), 10)}
}

func modTimeOf(metadata map[string]string, lastModified *time.Time) time.Time {
	if v, ok := metadata[mtimeMetadata]; ok {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(sec, 0)
		}
	}
	return aws.ToTime(lastModified)
}

func protocNotFound(err error) bool {
	return errors.Is(err, protoc.ErrNotFound)
}
