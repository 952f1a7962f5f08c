package cloudxfer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
)

// chunkedStrategy uploads fixed size chunks into a remote scratch folder
// and lets the server assemble them onto the target.
type chunkedStrategy struct {
	chunkSize int64
	rateLimit float64
	now       func() time.Time
}

func (s *chunkedStrategy) name() string {
	return "chunked"
}

func (s *chunkedStrategy) run(ctx context.Context, job *transferJob) (err error) {
	info := job.handle.Info
	folderID := chunkFolderID(job.rec.RemotePath, s.now())
	if err = job.persist(ctx, record.Patch{SessionID: &folderID}); err != nil {
		return
	}
	if err = job.remote.CreateChunkFolder(ctx, folderID); err != nil {
		return
	}
	defer func() {
		if err == nil {
			return
		}
		// the caller context may be gone already
		if delErr := job.remote.DeleteChunkFolder(context.WithoutCancel(ctx), folderID); delErr != nil {
			job.logger.Error(delErr, "failed to delete chunk folder", "folderID", folderID)
		}
	}()

	chunks := chunkCount(info.Size, s.chunkSize)
	job.logger.Info("uploading chunks", "folderID", folderID, "chunks", chunks, "chunkSize", s.chunkSize)
	var offset int64
	for index := 0; index < chunks; index++ {
		if job.stop.IsStopped() {
			err = ErrCancelled
			return
		}
		n := min(s.chunkSize, info.Size-offset)
		body := job.progress.reader(ctx, io.LimitReader(job.handle.Reader, n), s.rateLimit)
		if err = job.remote.UploadChunk(ctx, folderID, index, body, n); err != nil {
			err = fmt.Errorf("upload chunk %d of %d: %w", index+1, chunks, err)
			return
		}
		offset += n
		job.written += body.TransferredSize()
	}

	if job.etag, err = job.remote.AssembleChunks(ctx, protoc.AssembleRequest{
		FolderID: folderID,
		Target:   job.rec.RemotePath,
		ModTime:  info.ModTime,
		Size:     info.Size,
		IfMatch:  job.ifMatch,
	}); err != nil {
		return
	}
	job.modTime = info.ModTime
	return
}

// chunkFolderID names the scratch folder of an upload of remotePath started at now.
func chunkFolderID(remotePath string, now time.Time) string {
	sum := md5.Sum([]byte(remotePath))
	return hex.EncodeToString(sum[:]) + strconv.FormatInt(now.UnixMilli(), 10)
}

// chunkCount returns how many chunks of chunkSize hold size bytes, an empty
// file still sends one empty chunk.
func chunkCount(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}
