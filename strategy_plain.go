package cloudxfer

import (
	"context"

	"github.com/derektruong/cloudxfer/protoc"
)

// plainStrategy uploads the whole file in one request.
type plainStrategy struct {
	rateLimit float64
}

func (s *plainStrategy) name() string {
	return "plain"
}

func (s *plainStrategy) run(ctx context.Context, job *transferJob) (err error) {
	if job.stop.IsStopped() {
		return ErrCancelled
	}
	info := job.handle.Info
	body := job.progress.reader(ctx, job.guard(job.handle.Reader), s.rateLimit)
	if job.etag, err = job.remote.Upload(ctx, protoc.UploadRequest{
		Path:    job.rec.RemotePath,
		Body:    body,
		Size:    info.Size,
		ModTime: info.ModTime,
		IfMatch: job.ifMatch,
	}); err != nil {
		return
	}
	job.modTime = info.ModTime
	job.written = body.TransferredSize()
	return
}
