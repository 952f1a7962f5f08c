package cloudxfer

import (
	"context"
	"io"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/storage"
)

// downloadStrategy streams a remote file into the local destination.
type downloadStrategy struct {
	destination storage.Destination
	rateLimit   float64
}

func (s *downloadStrategy) name() string {
	return "download"
}

func (s *downloadStrategy) run(ctx context.Context, job *transferJob) (err error) {
	if job.stop.IsStopped() {
		return ErrCancelled
	}
	var (
		body io.ReadCloser
		stat protoc.FileStat
	)
	if body, stat, err = job.remote.Download(ctx, job.rec.RemotePath); err != nil {
		return
	}
	defer body.Close()

	job.progress.setExpected(stat.Size)
	reader := job.progress.reader(ctx, job.guard(body), s.rateLimit)
	if job.written, err = s.destination.Write(ctx, job.rec.LocalPath, reader, stat.Size, stat.ModTime); err != nil {
		return
	}
	job.etag = stat.ETag
	job.modTime = stat.ModTime
	return
}
