package cloudxfer

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/storage"
	"github.com/go-logr/logr"
)

// StopFlag asks a running transfer to stop at the next chunk boundary. The
// zero value is ready to use and a nil flag never stops.
type StopFlag struct {
	stopped atomic.Bool
}

// Stop sets the flag.
func (f *StopFlag) Stop() {
	f.stopped.Store(true)
}

// IsStopped reports whether Stop was called.
func (f *StopFlag) IsStopped() bool {
	return f != nil && f.stopped.Load()
}

// transferJob is the state of one attempt shared with the strategy.
type transferJob struct {
	logger logr.Logger
	rec    record.Record
	stop   *StopFlag

	client   protoc.Client
	remote   protoc.RemoteStore
	handle   *storage.Handle
	ifMatch  string
	progress *progressReporter

	// persist writes a patch of the record and applies it to rec
	persist func(ctx context.Context, patch record.Patch) error

	// set by the strategy
	etag    string
	modTime time.Time
	written int64
}

// release closes the opened local source, it is safe to call twice.
func (j *transferJob) release() {
	if j.handle == nil {
		return
	}
	if err := j.handle.Release(); err != nil {
		j.logger.Error(err, "failed to release local source")
	}
	j.handle = nil
}

// guard makes reads of r fail with ErrCancelled once the job is stopped.
func (j *transferJob) guard(r io.Reader) io.Reader {
	return &stopReader{reader: r, stop: j.stop}
}

// strategy moves the bytes of a job.
type strategy interface {
	// name is used in logs.
	name() string
	// run transfers the content, it sets the job etag and modTime.
	run(ctx context.Context, job *transferJob) (err error)
}

type stopReader struct {
	reader io.Reader
	stop   *StopFlag
}

func (r *stopReader) Read(p []byte) (n int, err error) {
	if r.stop.IsStopped() {
		return 0, ErrCancelled
	}
	return r.reader.Read(p)
}

// selectStrategy picks how the job is transferred: downloads always stream,
// large uploads use the resumable session protocol when advertised, then
// chunking, and the rest goes in one request.
func (c *Coordinator) selectStrategy(job *transferJob) strategy {
	if !job.rec.IsUpload() {
		return &downloadStrategy{destination: c.destination, rateLimit: c.rateLimit}
	}
	size := job.handle.Info.Size
	if size <= c.chunkThreshold {
		return &plainStrategy{rateLimit: c.rateLimit}
	}
	caps := job.client.GetCapabilities()
	switch {
	case caps.Resumable:
		return &resumableStrategy{
			sessions:  c.sessions,
			chunkSize: c.resumableChunkSize,
			rateLimit: c.rateLimit,
		}
	case caps.Chunking:
		return &chunkedStrategy{
			chunkSize: c.chunkSize,
			rateLimit: c.rateLimit,
			now:       c.now,
		}
	default:
		return &plainStrategy{rateLimit: c.rateLimit}
	}
}
