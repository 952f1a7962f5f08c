package cloudxfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/derektruong/cloudxfer/internal/protocutils"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/storage"
	"github.com/derektruong/cloudxfer/store"
	"github.com/google/uuid"
)

// sessionNamespace seeds the fingerprints of resumable uploads.
var sessionNamespace = uuid.MustParse("4f0d2c8e-7a51-4b8e-9f3a-1c6d5e2b7a90")

const (
	metadataFileName = "filename"
	metadataDir      = "dir"
)

// resumableStrategy uploads through a server side session that remembers
// the received offset, a later attempt continues where the last one ended.
type resumableStrategy struct {
	sessions  store.SessionStore
	chunkSize int64
	rateLimit float64
}

func (s *resumableStrategy) name() string {
	return "resumable"
}

func (s *resumableStrategy) run(ctx context.Context, job *transferJob) (err error) {
	info := job.handle.Info
	fp := fingerprint(job.rec, info.Size, info.ModTime.UnixNano())
	if job.rec.SessionID != fp {
		if err = job.persist(ctx, record.Patch{SessionID: &fp}); err != nil {
			return
		}
	}

	if job.ifMatch != "" {
		if err = s.checkIfMatch(ctx, job); err != nil {
			return
		}
	}

	api := job.client.GetSessionAPI(job.logger, job.rec.Space())
	var (
		sessionURL string
		offset     int64
	)
	if sessionURL, offset, err = s.openSession(ctx, job, api, fp, info.Size); err != nil {
		return
	}
	if offset > 0 {
		job.logger.Info("resuming upload session", "offset", offset, "size", info.Size)
		if _, err = job.handle.Reader.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("%w: seek to %d: %w", storage.ErrSourceInvalid, offset, err)
		}
		job.progress.advanceTo(offset)
	}

	for offset < info.Size {
		if job.stop.IsStopped() {
			if _, finishErr := api.Finish(context.WithoutCancel(ctx), sessionURL); finishErr != nil {
				job.logger.Error(finishErr, "failed to finish upload session", "sessionURL", sessionURL)
			}
			err = ErrCancelled
			return
		}
		n := min(s.chunkSize, info.Size-offset)
		body := job.progress.reader(ctx, io.LimitReader(job.handle.Reader, n), s.rateLimit)
		var newOffset int64
		if newOffset, err = api.UploadChunk(ctx, sessionURL, offset, body, n); err != nil {
			return
		}
		job.written += body.TransferredSize()
		if newOffset <= offset || newOffset > info.Size {
			return fmt.Errorf("%w: session offset %d after sending %d bytes at %d",
				protoc.ErrUnexpectedStatus, newOffset, n, offset)
		}
		if newOffset != offset+n {
			// the server kept less than it was sent
			if _, err = job.handle.Reader.Seek(newOffset, io.SeekStart); err != nil {
				return fmt.Errorf("%w: seek to %d: %w", storage.ErrSourceInvalid, newOffset, err)
			}
		}
		offset = newOffset
	}

	if delErr := s.sessions.Delete(ctx, fp); delErr != nil {
		job.logger.Error(delErr, "failed to forget upload session", "fingerprint", fp)
	}
	job.modTime = info.ModTime
	if stat, statErr := job.remote.Stat(ctx, job.rec.RemotePath); statErr == nil {
		job.etag = stat.ETag
	} else {
		job.logger.V(1).Info("uploaded file not visible yet", "error", statErr.Error())
	}
	return
}

// checkIfMatch fails when the remote file no longer carries the etag the
// overwrite was decided against. It runs before the session is opened.
func (s *resumableStrategy) checkIfMatch(ctx context.Context, job *transferJob) error {
	stat, err := job.remote.Stat(ctx, job.rec.RemotePath)
	switch {
	case errors.Is(err, protoc.ErrNotFound):
		return fmt.Errorf("%w: %s is gone, expected etag %s",
			protoc.ErrPreconditionFailed, job.rec.RemotePath, job.ifMatch)
	case err != nil:
		return err
	case stat.ETag != job.ifMatch:
		return fmt.Errorf("%w: %s changed since etag %s",
			protoc.ErrPreconditionFailed, job.rec.RemotePath, job.ifMatch)
	}
	return nil
}

// openSession returns the stored session of fp with its server offset, or
// creates a new one when there is none or the server forgot it.
func (s *resumableStrategy) openSession(
	ctx context.Context,
	job *transferJob,
	api protoc.SessionAPI,
	fp string,
	size int64,
) (sessionURL string, offset int64, err error) {
	sessionURL, err = s.sessions.Get(ctx, fp)
	switch {
	case err == nil:
		if offset, err = api.GetOffset(ctx, sessionURL); err == nil {
			return
		}
		if !errors.Is(err, protoc.ErrNotFound) {
			return
		}
		job.logger.Info("upload session expired, starting over", "sessionURL", sessionURL)
		if err = s.sessions.Delete(ctx, fp); err != nil {
			return
		}
	case errors.Is(err, store.ErrSessionNotFound):
	default:
		return
	}

	offset = 0
	if sessionURL, err = api.CreateSession(ctx, size, map[string]string{
		metadataFileName: path.Base(job.rec.RemotePath),
		metadataDir:      protocutils.DirWithSlash(job.rec.RemotePath),
	}); err != nil {
		return
	}
	err = s.sessions.Put(ctx, fp, sessionURL)
	return
}

// fingerprint identifies the upload of one version of a file to one path.
func fingerprint(rec record.Record, size, modTimeNanos int64) string {
	key := fmt.Sprintf("%s|%s|%s|%d|%d", rec.AccountName, rec.Space(), rec.RemotePath, size, modTimeNanos)
	return uuid.NewSHA1(sessionNamespace, []byte(key)).String()
}
