package cloudxfer

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/derektruong/cloudxfer/internal/fileutils"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store"
	"github.com/go-logr/logr"
)

var ErrCollisionExhausted = errors.New("no free name for the remote file")

// conflictResolver picks the remote path an upload is written to.
type conflictResolver struct {
	logger     logr.Logger
	fileStates store.FileStateStore
	maxSuffix  int
}

// resolve returns the path the upload goes to and the etag precondition to
// send with it. Without ForceOverwrite a taken name is replaced by the first
// free "name (n).ext"; with it the etag recorded in conflict, if any,
// becomes the IfMatch precondition.
func (r *conflictResolver) resolve(
	ctx context.Context,
	remote protoc.RemoteStore,
	rec record.Record,
) (finalPath, ifMatch string, err error) {
	if rec.ForceOverwrite {
		finalPath = rec.RemotePath
		if ifMatch, err = r.fileStates.EtagInConflict(ctx, store.KeyOf(rec)); err != nil {
			err = fmt.Errorf("read conflict marker: %w", err)
		}
		return
	}

	var exists bool
	if exists, err = remote.Exists(ctx, rec.RemotePath); err != nil || !exists {
		finalPath = rec.RemotePath
		return
	}

	dir, name := path.Split(rec.RemotePath)
	for n := 1; n <= r.maxSuffix; n++ {
		candidate := dir + fileutils.CollisionName(name, n)
		if exists, err = remote.Exists(ctx, candidate); err != nil {
			return
		}
		if !exists {
			r.logger.V(1).Info("remote name taken, renamed upload",
				"recordID", rec.ID, "remotePath", rec.RemotePath, "finalPath", candidate)
			finalPath = candidate
			return
		}
	}
	err = fmt.Errorf("%w: %s after %d attempts", ErrCollisionExhausted, rec.RemotePath, r.maxSuffix)
	return
}
