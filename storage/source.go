package storage

import (
	"context"
	"io"

	"github.com/derektruong/cloudxfer/internal/xferfile"
	"github.com/derektruong/cloudxfer/record"
)

// Handle is an opened local source.
type Handle struct {
	// Reader reads the content from the start
	Reader io.ReadSeekCloser
	// Info describes the content
	Info xferfile.Info

	release func() error
}

// NewHandle creates a handle whose Release closes reader and then calls
// release, which may be nil.
func NewHandle(reader io.ReadSeekCloser, info xferfile.Info, release func() error) *Handle {
	return &Handle{Reader: reader, Info: info, release: release}
}

// Release closes the reader and removes the materialized copy, if any.
func (h *Handle) Release() (err error) {
	if h == nil {
		return
	}
	if h.Reader != nil {
		err = h.Reader.Close()
	}
	if h.release != nil {
		if releaseErr := h.release(); err == nil {
			err = releaseErr
		}
	}
	return
}

type Source interface {
	// Open opens the local content of an upload record
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - rec: the record, its LocalPath or SourceHandle is opened
	//
	// Returns:
	//  - handle: the opened source, the caller releases it
	//  - err: an error wrapping ErrSourceInvalid if the source cannot be read
	Open(ctx context.Context, rec record.Record) (handle *Handle, err error)

	// Remove deletes the local content of an upload record, used once a
	// MOVE upload succeeded
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - rec: the record whose source is removed
	//
	// Returns:
	//  - err: the error if any occurred, nil otherwise
	Remove(ctx context.Context, rec record.Record) (err error)
}

// HandleResolver opens the content behind opaque source handles.
type HandleResolver interface {
	// Open opens the content of the handle
	//
	// Returns:
	//  - reader: the content, the caller closes it
	//  - err: the error if any occurred, nil otherwise
	Open(ctx context.Context, handle string) (reader io.ReadCloser, err error)

	// Remove deletes the content of the handle
	Remove(ctx context.Context, handle string) (err error)
}
