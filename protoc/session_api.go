package protoc

import (
	"context"
	"io"
)

// SessionAPI is a resumable upload protocol where the server tracks the
// received offset of a session.
type SessionAPI interface {
	// CreateSession creates an upload session for a file of the given size.
	// The metadata is attached before the first byte is sent.
	//
	// Returns:
	//  - sessionURL: the absolute session URL
	//  - err: the error if any occurred, nil otherwise
	CreateSession(ctx context.Context, size int64, metadata map[string]string) (sessionURL string, err error)

	// GetOffset returns the number of bytes the server holds for the session.
	//
	// Returns:
	//  - offset: the server reported offset
	//  - err: ErrNotFound when the session expired or never existed
	GetOffset(ctx context.Context, sessionURL string) (offset int64, err error)

	// UploadChunk sends size bytes of body starting at offset.
	//
	// Returns:
	//  - newOffset: the server reported offset after the chunk
	//  - err: the error if any occurred, nil otherwise
	UploadChunk(ctx context.Context, sessionURL string, offset int64, body io.Reader, size int64) (newOffset int64, err error)

	// Finish stops using the session gracefully; it stays resumable.
	//
	// Returns:
	//  - offset: the offset the session can be resumed from
	//  - err: the error if any occurred, nil otherwise
	Finish(ctx context.Context, sessionURL string) (offset int64, err error)
}
