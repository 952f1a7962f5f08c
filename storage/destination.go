package storage

import (
	"context"
	"io"
	"time"
)

type Destination interface {
	// Write stores a downloaded file at localPath. The content is streamed to
	// a temporary sibling and renamed over localPath once complete
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - localPath: the path of the file you want to write
	//  - body: the content of the file
	//  - size: the expected size, -1 when unknown
	//  - modTime: the modification time to set, ignored when zero
	//
	// Returns:
	//  - n: the number of bytes written
	//  - err: the error if any occurred, nil otherwise
	Write(ctx context.Context, localPath string, body io.Reader, size int64, modTime time.Time) (n int64, err error)
}
