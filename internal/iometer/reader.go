// Package iometer meters and throttles the bytes flowing through a reader.
package iometer

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const burstLimit = 1024 * 1024 * 1024 // 1GB

// TransferReader wraps an io.Reader and counts the number of bytes read
// from it.
type TransferReader struct {
	reader  io.Reader
	limiter *rate.Limiter

	// transferredSize is a pointer to an int64 that stores the number of
	// bytes transferred, it may be shared between readers
	transferredSize *int64

	// onRead is called after every read that returned data
	onRead func(n int64)

	// ctx bounds the rate limiter waits
	ctx context.Context

	// closed is a flag that indicates if the reader is closed
	closed bool
}

// NewTransferReader constructs a new TransferReader.
func NewTransferReader(reader io.Reader, transferredSize *int64) (mr *TransferReader) {
	if transferredSize == nil {
		transferredSize = new(int64)
	}
	mr = &TransferReader{
		reader:          reader,
		transferredSize: transferredSize,
		ctx:             context.Background(),
	}
	return
}

// WithContext makes the rate limiter waits return when ctx is done.
func (tr *TransferReader) WithContext(ctx context.Context) *TransferReader {
	tr.ctx = ctx
	return tr
}

// OnRead registers fn to be called with the size of every read.
func (tr *TransferReader) OnRead(fn func(n int64)) *TransferReader {
	tr.onRead = fn
	return tr
}

// Read reads from the underlying reader and increments the counter.
func (tr *TransferReader) Read(p []byte) (n int, err error) {
	n, err = tr.reader.Read(p)
	if n <= 0 {
		return
	}
	if tr.limiter != nil {
		if waitErr := tr.limiter.WaitN(tr.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	atomic.AddInt64(tr.transferredSize, int64(n))
	if tr.onRead != nil {
		tr.onRead(int64(n))
	}
	return
}

// Close closes the underlying io.Reader if it implements the
// io.Closer interface.
func (tr *TransferReader) Close() (err error) {
	if tr.closed {
		return
	}
	if closer, ok := tr.reader.(io.Closer); ok {
		err = closer.Close()
	}
	tr.closed = true
	return
}

// TransferredSize returns the number of bytes transferred.
func (tr *TransferReader) TransferredSize() int64 {
	return atomic.LoadInt64(tr.transferredSize)
}

// SetRateLimit sets rate limit (bytes/sec) to the reader, a non positive
// value removes it.
func (tr *TransferReader) SetRateLimit(bytesPerSec float64) {
	if bytesPerSec <= 0 {
		tr.limiter = nil
		return
	}
	tr.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burstLimit)
	tr.limiter.AllowN(time.Now(), burstLimit) // spend initial burst
}
