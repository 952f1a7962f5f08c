package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
)

// TempDirUseMemory keeps the buffered parts in memory instead of temp files.
const TempDirUseMemory = "_memory"

// partProducer cuts a stream into parts buffered on disk (or in memory) so
// each part can be sent with a known length while the next one is read.
type partProducer struct {
	tmpDir string
	parts  chan bufferedPart
	err    error
	r      io.Reader
}

type bufferedPart struct {
	reader io.ReadSeeker
	close  func() error
	size   int64
}

func newPartProducer(src io.Reader, backlog int64, tmpDir string) (*partProducer, <-chan bufferedPart) {
	parts := make(chan bufferedPart, backlog)
	return &partProducer{tmpDir: tmpDir, parts: parts, r: src}, parts
}

// closeUnreadParts must be called by the consumer once it stops reading.
func (p *partProducer) closeUnreadParts() {
	for part := range p.parts {
		_ = part.close()
	}
}

// produce sends parts of partSize bytes until the source is drained, a read
// fails or ctx is done, then closes the channel.
func (p *partProducer) produce(ctx context.Context, partSize int64) {
loop:
	for {
		part, ok, err := p.nextPart(partSize)
		if err != nil {
			p.err = err
			break
		}
		if !ok {
			break
		}
		select {
		case p.parts <- part:
		case <-ctx.Done():
			_ = part.close()
			break loop
		}
	}
	close(p.parts)
}

func (p *partProducer) nextPart(size int64) (bufferedPart, bool, error) {
	limited := io.LimitReader(p.r, size)
	if p.tmpDir == TempDirUseMemory {
		buf := new(bytes.Buffer)
		n, err := io.Copy(buf, limited)
		if err != nil || n == 0 {
			return bufferedPart{}, false, err
		}
		return bufferedPart{
			reader: bytes.NewReader(buf.Bytes()),
			close:  func() error { return nil },
			size:   n,
		}, true, nil
	}

	file, err := os.CreateTemp(p.tmpDir, "cloudxfer-s3-part-")
	if err != nil {
		return bufferedPart{}, false, err
	}
	n, err := io.Copy(file, limited)
	// an empty copy means the source is drained
	if err != nil || n == 0 {
		cleanUpTempFile(file)
		return bufferedPart{}, false, err
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		cleanUpTempFile(file)
		return bufferedPart{}, false, err
	}
	return bufferedPart{
		reader: file,
		close: func() error {
			// the SDK may have closed the body already
			if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				return err
			}
			return os.Remove(file.Name())
		},
		size: n,
	}, true, nil
}

func cleanUpTempFile(file *os.File) {
	_ = file.Close()
	_ = os.Remove(file.Name())
}
