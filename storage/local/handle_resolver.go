package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/derektruong/cloudxfer/storage"
	"github.com/spf13/afero"
)

const fileScheme = "file"

// FileHandleResolver resolves "file://" URIs and bare paths.
type FileHandleResolver struct {
	fs afero.Fs
}

func NewFileHandleResolver(fs afero.Fs) *FileHandleResolver {
	return &FileHandleResolver{fs: fs}
}

func (r *FileHandleResolver) Open(ctx context.Context, handle string) (reader io.ReadCloser, err error) {
	var filePath string
	if filePath, err = r.pathOf(handle); err != nil {
		return
	}
	return r.fs.Open(filePath)
}

func (r *FileHandleResolver) Remove(ctx context.Context, handle string) (err error) {
	var filePath string
	if filePath, err = r.pathOf(handle); err != nil {
		return
	}
	if err = r.fs.Remove(filePath); errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return
}

func (r *FileHandleResolver) pathOf(handle string) (filePath string, err error) {
	if !strings.Contains(handle, "://") {
		return filepath.Clean(handle), nil
	}
	var u *url.URL
	if u, err = url.Parse(handle); err != nil {
		return
	}
	if u.Scheme != fileScheme {
		err = fmt.Errorf("%w: %s", storage.ErrHandleNotSupported, u.Scheme)
		return
	}
	return filepath.FromSlash(u.Path), nil
}
