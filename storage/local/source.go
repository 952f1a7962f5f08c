// Package local implements the local side of transfers on an afero file
// system: upload sources (paths or opaque handles materialized into a
// cache) and the download destination.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/derektruong/cloudxfer/internal/xferfile"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/storage"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
)

const (
	meterNamePrefix   = "transfer/storage/local"
	personalCacheName = "personal"
	defaultCacheName  = "cloudxfer-cache"
)

var (
	defaultDirPerm  = os.FileMode(0755)
	defaultFilePerm = os.FileMode(0664)
)

type Source struct {
	logger    logr.Logger
	fs        afero.Fs
	cacheDir  string
	resolver  storage.HandleResolver
	keepCache bool
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSourceFs sets the file system the paths and the cache live on.
func WithSourceFs(fs afero.Fs) SourceOption {
	return func(s *Source) {
		s.fs = fs
	}
}

// WithCacheDir sets the directory opaque handles are materialized into.
func WithCacheDir(dir string) SourceOption {
	return func(s *Source) {
		s.cacheDir = dir
	}
}

// WithHandleResolver sets the resolver of opaque source handles.
func WithHandleResolver(resolver storage.HandleResolver) SourceOption {
	return func(s *Source) {
		s.resolver = resolver
	}
}

// WithKeepCachedSource keeps materialized copies after the transfer, a later
// attempt of the same record re-uses them.
func WithKeepCachedSource(keep bool) SourceOption {
	return func(s *Source) {
		s.keepCache = keep
	}
}

func NewSource(logger logr.Logger, opts ...SourceOption) (s *Source) {
	s = &Source{
		logger:   logger.WithName("local.source"),
		fs:       afero.NewOsFs(),
		cacheDir: filepath.Join(os.TempDir(), defaultCacheName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = NewFileHandleResolver(s.fs)
	}
	return
}

func (s *Source) Open(ctx context.Context, rec record.Record) (handle *storage.Handle, err error) {
	switch {
	case rec.LocalPath != "":
		handle, err = s.openPath(rec.LocalPath, nil)
	case rec.SourceHandle != "":
		handle, err = s.openHandle(ctx, rec)
	default:
		err = storage.ErrSourceMissing
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", storage.ErrSourceInvalid, err)
	}
	return
}

func (s *Source) Remove(ctx context.Context, rec record.Record) (err error) {
	switch {
	case rec.LocalPath != "":
		if err = s.fs.Remove(rec.LocalPath); errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	case rec.SourceHandle != "":
		err = s.resolver.Remove(ctx, rec.SourceHandle)
	default:
		err = storage.ErrSourceMissing
	}
	return
}

// CachePath returns where the content of a handle record is materialized.
func (s *Source) CachePath(rec record.Record) string {
	space := personalCacheName
	if id := rec.Space(); id != "" {
		space = id
	}
	return filepath.Join(s.cacheDir, rec.AccountName, space, filepath.FromSlash(rec.RemotePath))
}

func (s *Source) openPath(filePath string, release func() error) (handle *storage.Handle, err error) {
	var file afero.File
	if file, err = s.fs.Open(filePath); err != nil {
		return
	}
	var fi os.FileInfo
	if fi, err = file.Stat(); err != nil {
		_ = file.Close()
		return
	}
	if fi.IsDir() {
		_ = file.Close()
		err = fmt.Errorf("%s is a directory", filePath)
		return
	}
	var info xferfile.Info
	if info, err = xferfile.NewInfo(filePath, fi.Size(), fi.ModTime()); err != nil {
		_ = file.Close()
		return
	}
	handle = storage.NewHandle(file, info, release)
	return
}

func (s *Source) openHandle(ctx context.Context, rec record.Record) (handle *storage.Handle, err error) {
	cachePath := s.CachePath(rec)
	release := func() error {
		if s.keepCache {
			return nil
		}
		if err := s.fs.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	var cached bool
	if s.keepCache {
		if cached, err = afero.Exists(s.fs, cachePath); err != nil {
			return
		}
	}
	if !cached {
		if err = s.materialize(ctx, rec.SourceHandle, cachePath); err != nil {
			return
		}
		s.logger.V(1).Info("materialized source handle", "recordID", rec.ID, "cachePath", cachePath)
	}
	if handle, err = s.openPath(cachePath, release); err != nil {
		_ = release()
	}
	return
}

func (s *Source) materialize(ctx context.Context, sourceHandle, cachePath string) (err error) {
	var reader io.ReadCloser
	if reader, err = s.resolver.Open(ctx, sourceHandle); err != nil {
		return
	}
	defer reader.Close()

	if err = s.fs.MkdirAll(filepath.Dir(cachePath), defaultDirPerm); err != nil {
		return
	}
	tmp := cachePath + ".tmp"
	var file afero.File
	if file, err = s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm); err != nil {
		return
	}
	_, err = io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return
	}
	return s.fs.Rename(tmp, cachePath)
}
