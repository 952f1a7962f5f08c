package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
)

const (
	defaultDirPerm  = os.FileMode(0755)
	defaultFilePerm = os.FileMode(0644)
)

// Store is the afero backed protoc.RemoteStore of one space.
type Store struct {
	logger  logr.Logger
	fs      afero.Fs
	uploads afero.Fs

	initOnce sync.Once
	initErr  error
	init     func() error
}

func (s *Store) ready() error {
	s.initOnce.Do(func() {
		if s.init != nil {
			s.initErr = s.init()
		}
	})
	return s.initErr
}

func (s *Store) Exists(ctx context.Context, remotePath string) (exists bool, err error) {
	if err = s.ready(); err != nil {
		return
	}
	return afero.Exists(s.fs, remotePath)
}

func (s *Store) Stat(ctx context.Context, remotePath string) (stat protoc.FileStat, err error) {
	if err = s.ready(); err != nil {
		return
	}
	var fi os.FileInfo
	if fi, err = s.fs.Stat(remotePath); err != nil {
		err = mapFsError("stat", err)
		return
	}
	stat = statOf(remotePath, fi)
	return
}

func (s *Store) MakeDirectory(ctx context.Context, dirPath string, recursive bool) (err error) {
	if err = s.ready(); err != nil {
		return
	}
	var exists bool
	if exists, err = afero.DirExists(s.fs, dirPath); err != nil {
		return
	}
	if exists {
		return fmt.Errorf("mkdir %s: %w", dirPath, protoc.ErrAlreadyExists)
	}
	if recursive {
		return s.fs.MkdirAll(dirPath, defaultDirPerm)
	}
	if err = s.fs.Mkdir(dirPath, defaultDirPerm); err != nil {
		err = mapFsError("mkdir", err)
	}
	return
}

func (s *Store) Upload(ctx context.Context, req protoc.UploadRequest) (etag string, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if err = s.checkIfMatch(req.Path, req.IfMatch); err != nil {
		return
	}
	if err = s.requireParent(req.Path); err != nil {
		return
	}
	if err = writeAtomically(s.fs, req.Path, req.Body, req.Size); err != nil {
		return
	}
	return s.finishWrite(req.Path, req.ModTime)
}

func (s *Store) Download(ctx context.Context, remotePath string) (body io.ReadCloser, stat protoc.FileStat, err error) {
	if err = s.ready(); err != nil {
		return
	}
	var f afero.File
	if f, err = s.fs.Open(remotePath); err != nil {
		err = mapFsError("download", err)
		return
	}
	var fi os.FileInfo
	if fi, err = f.Stat(); err != nil {
		_ = f.Close()
		return
	}
	body, stat = f, statOf(remotePath, fi)
	return
}

func (s *Store) Move(ctx context.Context, srcPath, dstPath string, overwrite bool) (err error) {
	if err = s.ready(); err != nil {
		return
	}
	var exists bool
	if exists, err = afero.Exists(s.fs, dstPath); err != nil {
		return
	}
	if exists && !overwrite {
		return fmt.Errorf("move %s: %w", dstPath, protoc.ErrPreconditionFailed)
	}
	if err = s.fs.Rename(srcPath, dstPath); err != nil {
		err = mapFsError("move", err)
	}
	return
}

func (s *Store) Delete(ctx context.Context, remotePath string) (err error) {
	if err = s.ready(); err != nil {
		return
	}
	return s.fs.RemoveAll(remotePath)
}

func (s *Store) CreateChunkFolder(ctx context.Context, folderID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}
	if err = s.uploads.Mkdir(folderID, defaultDirPerm); err != nil {
		err = mapFsError("create chunk folder", err)
	}
	return
}

func (s *Store) UploadChunk(ctx context.Context, folderID string, index int, body io.Reader, size int64) (err error) {
	if err = s.ready(); err != nil {
		return
	}
	if _, err = s.uploads.Stat(folderID); err != nil {
		return mapFsError("upload chunk", err)
	}
	return writeAtomically(s.uploads, chunkName(folderID, index), body, size)
}

func (s *Store) AssembleChunks(ctx context.Context, req protoc.AssembleRequest) (etag string, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if err = s.checkIfMatch(req.Target, req.IfMatch); err != nil {
		return
	}
	if err = s.requireParent(req.Target); err != nil {
		return
	}

	var entries []os.FileInfo
	if entries, err = afero.ReadDir(s.uploads, req.FolderID); err != nil {
		err = mapFsError("assemble", err)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	readers := make([]io.Reader, 0, len(entries))
	for _, entry := range entries {
		var f afero.File
		if f, err = s.uploads.Open(path.Join(req.FolderID, entry.Name())); err != nil {
			return
		}
		defer f.Close()
		readers = append(readers, f)
	}
	if err = writeAtomically(s.fs, req.Target, io.MultiReader(readers...), req.Size); err != nil {
		return
	}
	if etag, err = s.finishWrite(req.Target, req.ModTime); err != nil {
		return
	}
	if rmErr := s.uploads.RemoveAll(req.FolderID); rmErr != nil {
		s.logger.Error(rmErr, "failed to remove assembled chunk folder", "folderID", req.FolderID)
	}
	return
}

func (s *Store) DeleteChunkFolder(ctx context.Context, folderID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}
	return s.uploads.RemoveAll(folderID)
}

func (s *Store) ListChunkFolders(ctx context.Context) (folders []protoc.ChunkFolder, err error) {
	if err = s.ready(); err != nil {
		return
	}
	var entries []os.FileInfo
	if entries, err = afero.ReadDir(s.uploads, "/"); err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, protoc.ChunkFolder{ID: entry.Name(), ModTime: entry.ModTime()})
		}
	}
	return
}

func (s *Store) checkIfMatch(remotePath, ifMatch string) (err error) {
	if ifMatch == "" {
		return
	}
	var fi os.FileInfo
	if fi, err = s.fs.Stat(remotePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("if-match %s: %w", remotePath, protoc.ErrPreconditionFailed)
		}
		return
	}
	if etagOf(fi) != ifMatch {
		return fmt.Errorf("if-match %s: %w", remotePath, protoc.ErrPreconditionFailed)
	}
	return
}

func (s *Store) requireParent(remotePath string) (err error) {
	var exists bool
	if exists, err = afero.DirExists(s.fs, path.Dir(remotePath)); err != nil {
		return
	}
	if !exists {
		return fmt.Errorf("parent of %s: %w", remotePath, protoc.ErrNotFound)
	}
	return
}

func (s *Store) finishWrite(remotePath string, modTime time.Time) (etag string, err error) {
	if !modTime.IsZero() {
		if err = s.fs.Chtimes(remotePath, modTime, modTime); err != nil {
			return
		}
	}
	var fi os.FileInfo
	if fi, err = s.fs.Stat(remotePath); err != nil {
		return
	}
	etag = etagOf(fi)
	return
}

// writeAtomically writes body to a sibling temp file, checks its length and
// renames it over target.
func writeAtomically(fs afero.Fs, target string, body io.Reader, size int64) (err error) {
	tmp := path.Join(path.Dir(target), fmt.Sprintf(".%s.%d.tmp", path.Base(target), time.Now().UnixNano()))
	var f afero.File
	if f, err = fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm); err != nil {
		return
	}
	var n int64
	n, err = io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("write %s: got %d bytes, expected %d", target, n, size)
	}
	if err != nil {
		_ = fs.Remove(tmp)
		return
	}
	return fs.Rename(tmp, target)
}

func chunkName(folderID string, index int) string {
	return path.Join(folderID, fmt.Sprintf("%08d", index))
}

func statOf(remotePath string, fi os.FileInfo) protoc.FileStat {
	return protoc.FileStat{
		Path:    remotePath,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		ETag:    etagOf(fi),
		IsDir:   fi.IsDir(),
	}
}

func etagOf(fi os.FileInfo) string {
	return fmt.Sprintf("%x-%x", fi.ModTime().UnixNano(), fi.Size())
}

func mapFsError(op string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s: %w", op, protoc.ErrNotFound)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%s: %w", op, protoc.ErrAlreadyExists)
	default:
		return err
	}
}
