package webdav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/derektruong/cloudxfer/internal/protocutils"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"
)

const (
	methodPropfind = "PROPFIND"
	methodMkcol    = "MKCOL"
	methodMove     = "MOVE"

	filesRoot   = "remote.php/dav/files"
	spacesRoot  = "dav/spaces"
	uploadsRoot = "remote.php/dav/uploads"

	headerMtime       = "X-OC-Mtime"
	headerTotalLength = "OC-Total-Length"
	headerOCETag      = "OC-ETag"
)

// Store is the protoc.RemoteStore of one WebDAV space.
type Store struct {
	logger  logr.Logger
	client  *Client
	http    *resty.Client
	spaceID string
}

func (s *Store) Exists(ctx context.Context, remotePath string) (exists bool, err error) {
	var resp *resty.Response
	if resp, err = s.propfind(ctx, s.fileURL, remotePath, "0"); err != nil {
		return
	}
	switch resp.StatusCode() {
	case http.StatusMultiStatus, http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, protoc.StatusError("exists "+remotePath, resp.StatusCode())
	}
}

func (s *Store) Stat(ctx context.Context, remotePath string) (stat protoc.FileStat, err error) {
	var resp *resty.Response
	if resp, err = s.propfind(ctx, s.fileURL, remotePath, "0"); err != nil {
		return
	}
	if resp.StatusCode() != http.StatusMultiStatus {
		err = protoc.StatusError("stat "+remotePath, resp.StatusCode())
		return
	}
	var entries []entry
	if entries, err = parseMultistatus(resp.Body()); err != nil {
		return
	}
	if len(entries) == 0 {
		err = fmt.Errorf("stat %s: empty multistatus", remotePath)
		return
	}
	stat = entries[0].stat(remotePath)
	return
}

func (s *Store) MakeDirectory(ctx context.Context, dirPath string, recursive bool) (err error) {
	dirs := []string{path.Clean("/" + dirPath)}
	if recursive {
		dirs = protocutils.Ancestors(dirPath)
	}
	for i, dir := range dirs {
		last := i == len(dirs)-1
		var u string
		if u, err = s.fileURL(dir); err != nil {
			return
		}
		var resp *resty.Response
		if resp, err = s.http.R().SetContext(ctx).Execute(methodMkcol, u); err != nil {
			return protoc.TransportError("mkcol "+dir, err)
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusCreated:
		case code == http.StatusMethodNotAllowed:
			if last {
				return fmt.Errorf("mkcol %s: %w", dir, protoc.ErrAlreadyExists)
			}
		case code == http.StatusConflict:
			return fmt.Errorf("mkcol %s: parent: %w", dir, protoc.ErrNotFound)
		default:
			return protoc.StatusError("mkcol "+dir, code)
		}
	}
	return
}

func (s *Store) Upload(ctx context.Context, req protoc.UploadRequest) (etag string, err error) {
	var u string
	if u, err = s.fileURL(req.Path); err != nil {
		return
	}
	r := s.http.R().
		SetContext(ctx).
		SetBody(req.Body).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("Content-Length", strconv.FormatInt(req.Size, 10)).
		SetHeader(headerTotalLength, strconv.FormatInt(req.Size, 10))
	if !req.ModTime.IsZero() {
		r.SetHeader(headerMtime, strconv.FormatInt(req.ModTime.Unix(), 10))
	}
	if req.IfMatch != "" {
		r.SetHeader("If-Match", req.IfMatch)
	}

	var resp *resty.Response
	if resp, err = r.Put(u); err != nil {
		err = protoc.TransportError("put "+req.Path, err)
		return
	}
	if err = protoc.StatusError("put "+req.Path, resp.StatusCode()); err != nil {
		return
	}
	etag = responseETag(resp.Header())
	return
}

func (s *Store) Download(ctx context.Context, remotePath string) (body io.ReadCloser, stat protoc.FileStat, err error) {
	var u string
	if u, err = s.fileURL(remotePath); err != nil {
		return
	}
	var resp *resty.Response
	if resp, err = s.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(u); err != nil {
		err = protoc.TransportError("get "+remotePath, err)
		return
	}
	if err = protoc.StatusError("get "+remotePath, resp.StatusCode()); err != nil {
		_ = resp.RawBody().Close()
		return
	}
	stat = protoc.FileStat{
		Path: remotePath,
		Size: resp.RawResponse.ContentLength,
		ETag: responseETag(resp.Header()),
	}
	if lm := resp.Header().Get("Last-Modified"); lm != "" {
		stat.ModTime, _ = http.ParseTime(lm)
	}
	body = resp.RawBody()
	return
}

func (s *Store) Move(ctx context.Context, srcPath, dstPath string, overwrite bool) (err error) {
	var src, dst string
	if src, err = s.fileURL(srcPath); err != nil {
		return
	}
	if dst, err = s.fileURL(dstPath); err != nil {
		return
	}
	var resp *resty.Response
	if resp, err = s.http.R().
		SetContext(ctx).
		SetHeader("Destination", dst).
		SetHeader("Overwrite", overwriteHeader(overwrite)).
		Execute(methodMove, src); err != nil {
		return protoc.TransportError("move "+srcPath, err)
	}
	return protoc.StatusError("move "+srcPath, resp.StatusCode())
}

func (s *Store) Delete(ctx context.Context, remotePath string) (err error) {
	var u string
	if u, err = s.fileURL(remotePath); err != nil {
		return
	}
	return s.delete(ctx, u, remotePath)
}

func (s *Store) CreateChunkFolder(ctx context.Context, folderID string) (err error) {
	var u string
	if u, err = s.uploadURL(folderID); err != nil {
		return
	}
	var resp *resty.Response
	if resp, err = s.http.R().SetContext(ctx).Execute(methodMkcol, u); err != nil {
		return protoc.TransportError("mkcol chunk folder "+folderID, err)
	}
	if resp.StatusCode() == http.StatusMethodNotAllowed {
		return fmt.Errorf("mkcol chunk folder %s: %w", folderID, protoc.ErrAlreadyExists)
	}
	return protoc.StatusError("mkcol chunk folder "+folderID, resp.StatusCode())
}

func (s *Store) UploadChunk(ctx context.Context, folderID string, index int, body io.Reader, size int64) (err error) {
	var u string
	if u, err = s.uploadURL(folderID, chunkName(index)); err != nil {
		return
	}
	var resp *resty.Response
	if resp, err = s.http.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("Content-Length", strconv.FormatInt(size, 10)).
		Put(u); err != nil {
		return protoc.TransportError("put chunk "+folderID, err)
	}
	return protoc.StatusError(fmt.Sprintf("put chunk %s/%d", folderID, index), resp.StatusCode())
}

func (s *Store) AssembleChunks(ctx context.Context, req protoc.AssembleRequest) (etag string, err error) {
	var src, dst string
	if src, err = s.uploadURL(req.FolderID, protoc.FinalChunkName); err != nil {
		return
	}
	if dst, err = s.fileURL(req.Target); err != nil {
		return
	}
	r := s.http.R().
		SetContext(ctx).
		SetHeader("Destination", dst).
		SetHeader("Overwrite", overwriteHeader(true)).
		SetHeader(headerTotalLength, strconv.FormatInt(req.Size, 10))
	if !req.ModTime.IsZero() {
		r.SetHeader(headerMtime, strconv.FormatInt(req.ModTime.Unix(), 10))
	}
	if req.IfMatch != "" {
		r.SetHeader("If-Match", req.IfMatch)
	}

	var resp *resty.Response
	if resp, err = r.Execute(methodMove, src); err != nil {
		err = protoc.TransportError("assemble "+req.FolderID, err)
		return
	}
	if err = protoc.StatusError("assemble "+req.FolderID, resp.StatusCode()); err != nil {
		return
	}
	etag = responseETag(resp.Header())
	return
}

func (s *Store) DeleteChunkFolder(ctx context.Context, folderID string) (err error) {
	var u string
	if u, err = s.uploadURL(folderID); err != nil {
		return
	}
	return s.delete(ctx, u, "chunk folder "+folderID)
}

func (s *Store) ListChunkFolders(ctx context.Context) (folders []protoc.ChunkFolder, err error) {
	var resp *resty.Response
	if resp, err = s.propfind(ctx, s.uploadURL, "", "1"); err != nil {
		return
	}
	if resp.StatusCode() == http.StatusNotFound {
		return
	}
	if resp.StatusCode() != http.StatusMultiStatus {
		err = protoc.StatusError("list chunk folders", resp.StatusCode())
		return
	}
	var entries []entry
	if entries, err = parseMultistatus(resp.Body()); err != nil {
		return
	}
	root := strings.TrimSuffix(resp.Request.RawRequest.URL.Path, "/")
	for _, e := range entries {
		hrefPath := e.hrefPath()
		if strings.TrimSuffix(hrefPath, "/") == root || !e.isDir() {
			continue
		}
		folders = append(folders, protoc.ChunkFolder{
			ID:      path.Base(strings.TrimSuffix(hrefPath, "/")),
			ModTime: e.modTime(),
		})
	}
	return
}

func (s *Store) delete(ctx context.Context, u, what string) (err error) {
	var resp *resty.Response
	if resp, err = s.http.R().SetContext(ctx).Delete(u); err != nil {
		return protoc.TransportError("delete "+what, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	return protoc.StatusError("delete "+what, resp.StatusCode())
}

func (s *Store) propfind(
	ctx context.Context,
	urlOf func(...string) (string, error),
	p, depth string,
) (resp *resty.Response, err error) {
	var u string
	if u, err = urlOf(p); err != nil {
		return
	}
	if resp, err = s.http.R().
		SetContext(ctx).
		SetHeader("Depth", depth).
		SetHeader("Content-Type", "application/xml; charset=utf-8").
		SetBody(propfindBody).
		Execute(methodPropfind, u); err != nil {
		err = protoc.TransportError("propfind "+p, err)
	}
	return
}

// fileURL addresses a path of the store's space.
func (s *Store) fileURL(elems ...string) (string, error) {
	if s.spaceID != "" {
		return protocutils.BuildURL(s.client.BaseURL, append([]string{spacesRoot, s.spaceID}, elems...)...)
	}
	return protocutils.BuildURL(s.client.BaseURL, append([]string{filesRoot, s.client.Username}, elems...)...)
}

// uploadURL addresses the chunk uploads area of the account.
func (s *Store) uploadURL(elems ...string) (string, error) {
	return protocutils.BuildURL(s.client.BaseURL, append([]string{uploadsRoot, s.client.Username}, elems...)...)
}

func chunkName(index int) string {
	return fmt.Sprintf("%08d", index)
}

func overwriteHeader(overwrite bool) string {
	if overwrite {
		return "T"
	}
	return "F"
}

func responseETag(h http.Header) string {
	if etag := h.Get(headerOCETag); etag != "" {
		return etag
	}
	return h.Get("ETag")
}

// entry is one parsed PROPFIND response.
type entry struct {
	href          string
	etag          string
	contentLength string
	lastModified  string
	collection    bool
}

func (e entry) hrefPath() string {
	if u, err := url.Parse(e.href); err == nil {
		return u.Path
	}
	return e.href
}

func (e entry) isDir() bool {
	return e.collection
}

func (e entry) modTime() time.Time {
	t, _ := http.ParseTime(e.lastModified)
	return t
}

func (e entry) stat(remotePath string) protoc.FileStat {
	size, err := strconv.ParseInt(strings.TrimSpace(e.contentLength), 10, 64)
	if err != nil {
		size = -1
	}
	return protoc.FileStat{
		Path:    remotePath,
		Size:    size,
		ModTime: e.modTime(),
		ETag:    e.etag,
		IsDir:   e.collection,
	}
}
