// Package tus implements the resumable session API over the tus 1.0.0
// protocol.
package tus

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
)

const (
	protocolVersion = "1.0.0"

	headerResumable = "Tus-Resumable"
	headerLength    = "Upload-Length"
	headerOffset    = "Upload-Offset"
	headerMetadata  = "Upload-Metadata"

	offsetContentType = "application/offset+octet-stream"
)

// SessionAPI talks to one tus creation endpoint.
type SessionAPI struct {
	logger   logr.Logger
	http     *resty.Client
	endpoint string
}

// NewSessionAPI creates a session API for the given creation endpoint.
func NewSessionAPI(logger logr.Logger, client *resty.Client, endpoint string) *SessionAPI {
	return &SessionAPI{
		logger:   logger.WithName("tus.session"),
		http:     client,
		endpoint: endpoint,
	}
}

func (s *SessionAPI) CreateSession(
	ctx context.Context,
	size int64,
	metadata map[string]string,
) (sessionURL string, err error) {
	r := s.request(ctx).SetHeader(headerLength, strconv.FormatInt(size, 10))
	if len(metadata) > 0 {
		r.SetHeader(headerMetadata, encodeMetadata(metadata))
	}

	var resp *resty.Response
	if resp, err = r.Post(s.endpoint); err != nil {
		err = protoc.TransportError("tus create", err)
		return
	}
	if resp.StatusCode() != http.StatusCreated {
		err = statusError("tus create", resp.StatusCode())
		return
	}

	location := resp.Header().Get("Location")
	if location == "" {
		err = fmt.Errorf("tus create: %w: missing Location", protoc.ErrUnexpectedStatus)
		return
	}
	if sessionURL, err = s.resolve(location); err != nil {
		return
	}
	s.logger.V(1).Info("session created", "sessionURL", sessionURL, "size", size)
	return
}

func (s *SessionAPI) GetOffset(ctx context.Context, sessionURL string) (offset int64, err error) {
	var resp *resty.Response
	if resp, err = s.request(ctx).Head(sessionURL); err != nil {
		err = protoc.TransportError("tus head", err)
		return
	}
	if err = statusError("tus head", resp.StatusCode()); err != nil {
		return
	}
	return parseOffset("tus head", resp.Header())
}

func (s *SessionAPI) UploadChunk(
	ctx context.Context,
	sessionURL string,
	offset int64,
	body io.Reader,
	size int64,
) (newOffset int64, err error) {
	var resp *resty.Response
	if resp, err = s.request(ctx).
		SetHeader("Content-Type", offsetContentType).
		SetHeader(headerOffset, strconv.FormatInt(offset, 10)).
		SetHeader("Content-Length", strconv.FormatInt(size, 10)).
		SetBody(body).
		Patch(sessionURL); err != nil {
		err = protoc.TransportError("tus patch", err)
		return
	}
	if resp.StatusCode() != http.StatusNoContent {
		if err = statusError("tus patch", resp.StatusCode()); err == nil {
			err = fmt.Errorf("tus patch: %w %d", protoc.ErrUnexpectedStatus, resp.StatusCode())
		}
		return
	}
	return parseOffset("tus patch", resp.Header())
}

func (s *SessionAPI) Finish(ctx context.Context, sessionURL string) (offset int64, err error) {
	return s.GetOffset(ctx, sessionURL)
}

func (s *SessionAPI) request(ctx context.Context) *resty.Request {
	return s.http.R().SetContext(ctx).SetHeader(headerResumable, protocolVersion)
}

func (s *SessionAPI) resolve(location string) (string, error) {
	base, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("tus endpoint: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("tus location: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// statusError is protoc.StatusError with the tus meaning of 409 and 460:
// the server holds a different offset than the client sent.
func statusError(op string, code int) error {
	if code == http.StatusConflict || code == 460 {
		return fmt.Errorf("%s: %w", op, protoc.ErrPreconditionFailed)
	}
	return protoc.StatusError(op, code)
}

func parseOffset(op string, h http.Header) (offset int64, err error) {
	v := h.Get(headerOffset)
	if offset, err = strconv.ParseInt(v, 10, 64); err != nil || offset < 0 {
		err = fmt.Errorf("%s: %w: invalid %s %q", op, protoc.ErrUnexpectedStatus, headerOffset, v)
	}
	return
}

// encodeMetadata renders the Upload-Metadata header, keys sorted.
func encodeMetadata(metadata map[string]string) string {
	keys := lo.Keys(metadata)
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+" "+base64.StdEncoding.EncodeToString([]byte(metadata[k])))
	}
	return strings.Join(pairs, ",")
}
