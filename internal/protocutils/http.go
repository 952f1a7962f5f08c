package protocutils

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient returns a resty client that never retries on its own and
// turns a Content-Length header into the request length, so streamed
// bodies are not sent chunked.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "cloudxfer").
		SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
			v := req.Header.Get("Content-Length")
			if v == "" {
				return nil
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid content length %q: %w", v, err)
			}
			req.ContentLength = n
			req.Header.Del("Content-Length")
			if n == 0 {
				req.Body = http.NoBody
			}
			return nil
		})
}
