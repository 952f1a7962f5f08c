// Package webdav implements the remote store over WebDAV, including the
// chunked upload dialect where chunks are collected in an uploads folder
// and assembled with a MOVE of the virtual ".file" entry.
package webdav

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/derektruong/cloudxfer/internal/protocutils"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/protoc/tus"
	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var connectionIDNamespace = uuid.MustParse("b8a8f7f6-2f86-4d4c-a9a5-3f6c2b0d9e51")

const defaultTimeout = 30 * time.Second

// Client represents a WebDAV account.
type Client struct {
	BaseURL  string        `json:"baseUrl" mapstructure:"base_url" validate:"required,url"`
	Username string        `json:"username" mapstructure:"username" validate:"required"`
	Password string        `json:"-" mapstructure:"password"`
	Token    string        `json:"-" mapstructure:"token"`
	TusURL   string        `json:"tusUrl" mapstructure:"tus_url" validate:"omitempty,url"`
	Chunking bool          `json:"chunking" mapstructure:"chunking"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`

	httpOnce sync.Once
	http     *resty.Client
}

// NewClient creates a new WebDAV client.
func NewClient(baseURL, username, password string) (c *Client) {
	return &Client{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		Timeout:  defaultTimeout,
	}
}

func (c *Client) GetRemoteStore(logger logr.Logger, spaceID string) protoc.RemoteStore {
	return &Store{
		logger:  logger.WithName("webdav.store"),
		client:  c,
		http:    c.httpClient(),
		spaceID: spaceID,
	}
}

func (c *Client) GetSessionAPI(logger logr.Logger, spaceID string) protoc.SessionAPI {
	if c.TusURL == "" {
		panic(errors.ErrUnsupported)
	}
	return tus.NewSessionAPI(logger, c.httpClient(), c.TusURL)
}

func (c *Client) GetCapabilities() protoc.Capabilities {
	return protoc.Capabilities{
		Chunking:  c.Chunking,
		Resumable: c.TusURL != "",
	}
}

func (c *Client) GetCredential() any {
	return c
}

func (c *Client) GetConnectionID() string {
	return uuid.NewSHA1(
		connectionIDNamespace,
		[]byte(fmt.Sprintf("%s:%s:%s", c.BaseURL, c.Username, c.TusURL)),
	).String()
}

// httpClient lazily builds the resty client shared by the stores and the
// session API of the account.
func (c *Client) httpClient() *resty.Client {
	c.httpOnce.Do(func() {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = protocutils.NewHTTPClient(timeout)
		if c.Token != "" {
			c.http.SetAuthToken(c.Token)
		} else if c.Password != "" {
			c.http.SetBasicAuth(c.Username, c.Password)
		}
	})
	return c.http
}
