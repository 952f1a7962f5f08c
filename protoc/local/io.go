// Package local implements a remote store on a local (or in-memory) file
// system. It backs "local" accounts and the engine tests.
package local

import (
	"errors"
	"fmt"
	"path"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var connectionIDNamespace = uuid.MustParse("0f1cd7f2-5c0e-4a8e-8d43-7a0f3b9b7d10")

const (
	personalSpaceDir = "personal"
	spacesDir        = "spaces"
	uploadsDir       = "uploads"
)

// IO represents a local account rooted at Root.
type IO struct {
	Root     string `json:"root" mapstructure:"root"`
	Chunking bool   `json:"chunking" mapstructure:"chunking"`

	fs afero.Fs
}

// NewIO creates a local account on top of the OS file system rooted at root.
func NewIO(root string, chunking bool) (c *IO) {
	return NewIOWithFs(afero.NewBasePathFs(afero.NewOsFs(), root), root, chunking)
}

// NewIOWithFs creates a local account on an arbitrary afero file system.
func NewIOWithFs(fs afero.Fs, root string, chunking bool) (c *IO) {
	return &IO{Root: root, Chunking: chunking, fs: fs}
}

func (io IO) GetRemoteStore(logger logr.Logger, spaceID string) protoc.RemoteStore {
	spaceRoot := path.Join("/", personalSpaceDir)
	if spaceID != "" {
		spaceRoot = path.Join("/", spacesDir, spaceID)
	}
	return &Store{
		logger:  logger.WithName("local.store"),
		fs:      afero.NewBasePathFs(io.fs, spaceRoot),
		uploads: afero.NewBasePathFs(io.fs, path.Join("/", uploadsDir)),
		init: func() error {
			if err := io.fs.MkdirAll(spaceRoot, defaultDirPerm); err != nil {
				return err
			}
			return io.fs.MkdirAll(path.Join("/", uploadsDir), defaultDirPerm)
		},
	}
}

func (io IO) GetSessionAPI(logr.Logger, string) protoc.SessionAPI {
	panic(errors.ErrUnsupported)
}

func (io IO) GetCapabilities() protoc.Capabilities {
	return protoc.Capabilities{Chunking: io.Chunking}
}

func (io IO) GetCredential() any {
	return io
}

func (io IO) GetConnectionID() string {
	return uuid.NewSHA1(connectionIDNamespace, []byte(fmt.Sprintf("local:%s", io.Root))).String()
}
