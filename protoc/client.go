package protoc

import (
	"github.com/go-logr/logr"
)

// Capabilities tells which upload protocols an account supports.
type Capabilities struct {
	// Chunking is true when the server assembles uploads from a chunk folder.
	Chunking bool `json:"chunking"`
	// Resumable is true when the account exposes a session (tus) endpoint.
	Resumable bool `json:"resumable"`
}

// Client represents the client used to connect to one account.
type Client interface {
	// GetRemoteStore returns the remote file store of a space.
	//
	// Parameters:
	//   - logger: the logger used to log messages
	//   - spaceID: the space to address, empty for the personal space
	//
	// Returns:
	//   - RemoteStore: the remote store
	GetRemoteStore(logger logr.Logger, spaceID string) RemoteStore

	// GetSessionAPI returns the resumable session API of a space.
	//
	// Parameters:
	//   - logger: the logger used to log messages
	//   - spaceID: the space to address, empty for the personal space
	//
	// Returns:
	//   - SessionAPI: the session API
	//
	// Notice: only called when GetCapabilities().Resumable is true
	GetSessionAPI(logger logr.Logger, spaceID string) SessionAPI

	// GetCapabilities returns the upload protocols supported by the account.
	GetCapabilities() Capabilities

	// GetConnectionID returns the connection ID.
	//
	// Returns:
	//   - string: the connection ID
	GetConnectionID() string

	// GetCredential returns the credential used to connect to the storage.
	//
	// Returns:
	//   - any: the credential, it must be asserted to the correct type
	GetCredential() any
}
