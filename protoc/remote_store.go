package protoc

import (
	"context"
	"io"
	"time"
)

// FinalChunkName is the virtual object inside a chunk folder that is moved
// onto the target to assemble the chunks.
const FinalChunkName = ".file"

// FileStat describes a remote entry.
type FileStat struct {
	Path    string
	Size    int64
	ModTime time.Time
	ETag    string
	IsDir   bool
}

// UploadRequest is a single-request upload.
type UploadRequest struct {
	Path    string
	Body    io.Reader
	Size    int64
	ModTime time.Time
	// IfMatch, when set, makes the server reject the upload if the current
	// remote etag differs.
	IfMatch string
}

// AssembleRequest moves the chunks of a folder onto the target path.
type AssembleRequest struct {
	FolderID string
	Target   string
	ModTime  time.Time
	// Size is the expected total length, validated by the server.
	Size    int64
	IfMatch string
}

// ChunkFolder is a remote scratch folder holding uploaded chunks.
type ChunkFolder struct {
	ID      string
	ModTime time.Time
}

type RemoteStore interface {
	// Exists reports whether an entry exists at the given path
	//
	// Parameters:
	//  - ctx: the context
	//  - remotePath: the path of the entry
	//
	// Returns:
	//  - exists: true when the entry exists
	//  - err: the error if any occurred, nil otherwise
	Exists(ctx context.Context, remotePath string) (exists bool, err error)

	// Stat returns the size, mod time and etag of the entry at the given path
	//
	// Returns:
	//  - stat: the entry description
	//  - err: ErrNotFound when the entry does not exist
	Stat(ctx context.Context, remotePath string) (stat FileStat, err error)

	// MakeDirectory creates a directory at the given path, with its parents
	// when recursive is true
	//
	// Returns:
	//  - err: ErrAlreadyExists when the directory exists, nil on creation
	MakeDirectory(ctx context.Context, dirPath string, recursive bool) (err error)

	// Upload stores the request body at the request path in one request
	//
	// Returns:
	//  - etag: the etag of the new remote file
	//  - err: ErrPreconditionFailed when IfMatch does not hold
	Upload(ctx context.Context, req UploadRequest) (etag string, err error)

	// Download opens the remote file for reading
	//
	// Returns:
	//  - body: the content, the caller closes it
	//  - stat: the entry description, Size is -1 when the length is unknown
	//  - err: the error if any occurred, nil otherwise
	Download(ctx context.Context, remotePath string) (body io.ReadCloser, stat FileStat, err error)

	// Move renames an entry
	//
	// Returns:
	//  - err: the error if any occurred, nil otherwise
	Move(ctx context.Context, srcPath, dstPath string, overwrite bool) (err error)

	// Delete removes an entry, deleting a missing entry is not an error
	Delete(ctx context.Context, remotePath string) (err error)

	// CreateChunkFolder creates the scratch folder of a chunked upload
	CreateChunkFolder(ctx context.Context, folderID string) (err error)

	// UploadChunk stores one chunk; index orders the chunks
	UploadChunk(ctx context.Context, folderID string, index int, body io.Reader, size int64) (err error)

	// AssembleChunks moves the final chunk object of the folder onto the target
	//
	// Returns:
	//  - etag: the etag of the assembled file
	//  - err: the error if any occurred, nil otherwise
	AssembleChunks(ctx context.Context, req AssembleRequest) (etag string, err error)

	// DeleteChunkFolder removes a scratch folder with its chunks
	DeleteChunkFolder(ctx context.Context, folderID string) (err error)

	// ListChunkFolders lists the scratch folders of the account
	ListChunkFolders(ctx context.Context) (folders []ChunkFolder, err error)
}
