package xferfile

import (
	"time"

	"github.com/derektruong/cloudxfer/internal/fileutils"
)

// Info represents information about the file of a transfer, as seen on the
// side the bytes are read from.
type Info struct {
	// Path is the path of the file
	Path string `json:"path"`

	// Size is the size of the file in bytes, -1 when unknown
	Size int64 `json:"size"`

	// Name contains the name of the file (without extension)
	Name string `json:"name"`

	// Extension contains the file extension of the file, without the dot.
	Extension string `json:"extension"`

	// ModTime is the modification time of the source file.
	// It is carried to the remote side and recorded as the sync marker.
	ModTime time.Time `json:"modTime"`

	// StartTime is the time the file transfer started
	StartTime time.Time `json:"startTime"`

	// FinishTime is the time the file transfer finished
	FinishTime time.Time `json:"finishTime"`

	// Offset in bytes (zero-based), indicating the position of the last byte transferred
	Offset int64 `json:"offset"`

	// Metadata contains additional information about the file (optional)
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewInfo describes the file at filePath.
func NewInfo(filePath string, size int64, modTime time.Time) (info Info, err error) {
	var fileName, fileExt string
	if _, fileName, fileExt, err = fileutils.ExtractFileParts(filePath); err != nil {
		return
	}
	info = Info{
		Path:      filePath,
		Size:      size,
		Name:      fileName,
		Extension: fileExt,
		ModTime:   modTime,
	}
	return
}

// FileName returns the base name of the file, extension included.
func (i Info) FileName() string {
	if i.Extension == "" {
		return i.Name
	}
	return i.Name + "." + i.Extension
}

// Remaining returns the bytes left to transfer, -1 when the size is unknown.
func (i Info) Remaining() int64 {
	if i.Size < 0 {
		return -1
	}
	return i.Size - i.Offset
}
