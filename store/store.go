// Package store declares the persistence contracts used by the transfer engine.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/derektruong/cloudxfer/record"
)

// MaxSucceededRecords is the number of SUCCEEDED records kept; older
// successes are evicted on every insert and update.
const MaxSucceededRecords = 30

var (
	ErrRecordNotFound    = errors.New("store: record not found")
	ErrInvalidTransition = errors.New("store: invalid status transition")
	ErrSessionNotFound   = errors.New("store: session not found")
)

// TransferStore persists transfer records.
type TransferStore interface {
	// Insert stores a new record and assigns its ID.
	//
	// Parameters:
	//  - ctx: the context
	//  - rec: the record to insert, rec.ID is set on success
	//
	// Returns:
	//  - err: the error if any occurred, nil otherwise
	Insert(ctx context.Context, rec *record.Record) (err error)

	// Update writes the non-nil patch fields of the record with the given id.
	// A status change that record.CanTransition rejects fails with
	// ErrInvalidTransition.
	//
	// Parameters:
	//  - ctx: the context
	//  - id: the record id
	//  - patch: the fields to write
	//
	// Returns:
	//  - err: ErrRecordNotFound, ErrInvalidTransition or a storage error
	Update(ctx context.Context, id int64, patch record.Patch) (err error)

	// GetByID loads a record.
	//
	// Returns:
	//  - rec: the record
	//  - err: ErrRecordNotFound when no record has this id
	GetByID(ctx context.Context, id int64) (rec record.Record, err error)

	// ListByStatus returns the records in the given status, oldest first.
	ListByStatus(ctx context.Context, status record.Status) (recs []record.Record, err error)
}

// SessionStore keeps resumable upload session URLs keyed by a stable
// fingerprint so a restarted process can find them again.
type SessionStore interface {
	// Get returns the session URL or ErrSessionNotFound.
	Get(ctx context.Context, key string) (url string, err error)
	// Put stores the session URL for key.
	Put(ctx context.Context, key, url string) (err error)
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) (err error)
}

// FileState is the local metadata kept per remote file.
type FileState struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	AccountName       string `gorm:"uniqueIndex:idx_file_state_path;not null"`
	SpaceID           string `gorm:"uniqueIndex:idx_file_state_path"`
	RemotePath        string `gorm:"uniqueIndex:idx_file_state_path;not null"`
	Etag              string
	EtagInConflict    string
	LastSyncTimestamp *time.Time
	LocalModTime      *time.Time
}

func (FileState) TableName() string {
	return "file_states"
}

// FileKey identifies a remote file.
type FileKey struct {
	AccountName string
	SpaceID     string
	RemotePath  string
}

// KeyOf returns the FileKey addressed by a record.
func KeyOf(rec record.Record) FileKey {
	return FileKey{
		AccountName: rec.AccountName,
		SpaceID:     rec.Space(),
		RemotePath:  rec.RemotePath,
	}
}

// FileStateStore is the local metadata store consulted for conflicts.
type FileStateStore interface {
	// EtagInConflict returns the etag recorded when a conflict was detected,
	// or the empty string.
	EtagInConflict(ctx context.Context, key FileKey) (etag string, err error)

	// SetConflict records the remote etag that conflicts with the local copy.
	SetConflict(ctx context.Context, key FileKey, etag string) (err error)

	// MarkSynced stores the new etag and clears any conflict marker.
	MarkSynced(ctx context.Context, key FileKey, etag string, localModTime time.Time) (err error)
}
