// Package record defines the persisted transfer job and its lifecycle rules.
package record

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateSource, Record{})
}

// Kind tells whether the record moves bytes to or from the remote store.
type Kind string

const (
	KindUpload   Kind = "UPLOAD"
	KindDownload Kind = "DOWNLOAD"
)

// Behavior controls what happens to the local source after a successful upload.
type Behavior string

const (
	// BehaviorCopy keeps the local source.
	BehaviorCopy Behavior = "COPY"
	// BehaviorMove deletes the local source once the upload succeeded.
	BehaviorMove Behavior = "MOVE"
)

// Record is one upload or download job. ID is assigned by the store on insert
// and every later update is keyed by it.
type Record struct {
	ID          int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountName string  `gorm:"index;not null" json:"accountName" validate:"required"`
	SpaceID     *string `json:"spaceId,omitempty" validate:"omitempty,min=1"`
	Kind        Kind    `gorm:"not null" json:"kind" validate:"oneof=UPLOAD DOWNLOAD"`

	// LocalPath is the filesystem path (upload source, download target).
	LocalPath string `json:"localPath,omitempty"`
	// SourceHandle is an opaque content reference resolved by a storage.HandleResolver.
	SourceHandle string `json:"sourceHandle,omitempty"`

	RemotePath     string   `gorm:"not null" json:"remotePath" validate:"required,startswith=/"`
	FileSize       int64    `json:"fileSize" validate:"gte=-1"`
	Behavior       Behavior `gorm:"not null;default:COPY" json:"behavior" validate:"oneof=COPY MOVE"`
	Status         Status   `gorm:"index;not null;default:0" json:"status"`
	ForceOverwrite bool     `json:"forceOverwrite"`

	LastResult           *Result    `json:"lastResult,omitempty"`
	TransferEndTimestamp *time.Time `gorm:"index" json:"transferEndTimestamp,omitempty"`

	// SessionID names the resumable session or the remote chunk folder; it
	// survives re-enqueueing so a retry can resume.
	SessionID string `json:"sessionId,omitempty"`

	// RetryOf references the FAILED record this one re-enqueues.
	RetryOf *int64 `gorm:"index" json:"retryOf,omitempty"`
	Attempt int    `json:"attempt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Record) TableName() string {
	return "transfers"
}

// Validate checks the record fields and the local source exclusivity rule.
func (r Record) Validate(ctx context.Context) error {
	return validate.StructCtx(ctx, r)
}

// IsUpload reports whether the record is an upload.
func (r Record) IsUpload() bool {
	return r.Kind == KindUpload
}

// Space returns the space id or the empty string for the personal space.
func (r Record) Space() string {
	if r.SpaceID == nil {
		return ""
	}
	return *r.SpaceID
}

// RequeueOf builds the QUEUED record that retries a FAILED one. The session
// id is carried over so the next attempt can resume.
func RequeueOf(failed Record) (next Record) {
	next = failed
	next.ID = 0
	next.Status = StatusQueued
	next.LastResult = nil
	next.TransferEndTimestamp = nil
	next.RetryOf = &failed.ID
	next.Attempt = failed.Attempt + 1
	next.CreatedAt = time.Time{}
	next.UpdatedAt = time.Time{}
	return
}

func validateSource(sl validator.StructLevel) {
	r := sl.Current().Interface().(Record)
	hasPath, hasHandle := r.LocalPath != "", r.SourceHandle != ""
	if hasPath == hasHandle {
		sl.ReportError(r.LocalPath, "LocalPath", "localPath", "xor_source_handle", "")
		return
	}
	if r.Kind == KindDownload && hasHandle {
		sl.ReportError(r.SourceHandle, "SourceHandle", "sourceHandle", "excluded_on_download", "")
	}
}
