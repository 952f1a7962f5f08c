package cloudxfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store"
	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

var ErrNotRetryable = errors.New("only FAILED records can be retried")

// UploadCommand asks to upload a local file.
// Exactly one of LocalPath and SourceHandle is set.
type UploadCommand struct {
	// AccountName is the account the file is uploaded to
	AccountName string `json:"accountName" yaml:"accountName" validate:"required"`
	// SpaceID is the space of the account, nil for the personal space
	SpaceID *string `json:"spaceId" yaml:"spaceId" validate:"omitempty,min=1"`
	// LocalPath is the path of the local file
	LocalPath string `json:"localPath" yaml:"localPath" validate:"required_without=SourceHandle,excluded_with=SourceHandle"`
	// SourceHandle is an opaque content reference, see storage.HandleResolver
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle" validate:"required_without=LocalPath"`
	// RemotePath is the absolute target path
	RemotePath string `json:"remotePath" yaml:"remotePath" validate:"required,startswith=/"`
	// FileSize is the expected size, the opened source is authoritative
	FileSize int64 `json:"fileSize" yaml:"fileSize" validate:"gte=0"`
	// Behavior is COPY (default) or MOVE
	Behavior record.Behavior `json:"behavior" yaml:"behavior" validate:"omitempty,oneof=COPY MOVE"`
	// ForceOverwrite replaces an existing remote file instead of renaming the upload
	ForceOverwrite bool `json:"forceOverwrite" yaml:"forceOverwrite"`
}

// DownloadCommand asks to download a remote file.
type DownloadCommand struct {
	// AccountName is the account the file is downloaded from
	AccountName string `json:"accountName" yaml:"accountName" validate:"required"`
	// SpaceID is the space of the account, nil for the personal space
	SpaceID *string `json:"spaceId" yaml:"spaceId" validate:"omitempty,min=1"`
	// RemotePath is the absolute path of the remote file
	RemotePath string `json:"remotePath" yaml:"remotePath" validate:"required,startswith=/"`
	// LocalPath is where the file is written
	LocalPath string `json:"localPath" yaml:"localPath" validate:"required"`
	// FileSize is the expected size, -1 when unknown
	FileSize int64 `json:"fileSize" yaml:"fileSize" validate:"gte=-1"`
}

func (cmd UploadCommand) Validate(ctx context.Context) error {
	return validate.StructCtx(ctx, cmd)
}

func (cmd DownloadCommand) Validate(ctx context.Context) error {
	return validate.StructCtx(ctx, cmd)
}

func (cmd UploadCommand) record() record.Record {
	return record.Record{
		AccountName:    cmd.AccountName,
		SpaceID:        cmd.SpaceID,
		Kind:           record.KindUpload,
		LocalPath:      cmd.LocalPath,
		SourceHandle:   cmd.SourceHandle,
		RemotePath:     cmd.RemotePath,
		FileSize:       cmd.FileSize,
		Behavior:       lo.Ternary(cmd.Behavior == "", record.BehaviorCopy, cmd.Behavior),
		Status:         record.StatusQueued,
		ForceOverwrite: cmd.ForceOverwrite,
	}
}

func (cmd DownloadCommand) record() record.Record {
	return record.Record{
		AccountName: cmd.AccountName,
		SpaceID:     cmd.SpaceID,
		Kind:        record.KindDownload,
		LocalPath:   cmd.LocalPath,
		RemotePath:  cmd.RemotePath,
		FileSize:    cmd.FileSize,
		Behavior:    record.BehaviorCopy,
		Status:      record.StatusQueued,
	}
}

// Waker is told that new records were queued.
type Waker interface {
	Notify()
}

// Enqueuer validates commands and queues them as records.
type Enqueuer struct {
	logger    logr.Logger
	transfers store.TransferStore
	waker     Waker
}

// NewEnqueuer creates an Enqueuer, waker may be nil.
func NewEnqueuer(logger logr.Logger, transfers store.TransferStore, waker Waker) *Enqueuer {
	return &Enqueuer{
		logger:    logger.WithName("enqueuer"),
		transfers: transfers,
		waker:     waker,
	}
}

// EnqueueUpload queues an upload and returns the id of its record.
func (e *Enqueuer) EnqueueUpload(ctx context.Context, cmd UploadCommand) (id int64, err error) {
	if err = cmd.Validate(ctx); err != nil {
		return
	}
	return e.insert(ctx, cmd.record())
}

// EnqueueDownload queues a download and returns the id of its record.
func (e *Enqueuer) EnqueueDownload(ctx context.Context, cmd DownloadCommand) (id int64, err error) {
	if err = cmd.Validate(ctx); err != nil {
		return
	}
	return e.insert(ctx, cmd.record())
}

// Retry queues a new attempt of a FAILED record, whatever its result.
func (e *Enqueuer) Retry(ctx context.Context, id int64) (newID int64, err error) {
	var failed record.Record
	if failed, err = e.transfers.GetByID(ctx, id); err != nil {
		return
	}
	if failed.Status != record.StatusFailed {
		err = fmt.Errorf("%w: record %d is %s", ErrNotRetryable, id, failed.Status)
		return
	}
	return e.insert(ctx, record.RequeueOf(failed))
}

func (e *Enqueuer) insert(ctx context.Context, rec record.Record) (id int64, err error) {
	if err = rec.Validate(ctx); err != nil {
		return
	}
	if err = e.transfers.Insert(ctx, &rec); err != nil {
		return
	}
	e.logger.Info("record queued",
		"recordID", rec.ID, "kind", rec.Kind, "remotePath", rec.RemotePath, "retryOf", rec.RetryOf)
	if e.waker != nil {
		e.waker.Notify()
	}
	return rec.ID, nil
}
