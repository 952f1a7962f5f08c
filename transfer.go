// Package cloudxfer moves files between local storage and a remote store in
// the background: records are queued durably, picked by a bounded pool of
// workers and transferred with a plain, chunked or resumable strategy.
package cloudxfer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/storage"
	"github.com/derektruong/cloudxfer/store"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "cloudxfer/coordinator"

// Dependencies are the collaborators of a Coordinator.
type Dependencies struct {
	Transfers   store.TransferStore  `validate:"required"`
	Sessions    store.SessionStore   `validate:"required"`
	FileStates  store.FileStateStore `validate:"required"`
	Registry    *protoc.Registry     `validate:"required"`
	Source      storage.Source       `validate:"required"`
	Destination storage.Destination  `validate:"required"`
}

// Coordinator runs one attempt of a record: it validates the source, claims
// the record, resolves the remote path, transfers the bytes and persists the
// outcome. It never retries an attempt.
type Coordinator struct {
	logger logr.Logger

	transfers   store.TransferStore
	sessions    store.SessionStore
	fileStates  store.FileStateStore
	registry    *protoc.Registry
	source      storage.Source
	destination storage.Destination
	conflicts   *conflictResolver

	// options
	fileRule           *fileRule
	chunkThreshold     int64
	chunkSize          int64
	resumableChunkSize int64
	rateLimit          float64
	notifier           Notifier
	disabledRetry      bool
	retryConfig        RetryConfig
	now                func() time.Time

	// metrics
	bytesTransferred *int64
	startedCounter   metric.Int64Counter
	finishedCounter  metric.Int64Counter
}

// NewCoordinator creates a new Coordinator with the optional CoordinatorOption(s).
func NewCoordinator(
	logger logr.Logger,
	deps Dependencies,
	options ...CoordinatorOption,
) (c *Coordinator, err error) {
	if err = validate.Struct(deps); err != nil {
		return
	}
	logger = logger.WithName("coordinator")
	c = &Coordinator{
		logger:      logger,
		transfers:   deps.Transfers,
		sessions:    deps.Sessions,
		fileStates:  deps.FileStates,
		registry:    deps.Registry,
		source:      deps.Source,
		destination: deps.Destination,
		conflicts: &conflictResolver{
			logger:     logger.WithName("conflicts"),
			fileStates: deps.FileStates,
			maxSuffix:  defaultMaxCollisionSuffix,
		},
		fileRule:           new(fileRule),
		chunkThreshold:     defaultChunkThreshold,
		chunkSize:          defaultChunkSize,
		resumableChunkSize: defaultResumableChunkSize,
		notifier:           NewLogNotifier(logger),
		retryConfig:        RetryConfig{}.withDefaults(),
		now:                time.Now,
		bytesTransferred:   new(int64),
	}
	for _, opt := range options {
		opt(c)
	}
	if err = c.registerMetrics(); err != nil {
		return nil, err
	}
	return
}

// Execute runs the record with the given id and returns the persisted result.
// Progress updates are sent to cb, stop cancels the attempt at the next chunk
// boundary.
func (c *Coordinator) Execute(
	ctx context.Context,
	id int64,
	stop *StopFlag,
	cb ProgressUpdatedCallback,
) (result record.Result) {
	logger := c.logger.WithValues("recordID", id)
	rec, err := c.transfers.GetByID(ctx, id)
	if err != nil {
		logger.Error(err, "failed to load record")
		return Classify(err)
	}
	if rec.Status != record.StatusQueued {
		logger.Info("record is not queued, skipping", "status", rec.Status.String())
		if rec.LastResult != nil {
			return *rec.LastResult
		}
		return record.ResultUnknown
	}

	job := &transferJob{
		logger:   logger,
		rec:      rec,
		stop:     stop,
		progress: newProgressReporter(id, rec.FileSize, cb),
	}
	job.persist = func(ctx context.Context, patch record.Patch) (err error) {
		if err = c.transfers.Update(ctx, id, patch); err != nil {
			return
		}
		patch.Apply(&job.rec)
		return
	}
	defer job.release()

	prepareErr := c.prepare(ctx, job)

	// durable before any network I/O
	claim := record.Patch{Status: lo.ToPtr(record.StatusInProgress)}
	if job.handle != nil && job.handle.Info.Size != rec.FileSize {
		claim.FileSize = lo.ToPtr(job.handle.Info.Size)
	}
	if err = job.persist(ctx, claim); err != nil {
		logger.Error(err, "failed to claim record")
		return Classify(err)
	}
	c.startedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(rec.Kind))))

	if err = prepareErr; err == nil {
		err = c.run(ctx, job)
	}
	return c.complete(ctx, job, err)
}

// prepare validates the record, resolves its account and opens the local source.
func (c *Coordinator) prepare(ctx context.Context, job *transferJob) (err error) {
	if err = job.rec.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSourceInvalid, err)
	}
	if job.client, err = c.registry.Get(ctx, job.rec.AccountName); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownAccount, err)
	}
	if !job.rec.IsUpload() {
		return
	}
	if job.handle, err = c.source.Open(ctx, job.rec); err != nil {
		return
	}
	job.progress.setExpected(job.handle.Info.Size)
	return c.fileRule.Check(job.handle.Info)
}

// run transfers the content of a claimed record.
func (c *Coordinator) run(ctx context.Context, job *transferJob) (err error) {
	if job.stop.IsStopped() {
		return ErrCancelled
	}
	job.remote = job.client.GetRemoteStore(job.logger, job.rec.Space())

	if job.rec.IsUpload() {
		if err = c.ensureParent(ctx, job); err != nil {
			return fmt.Errorf("create remote folder: %w", err)
		}
		var finalPath string
		if finalPath, job.ifMatch, err = c.conflicts.resolve(ctx, job.remote, job.rec); err != nil {
			return
		}
		if finalPath != job.rec.RemotePath {
			if err = job.persist(ctx, record.Patch{RemotePath: &finalPath}); err != nil {
				return
			}
		}
	}

	s := c.selectStrategy(job)
	job.logger.Info("starting transfer",
		"strategy", s.name(), "kind", job.rec.Kind, "remotePath", job.rec.RemotePath)
	err = s.run(ctx, job)
	atomic.AddInt64(c.bytesTransferred, job.written)
	return
}

// ensureParent creates the remote folder of the upload target when missing.
func (c *Coordinator) ensureParent(ctx context.Context, job *transferJob) (err error) {
	parent := path.Dir(job.rec.RemotePath)
	if parent == "/" || parent == "." {
		return
	}
	ensure := func() (err error) {
		var exists bool
		if exists, err = job.remote.Exists(ctx, parent); err != nil || exists {
			return
		}
		if err = job.remote.MakeDirectory(ctx, parent, true); errors.Is(err, protoc.ErrAlreadyExists) {
			err = nil
		}
		return
	}
	if c.disabledRetry {
		return ensure()
	}
	return retry.Do(
		ensure,
		retry.Context(ctx),
		retry.Delay(c.retryConfig.InitialDelay),
		retry.MaxDelay(c.retryConfig.MaxDelay),
		retry.Attempts(uint(c.retryConfig.MaxRetryAttempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return Classify(err) == record.ResultNetworkUnreachable
		}),
		retry.OnRetry(func(n uint, err error) {
			job.logger.Info("retrying remote folder creation",
				"folder", parent, "errorMessage", err.Error(), "retryAttempts", n+1)
		}),
	)
}

// complete persists the outcome of an attempt and runs its side effects.
func (c *Coordinator) complete(ctx context.Context, job *transferJob, cause error) (result record.Result) {
	result = Classify(cause)
	job.progress.finish(cause)
	job.release()

	// the outcome is persisted even when ctx was cancelled
	ctx = context.WithoutCancel(ctx)
	if err := job.persist(ctx, record.Terminal(result, c.now())); err != nil {
		job.logger.Error(err, "failed to persist result", "result", result)
	}
	c.finishedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(job.rec.Kind)),
		attribute.String("result", string(result)),
	))

	if result == record.ResultSuccess {
		c.afterSuccess(ctx, job)
		job.logger.Info("transfer succeeded",
			"remotePath", job.rec.RemotePath, "bytes", job.written)
	} else {
		job.logger.Info("transfer failed",
			"remotePath", job.rec.RemotePath, "result", result, "errorMessage", cause.Error())
	}

	if event, ok := eventOf(job.rec, result, cause); ok {
		notifySafely(ctx, job.logger, c.notifier, event)
	}
	return
}

// afterSuccess removes the source of a MOVE and records the synced etag.
func (c *Coordinator) afterSuccess(ctx context.Context, job *transferJob) {
	if job.rec.IsUpload() && job.rec.Behavior == record.BehaviorMove {
		if err := c.source.Remove(ctx, job.rec); err != nil {
			job.logger.Error(err, "failed to remove moved source")
		}
	}
	if err := c.fileStates.MarkSynced(ctx, store.KeyOf(job.rec), job.etag, job.modTime); err != nil {
		job.logger.Error(err, "failed to record file state")
	}
}

func (c *Coordinator) registerMetrics() (err error) {
	meter := otel.GetMeterProvider().Meter(meterName)
	if c.startedCounter, err = meter.Int64Counter("transfers_started"); err != nil {
		return
	}
	if c.finishedCounter, err = meter.Int64Counter("transfers_finished"); err != nil {
		return
	}
	var totalBytesTransferred metric.Int64ObservableCounter
	if totalBytesTransferred, err = meter.Int64ObservableCounter("bytes_transferred"); err != nil {
		return
	}
	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) (err error) {
			o.ObserveInt64(totalBytesTransferred, c.TransferredSize())
			return
		},
		totalBytesTransferred,
	)
	return
}

// TransferredSize returns the number of bytes moved by every attempt so far.
func (c *Coordinator) TransferredSize() int64 {
	return atomic.LoadInt64(c.bytesTransferred)
}
