package cloudxfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	defaultWorkers      = 4
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 5
	defaultRetryDelay   = 2 * time.Second
	defaultMaxRetryWait = 5 * time.Minute
)

var ErrAlreadyRunning = errors.New("dispatcher is already running")

// Executor runs one attempt of a record, Coordinator implements it.
type Executor interface {
	Execute(ctx context.Context, id int64, stop *StopFlag, cb ProgressUpdatedCallback) record.Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, id int64, stop *StopFlag, cb ProgressUpdatedCallback) record.Result

func (f ExecutorFunc) Execute(ctx context.Context, id int64, stop *StopFlag, cb ProgressUpdatedCallback) record.Result {
	return f(ctx, id, stop, cb)
}

type DispatcherOption func(*Dispatcher)

// WithWorkers sets how many records run at once. Default is 4.
func WithWorkers(n int) DispatcherOption {
	if n <= 0 {
		n = defaultWorkers
	}
	return func(d *Dispatcher) {
		d.workers = int64(n)
	}
}

// WithPollInterval sets how often the queue is scanned without a Notify.
// Default is 5 seconds.
func WithPollInterval(interval time.Duration) DispatcherOption {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return func(d *Dispatcher) {
		d.pollInterval = interval
	}
}

// WithRequeuePolicy sets how records failed with NetworkUnreachable are
// queued again: at most MaxRetryAttempts attempts in total, the n-th retry
// waiting InitialDelay*2^(n-1) capped at MaxDelay.
// Default is 5 attempts, 2 seconds and 5 minutes.
func WithRequeuePolicy(config RetryConfig) DispatcherOption {
	if config.MaxRetryAttempts <= 0 {
		config.MaxRetryAttempts = defaultMaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaultRetryDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaultMaxRetryWait
	}
	return func(d *Dispatcher) {
		d.requeue = config
	}
}

// WithProgressCallback receives the progress of every record.
func WithProgressCallback(cb ProgressUpdatedCallback) DispatcherOption {
	return func(d *Dispatcher) {
		d.progress = cb
	}
}

// Dispatcher is the durable queue: it polls QUEUED records, runs them on a
// bounded pool with at most one worker per record and queues a new attempt
// of records that failed for network reasons.
type Dispatcher struct {
	logger    logr.Logger
	transfers store.TransferStore
	executor  Executor

	// options
	workers      int64
	pollInterval time.Duration
	requeue      RetryConfig
	progress     ProgressUpdatedCallback
	now          func() time.Time

	sem     *semaphore.Weighted
	wake    chan struct{}
	running bool

	mu     sync.Mutex
	active map[int64]*StopFlag
}

// NewDispatcher creates a new Dispatcher with the optional DispatcherOption(s).
func NewDispatcher(
	logger logr.Logger,
	transfers store.TransferStore,
	executor Executor,
	options ...DispatcherOption,
) (d *Dispatcher) {
	d = &Dispatcher{
		logger:       logger.WithName("dispatcher"),
		transfers:    transfers,
		executor:     executor,
		workers:      defaultWorkers,
		pollInterval: defaultPollInterval,
		requeue: RetryConfig{
			MaxRetryAttempts: defaultMaxAttempts,
			InitialDelay:     defaultRetryDelay,
			MaxDelay:         defaultMaxRetryWait,
		},
		progress: func(Progress) {},
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		active:   make(map[int64]*StopFlag),
	}
	for _, opt := range options {
		opt(d)
	}
	d.sem = semaphore.NewWeighted(d.workers)
	return
}

// Run dispatches queued records until ctx is done, then waits for the
// running workers. Records interrupted by the shutdown are queued again.
func (d *Dispatcher) Run(ctx context.Context) (err error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	var workers errgroup.Group
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", "workers", d.workers, "pollInterval", d.pollInterval)
	for {
		d.dispatch(ctx, &workers)
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping, waiting for workers")
			return workers.Wait()
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// Notify wakes the dispatcher up to scan the queue now.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Cancel stops the record with the given id. A running record stops at its
// next chunk boundary, a queued one is failed with Cancelled right away.
// It reports whether the record was running or queued.
func (d *Dispatcher) Cancel(ctx context.Context, id int64) (cancelled bool, err error) {
	d.mu.Lock()
	if stop, ok := d.active[id]; ok {
		d.mu.Unlock()
		stop.Stop()
		d.logger.Info("cancelling running record", "recordID", id)
		return true, nil
	}
	// reserve the id so no worker picks it meanwhile
	d.active[id] = &StopFlag{}
	d.mu.Unlock()
	defer d.finish(id)

	var rec record.Record
	if rec, err = d.transfers.GetByID(ctx, id); err != nil || rec.Status != record.StatusQueued {
		return
	}
	inProgress := record.StatusInProgress
	if err = d.transfers.Update(ctx, id, record.Patch{Status: &inProgress}); err != nil {
		return
	}
	if err = d.transfers.Update(ctx, id, record.Terminal(record.ResultCancelled, d.now())); err != nil {
		return
	}
	d.logger.Info("cancelled queued record", "recordID", id)
	return true, nil
}

// Active returns the ids of the running records.
func (d *Dispatcher) Active() (ids []int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.active {
		ids = append(ids, id)
	}
	return
}

// Recover fails the records left IN_PROGRESS by a previous process and
// queues their next attempt, resumable uploads then continue from the
// server offset. It must run before Run.
func (d *Dispatcher) Recover(ctx context.Context) (recovered int, err error) {
	var stale []record.Record
	if stale, err = d.transfers.ListByStatus(ctx, record.StatusInProgress); err != nil {
		return
	}
	for _, rec := range stale {
		if d.isActive(rec.ID) {
			continue
		}
		patch := record.Terminal(record.ResultNetworkUnreachable, d.now())
		if err = d.transfers.Update(ctx, rec.ID, patch); err != nil {
			return
		}
		patch.Apply(&rec)
		d.logger.Info("recovered interrupted record", "recordID", rec.ID, "remotePath", rec.RemotePath)
		if _, err = d.requeueIfRetryable(ctx, rec); err != nil {
			return
		}
		recovered++
	}
	return
}

// dispatch starts a worker for every due queued record while the pool has room.
func (d *Dispatcher) dispatch(ctx context.Context, workers *errgroup.Group) {
	if ctx.Err() != nil {
		return
	}
	queued, err := d.transfers.ListByStatus(ctx, record.StatusQueued)
	if err != nil {
		d.logger.Error(err, "failed to list queued records")
		return
	}
	for _, rec := range queued {
		if !d.isDue(rec) {
			continue
		}
		stop, ok := d.reserve(rec.ID)
		if !ok {
			continue
		}
		if !d.sem.TryAcquire(1) {
			d.finish(rec.ID)
			return
		}
		id := rec.ID
		workers.Go(func() error {
			defer d.sem.Release(1)
			defer d.Notify()
			defer d.finish(id)
			d.work(ctx, id, stop)
			return nil
		})
	}
}

// work runs one record and applies the requeue policy to its result.
func (d *Dispatcher) work(ctx context.Context, id int64, stop *StopFlag) {
	result := d.executor.Execute(ctx, id, stop, d.progress)

	shutdown := ctx.Err() != nil && !stop.IsStopped()
	// the store is still usable while shutting down
	ctx = context.WithoutCancel(ctx)
	if !result.Retryable() && !(shutdown && result == record.ResultCancelled) {
		return
	}
	rec, err := d.transfers.GetByID(ctx, id)
	if err != nil {
		d.logger.Error(err, "failed to load finished record", "recordID", id)
		return
	}
	if rec.Status != record.StatusFailed {
		return
	}
	if shutdown {
		// an interruption is not a failed attempt
		next := record.RequeueOf(rec)
		next.Attempt = rec.Attempt
		if err = d.transfers.Insert(ctx, &next); err != nil {
			d.logger.Error(err, "failed to queue interrupted record", "recordID", id)
			return
		}
		d.logger.Info("queued interrupted record", "recordID", next.ID, "retryOf", id)
		return
	}
	if _, err = d.requeueIfRetryable(ctx, rec); err != nil {
		d.logger.Error(err, "failed to queue retry", "recordID", id)
	}
}

// requeueIfRetryable queues the next attempt of a FAILED record when its
// result allows it and the attempts are not exhausted.
func (d *Dispatcher) requeueIfRetryable(ctx context.Context, failed record.Record) (next *record.Record, err error) {
	if failed.LastResult == nil || !failed.LastResult.Retryable() {
		return
	}
	if failed.Attempt+1 >= d.requeue.MaxRetryAttempts {
		d.logger.Info("giving up on record", "recordID", failed.ID, "attempts", failed.Attempt+1)
		return
	}
	rec := record.RequeueOf(failed)
	if err = d.transfers.Insert(ctx, &rec); err != nil {
		return
	}
	d.logger.Info("queued retry",
		"recordID", rec.ID, "retryOf", failed.ID, "attempt", rec.Attempt, "delay", d.retryDelay(rec.Attempt))
	return &rec, nil
}

// retryDelay is the wait before the given attempt, attempt 0 runs at once.
func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// BackOffDelay with an empty config doubles from one nanosecond
	factor := retry.BackOffDelay(uint(attempt-1), nil, &retry.Config{})
	if factor > d.requeue.MaxDelay/d.requeue.InitialDelay {
		return d.requeue.MaxDelay
	}
	return min(d.requeue.InitialDelay*factor, d.requeue.MaxDelay)
}

// isDue reports whether the backoff of a retried record has elapsed.
func (d *Dispatcher) isDue(rec record.Record) bool {
	if rec.Attempt == 0 || rec.CreatedAt.IsZero() {
		return true
	}
	return !d.now().Before(rec.CreatedAt.Add(d.retryDelay(rec.Attempt)))
}

func (d *Dispatcher) reserve(id int64) (stop *StopFlag, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.active[id]; busy {
		return nil, false
	}
	stop = &StopFlag{}
	d.active[id] = stop
	return stop, true
}

func (d *Dispatcher) finish(id int64) {
	d.mu.Lock()
	delete(d.active, id)
	d.mu.Unlock()
}

func (d *Dispatcher) isActive(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[id]
	return ok
}
