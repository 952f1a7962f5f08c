package cloudxfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
)

const (
	defaultScratchTTL   = 24 * time.Hour
	defaultReapInterval = 1 * time.Hour
)

type ReaperOption func(*Reaper)

// WithScratchTTL sets the age after which a chunk folder is abandoned.
// Default is 24 hours.
func WithScratchTTL(ttl time.Duration) ReaperOption {
	if ttl <= 0 {
		ttl = defaultScratchTTL
	}
	return func(r *Reaper) {
		r.ttl = ttl
	}
}

// WithReapInterval sets how often Run sweeps. Default is 1 hour.
func WithReapInterval(interval time.Duration) ReaperOption {
	if interval <= 0 {
		interval = defaultReapInterval
	}
	return func(r *Reaper) {
		r.interval = interval
	}
}

// Reaper deletes the remote chunk folders left behind by chunked uploads
// that never assembled.
type Reaper struct {
	logger    logr.Logger
	transfers store.TransferStore
	registry  *protoc.Registry

	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewReaper(
	logger logr.Logger,
	transfers store.TransferStore,
	registry *protoc.Registry,
	options ...ReaperOption,
) (r *Reaper) {
	r = &Reaper{
		logger:    logger.WithName("reaper"),
		transfers: transfers,
		registry:  registry,
		ttl:       defaultScratchTTL,
		interval:  defaultReapInterval,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return
}

// Run sweeps at once and then every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if deleted, err := r.Sweep(ctx); err != nil {
			r.logger.Error(err, "sweep failed", "deleted", deleted)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep deletes the chunk folders older than the TTL of every chunking
// account, except the folders of IN_PROGRESS records. The uploads area of
// an account is shared by all of its spaces and is listed once.
func (r *Reaper) Sweep(ctx context.Context) (deleted int, err error) {
	var inProgress []record.Record
	if inProgress, err = r.transfers.ListByStatus(ctx, record.StatusInProgress); err != nil {
		return
	}
	busy := lo.SliceToMap(inProgress, func(rec record.Record) (string, struct{}) {
		return rec.SessionID, struct{}{}
	})

	var errs []error
	for _, account := range r.registry.Accounts() {
		n, sweepErr := r.sweepAccount(ctx, account, busy)
		deleted += n
		if sweepErr != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", account, sweepErr))
		}
	}
	err = errors.Join(errs...)
	return
}

func (r *Reaper) sweepAccount(
	ctx context.Context,
	account string,
	busy map[string]struct{},
) (deleted int, err error) {
	var client protoc.Client
	if client, err = r.registry.Get(ctx, account); err != nil {
		return
	}
	if !client.GetCapabilities().Chunking {
		return
	}
	remote := client.GetRemoteStore(r.logger, "")
	var folders []protoc.ChunkFolder
	if folders, err = remote.ListChunkFolders(ctx); err != nil {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for _, folder := range folders {
		if _, ok := busy[folder.ID]; ok || folder.ModTime.After(cutoff) {
			continue
		}
		if err = remote.DeleteChunkFolder(ctx, folder.ID); err != nil {
			return
		}
		r.logger.Info("deleted abandoned chunk folder",
			"account", account, "folderID", folder.ID, "modTime", folder.ModTime)
		deleted++
	}
	return
}
