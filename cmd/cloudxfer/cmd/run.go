package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/derektruong/cloudxfer"
	"github.com/derektruong/cloudxfer/config"
	storagelocal "github.com/derektruong/cloudxfer/storage/local"
	"github.com/derektruong/cloudxfer/store/kvstore"
	"github.com/derektruong/cloudxfer/store/sqlstore"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transfer engine until interrupted",
	Long: `Run recovers the records a previous process left in progress, then
dispatches queued records and sweeps abandoned chunk folders until SIGINT or
SIGTERM. Interrupted records are queued again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runEngine(ctx)
	},
}

func runEngine(ctx context.Context) (err error) {
	db, closeDB, err := openDatabase()
	if err != nil {
		return
	}
	defer closeDB()
	transfers := sqlstore.NewGormTransferStor(db, cfg.Database.TxRetry)
	fileStates := sqlstore.NewGormFileStateStor(db, cfg.Database.TxRetry)

	sessions, err := kvstore.NewBadgerSessionStore(logger, kvstore.Config{Dir: cfg.Sessions.Dir})
	if err != nil {
		return
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			logger.Error(closeErr, "failed to close session store")
		}
	}()

	registry, err := config.BuildRegistry(cfg)
	if err != nil {
		return
	}
	destination, err := storagelocal.NewDestination(logger, afero.NewOsFs())
	if err != nil {
		return
	}

	coordinator, err := cloudxfer.NewCoordinator(logger, cloudxfer.Dependencies{
		Transfers:   transfers,
		Sessions:    sessions,
		FileStates:  fileStates,
		Registry:    registry,
		Source:      storagelocal.NewSource(logger, sourceOptions()...),
		Destination: destination,
	}, coordinatorOptions()...)
	if err != nil {
		return
	}

	engine := cfg.Engine
	dispatcher := cloudxfer.NewDispatcher(logger, transfers, coordinator,
		cloudxfer.WithWorkers(engine.Workers),
		cloudxfer.WithPollInterval(engine.PollInterval),
		cloudxfer.WithRequeuePolicy(engine.Requeue),
		cloudxfer.WithProgressCallback(logProgress),
	)
	reaper := cloudxfer.NewReaper(logger, transfers, registry,
		cloudxfer.WithScratchTTL(engine.ScratchTTL),
		cloudxfer.WithReapInterval(engine.ReapInterval),
	)

	recovered, err := dispatcher.Recover(ctx)
	if err != nil {
		return
	}
	logger.Info("engine started", "accounts", registry.Accounts(), "recovered", recovered)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return dispatcher.Run(egCtx) })
	eg.Go(func() error { return reaper.Run(egCtx) })
	err = eg.Wait()
	logger.Info("engine stopped", "transferredBytes", coordinator.TransferredSize())
	return
}

func coordinatorOptions() (options []cloudxfer.CoordinatorOption) {
	engine := cfg.Engine
	options = []cloudxfer.CoordinatorOption{
		cloudxfer.WithChunkThreshold(engine.ChunkThreshold),
		cloudxfer.WithChunkSize(engine.ChunkSize),
		cloudxfer.WithResumableChunkSize(engine.ResumableChunkSize),
		cloudxfer.WithMaxFileSize(engine.MaxFileSize),
		cloudxfer.WithRateLimit(engine.RateLimit),
		cloudxfer.WithRetryConfig(engine.Retry),
	}
	if len(engine.ExtensionBlacklist) > 0 {
		options = append(options, cloudxfer.WithExtensionBlacklist(engine.ExtensionBlacklist...))
	}
	if len(engine.ExtensionWhitelist) > 0 {
		options = append(options, cloudxfer.WithExtensionWhitelist(engine.ExtensionWhitelist...))
	}
	return
}

func sourceOptions() (options []storagelocal.SourceOption) {
	options = []storagelocal.SourceOption{
		storagelocal.WithCacheDir(cfg.Storage.CacheDir),
		storagelocal.WithKeepCachedSource(cfg.Storage.KeepCache),
	}
	if root := cfg.Storage.HandleRoot; root != "" {
		fs := afero.NewBasePathFs(afero.NewOsFs(), root)
		options = append(options, storagelocal.WithHandleResolver(storagelocal.NewFileHandleResolver(fs)))
	}
	return
}

func logProgress(progress cloudxfer.Progress) {
	switch progress.Status {
	case cloudxfer.ProgressStatusInError:
		logger.V(1).Info("transfer interrupted",
			"recordID", progress.RecordID, "transferred", progress.TransferredSize, "error", progress.Error)
	case cloudxfer.ProgressStatusFinished:
		logger.V(1).Info("transfer finished",
			"recordID", progress.RecordID, "size", progress.TransferredSize, "duration", progress.Duration)
	default:
		logger.V(2).Info("transfer progress",
			"recordID", progress.RecordID, "percentage", progress.Percentage, "speed", progress.Speed)
	}
}
