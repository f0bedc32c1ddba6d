// Command careerpulse runs the signal-to-risk pipeline from the command line
// and serves the operational HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/careerpulse/internal/adapters/github"
	"github.com/okian/careerpulse/internal/adapters/repository"
	service "github.com/okian/careerpulse/internal/app"
	"github.com/okian/careerpulse/internal/config"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

var errMissingFlag = errors.New("missing required flag")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("careerpulse: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	onnxLib string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "careerpulse",
		Short:         "Developer career-risk analytics",
		Long:          "careerpulse turns code-hosting activity into skill confidence, a risk forecast,\ncounterfactual actions and a weekly growth plan.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.onnxLib, "onnx-lib", "", "path to the onnxruntime shared library")

	root.AddCommand(
		newServeCmd(flags),
		newAnalyzeCmd(flags),
		newVerifyCmd(flags),
		newBenchmarkCmd(flags),
		newTrustCmd(flags),
		newRetentionCmd(flags),
	)
	return root
}

// env is the assembled process: config, store and a started service.
type env struct {
	cfg    *config.Config
	store  repository.Store
	sqlite *repository.SQLiteStore
	svc    *service.Service
	log    logger.Logger
}

// setup loads configuration, initializes logging, opens the store and starts
// the service. Callers must call close.
func setup(ctx context.Context, flags *rootFlags) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWithOptions(logger.Options{Format: cfg.LogFormat, Writer: os.Stderr}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.SetRefreshInterval(time.Duration(cfg.MetricsRefreshSeconds) * time.Second)

	e := &env{cfg: cfg, log: log}
	if cfg.DatabasePath == "" || cfg.DatabasePath == repository.MemoryPath {
		e.store = repository.NewMemoryStore()
	} else {
		db, err := repository.OpenSQLite(ctx, cfg.DatabasePath, repository.WithLogger(log.Named("sqlite")))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		e.sqlite = db
		e.store = db
	}

	harvester, err := github.NewHarvester(
		github.WithBaseURL(cfg.GitHubBaseURL),
		github.WithRepoLimit(cfg.GitHubRepoLimit),
		github.WithConcurrency(cfg.HarvestConcurrency),
		github.WithChunkSize(cfg.StreamChunkBytes),
		github.WithTimeout(time.Duration(cfg.HarvestTimeoutMS)*time.Millisecond),
		github.WithLogger(log.Named("harvester")),
	)
	if err != nil {
		_ = e.store.Close()
		return nil, fmt.Errorf("build harvester: %w", err)
	}

	e.svc = service.New(e.store, harvester,
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.OffloadWorkers),
		service.WithQueueSize(cfg.OffloadQueueSize),
		service.WithModelDir(cfg.ModelDir),
		service.WithSharedLibraryPath(flags.onnxLib),
		service.WithSpikeThreshold(cfg.SpikeThreshold),
		service.WithRetentionDays(cfg.GovernanceRetentionDays),
		service.WithMarketSkills(cfg.MarketSkills),
	)
	if err := e.svc.Start(ctx); err != nil {
		_ = e.store.Close()
		return nil, fmt.Errorf("start service: %w", err)
	}
	return e, nil
}

func (e *env) close() {
	e.svc.Stop()
	if err := e.store.Close(); err != nil {
		e.log.Warn(context.Background(), "store close failed", logger.Error(err))
	}
}
