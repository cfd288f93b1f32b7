package opvault

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hengadev/opvault/internal/batch"
	"github.com/hengadev/opvault/internal/health"
	"github.com/hengadev/opvault/internal/inputs"
	"github.com/hengadev/opvault/internal/monitoring"
	"github.com/hengadev/opvault/internal/optool"
	"github.com/hengadev/opvault/internal/reliability"
	"github.com/hengadev/opvault/internal/replay"
	"github.com/hengadev/opvault/internal/runstore"
	"github.com/hengadev/opvault/internal/vaultops"
)

// Opvault wires the op client, retry engine, batch engine and delete replay
// from one Config.
type Opvault struct {
	cfg      Config
	logger   *zap.Logger
	progress io.Writer
	service  *vaultops.Service
	store    *runstore.Store
	engine   *batch.Engine
	replayer *replay.Replayer
}

// New validates cfg and builds an instance. A nil logger discards logs.
//
// Example usage:
//
//	cfg, _ := opvault.LoadConfig(opvault.LoadOptions{})
//	ov, err := opvault.New(cfg, logger, opvault.WithProgress(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := ov.Run(ctx)
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Opvault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = monitoring.OrNop(logger)

	o := &options{progress: io.Discard, now: time.Now, sleep: reliability.ContextSleep}
	for i, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("invalid option %d: %w", i+1, err)
		}
	}
	if o.runner == nil {
		o.runner = optool.NewExecRunner(cfg.OpBinary, cfg.CommandTimeout)
	}
	if o.metrics == nil {
		if cfg.MetricsEnabled {
			o.metrics = monitoring.NewPrometheusCollector()
		} else {
			o.metrics = &monitoring.NoOpMetricsCollector{}
		}
	}
	if o.progress == nil {
		o.progress = io.Discard
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	hook := monitoring.NewCompositeObservabilityHook(
		monitoring.NewLoggingObservabilityHook(logger),
		monitoring.NewMetricsObservabilityHook(o.metrics),
	)

	client := optool.NewClient(o.runner, optool.NewClassifier(cfg.RateLimitMarker), logger)
	executor := reliability.NewRetryExecutor(
		reliability.NewOpPolicy(cfg.ShouldRetry, cfg.MaxRetries, cfg.Backoff()),
		reliability.ExecutorOptions{Buffer: cfg.Buffer(), Sleep: o.sleep, Hook: hook},
	)
	progress := o.progress
	executor.SetOnRetryCallback(func(attempt int, delay time.Duration, err error) {
		fmt.Fprintf(progress, "[WAIT] rate limited on attempt %d; retrying in %s\n", attempt, delay)
	})
	service := vaultops.NewService(client, executor)
	store := runstore.New(cfg.OutputDir, loc)

	return &Opvault{
		cfg:      cfg,
		logger:   logger,
		progress: o.progress,
		service:  service,
		store:    store,
		engine: batch.NewEngine(service, service, store, batch.Options{
			Joiner:        cfg.NameJoiner,
			CaseSensitive: cfg.CaseSensitiveNames,
			Logger:        logger,
			Hook:          hook,
			Metrics:       o.metrics,
			Progress:      o.progress,
			Now:           o.now,
		}),
		replayer: replay.New(service, store, replay.Options{
			Logger:   logger,
			Hook:     hook,
			Metrics:  o.metrics,
			Progress: o.progress,
			Now:      o.now,
		}),
	}, nil
}

// Config returns the configuration the instance was built with.
func (ov *Opvault) Config() Config {
	return ov.cfg
}

// WhoAmI returns the signed-in identity.
func (ov *Opvault) WhoAmI(ctx context.Context) (optool.WhoAmIResponse, error) {
	who, err := ov.service.WhoAmI(ctx)
	if err != nil {
		return optool.WhoAmIResponse{}, NewIdentityError(err)
	}
	return who, nil
}

// Scan parses the input directory.
func (ov *Opvault) Scan() inputs.ScanResult {
	return inputs.Scan(ov.cfg.InputDir)
}

// Preview predicts what Run would do without creating anything.
func (ov *Opvault) Preview(ctx context.Context) *batch.PreviewReport {
	return ov.engine.Preview(ctx, ov.Scan())
}

// Run creates every planned vault and writes the run's ledger and receipt.
// The identity lookup happens first and its failure aborts the run before
// any file is written. The scan summary is printed to the progress writer
// before the first vault is created.
func (ov *Opvault) Run(ctx context.Context) (*batch.Result, error) {
	who, err := ov.WhoAmI(ctx)
	if err != nil {
		return nil, err
	}
	ov.logger.Info("signed in", zap.String("actor_uuid", who.UserUUID), zap.String("url", who.URL))
	scan := ov.Scan()
	fmt.Fprintln(ov.progress, scan.Summary())
	return ov.engine.Run(ctx, scan, who.UserUUID)
}

// DeleteRun deletes the vaults of runID, or of the latest run with a
// non-empty ledger when runID is empty.
func (ov *Opvault) DeleteRun(ctx context.Context, runID string, dryRun bool) (*replay.Result, error) {
	who, err := ov.WhoAmI(ctx)
	if err != nil {
		return nil, err
	}
	return ov.replayer.DeleteRun(ctx, runID, dryRun, who.UserUUID)
}

// CreateVault creates a single vault through the retry engine, outside of
// any run. Nothing is written to a ledger.
func (ov *Opvault) CreateVault(ctx context.Context, name string) (optool.CreateVaultResponse, error) {
	return ov.service.CreateVault(ctx, name)
}

// Runs lists the run directories, newest first.
func (ov *Opvault) Runs() ([]runstore.RunInfo, error) {
	return ov.store.List()
}

// Doctor runs the preflight checks in order: identity, inventory, input
// files, rejected input lines and output directory.
func (ov *Opvault) Doctor(ctx context.Context) (*health.HealthReport, error) {
	checker := health.NewHealthChecker(ov.cfg.CommandTimeout)
	for _, check := range []*health.HealthCheck{
		health.IdentityCheck(ov.service),
		health.InventoryCheck(ov.service),
		health.InputCheck(ov.cfg.InputDir),
		health.InputLinesCheck(ov.cfg.InputDir),
		health.OutputDirCheck(ov.cfg.OutputDir),
	} {
		if err := checker.RegisterCheck(check); err != nil {
			return nil, fmt.Errorf("failed to register health check: %w", err)
		}
	}
	return checker.CheckHealth(ctx), nil
}
