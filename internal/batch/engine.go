package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hengadev/opvault/internal/dupindex"
	"github.com/hengadev/opvault/internal/inputs"
	"github.com/hengadev/opvault/internal/ledger"
	"github.com/hengadev/opvault/internal/monitoring"
	"github.com/hengadev/opvault/internal/optool"
	"github.com/hengadev/opvault/internal/receipt"
	"github.com/hengadev/opvault/internal/runstore"
	"github.com/hengadev/opvault/internal/vaultops"
)

// OperationCreate labels run outcomes in hooks and metrics.
const OperationCreate = "vault create"

// Options configures an Engine.
type Options struct {
	Joiner        string
	CaseSensitive bool

	Logger  *zap.Logger
	Hook    monitoring.ObservabilityHook
	Metrics monitoring.MetricsCollector
	// Progress receives one [OK]/[SKIP]/[ERR] line per planned vault.
	Progress io.Writer
	Now      func() time.Time
}

// Engine runs batches against 1Password.
type Engine struct {
	creator vaultops.VaultCreator
	lister  vaultops.InventoryLister
	store   *runstore.Store

	joiner        string
	caseSensitive bool
	logger        *zap.Logger
	hook          monitoring.ObservabilityHook
	metrics       monitoring.MetricsCollector
	progress      io.Writer
	now           func() time.Time
	openLedger    func(path string) (ledgerFile, error)
}

type ledgerFile interface {
	ledger.Appender
	Close() error
}

func openLedgerFile(path string) (ledgerFile, error) {
	w, err := ledger.Create(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// NewEngine creates an engine writing its artifacts below store.
func NewEngine(creator vaultops.VaultCreator, lister vaultops.InventoryLister, store *runstore.Store, opts Options) *Engine {
	if opts.Joiner == "" {
		opts.Joiner = DefaultJoiner
	}
	if opts.Hook == nil {
		opts.Hook = monitoring.NoOpObservabilityHook{}
	}
	if opts.Metrics == nil {
		opts.Metrics = &monitoring.NoOpMetricsCollector{}
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		creator:       creator,
		lister:        lister,
		store:         store,
		joiner:        opts.Joiner,
		caseSensitive: opts.CaseSensitive,
		logger:        monitoring.OrNop(opts.Logger),
		hook:          opts.Hook,
		metrics:       opts.Metrics,
		progress:      opts.Progress,
		now:           opts.Now,
		openLedger:    openLedgerFile,
	}
}

// Result points at the artifacts of a finished run.
type Result struct {
	Run     runstore.Run
	Receipt *receipt.RunReceipt
	// Halted is set when the run stopped before attempting every planned
	// vault: fatal input errors or an unusable rollback ledger.
	Halted bool
}

// LedgerPath returns the run's rollback ledger.
func (r *Result) LedgerPath() string { return r.Run.LedgerPath() }

// ReceiptPath returns the run's receipt.
func (r *Result) ReceiptPath() string { return r.Run.ReceiptPath() }

// Run creates every planned vault that does not already exist. Per-vault
// errors are recorded in the receipt and never stop the run. An error is
// returned only when the run directory or the receipt cannot be written.
func (e *Engine) Run(ctx context.Context, scan inputs.ScanResult, actorUUID string) (*Result, error) {
	started := e.now()
	run, err := e.store.Create(started)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With(zap.String("run_id", run.ID))
	logger.Info("run started", zap.String("dir", run.Dir))

	rec := receipt.NewRunReceipt(run.ID, actorUUID, started.In(e.store.Location))
	rec.InputFiles = append(rec.InputFiles, scan.InputFiles()...)
	for _, f := range scan.Files() {
		for _, w := range f.Warnings {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("[%s] %s", f.BatchName, w))
		}
		for _, msg := range f.Errors {
			rec.Errors = append(rec.Errors, fmt.Sprintf("[%s] %s", f.BatchName, msg))
		}
	}

	res := &Result{Run: run, Receipt: rec}
	if len(scan.FatalErrors) > 0 {
		rec.Errors = append(rec.Errors, scan.FatalErrors...)
		logger.Error("input scan failed, nothing to create", zap.Strings("errors", scan.FatalErrors))
		res.Halted = true
		return res, e.finish(run, rec, logger)
	}

	lw, err := e.openLedger(run.LedgerPath())
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("[global] %v; no vaults were created", err))
		logger.Error("rollback ledger unavailable", zap.Error(err))
		res.Halted = true
		return res, e.finish(run, rec, logger)
	}
	defer lw.Close()

	idx := e.buildIndex(ctx, rec, logger)

	plan := BuildPlan(scan.Projects(), scan.Roles(), e.joiner)
	for _, s := range plan.Skipped {
		msg := fmt.Sprintf("[%s] Skipping batch: %s", s.Name, runSkipReason(s.Missing))
		rec.Warnings = append(rec.Warnings, msg)
		logger.Warn("batch skipped", zap.String("batch", s.Name), zap.String("missing", string(s.Missing)))
	}
	e.metrics.SetGauge(monitoring.MetricRunPlanned, float64(plan.Total()), nil)

	halted := false
	for _, b := range plan.Batches {
		logger.Info("processing batch",
			zap.String("batch", b.Name),
			zap.Int("projects", len(b.Projects)),
			zap.Int("roles", len(b.Roles)))
		for _, v := range b.Vaults {
			if halted {
				e.fail(ctx, rec, v, "not attempted: run halted after a rollback ledger failure", nil)
				continue
			}
			halted = e.process(ctx, v, idx, lw, rec, logger)
		}
	}

	res.Halted = halted
	if err := lw.Close(); err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("[global] close rollback ledger: %v", err))
	}
	return res, e.finish(run, rec, logger)
}

func runSkipReason(missing inputs.Kind) string {
	if missing == inputs.KindSuffixes {
		return fmt.Sprintf("found prefixes but no *%s.", inputs.SuffixFileSuffix)
	}
	return fmt.Sprintf("found suffixes but no *%s.", inputs.PrefixFileSuffix)
}

func (e *Engine) buildIndex(ctx context.Context, rec *receipt.RunReceipt, logger *zap.Logger) *dupindex.Index {
	records, err := e.lister.ListVaults(ctx)
	if err != nil {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("[global] Could not list existing vaults; duplicate check disabled: %v", err))
		logger.Warn("duplicate check disabled", zap.Error(err))
		return dupindex.Disabled(e.caseSensitive)
	}
	logger.Info("loaded existing vaults", zap.Int("count", len(records)))
	return dupindex.New(records, e.caseSensitive)
}

// process handles one planned vault and reports whether the run must stop
// creating vaults.
func (e *Engine) process(ctx context.Context, v PlannedVault, idx *dupindex.Index, lw ledger.Appender, rec *receipt.RunReceipt, logger *zap.Logger) bool {
	log := logger.With(zap.String("batch", v.BatchName), zap.String("vault", v.Name))

	switch m := idx.Lookup(v.Name); m.Kind {
	case dupindex.MatchExact:
		reason := fmt.Sprintf("already exists (id=%s)", m.Record.ID)
		if m.InRun {
			reason = fmt.Sprintf("already created in this run (id=%s)", m.Record.ID)
		}
		rec.Failures = append(rec.Failures, failure(v, reason))
		fmt.Fprintf(e.progress, "[SKIP] %s: %s\n", v.Name, reason)
		log.Info("vault skipped", zap.String("reason", reason))
		e.hook.OnOutcome(ctx, OperationCreate, v.Name, monitoring.OutcomeDuplicate, nil)
		return false

	case dupindex.MatchCanonical:
		msg := fmt.Sprintf("[%s] CONFLICT: '%s' resembles existing '%s' (id=%s); creating anyway",
			v.BatchName, v.Name, m.Record.Name, m.Record.ID)
		rec.Warnings = append(rec.Warnings, msg)
		log.Warn("canonical name conflict",
			zap.String("existing", m.Record.Name),
			zap.String("existing_id", m.Record.ID),
			zap.Bool("in_run", m.InRun))
		e.hook.OnOutcome(ctx, OperationCreate, v.Name, monitoring.OutcomeConflict, nil)
	}

	resp, err := e.creator.CreateVault(ctx, v.Name)
	if err != nil {
		e.fail(ctx, rec, v, err.Error(), err)
		fmt.Fprintf(e.progress, "[ERR] %s: %v\n", v.Name, err)
		log.Error("vault creation failed", zap.Error(err))
		return false
	}
	idx.Remember(optool.VaultRecord{ID: resp.ID, Name: v.Name})

	entry := ledger.Entry{BatchName: v.BatchName, Project: v.Project, VaultName: v.Name, VaultID: resp.ID}
	if err := lw.Append(entry); err != nil {
		reason := fmt.Sprintf("created (id=%s) but rollback ledger append failed: %v", resp.ID, err)
		e.fail(ctx, rec, v, reason, err)
		rec.Errors = append(rec.Errors, fmt.Sprintf("[%s] %s: %s; remaining vaults were not attempted", v.BatchName, v.Name, reason))
		fmt.Fprintf(e.progress, "[ERR] %s: %s\n", v.Name, reason)
		log.Error("rollback ledger append failed, halting run", zap.String("vault_id", resp.ID), zap.Error(err))
		return true
	}

	rec.Successes = append(rec.Successes, receipt.VaultSuccess{
		BatchName: v.BatchName,
		Project:   v.Project,
		VaultName: v.Name,
		VaultID:   resp.ID,
	})
	fmt.Fprintf(e.progress, "[OK] %s (id=%s)\n", v.Name, resp.ID)
	log.Info("vault created", zap.String("vault_id", resp.ID))
	e.hook.OnOutcome(ctx, OperationCreate, v.Name, monitoring.OutcomeCreated, nil)
	return false
}

func (e *Engine) fail(ctx context.Context, rec *receipt.RunReceipt, v PlannedVault, reason string, err error) {
	rec.Failures = append(rec.Failures, failure(v, reason))
	e.hook.OnOutcome(ctx, OperationCreate, v.Name, monitoring.OutcomeFailed, err)
}

func failure(v PlannedVault, reason string) receipt.VaultFailure {
	return receipt.VaultFailure{BatchName: v.BatchName, Project: v.Project, VaultName: v.Name, Error: reason}
}

func (e *Engine) finish(run runstore.Run, rec *receipt.RunReceipt, logger *zap.Logger) error {
	rec.FinishedAt = e.now().In(e.store.Location)
	if err := receipt.Write(run.ReceiptPath(), rec); err != nil {
		return err
	}
	if tw, ok := e.metrics.(monitoring.TextfileWriter); ok {
		if err := tw.WriteTextfile(run.MetricsPath()); err != nil {
			logger.Warn("could not write metrics textfile", zap.Error(err))
		}
	}
	logger.Info("run finished",
		zap.Int("successes", len(rec.Successes)),
		zap.Int("failures", len(rec.Failures)),
		zap.Int("warnings", len(rec.Warnings)),
		zap.Int("errors", len(rec.Errors)))
	return nil
}
