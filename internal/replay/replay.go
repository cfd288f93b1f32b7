// Package replay reverses a previous run by deleting every vault recorded in
// its rollback ledger.
package replay

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hengadev/opvault/internal/ledger"
	"github.com/hengadev/opvault/internal/monitoring"
	"github.com/hengadev/opvault/internal/receipt"
	"github.com/hengadev/opvault/internal/runstore"
	"github.com/hengadev/opvault/internal/vaultops"
)

// OperationDelete labels replay outcomes in hooks and metrics.
const OperationDelete = "vault delete"

// Options configures a Replayer.
type Options struct {
	Logger  *zap.Logger
	Hook    monitoring.ObservabilityHook
	Metrics monitoring.MetricsCollector
	// Progress receives one [DRY]/[DEL OK]/[DEL ERR] line per ledger entry.
	Progress io.Writer
	Now      func() time.Time
}

// Replayer deletes the vaults of a recorded run.
type Replayer struct {
	deleter  vaultops.VaultDeleter
	store    *runstore.Store
	logger   *zap.Logger
	hook     monitoring.ObservabilityHook
	metrics  monitoring.MetricsCollector
	progress io.Writer
	now      func() time.Time
}

// New creates a replayer resolving runs in store.
func New(deleter vaultops.VaultDeleter, store *runstore.Store, opts Options) *Replayer {
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
	return &Replayer{
		deleter:  deleter,
		store:    store,
		logger:   monitoring.OrNop(opts.Logger),
		hook:     opts.Hook,
		metrics:  opts.Metrics,
		progress: opts.Progress,
		now:      opts.Now,
	}
}

// Result points at the replayed run and the receipt written for it.
type Result struct {
	Run     runstore.Run
	Receipt *receipt.DeleteReceipt
}

// ReceiptPath returns where the delete receipt was written.
func (r *Result) ReceiptPath() string { return r.Run.DeleteReceiptPath() }

// DeleteRun replays the ledger of runID, or of the latest run when runID is
// empty. Resolution and ledger read errors are returned before anything is
// written. Per-entry delete failures are recorded and never stop the replay.
// In dry-run mode nothing is deleted and every entry is listed as planned.
func (r *Replayer) DeleteRun(ctx context.Context, runID string, dryRun bool, actorUUID string) (*Result, error) {
	started := r.now()
	run, err := r.store.Resolve(runID)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With(zap.String("run_id", run.ID), zap.Bool("dry_run", dryRun))

	entries, skipped, err := ledger.Read(run.LedgerPath())
	if err != nil {
		return nil, err
	}
	logger.Info("replaying rollback ledger", zap.String("ledger", run.LedgerPath()), zap.Int("entries", len(entries)))

	rec := receipt.NewDeleteReceipt(run.ID, run.LedgerPath(), actorUUID, started.In(r.store.Location), dryRun)
	for _, s := range skipped {
		rec.Warnings = append(rec.Warnings, "Skipping malformed "+s.String())
		logger.Warn("skipping malformed ledger line", zap.Int("line", s.Line), zap.Error(s.Err))
	}

	for _, e := range entries {
		target := record(e)
		if dryRun {
			rec.Planned = append(rec.Planned, target)
			fmt.Fprintf(r.progress, "[DRY] would delete %s\n", describe(e))
			r.hook.OnOutcome(ctx, OperationDelete, e.VaultName, monitoring.OutcomePlanned, nil)
			continue
		}

		if err := r.deleter.DeleteVault(ctx, e.Identifier()); err != nil {
			rec.Failures = append(rec.Failures, receipt.VaultDeleteFailure{
				VaultID:   e.VaultID,
				VaultName: e.VaultName,
				Error:     err.Error(),
				BatchName: e.BatchName,
				Project:   e.Project,
			})
			fmt.Fprintf(r.progress, "[DEL ERR] %s: %v\n", describe(e), err)
			logger.Error("vault deletion failed", zap.String("vault", e.VaultName), zap.String("vault_id", e.VaultID), zap.Error(err))
			r.hook.OnOutcome(ctx, OperationDelete, e.VaultName, monitoring.OutcomeFailed, err)
			continue
		}
		rec.Successes = append(rec.Successes, target)
		fmt.Fprintf(r.progress, "[DEL OK] %s\n", describe(e))
		logger.Info("vault deleted", zap.String("vault", e.VaultName), zap.String("vault_id", e.VaultID))
		r.hook.OnOutcome(ctx, OperationDelete, e.VaultName, monitoring.OutcomeDeleted, nil)
	}

	rec.FinishedAt = r.now().In(r.store.Location)
	if err := receipt.Write(run.DeleteReceiptPath(), rec); err != nil {
		return nil, err
	}
	if tw, ok := r.metrics.(monitoring.TextfileWriter); ok {
		if err := tw.WriteTextfile(run.DeleteMetricsPath()); err != nil {
			logger.Warn("could not write metrics textfile", zap.Error(err))
		}
	}
	logger.Info("replay finished",
		zap.Int("planned", len(rec.Planned)),
		zap.Int("successes", len(rec.Successes)),
		zap.Int("failures", len(rec.Failures)))
	return &Result{Run: run, Receipt: rec}, nil
}

func record(e ledger.Entry) receipt.VaultDeleteRecord {
	return receipt.VaultDeleteRecord{
		VaultID:   e.VaultID,
		VaultName: e.VaultName,
		BatchName: e.BatchName,
		Project:   e.Project,
	}
}

func describe(e ledger.Entry) string {
	if e.VaultID != "" {
		return fmt.Sprintf("%s (id=%s)", e.VaultName, e.VaultID)
	}
	return e.VaultName
}
