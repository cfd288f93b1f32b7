// Package runstore lays out run directories under a base path and resolves
// which run a delete replay should target.
package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/opvault/internal/ledger"
	"github.com/hengadev/opvault/internal/receipt"
)

const (
	MetricsFileName       = "metrics.prom"
	DeleteMetricsFileName = "delete-metrics.prom"
)

var (
	ErrRunNotFound  = errors.New("run id not found")
	ErrEmptyLedger  = errors.New("no rollback ledger (or empty) in run")
	ErrNoRuns       = errors.New("no run with a non-empty rollback ledger was found")
	ErrInvalidRunID = errors.New("invalid run id")
)

// Run is one run directory.
type Run struct {
	ID  string
	Dir string
}

func (r Run) LedgerPath() string        { return filepath.Join(r.Dir, ledger.FileName) }
func (r Run) ReceiptPath() string       { return filepath.Join(r.Dir, receipt.RunFileName) }
func (r Run) DeleteReceiptPath() string { return filepath.Join(r.Dir, receipt.DeleteFileName) }
func (r Run) MetricsPath() string       { return filepath.Join(r.Dir, MetricsFileName) }
func (r Run) DeleteMetricsPath() string { return filepath.Join(r.Dir, DeleteMetricsFileName) }

// RunInfo describes a run directory for listings.
type RunInfo struct {
	Run
	ModTime     time.Time
	LedgerBytes int64
}

// Store manages run directories below Base.
type Store struct {
	Base     string
	Location *time.Location
	SuffixFn func() string
}

// New creates a store. A nil location means UTC.
func New(base string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{Base: base, Location: loc, SuffixFn: randomSuffix}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// NewRunID renders now as a sortable timestamp in the store's zone followed by
// a random suffix, e.g. 2025-09-01_16-47-00-0700_7f3a2c. UTC stamps end in Z.
func (s *Store) NewRunID(now time.Time) string {
	layout := "2006-01-02_15-04-05-0700"
	if s.Location == time.UTC {
		layout = "2006-01-02_15-04-05Z"
	}
	suffix := s.SuffixFn
	if suffix == nil {
		suffix = randomSuffix
	}
	return now.In(s.Location).Format(layout) + "_" + suffix()
}

// Create makes a fresh run directory stamped with now.
func (s *Store) Create(now time.Time) (Run, error) {
	id := s.NewRunID(now)
	dir := filepath.Join(s.Base, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Run{}, fmt.Errorf("create run directory: %w", err)
	}
	return Run{ID: id, Dir: dir}, nil
}

// Resolve returns the run to replay. An explicit runID must exist and have a
// non-empty ledger; an empty runID selects the latest run that has one.
func (s *Store) Resolve(runID string) (Run, error) {
	if runID == "" {
		return s.Latest()
	}
	if runID != filepath.Base(runID) || runID == "." || runID == ".." {
		return Run{}, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}

	run := Run{ID: runID, Dir: filepath.Join(s.Base, runID)}
	info, err := os.Stat(run.Dir)
	if err != nil || !info.IsDir() {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if ledgerSize(run) <= 0 {
		return Run{}, fmt.Errorf("%w %s", ErrEmptyLedger, runID)
	}
	return run, nil
}

// Latest returns the most recently modified run whose ledger is non-empty.
func (s *Store) Latest() (Run, error) {
	runs, err := s.List()
	if err != nil {
		return Run{}, err
	}
	for _, r := range runs {
		if r.LedgerBytes > 0 {
			return r.Run, nil
		}
	}
	return Run{}, fmt.Errorf("%w in %s", ErrNoRuns, s.Base)
}

// List returns every run directory, newest first by modification time.
// A missing base directory yields an empty list.
func (s *Store) List() ([]RunInfo, error) {
	entries, err := os.ReadDir(s.Base)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var runs []RunInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		run := Run{ID: e.Name(), Dir: filepath.Join(s.Base, e.Name())}
		runs = append(runs, RunInfo{Run: run, ModTime: info.ModTime(), LedgerBytes: ledgerSize(run)})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].ModTime.Equal(runs[j].ModTime) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].ModTime.After(runs[j].ModTime)
	})
	return runs, nil
}

func ledgerSize(r Run) int64 {
	info, err := os.Stat(r.LedgerPath())
	if err != nil || !info.Mode().IsRegular() {
		return -1
	}
	return info.Size()
}
