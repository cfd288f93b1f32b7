// Package receipt defines the run and delete-replay summary documents and
// writes them once, at the end of the operation they describe.
package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File names inside a run directory.
const (
	RunFileName    = "batch_from_inputs-receipt.json"
	DeleteFileName = "delete_last_run-receipt.json"
)

// VaultSuccess is one created vault.
type VaultSuccess struct {
	BatchName string `json:"batch_name"`
	Project   string `json:"project"`
	VaultName string `json:"vault_name"`
	VaultID   string `json:"vault_id,omitempty"`
}

// VaultFailure is one planned vault that was not created, with the reason.
type VaultFailure struct {
	BatchName string `json:"batch_name"`
	Project   string `json:"project"`
	VaultName string `json:"vault_name"`
	Error     string `json:"error"`
}

// RunReceipt summarizes one batch run.
type RunReceipt struct {
	RunID      string         `json:"run_id"`
	ActorUUID  string         `json:"actor_uuid"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	InputFiles []string       `json:"input_files"`
	Warnings   []string       `json:"warnings"`
	Errors     []string       `json:"errors"`
	Successes  []VaultSuccess `json:"successes"`
	Failures   []VaultFailure `json:"failures"`
}

// NewRunReceipt starts a receipt with empty lists so they serialize as [].
func NewRunReceipt(runID, actorUUID string, startedAt time.Time) *RunReceipt {
	return &RunReceipt{
		RunID:      runID,
		ActorUUID:  actorUUID,
		StartedAt:  startedAt,
		InputFiles: []string{},
		Warnings:   []string{},
		Errors:     []string{},
		Successes:  []VaultSuccess{},
		Failures:   []VaultFailure{},
	}
}

// VaultDeleteRecord identifies one ledger entry targeted by a delete replay.
type VaultDeleteRecord struct {
	VaultID   string `json:"vault_id,omitempty"`
	VaultName string `json:"vault_name"`
	BatchName string `json:"batch_name,omitempty"`
	Project   string `json:"project,omitempty"`
}

// VaultDeleteFailure is a ledger entry whose deletion failed.
type VaultDeleteFailure struct {
	VaultID   string `json:"vault_id,omitempty"`
	VaultName string `json:"vault_name"`
	Error     string `json:"error"`
	BatchName string `json:"batch_name,omitempty"`
	Project   string `json:"project,omitempty"`
}

// DeleteReceipt summarizes one delete replay.
type DeleteReceipt struct {
	RunIDDeleted       string               `json:"run_id_deleted"`
	SourceRollbackFile string               `json:"source_rollback_file"`
	ActorUUID          string               `json:"actor_uuid"`
	StartedAt          time.Time            `json:"started_at"`
	FinishedAt         time.Time            `json:"finished_at"`
	DryRun             bool                 `json:"dry_run"`
	Planned            []VaultDeleteRecord  `json:"planned"`
	Successes          []VaultDeleteRecord  `json:"successes"`
	Failures           []VaultDeleteFailure `json:"failures"`
	Warnings           []string             `json:"warnings"`
}

// NewDeleteReceipt starts a delete receipt with empty lists.
func NewDeleteReceipt(runID, ledgerPath, actorUUID string, startedAt time.Time, dryRun bool) *DeleteReceipt {
	return &DeleteReceipt{
		RunIDDeleted:       runID,
		SourceRollbackFile: ledgerPath,
		ActorUUID:          actorUUID,
		StartedAt:          startedAt,
		DryRun:             dryRun,
		Planned:            []VaultDeleteRecord{},
		Successes:          []VaultDeleteRecord{},
		Failures:           []VaultDeleteFailure{},
		Warnings:           []string{},
	}
}

// Write renders v as indented JSON and moves it into place at path, so a
// reader never observes a partially written receipt.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move receipt into place: %w", err)
	}
	return nil
}
