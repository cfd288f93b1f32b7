// Package opvault provisions and tears down 1Password vaults in bulk through
// the op command-line tool.
//
// Vault names come from text files in the input directory. A file named
// NAME-vault-prefixes.txt lists projects and NAME-vault-suffixes.txt lists
// roles; every project is joined with every role of the same batch NAME.
//
// # Runs
//
// A run lists the existing vaults once, skips every planned name that already
// exists (exact match after trimming and, by default, casefolding) and creates
// the rest one at a time. Names that only match after dropping spaces and
// dashes are reported as conflicts and still created. Each run gets its own
// directory below the output directory holding:
//
//   - rollback.jsonl: one line per created vault, synced before the next call
//   - batch_from_inputs-receipt.json: successes, failures, warnings and errors
//   - metrics.prom: Prometheus textfile of the run, when metrics are enabled
//
// # Rate limiting
//
// Every op call is classified as success, failure, rate-limited or unknown.
// Only rate-limited calls are retried, after a fixed backoff, up to
// Config.MaxRetries attempts in total.
//
// # Delete replay
//
// DeleteRun reads the ledger of a run (the latest one by default) and deletes
// each vault by id, or by name when no id was recorded. A dry run only lists
// what would be deleted. The outcome is written to delete_last_run-receipt.json
// in the same run directory.
//
// # Preflight
//
// Doctor checks, one after another, that op is signed in, that vaults can be
// listed, that the input directory has usable files, whether any input line
// is rejected, and that the output directory is writable.
//
// # Quick Start
//
//	cfg, err := opvault.LoadConfig(opvault.LoadOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ov, err := opvault.New(cfg, logger, opvault.WithProgress(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := ov.Run(ctx)
package opvault
