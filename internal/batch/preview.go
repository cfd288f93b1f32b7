package batch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/hengadev/opvault/internal/dupindex"
	"github.com/hengadev/opvault/internal/inputs"
	"github.com/hengadev/opvault/internal/optool"
)

// PreviewStatus is what a real run would do with a planned name.
type PreviewStatus string

const (
	PreviewNew      PreviewStatus = "NEW"
	PreviewExists   PreviewStatus = "EXISTS"
	PreviewConflict PreviewStatus = "CONFLICT"
)

// PreviewItem is one planned name and its predicted outcome.
type PreviewItem struct {
	Vault    PlannedVault
	Status   PreviewStatus
	Existing optool.VaultRecord
	// InRun marks collisions with a name planned earlier in the same preview.
	InRun bool
}

// PreviewBatch groups the items of one ready batch.
type PreviewBatch struct {
	BatchPlan
	Items []PreviewItem
}

// Counts returns the NEW, EXISTS and CONFLICT tallies of the batch.
func (b PreviewBatch) Counts() (created, exists, conflicts int) {
	for _, it := range b.Items {
		switch it.Status {
		case PreviewNew:
			created++
		case PreviewExists:
			exists++
		case PreviewConflict:
			conflicts++
		}
	}
	return created, exists, conflicts
}

// FileNote is a warning or error raised while parsing one input file.
type FileNote struct {
	BatchName string
	Message   string
}

// PreviewReport is the prediction of a run over the same input.
type PreviewReport struct {
	FatalErrors []string
	// FileWarnings and FileErrors name the input lines a run would drop.
	FileWarnings []FileNote
	FileErrors   []FileNote
	Skipped      []SkippedBatch
	Batches      []PreviewBatch
	// Existing is the inventory size; InventoryErr is set when listing failed.
	Existing     int
	InventoryErr error
}

// Totals sums the per-batch tallies.
func (r *PreviewReport) Totals() (planned, created, exists, conflicts int) {
	for _, b := range r.Batches {
		n, e, c := b.Counts()
		planned += len(b.Items)
		created += n
		exists += e
		conflicts += c
	}
	return planned, created, exists, conflicts
}

// Preview plans the run without creating anything. It shares BuildPlan with
// Run, and remembers every NEW name so later collisions inside the same
// input are predicted too.
func (e *Engine) Preview(ctx context.Context, scan inputs.ScanResult) *PreviewReport {
	report := &PreviewReport{FatalErrors: scan.FatalErrors}
	if len(scan.FatalErrors) > 0 {
		return report
	}
	for _, f := range scan.Files() {
		for _, w := range f.Warnings {
			report.FileWarnings = append(report.FileWarnings, FileNote{BatchName: f.BatchName, Message: w})
		}
		for _, msg := range f.Errors {
			report.FileErrors = append(report.FileErrors, FileNote{BatchName: f.BatchName, Message: msg})
		}
	}

	plan := BuildPlan(scan.Projects(), scan.Roles(), e.joiner)
	report.Skipped = plan.Skipped
	if len(plan.Batches) == 0 {
		return report
	}

	idx := dupindex.Disabled(e.caseSensitive)
	records, err := e.lister.ListVaults(ctx)
	if err != nil {
		report.InventoryErr = err
		e.logger.Warn("duplicate check disabled for preview", zap.Error(err))
	} else {
		idx = dupindex.New(records, e.caseSensitive)
		report.Existing = len(records)
	}

	for _, b := range plan.Batches {
		pb := PreviewBatch{BatchPlan: b, Items: make([]PreviewItem, 0, len(b.Vaults))}
		for _, v := range b.Vaults {
			item := PreviewItem{Vault: v, Status: PreviewNew}
			switch m := idx.Lookup(v.Name); m.Kind {
			case dupindex.MatchExact:
				item.Status, item.Existing, item.InRun = PreviewExists, m.Record, m.InRun
			case dupindex.MatchCanonical:
				item.Status, item.Existing, item.InRun = PreviewConflict, m.Record, m.InRun
			}
			if item.Status != PreviewExists {
				idx.Remember(optool.VaultRecord{Name: v.Name})
			}
			pb.Items = append(pb.Items, item)
		}
		report.Batches = append(report.Batches, pb)
	}
	return report
}

// Render writes the report for humans. Colours are only emitted when w is a
// terminal.
func (r *PreviewReport) Render(w io.Writer) {
	re := lipgloss.NewRenderer(w)
	var (
		title    = re.NewStyle().Bold(true)
		warn     = re.NewStyle().Foreground(lipgloss.Color("#FFB347"))
		fresh    = re.NewStyle().Foreground(lipgloss.Color("#50C878"))
		exists   = re.NewStyle().Foreground(lipgloss.Color("#808080"))
		conflict = re.NewStyle().Foreground(lipgloss.Color("#FF6961"))
	)

	if len(r.FatalErrors) > 0 {
		for _, e := range r.FatalErrors {
			fmt.Fprintln(w, conflict.Render("[FATAL] "+e))
		}
		return
	}
	for _, n := range r.FileWarnings {
		fmt.Fprintln(w, warn.Render(fmt.Sprintf("[WARN][%s] %s", n.BatchName, n.Message)))
	}
	for _, n := range r.FileErrors {
		fmt.Fprintln(w, conflict.Render(fmt.Sprintf("[ERR ][%s] %s", n.BatchName, n.Message)))
	}
	for _, s := range r.Skipped {
		fmt.Fprintln(w, warn.Render(fmt.Sprintf("[WARN][%s] Skipping: %s", s.Name, previewSkipReason(s.Missing))))
	}
	if len(r.Batches) == 0 {
		fmt.Fprintln(w, "No batches with both prefixes and suffixes. Nothing to preview.")
		return
	}
	if r.InventoryErr != nil {
		fmt.Fprintln(w, warn.Render(fmt.Sprintf("[WARN] Could not list existing vaults; duplicate check disabled: %v", r.InventoryErr)))
	} else {
		fmt.Fprintf(w, "[INFO] Loaded %d existing vault(s) for exact & canonical checks.\n", r.Existing)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render("=== PREVIEW: planned vault names ==="))
	for _, b := range r.Batches {
		fmt.Fprintln(w)
		fmt.Fprintln(w, title.Render(fmt.Sprintf("[%s] %d prefixes × %d suffixes = %d vault(s)",
			b.Name, len(b.Projects), len(b.Roles), len(b.Items))))
		for _, it := range b.Items {
			switch it.Status {
			case PreviewNew:
				fmt.Fprintf(w, "  - %s %s\n", fresh.Render("[NEW]"), it.Vault.Name)
			case PreviewExists:
				fmt.Fprintf(w, "  - %s %s %s\n", exists.Render("[EXISTS]"), it.Vault.Name, existingRef(it))
			case PreviewConflict:
				fmt.Fprintf(w, "  - %s %s (conflicts with %s '%s', %s)\n", conflict.Render("[CONFLICT]"),
					it.Vault.Name, conflictSource(it), it.Existing.Name, idRef(it))
			}
		}
		n, e, c := b.Counts()
		fmt.Fprintf(w, "  -> Batch summary: NEW=%d, EXISTS=%d, CONFLICTS=%d, TOTAL=%d\n", n, e, c, len(b.Items))
	}

	planned, n, e, c := r.Totals()
	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render("=== SUMMARY ==="))
	fmt.Fprintln(w, strings.Join([]string{
		fmt.Sprintf("Batches ready: %d", len(r.Batches)),
		fmt.Sprintf("Total planned vaults: %d", planned),
		fmt.Sprintf("Total NEW: %d", n),
		fmt.Sprintf("Total EXISTS (exact name): %d", e),
		fmt.Sprintf("Total CONFLICTS (canonical): %d", c),
	}, "\n"))
}

func previewSkipReason(missing inputs.Kind) string {
	if missing == inputs.KindSuffixes {
		return fmt.Sprintf("prefixes present but no matching *%s", inputs.SuffixFileSuffix)
	}
	return fmt.Sprintf("suffixes present but no matching *%s", inputs.PrefixFileSuffix)
}

func existingRef(it PreviewItem) string {
	if it.InRun {
		return "(planned earlier in this run)"
	}
	return "(" + idRef(it) + ")"
}

func idRef(it PreviewItem) string {
	if it.InRun {
		return "planned earlier in this run"
	}
	return "id=" + it.Existing.ID
}

func conflictSource(it PreviewItem) string {
	if it.InRun {
		return "planned"
	}
	return "existing"
}
