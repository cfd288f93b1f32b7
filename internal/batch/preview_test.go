package batch

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/opvault/internal/inputs"
	"github.com/hengadev/opvault/internal/optool"
)

func TestEngine_Preview_ClassifiesPlannedNames(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"teamA-vault-prefixes.txt": "alpha\nbeta\ngamma\n",
		"teamA-vault-suffixes.txt": "admin\n",
		"teamB-vault-prefixes.txt": "solo\n",
	})
	lister := &fakeLister{records: []optool.VaultRecord{
		{ID: "x1", Name: "alpha - admin"},
		{ID: "x2", Name: "Beta-Admin"},
	}}
	creator := &fakeCreator{}
	engine, store := newTestEngine(t, creator, lister, Options{})

	report := engine.Preview(context.Background(), inputs.Scan(dir))

	assert.Empty(t, creator.calls)
	require.Len(t, report.Batches, 1)
	items := report.Batches[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, PreviewExists, items[0].Status)
	assert.Equal(t, "x1", items[0].Existing.ID)
	assert.Equal(t, PreviewConflict, items[1].Status)
	assert.Equal(t, "Beta-Admin", items[1].Existing.Name)
	assert.Equal(t, PreviewNew, items[2].Status)

	planned, created, exists, conflicts := report.Totals()
	assert.Equal(t, []int{3, 1, 1, 1}, []int{planned, created, exists, conflicts})

	var out bytes.Buffer
	report.Render(&out)
	text := out.String()
	assert.Contains(t, text, "[WARN][teamB] Skipping: prefixes present but no matching *-vault-suffixes.txt")
	assert.Contains(t, text, "[INFO] Loaded 2 existing vault(s) for exact & canonical checks.")
	assert.Contains(t, text, "=== PREVIEW: planned vault names ===")
	assert.Contains(t, text, "[teamA] 3 prefixes × 1 suffixes = 3 vault(s)")
	assert.Contains(t, text, "  - [EXISTS] alpha - admin (id=x1)")
	assert.Contains(t, text, "  - [CONFLICT] beta - admin (conflicts with existing 'Beta-Admin', id=x2)")
	assert.Contains(t, text, "  - [NEW] gamma - admin")
	assert.Contains(t, text, "  -> Batch summary: NEW=1, EXISTS=1, CONFLICTS=1, TOTAL=3")
	assert.Contains(t, text, "Total CONFLICTS (canonical): 1")

	runs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEngine_Preview_SurfacesFileDiagnostics(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"teamA-vault-prefixes.txt": "alpha\nalpha\nbad!name\n",
		"teamA-vault-suffixes.txt": "admin\n",
	})
	engine, _ := newTestEngine(t, &fakeCreator{}, &fakeLister{}, Options{})

	report := engine.Preview(context.Background(), inputs.Scan(dir))

	require.Len(t, report.FileWarnings, 1)
	require.Len(t, report.FileErrors, 1)
	assert.Equal(t, "teamA", report.FileErrors[0].BatchName)

	var out bytes.Buffer
	report.Render(&out)
	text := out.String()
	assert.Contains(t, text, "[WARN][teamA] Line 2: duplicate prefix ignored -> 'alpha'")
	assert.Contains(t, text, "[ERR ][teamA] Line 3: Invalid project prefix")
	assert.Contains(t, text, "  - [NEW] alpha - admin")
}

func TestEngine_Preview_MatchesRunDecisions(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"x-vault-prefixes.txt": "a-b\nab\nc\n",
		"x-vault-suffixes.txt": "admin\n",
	})
	lister := &fakeLister{records: []optool.VaultRecord{{ID: "x1", Name: "c - admin"}}}
	scan := inputs.Scan(dir)

	previewEngine, _ := newTestEngine(t, &fakeCreator{}, lister, Options{})
	report := previewEngine.Preview(context.Background(), scan)

	creator := &fakeCreator{}
	runEngine, _ := newTestEngine(t, creator, lister, Options{})
	_, err := runEngine.Run(context.Background(), scan, "actor")
	require.NoError(t, err)

	var wouldCreate []string
	for _, it := range report.Batches[0].Items {
		if it.Status != PreviewExists {
			wouldCreate = append(wouldCreate, it.Vault.Name)
		}
	}
	assert.Equal(t, wouldCreate, creator.calls)
	assert.Equal(t, PreviewConflict, report.Batches[0].Items[1].Status)
	assert.True(t, report.Batches[0].Items[1].InRun)
}

func TestEngine_Preview_NothingReady(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"only-vault-suffixes.txt": "admin\n",
	})
	engine, _ := newTestEngine(t, &fakeCreator{}, &fakeLister{}, Options{})

	report := engine.Preview(context.Background(), inputs.Scan(dir))

	var out bytes.Buffer
	report.Render(&out)
	assert.Contains(t, out.String(), "[WARN][only] Skipping: suffixes present but no matching *-vault-prefixes.txt")
	assert.Contains(t, out.String(), "No batches with both prefixes and suffixes. Nothing to preview.")
}

func TestEngine_Preview_InventoryFailure(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"b-vault-prefixes.txt": "alpha\n",
		"b-vault-suffixes.txt": "admin\n",
	})
	engine, _ := newTestEngine(t, &fakeCreator{}, &fakeLister{err: errors.New("signed out")}, Options{})

	report := engine.Preview(context.Background(), inputs.Scan(dir))

	require.Error(t, report.InventoryErr)
	_, created, _, _ := report.Totals()
	assert.Equal(t, 1, created)
}

func TestEngine_Preview_FatalScan(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeCreator{}, &fakeLister{}, Options{})

	report := engine.Preview(context.Background(), inputs.Scan(t.TempDir()))

	assert.NotEmpty(t, report.FatalErrors)
	var out bytes.Buffer
	report.Render(&out)
	assert.Contains(t, out.String(), "[FATAL] No files found matching")
}
