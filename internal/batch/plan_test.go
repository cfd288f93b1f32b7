package batch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/hengadev/opvault/internal/inputs"
)

func names(vs []PlannedVault) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name)
	}
	return out
}

func TestBuildPlan_CrossProductIsSortedAndComplete(t *testing.T) {
	plan := BuildPlan(
		map[string][]string{"teamA": {"beta", "alpha"}},
		map[string][]string{"teamA": {"viewer", "admin"}},
		" - ",
	)

	assert.Empty(t, plan.Skipped)
	if assert.Len(t, plan.Batches, 1) {
		want := []string{"alpha - admin", "alpha - viewer", "beta - admin", "beta - viewer"}
		if diff := cmp.Diff(want, names(plan.Batches[0].Vaults)); diff != "" {
			t.Errorf("planned names mismatch (-want +got):\n%s", diff)
		}
	}
	assert.Equal(t, 4, plan.Total())
}

func TestBuildPlan_SkipsOneSidedBatches(t *testing.T) {
	plan := BuildPlan(
		map[string][]string{"onlyPrefix": {"p"}, "both": {"p"}},
		map[string][]string{"onlySuffix": {"r"}, "both": {"r"}},
		"/",
	)

	assert.Equal(t, []SkippedBatch{
		{Name: "onlyPrefix", Missing: inputs.KindSuffixes},
		{Name: "onlySuffix", Missing: inputs.KindPrefixes},
	}, plan.Skipped)
	if assert.Len(t, plan.Batches, 1) {
		assert.Equal(t, "both", plan.Batches[0].Name)
		assert.Equal(t, []string{"p/r"}, names(plan.Batches[0].Vaults))
	}
}

func TestBuildPlan_BatchesInNameOrder(t *testing.T) {
	plan := BuildPlan(
		map[string][]string{"zeta": {"z"}, "alpha": {"a"}, "mid": {"m"}},
		map[string][]string{"zeta": {"r"}, "alpha": {"r"}, "mid": {"r"}},
		" - ",
	)

	var got []string
	for _, b := range plan.Batches {
		got = append(got, b.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, got)
}

func TestBuildPlan_DoesNotMutateInput(t *testing.T) {
	projects := []string{"b", "a"}
	BuildPlan(map[string][]string{"x": projects}, map[string][]string{"x": {"r"}}, " - ")
	assert.Equal(t, []string{"b", "a"}, projects)
}
