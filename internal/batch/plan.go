// Package batch expands prefix and suffix batches into planned vault names,
// screens them against the duplicate index and creates the missing ones.
package batch

import (
	"sort"

	"github.com/hengadev/opvault/internal/inputs"
)

// DefaultJoiner separates project and role in a vault name.
const DefaultJoiner = " - "

// PlannedVault is one project/role combination of a batch.
type PlannedVault struct {
	BatchName string
	Project   string
	Role      string
	Name      string
}

// BatchPlan is a batch that has both projects and roles.
type BatchPlan struct {
	Name     string
	Projects []string
	Roles    []string
	Vaults   []PlannedVault
}

// SkippedBatch is a batch that only has one side. Missing names the kind of
// file that was not found.
type SkippedBatch struct {
	Name    string
	Missing inputs.Kind
}

// Plan is the full, ordered set of vaults a run would attempt.
type Plan struct {
	Batches []BatchPlan
	Skipped []SkippedBatch
}

// VaultName joins project and role.
func VaultName(project, role, joiner string) string {
	return project + joiner + role
}

// BuildPlan pairs projects and roles by batch name. Batches, projects and
// roles are all visited in sorted order so identical input always yields
// the same sequence of names.
func BuildPlan(projects, roles map[string][]string, joiner string) Plan {
	var plan Plan

	for _, name := range sortedKeys(projects) {
		if _, ok := roles[name]; !ok {
			plan.Skipped = append(plan.Skipped, SkippedBatch{Name: name, Missing: inputs.KindSuffixes})
		}
	}
	for _, name := range sortedKeys(roles) {
		if _, ok := projects[name]; !ok {
			plan.Skipped = append(plan.Skipped, SkippedBatch{Name: name, Missing: inputs.KindPrefixes})
		}
	}

	for _, name := range sortedKeys(projects) {
		rs, ok := roles[name]
		if !ok {
			continue
		}
		ps := sortedCopy(projects[name])
		rs = sortedCopy(rs)

		bp := BatchPlan{
			Name:     name,
			Projects: ps,
			Roles:    rs,
			Vaults:   make([]PlannedVault, 0, len(ps)*len(rs)),
		}
		for _, p := range ps {
			for _, r := range rs {
				bp.Vaults = append(bp.Vaults, PlannedVault{
					BatchName: name,
					Project:   p,
					Role:      r,
					Name:      VaultName(p, r, joiner),
				})
			}
		}
		plan.Batches = append(plan.Batches, bp)
	}
	return plan
}

// Total returns the number of planned vaults across all batches.
func (p Plan) Total() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.Vaults)
	}
	return n
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
