// Package resolve implements the central audit-resolution algorithm: for
// every third-party node in a dependency graph, which demanded criteria
// are satisfied, under what witness, and — when unsatisfied — why.
package resolve

import (
	"sort"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
	"github.com/vetchain/vetchain/graph"
)

// Reason explains why a criterion is unmet on a node (§4.4 Output).
type Reason string

const (
	ReasonNoAudits           Reason = "no_audits"
	ReasonNoPathFromRoot     Reason = "no_path_from_root"
	ReasonBlockedByViolation Reason = "blocked_by_violation"
	ReasonDependencyUnmet    Reason = "dependency_unmet"
)

// WitnessKind names the kind of audit entry that justified a verdict.
type WitnessKind string

const (
	WitnessFull      WitnessKind = "full"
	WitnessExemption WitnessKind = "exemption"
	WitnessDelta     WitnessKind = "delta"
)

// Witness records provenance for a satisfied criterion: which audit
// justified it, so callers can inspect the chosen rule (Design Notes'
// first Open Question) and so exemption accounting (§4.4) can attribute
// reliance correctly.
type Witness struct {
	Kind          WitnessKind
	Source        audit.Source
	ChainLen      int  // number of delta hops; 0 for full audits and exemptions
	UsesExemption bool // true if the chain's root is an exemption
}

// Unmet describes one unsatisfied (criterion, reason) pair on a node.
type Unmet struct {
	Criterion string
	Reason    Reason
	// Child/ChildCriterion are set only when Reason == ReasonDependencyUnmet.
	Child         string
	ChildVersion  string
	ChildCriterion string
}

// NodeVerdict is the resolver's full answer for one third-party node.
type NodeVerdict struct {
	Node graph.Key

	// Witnesses holds the chosen witness per satisfied criterion.
	Witnesses map[string]Witness
	// Unmet holds every unsatisfied or violated criterion demanded of
	// this node.
	Unmet []Unmet
	// Violated holds criteria an explicit violation forbids outright.
	Violated []string

	ReliesOnExemption bool
}

// Satisfied reports whether every criterion in demand is satisfied.
func (v *NodeVerdict) Satisfied(table *criteria.Table, demand criteria.Set) bool {
	for c := range table.Closure(demand) {
		if _, ok := v.Witnesses[c]; !ok {
			return false
		}
	}
	return true
}

// Report is the resolver's output: a verdict per demanded third-party
// node, plus the exemptions actually relied upon (minimal, per §4.4 and
// Testable Property 5) and those declared but unused.
type Report struct {
	Verdicts map[graph.Key]*NodeVerdict

	UsedExemptions   []audit.Exemption
	UnusedExemptions []audit.Exemption
}

// Unsatisfied returns every (node, criterion, reason) the report recorded
// as not satisfied, in deterministic order.
func (r *Report) Unsatisfied() []struct {
	Node   graph.Key
	Unmet  Unmet
} {
	var out []struct {
		Node  graph.Key
		Unmet Unmet
	}
	keys := sortedKeys(r.Verdicts)
	for _, k := range keys {
		v := r.Verdicts[k]
		for _, u := range v.Unmet {
			out = append(out, struct {
				Node  graph.Key
				Unmet Unmet
			}{Node: k, Unmet: u})
		}
	}
	return out
}

func sortedKeys(m map[graph.Key]*NodeVerdict) []graph.Key {
	out := make([]graph.Key, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}
