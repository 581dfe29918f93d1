package resolve

import (
	"sort"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
)

// candidate is one way to justify that a specific version satisfies a
// specific criterion, before dependency soundness is checked.
type candidate struct {
	kind          WitnessKind
	chainLen      int
	usesExemption bool
	source        audit.Source
	ownCriteria   criteria.Set
	depCriteria   map[string]criteria.Set
	exemption     *audit.Exemption // set iff kind == WitnessExemption or the chain's root was one
}

// candidatesFor enumerates every way reachGraph justifies version under
// its criterion: a direct full audit, a direct exemption, and one
// candidate per incoming delta edge for each distinct (full-only,
// any-root) path to its source version.
func candidatesFor(g *reachGraph, version string) []candidate {
	var out []candidate

	if f, ok := g.fullRoots[version]; ok {
		out = append(out, candidate{kind: WitnessFull, source: f.Source, ownCriteria: f.Criteria, depCriteria: f.DepCriteria})
	}
	if e, ok := g.exemptRoots[version]; ok {
		ex := e
		out = append(out, candidate{kind: WitnessExemption, usesExemption: true, source: e.Source, ownCriteria: e.Criteria, exemption: &ex})
	}
	for _, d := range g.deltasInto[version] {
		info := g.dist[d.From]
		if info.distFull >= 0 {
			out = append(out, candidate{
				kind: WitnessDelta, chainLen: info.distFull + 1, usesExemption: false,
				source: d.Source, ownCriteria: d.Criteria, depCriteria: d.DepCriteria,
			})
		}
		if info.distAny >= 0 && (info.distFull < 0 || info.distAny < info.distFull) {
			var ex *audit.Exemption
			if rootEx, ok := g.exemptRoots[info.rootAny]; ok {
				ex = &rootEx
			}
			out = append(out, candidate{
				kind: WitnessDelta, chainLen: info.distAny + 1, usesExemption: true,
				source: d.Source, ownCriteria: d.Criteria, depCriteria: d.DepCriteria, exemption: ex,
			})
		}
	}
	return out
}

// kindRank implements tie-break rule (1): prefer full audits, then delta
// chains, over exemptions. Exemptions are "equivalent to a full audit
// with no dependency precondition, but marked as unreviewed technical
// debt" (§3): any genuine reviewer-backed witness, chain or not, is
// preferred over one, so a satisfiable delta chain never leaves a
// verdict wrongly recorded as exemption-reliant (Testable Property 5).
func kindRank(k WitnessKind) int {
	switch k {
	case WitnessFull:
		return 0
	case WitnessDelta:
		return 1
	default: // WitnessExemption
		return 2
	}
}

// better implements the full §4.4 tie-break order for two candidates
// already known to cost the same in additional unmet dependency demand.
// Among delta chains, one rooted only in full audits is preferred over one
// rooted in an exemption before chain length is compared.
func better(a, b candidate) bool {
	if kindRank(a.kind) != kindRank(b.kind) {
		return kindRank(a.kind) < kindRank(b.kind)
	}
	if a.usesExemption != b.usesExemption {
		return !a.usesExemption
	}
	if a.chainLen != b.chainLen {
		return a.chainLen < b.chainLen
	}
	if a.source.Local() != b.source.Local() {
		return a.source.Local()
	}
	return a.source.String() < b.source.String()
}

// sortCandidates orders candidates by the tie-break rule alone, for
// deterministic iteration when costs are computed.
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return better(cs[i], cs[j]) })
}
