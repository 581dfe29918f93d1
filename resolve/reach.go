package resolve

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/vetchain/vetchain/audit"
)

// reachInfo is Pass A's answer for one version of one package under one
// criterion: how close it sits to a root, and whether that proximity
// required an exemption.
type reachInfo struct {
	distFull int    // hops from the nearest full-audit-only root; -1 if unreachable that way
	distAny  int    // hops from the nearest root of any kind; -1 if unreachable at all
	rootAny  string // the root version the distAny path traces back to
}

func (r reachInfo) reached() bool { return r.distAny >= 0 }

// usesExemption reports whether the shortest path to this version
// necessarily passes through an exemption (i.e. no equally-short or
// shorter all-full-audit path exists). This follows from distFull and
// distAny alone: full roots are a subset of "any" roots, so distAny ==
// distFull whenever a full root achieves the optimum; a strict gap means
// the optimum is only reachable via an exemption root.
func (r reachInfo) usesExemption() bool {
	return r.distAny >= 0 && (r.distFull < 0 || r.distFull > r.distAny)
}

// reachKey indexes the Pass A memo.
type reachKey struct {
	pkg       string
	criterion string
}

// reachGraph is the memoized Pass A result for one (package, criterion):
// every version's distance info, plus the raw entries used to build it so
// candidate generation (in witness.go) can inspect the underlying roots
// and edges.
type reachGraph struct {
	dist map[string]reachInfo

	fullRoots   map[string]audit.FullAudit // version -> entry, for versions with a direct full audit under this criterion
	exemptRoots map[string]audit.Exemption
	deltasInto  map[string][]audit.DeltaAudit // version -> delta audits landing on it under this criterion
}

// violatedVersions returns the set of versions of pkg that an explicit
// violation forbids for criterion, regardless of any audit (§3 invariant
// 2, §4.4: "excluded from reached regardless").
func violatedVersions(store *audit.Store, pkg, criterion string, candidates []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, v := range store.Violations(pkg) {
		if !v.Criteria.Contains(criterion) {
			continue
		}
		constraint, err := semver.NewConstraint(v.Range)
		if err != nil {
			return nil, err
		}
		for _, cand := range candidates {
			sv, err := semver.NewVersion(cand)
			if err != nil {
				continue // non-semver version strings never match a range
			}
			if constraint.Check(sv) {
				out[cand] = true
			}
		}
	}
	return out, nil
}

// Reached exposes Pass A directly: the sorted set of versions of pkg
// provably C-satisfied, ignoring dependency preconditions. The suggester
// uses this to enumerate delta-audit candidates from every version
// already reached (§4.5).
func Reached(store *audit.Store, pkg, criterion string, allVersions []string) ([]string, error) {
	g, err := buildReachGraph(store, criterion, pkg, allVersions)
	if err != nil {
		return nil, err
	}
	var out []string
	for v, info := range g.dist {
		if info.reached() {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// buildReachGraph computes reached(pkg, criterion) per §4.4 Pass A: a
// version is a root if a full audit or exemption covers it under
// criterion; there is an edge V1->V2 if a delta audit (with criterion in
// its closure) exists; violated versions are excluded as both roots and
// edge endpoints.
func buildReachGraph(store *audit.Store, criterion string, pkg string, allVersions []string) (*reachGraph, error) {
	banned, err := violatedVersions(store, pkg, criterion, allVersions)
	if err != nil {
		return nil, err
	}

	g := &reachGraph{
		dist:        make(map[string]reachInfo),
		fullRoots:   make(map[string]audit.FullAudit),
		exemptRoots: make(map[string]audit.Exemption),
		deltasInto:  make(map[string][]audit.DeltaAudit),
	}

	adj := make(map[string][]audit.DeltaAudit) // From -> outgoing deltas under criterion
	known := make(map[string]bool)
	for _, v := range allVersions {
		known[v] = true
	}

	for _, f := range store.Fulls(pkg) {
		if banned[f.Version] {
			continue
		}
		if f.Criteria.Contains(criterion) {
			g.fullRoots[f.Version] = f
		}
		known[f.Version] = true
	}
	for _, e := range store.Exemptions(pkg) {
		if banned[e.Version] {
			continue
		}
		if e.Criteria.Contains(criterion) {
			g.exemptRoots[e.Version] = e
		}
		known[e.Version] = true
	}
	for _, d := range store.Deltas(pkg) {
		if banned[d.From] || banned[d.To] {
			continue
		}
		if !d.Criteria.Contains(criterion) {
			continue
		}
		adj[d.From] = append(adj[d.From], d)
		g.deltasInto[d.To] = append(g.deltasInto[d.To], d)
		known[d.From] = true
		known[d.To] = true
	}

	// Sort adjacency lists for deterministic BFS tie-breaking (Testable
	// Property 3: identical inputs must yield identical reports).
	for from, edges := range adj {
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Source.String() < edges[j].Source.String()
		})
		adj[from] = edges
	}

	sortedRoots := func(m map[string]bool) []string {
		out := make([]string, 0, len(m))
		for v := range m {
			out = append(out, v)
		}
		sort.Strings(out)
		return out
	}

	// bfs runs a multi-source BFS from roots (processed in sorted order so
	// tie-breaking is deterministic), returning each reached version's hop
	// count and the root it traces back to.
	bfs := func(roots []string) (map[string]int, map[string]string) {
		dist := make(map[string]int, len(roots))
		root := make(map[string]string, len(roots))
		queue := make([]string, 0, len(roots))
		for _, v := range roots {
			dist[v] = 0
			root[v] = v
			queue = append(queue, v)
		}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, d := range adj[v] {
				if _, seen := dist[d.To]; !seen {
					dist[d.To] = dist[v] + 1
					root[d.To] = root[v]
					queue = append(queue, d.To)
				}
			}
		}
		return dist, root
	}

	var fullRootList, anyRootList []string
	for v := range g.fullRoots {
		fullRootList = append(fullRootList, v)
	}
	for v := range g.fullRoots {
		anyRootList = append(anyRootList, v)
	}
	for v := range g.exemptRoots {
		anyRootList = append(anyRootList, v)
	}
	sort.Strings(fullRootList)
	anyRootList = sortedRoots(toSet(anyRootList))

	distFull, _ := bfs(fullRootList)
	distAny, rootAny := bfs(anyRootList)

	for v := range known {
		info := reachInfo{distFull: -1, distAny: -1}
		if d, ok := distFull[v]; ok {
			info.distFull = d
		}
		if d, ok := distAny[v]; ok {
			info.distAny = d
			info.rootAny = rootAny[v]
		}
		g.dist[v] = info
	}

	return g, nil
}

func toSet(vs []string) map[string]bool {
	m := make(map[string]bool, len(vs))
	for _, v := range vs {
		m[v] = true
	}
	return m
}
