package resolve

import (
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
	"github.com/vetchain/vetchain/graph"
)

// Resolver runs Pass A + Pass B of §4.4 over an immutable graph view and
// audit store. It is single-threaded and deterministic by construction
// (§5): all memoization is local to one Resolve call.
type Resolver struct {
	view  *graph.View
	store *audit.Store
	table *criteria.Table

	// includeDevDemands mirrors "project configuration includes dev
	// demands" (§4.4); when false, dev-only edges never carry demand.
	includeDevDemands bool

	reachCache map[reachKey]*reachGraph

	thirdPartyMemo map[nodeCritKey]thirdPartyResult
	firstPartyMemo map[nodeCritKey]bool
	visiting       map[nodeCritKey]bool
}

type nodeCritKey struct {
	node      graph.Key
	criterion string
}

type thirdPartyResult struct {
	satisfied     bool
	violated      bool
	reason        Reason
	witness       Witness
	usedExemption *audit.Exemption
	unmet         []Unmet
}

// New builds a Resolver over a fixed graph view and audit store.
func New(view *graph.View, store *audit.Store, table *criteria.Table, includeDevDemands bool) *Resolver {
	return &Resolver{
		view:               view,
		store:              store,
		table:              table,
		includeDevDemands:  includeDevDemands,
		reachCache:         make(map[reachKey]*reachGraph),
		thirdPartyMemo:     make(map[nodeCritKey]thirdPartyResult),
		firstPartyMemo:     make(map[nodeCritKey]bool),
		visiting:           make(map[nodeCritKey]bool),
	}
}

// Resolve runs the full algorithm: demand starts at each workspace
// member's policy and propagates to every third-party node it reaches,
// producing one verdict per node actually demanded.
func (r *Resolver) Resolve() (*Report, error) {
	report := &Report{Verdicts: make(map[graph.Key]*NodeVerdict)}

	for _, root := range r.view.WorkspaceMembers() {
		required := criteria.NewSet(criteria.SafeToDeploy)
		if pol, ok := r.store.Policy(root.Name); ok {
			required = pol.Required
		}
		for _, c := range r.table.Closure(required).Slice() {
			if _, _, err := r.checkDemand(root, c); err != nil {
				return nil, err
			}
		}
	}

	usedExemptions := make(map[string]audit.Exemption)
	for key, res := range r.thirdPartyMemo {
		nv := report.Verdicts[key.node]
		if nv == nil {
			nv = &NodeVerdict{Node: key.node, Witnesses: make(map[string]Witness)}
			report.Verdicts[key.node] = nv
		}
		switch {
		case res.violated:
			nv.Violated = append(nv.Violated, key.criterion)
			nv.Unmet = append(nv.Unmet, Unmet{Criterion: key.criterion, Reason: ReasonBlockedByViolation})
		case res.satisfied:
			nv.Witnesses[key.criterion] = res.witness
			if res.witness.UsesExemption && res.usedExemption != nil {
				nv.ReliesOnExemption = true
				usedExemptions[exemptionIdentity(key.node.Name, *res.usedExemption)] = *res.usedExemption
			}
		default:
			nv.Unmet = append(nv.Unmet, unmetFromResult(key.criterion, res)...)
		}
	}

	for _, nv := range report.Verdicts {
		sort.Slice(nv.Unmet, func(i, j int) bool {
			if nv.Unmet[i].Criterion != nv.Unmet[j].Criterion {
				return nv.Unmet[i].Criterion < nv.Unmet[j].Criterion
			}
			return nv.Unmet[i].Reason < nv.Unmet[j].Reason
		})
		sort.Strings(nv.Violated)
	}

	r.finalizeExemptions(report, usedExemptions)
	return report, nil
}

func exemptionIdentity(pkg string, e audit.Exemption) string {
	return pkg + "@" + e.Version + ":" + e.Source.String()
}

// finalizeExemptions splits every declared exemption into used vs. unused
// (§4.4 exemption accounting; Testable Property 5 minimality — an
// exemption only counts as used if some verdict actually chose it as a
// witness, not merely because it exists).
func (r *Resolver) finalizeExemptions(report *Report, used map[string]audit.Exemption) {
	for pkg, exemptions := range allExemptions(r.store) {
		for _, e := range exemptions {
			id := exemptionIdentity(pkg, e)
			if _, ok := used[id]; ok {
				report.UsedExemptions = append(report.UsedExemptions, e)
			} else {
				report.UnusedExemptions = append(report.UnusedExemptions, e)
			}
		}
	}
	sortExemptions(report.UsedExemptions)
	sortExemptions(report.UnusedExemptions)
}

func sortExemptions(es []audit.Exemption) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Package != es[j].Package {
			return es[i].Package < es[j].Package
		}
		return es[i].Version < es[j].Version
	})
}

func unmetFromResult(criterion string, res thirdPartyResult) []Unmet {
	if res.reason == ReasonDependencyUnmet && len(res.unmet) > 0 {
		return res.unmet
	}
	return []Unmet{{Criterion: criterion, Reason: res.reason}}
}

// checkDemand is the work-list step of Pass B: does node n satisfy
// criterion, forwarding unchanged through first-party nodes and deferring
// to resolveThirdParty at third-party ones. Results are memoized per
// (node, criterion) since diamond-shaped graphs reach the same node
// through many paths.
func (r *Resolver) checkDemand(n *graph.Node, criterion string) (bool, []Unmet, error) {
	key := nodeCritKey{n.Key(), criterion}

	if !n.IsThirdParty {
		if ok, done := r.firstPartyMemo[key]; done {
			return ok, nil, nil
		}
		if r.visiting[key] {
			return false, nil, errors.Errorf("resolve: cyclic dependency demand reached %s@%s for %q", n.Name, n.Version, criterion)
		}
		r.visiting[key] = true

		ok := true
		var details []Unmet
		for _, e := range sortedEdges(n.Edges) {
			if e.Dev && !r.includeDevDemands {
				continue
			}
			childOK, childDetails, err := r.checkDemand(e.To, criterion)
			if err != nil {
				delete(r.visiting, key)
				return false, nil, err
			}
			if !childOK {
				ok = false
				details = append(details, childDetails...)
			}
		}
		delete(r.visiting, key)
		r.firstPartyMemo[key] = ok
		return ok, details, nil
	}

	if res, ok := r.thirdPartyMemo[key]; ok {
		return res.satisfied, unmetFromResult(criterion, res), nil
	}
	if r.visiting[key] {
		return false, nil, errors.Errorf("resolve: cyclic dependency demand reached %s@%s for %q", n.Name, n.Version, criterion)
	}
	r.visiting[key] = true
	res, err := r.resolveThirdParty(n, criterion)
	delete(r.visiting, key)
	if err != nil {
		return false, nil, err
	}
	r.thirdPartyMemo[key] = res
	return res.satisfied, unmetFromResult(criterion, res), nil
}

// resolveThirdParty implements the core witness-selection rule of §4.4
// for one (node, criterion) pair.
func (r *Resolver) resolveThirdParty(n *graph.Node, criterion string) (thirdPartyResult, error) {
	violated, err := isViolated(r.store, n.Name, n.Version, criterion)
	if err != nil {
		return thirdPartyResult{}, err
	}
	if violated {
		return thirdPartyResult{violated: true}, nil
	}

	g, err := r.reachGraphFor(n.Name, criterion)
	if err != nil {
		return thirdPartyResult{}, err
	}

	info := g.dist[n.Version]
	if !info.reached() {
		reason := ReasonNoPathFromRoot
		if len(g.fullRoots) == 0 && len(g.exemptRoots) == 0 {
			reason = ReasonNoAudits
		}
		return thirdPartyResult{reason: reason}, nil
	}

	cands := candidatesFor(g, n.Version)
	sortCandidates(cands)

	edges := sortedEdges(n.Edges)
	bestCost := -1
	var bestCand candidate
	var bestUnmet []Unmet

	for _, cand := range cands {
		cost := 0
		var unmet []Unmet
		// A direct exemption stands in for a full audit with no
		// dependency precondition at all (§3): it grandfathers the
		// version itself, not a claim about what its dependencies need.
		if cand.kind != WitnessExemption {
			for _, e := range edges {
				if e.Dev {
					// A witness's dependency precondition describes the
					// package's normal runtime dependencies, not its own
					// dev-only tooling.
					continue
				}
				demand := audit.DepCriteriaFor(cand.ownCriteria, cand.depCriteria, e.To.Name)
				for _, c2 := range r.table.Closure(demand).Slice() {
					ok, _, err := r.checkDemand(e.To, c2)
					if err != nil {
						return thirdPartyResult{}, err
					}
					if !ok {
						cost++
						unmet = append(unmet, Unmet{
							Criterion: criterion, Reason: ReasonDependencyUnmet,
							Child: e.To.Name, ChildVersion: e.To.Version, ChildCriterion: c2,
						})
					}
				}
			}
		}
		if bestCost == -1 || cost < bestCost {
			bestCost, bestCand, bestUnmet = cost, cand, unmet
		}
	}

	if bestCost == 0 {
		return thirdPartyResult{
			satisfied:     true,
			witness:       Witness{Kind: bestCand.kind, Source: bestCand.source, ChainLen: bestCand.chainLen, UsesExemption: bestCand.usesExemption},
			usedExemption: bestCand.exemption,
		}, nil
	}
	return thirdPartyResult{reason: ReasonDependencyUnmet, unmet: bestUnmet}, nil
}

func isViolated(store *audit.Store, pkg, version, criterion string) (bool, error) {
	for _, v := range store.Violations(pkg) {
		if !v.Criteria.Contains(criterion) {
			continue
		}
		constraint, err := semver.NewConstraint(v.Range)
		if err != nil {
			return false, err
		}
		sv, err := semver.NewVersion(version)
		if err != nil {
			continue
		}
		if constraint.Check(sv) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) reachGraphFor(pkg, criterion string) (*reachGraph, error) {
	key := reachKey{pkg: pkg, criterion: criterion}
	if g, ok := r.reachCache[key]; ok {
		return g, nil
	}
	versions := allKnownVersions(r.store, r.view, pkg)
	g, err := buildReachGraph(r.store, criterion, pkg, versions)
	if err != nil {
		return nil, err
	}
	r.reachCache[key] = g
	return g, nil
}

func allKnownVersions(store *audit.Store, view *graph.View, pkg string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, f := range store.Fulls(pkg) {
		add(f.Version)
	}
	for _, d := range store.Deltas(pkg) {
		add(d.From)
		add(d.To)
	}
	for _, e := range store.Exemptions(pkg) {
		add(e.Version)
	}
	for _, v := range view.ThirdPartyVersions(pkg) {
		add(v)
	}
	return out
}

func allExemptions(store *audit.Store) map[string][]audit.Exemption {
	out := make(map[string][]audit.Exemption)
	for _, pkg := range store.PackagesWithPrefix("") {
		if ex := store.Exemptions(pkg); len(ex) > 0 {
			out[pkg] = ex
		}
	}
	return out
}

func sortedEdges(edges []graph.Edge) []graph.Edge {
	out := make([]graph.Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].To.Name != out[j].To.Name {
			return out[i].To.Name < out[j].To.Name
		}
		return out[i].To.Version < out[j].To.Version
	})
	return out
}
