// Package suggest proposes audits that would resolve a report's unmet
// demands, ranked by estimated review cost (§4.5).
package suggest

import (
	"context"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
	"github.com/vetchain/vetchain/graph"
	"github.com/vetchain/vetchain/resolve"
)

// ActionKind names the kind of audit a suggestion proposes.
type ActionKind string

const (
	ActionFull  ActionKind = "full"
	ActionDelta ActionKind = "delta"
)

// Action is one candidate audit that would make Package@To satisfy a
// criterion. From is empty for a full audit.
type Action struct {
	Kind    ActionKind
	Package string
	From    string
	To      string
}

// Oracle estimates review cost for an action: lines-of-diff for a delta,
// total source size for a full audit (§6). From empty means full-source
// cost.
type Oracle interface {
	EstimateCost(ctx context.Context, pkg, from, to string) (int, error)
}

// Suggestion is one ranked recommendation.
type Suggestion struct {
	Node        graph.Key
	Criterion   string
	Action      Action
	Cost        int
	CostUnknown bool
	// DownstreamCost is the additional cost attributed from unaudited
	// dependencies in speculative (non-shallow) mode; zero in shallow mode.
	DownstreamCost int
}

// Options configures a Suggester run.
type Options struct {
	// Shallow suppresses traversal into unaudited dependencies; when
	// false (the default), their cost is attributed to the ancestor's
	// total (§4.5 "shallow vs speculative mode").
	Shallow bool
}

// Suggester proposes and ranks candidate audits against a fixed graph
// view, audit store, and diff oracle.
type Suggester struct {
	view  *graph.View
	store *audit.Store
	table *criteria.Table
	oracle Oracle
	opts  Options

	mu    sync.Mutex
	cache map[costKey]costEntry
}

type costKey struct{ pkg, from, to string }
type costEntry struct {
	cost int
	err  error
}

// New builds a Suggester. The oracle may be wrapped in a persistent cache
// (see internal/diffcache) before being passed here; this package only
// keeps an in-process memo on top of whatever is given.
func New(view *graph.View, store *audit.Store, table *criteria.Table, oracle Oracle, opts Options) *Suggester {
	return &Suggester{
		view:   view,
		store:  store,
		table:  table,
		oracle: oracle,
		opts:   opts,
		cache:  make(map[costKey]costEntry),
	}
}

// Suggest proposes one ranked suggestion per unique (node, criterion)
// the report recorded as unmet, skipping violations (§7: "never
// suggestable"). Oracle failures degrade to CostUnknown suggestions
// rather than aborting the run.
func (s *Suggester) Suggest(ctx context.Context, report *resolve.Report) ([]Suggestion, error) {
	var merr *multierror.Error
	var out []Suggestion
	seen := make(map[string]bool)

	for _, u := range report.Unsatisfied() {
		if u.Unmet.Reason == resolve.ReasonBlockedByViolation {
			continue
		}
		key := u.Node.Name + "@" + u.Node.Version + "#" + u.Unmet.Criterion
		if seen[key] {
			continue
		}
		seen[key] = true

		sug, err := s.suggestOne(ctx, u.Node, u.Unmet.Criterion, report, map[graph.Key]bool{})
		if err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "suggest %s@%s", u.Node.Name, u.Node.Version))
			continue
		}
		out = append(out, sug)
	}

	sort.Slice(out, func(i, j int) bool {
		ci := out[i].Cost + out[i].DownstreamCost
		cj := out[j].Cost + out[j].DownstreamCost
		if ci != cj {
			return ci < cj
		}
		return out[i].Node.Name < out[j].Node.Name
	})
	return out, merr.ErrorOrNil()
}

func (s *Suggester) suggestOne(ctx context.Context, node graph.Key, criterion string, report *resolve.Report, visiting map[graph.Key]bool) (Suggestion, error) {
	n, ok := s.view.Node(node)
	if !ok {
		return Suggestion{}, errors.Errorf("suggest: node %s@%s not in graph view", node.Name, node.Version)
	}

	actions, err := s.candidateActions(n, criterion)
	if err != nil {
		return Suggestion{}, err
	}

	costs := make([]int, len(actions))
	unknown := make([]bool, len(actions))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range actions {
		i, a := i, a
		g.Go(func() error {
			c, err := s.costFor(gctx, a)
			if err != nil {
				unknown[i] = true
				return nil
			}
			costs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Suggestion{}, err
	}

	best := -1
	for i := range actions {
		if unknown[i] {
			continue
		}
		if best == -1 || costs[i] < costs[best] {
			best = i
		}
	}
	if best == -1 {
		return Suggestion{Node: node, Criterion: criterion, CostUnknown: true}, nil
	}

	sug := Suggestion{Node: node, Criterion: criterion, Action: actions[best], Cost: costs[best]}
	if s.opts.Shallow {
		return sug, nil
	}

	visiting[node] = true
	defer delete(visiting, node)
	for _, e := range n.Edges {
		if e.Dev {
			continue
		}
		childKey := e.To.Key()
		if visiting[childKey] {
			continue
		}
		cv := report.Verdicts[childKey]
		if cv == nil || len(cv.Unmet) == 0 {
			continue
		}
		for _, u := range cv.Unmet {
			if u.Reason == resolve.ReasonBlockedByViolation {
				continue
			}
			child, err := s.suggestOne(ctx, childKey, u.Criterion, report, visiting)
			if err != nil {
				return Suggestion{}, err
			}
			if !child.CostUnknown {
				sug.DownstreamCost += child.Cost + child.DownstreamCost
			}
			break // one representative unmet criterion per child is enough for cost attribution
		}
	}
	return sug, nil
}

func (s *Suggester) candidateActions(n *graph.Node, criterion string) ([]Action, error) {
	versions := allVersions(s.store, s.view, n.Name)
	reached, err := resolve.Reached(s.store, n.Name, criterion, versions)
	if err != nil {
		return nil, err
	}

	actions := []Action{{Kind: ActionFull, Package: n.Name, To: n.Version}}
	for _, v := range reached {
		if v == n.Version {
			continue
		}
		actions = append(actions, Action{Kind: ActionDelta, Package: n.Name, From: v, To: n.Version})
	}
	return actions, nil
}

func (s *Suggester) costFor(ctx context.Context, a Action) (int, error) {
	key := costKey{pkg: a.Package, from: a.From, to: a.To}

	s.mu.Lock()
	if e, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return e.cost, e.err
	}
	s.mu.Unlock()

	cost, err := s.oracle.EstimateCost(ctx, a.Package, a.From, a.To)

	s.mu.Lock()
	s.cache[key] = costEntry{cost: cost, err: err}
	s.mu.Unlock()

	return cost, err
}

func allVersions(store *audit.Store, view *graph.View, pkg string) []string {
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
