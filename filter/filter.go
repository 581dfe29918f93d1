// Package filter implements the test-reduction query language of §4.6: a
// small boolean predicate language over graph nodes, applied before
// resolution to shrink the graph to a reachable subset.
package filter

import (
	"github.com/Masterminds/semver/v3"
	"github.com/armon/go-radix"
	"github.com/pkg/errors"

	"github.com/vetchain/vetchain/graph"
)

// Query is a boolean predicate over a single node.
type Query interface {
	Eval(n *graph.Node) bool
}

// Any matches if any sub-query matches.
type Any []Query

func (a Any) Eval(n *graph.Node) bool {
	for _, q := range a {
		if q.Eval(n) {
			return true
		}
	}
	return false
}

// All matches if every sub-query matches. An empty All matches
// everything, the identity for conjunction.
type All []Query

func (a All) Eval(n *graph.Node) bool {
	for _, q := range a {
		if !q.Eval(n) {
			return false
		}
	}
	return true
}

// Not negates a sub-query.
type Not struct{ Query Query }

func (n Not) Eval(node *graph.Node) bool { return !n.Query.Eval(node) }

// Name matches nodes whose package name starts with Prefix.
type Name struct{ Prefix string }

func (q Name) Eval(n *graph.Node) bool {
	return len(n.Name) >= len(q.Prefix) && n.Name[:len(q.Prefix)] == q.Prefix
}

// Version matches nodes whose version satisfies a semver constraint
// expression (e.g. ">=1.0, <3.0"), the same syntax violations use.
type Version struct{ Constraint string }

func (q Version) Eval(n *graph.Node) bool {
	c, err := semver.NewConstraint(q.Constraint)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(n.Version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// IsRoot matches nodes nothing in the view depends on, i.e. the tops of
// the dependency graph — not to be confused with IsWorkspaceMember, which
// reflects explicit workspace membership regardless of in-degree.
type IsRoot struct {
	Want bool

	hasIncoming map[graph.Key]bool // populated by Compile
}

func (q *IsRoot) Eval(n *graph.Node) bool { return q.hasIncoming[n.Key()] != q.Want }

// IsWorkspaceMember matches on Node.IsWorkspaceMember.
type IsWorkspaceMember struct{ Want bool }

func (q IsWorkspaceMember) Eval(n *graph.Node) bool { return n.IsWorkspaceMember == q.Want }

// IsThirdParty matches on Node.IsThirdParty.
type IsThirdParty struct{ Want bool }

func (q IsThirdParty) Eval(n *graph.Node) bool { return n.IsThirdParty == q.Want }

// IsDevOnly matches on Node.IsDevOnly.
type IsDevOnly struct{ Want bool }

func (q IsDevOnly) Eval(n *graph.Node) bool { return n.IsDevOnly == q.Want }

// Filter is an include/exclude pair; either may be nil.
type Filter struct {
	Include Query
	Exclude Query
}

// Compile resolves view-wide state a query needs before it can run —
// currently just in-degree, for IsRoot. Call this once per view before
// Apply if the filter contains an IsRoot query.
func Compile(view *graph.View, f Filter) {
	incoming := make(map[graph.Key]bool)
	for _, n := range view.Nodes() {
		for _, e := range n.Edges {
			incoming[e.To.Key()] = true
		}
	}
	setIncoming(f.Include, incoming)
	setIncoming(f.Exclude, incoming)
}

func setIncoming(q Query, incoming map[graph.Key]bool) {
	switch v := q.(type) {
	case *IsRoot:
		v.hasIncoming = incoming
	case Any:
		for _, sub := range v {
			setIncoming(sub, incoming)
		}
	case All:
		for _, sub := range v {
			setIncoming(sub, incoming)
		}
	case Not:
		setIncoming(v.Query, incoming)
	}
}

// Apply evaluates f over every node in view, then rebuilds the graph by
// taking every surviving workspace member and transitively including
// reachable retained nodes (§4.6: non-workspace nodes orphaned by the
// filter are silently dropped even if they individually matched).
func Apply(view *graph.View, f Filter) (*graph.View, error) {
	if f.Include == nil && f.Exclude == nil {
		return view, nil
	}

	retained := make(map[graph.Key]bool)
	for _, n := range view.Nodes() {
		keep := true
		if f.Include != nil {
			keep = f.Include.Eval(n)
		}
		if keep && f.Exclude != nil && f.Exclude.Eval(n) {
			keep = false
		}
		retained[n.Key()] = keep
	}

	kept := make(map[graph.Key]bool)
	var walk func(n *graph.Node)
	walk = func(n *graph.Node) {
		k := n.Key()
		if kept[k] || !retained[k] {
			return
		}
		kept[k] = true
		for _, e := range n.Edges {
			walk(e.To)
		}
	}
	for _, n := range view.WorkspaceMembers() {
		if retained[n.Key()] {
			walk(n)
		}
	}

	var out []*graph.Node
	for _, n := range view.Nodes() {
		if kept[n.Key()] {
			out = append(out, n)
		}
	}
	return graph.New(out), nil
}

// Index provides sublinear package-name prefix lookup over a graph view,
// the same role the audit store's index plays over the audit database —
// used by CLI tooling to offer name-prefix completion/selection before a
// Name query is constructed.
type Index struct {
	tree *radix.Tree
}

// NewIndex builds a name index over every distinct package name in view.
func NewIndex(view *graph.View) *Index {
	idx := &Index{tree: radix.New()}
	for _, n := range view.Nodes() {
		idx.tree.Insert(n.Name, struct{}{})
	}
	return idx
}

// NamesWithPrefix returns every distinct package name starting with
// prefix, in sorted order.
func (idx *Index) NamesWithPrefix(prefix string) []string {
	var out []string
	idx.tree.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		out = append(out, k)
		return false
	})
	return out
}

// ValidateConstraint reports whether s parses as a semver constraint
// expression, without constructing a Version query.
func ValidateConstraint(s string) error {
	if _, err := semver.NewConstraint(s); err != nil {
		return errors.Wrap(err, "filter: invalid version constraint")
	}
	return nil
}
