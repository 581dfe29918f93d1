// Package graph provides the engine's abstract view of a pre-resolved
// dependency graph: nodes are (package name, version) pairs with per-edge
// dependency relations and flags for workspace membership, third-party
// status, and dev-only use.
package graph

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Edge is a dependency relation from one node to another.
type Edge struct {
	To  *Node
	Dev bool // true if this edge is only followed for dev-only use
}

// Node is a (package name, version) pair in the resolved graph.
type Node struct {
	Name              string
	Version           string
	IsWorkspaceMember bool
	IsThirdParty      bool
	IsDevOnly         bool // true if this node is only ever reached via dev edges
	Edges             []Edge
}

// Key uniquely identifies a node within a View.
type Key struct {
	Name    string
	Version string
}

func (n *Node) Key() Key { return Key{Name: n.Name, Version: n.Version} }

// View is an abstract, read-only view over a resolved dependency graph.
// The engine never mutates it; it is constructed once from the host
// package manager's output (out of scope per §1) and consumed by the
// resolver, suggester, and filter graph.
type View struct {
	nodes map[Key]*Node
	order []Key // insertion order, for deterministic iteration
}

// New builds a View from a flat list of nodes. Edge targets must already
// point at Node values present in the list (the caller is responsible for
// constructing a consistent, acyclic graph — §4.4 assumes acyclicity).
func New(nodes []*Node) *View {
	v := &View{nodes: make(map[Key]*Node, len(nodes))}
	for _, n := range nodes {
		k := n.Key()
		if _, dup := v.nodes[k]; !dup {
			v.order = append(v.order, k)
		}
		v.nodes[k] = n
	}
	return v
}

// Node looks up a node by key.
func (v *View) Node(k Key) (*Node, bool) {
	n, ok := v.nodes[k]
	return n, ok
}

// Nodes returns every node in the view, in deterministic order.
func (v *View) Nodes() []*Node {
	out := make([]*Node, 0, len(v.order))
	for _, k := range v.order {
		out = append(out, v.nodes[k])
	}
	return out
}

// WorkspaceMembers returns every workspace-member node; these are the
// roots from which demand propagation begins (§4.4).
func (v *View) WorkspaceMembers() []*Node {
	var out []*Node
	for _, n := range v.Nodes() {
		if n.IsWorkspaceMember {
			out = append(out, n)
		}
	}
	return out
}

// ThirdPartyVersions returns every distinct version of pkg observed
// anywhere in the view, across all nodes named pkg.
func (v *View) ThirdPartyVersions(pkg string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range v.Nodes() {
		if n.Name == pkg {
			if _, ok := seen[n.Version]; !ok {
				seen[n.Version] = struct{}{}
				out = append(out, n.Version)
			}
		}
	}
	SortVersions(out)
	return out
}

// CanonicalVersion returns v in the "vX.Y.Z" form golang.org/x/mod/semver
// expects, tolerating input that omits the leading v (as audit files and
// most non-Go package ecosystems do).
func CanonicalVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// CompareVersions orders two version strings using Go's canonical semver
// rules, regardless of whether they carry a leading "v".
func CompareVersions(a, b string) int {
	ca, cb := CanonicalVersion(a), CanonicalVersion(b)
	if semver.IsValid(ca) && semver.IsValid(cb) {
		return semver.Compare(ca, cb)
	}
	// Fall back to lexicographic ordering for non-semver version schemes;
	// still deterministic, just not semantically ordered.
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortVersions sorts a slice of version strings ascending with
// CompareVersions.
func SortVersions(vs []string) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && CompareVersions(vs[j-1], vs[j]) > 0; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}
