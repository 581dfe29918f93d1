package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetchain/vetchain/graph"
)

func buildSampleView() *graph.View {
	app := &graph.Node{Name: "app", Version: "0.0.0", IsWorkspaceMember: true}
	lib := &graph.Node{Name: "internal-lib", Version: "0.0.0", IsWorkspaceMember: true}
	clap := &graph.Node{Name: "clap", Version: "3.1.8", IsThirdParty: true}
	atty := &graph.Node{Name: "atty", Version: "0.2.14", IsThirdParty: true}
	orphanTestTool := &graph.Node{Name: "criterion", Version: "0.3.5", IsThirdParty: true, IsDevOnly: true}

	app.Edges = []graph.Edge{{To: clap}}
	clap.Edges = []graph.Edge{{To: atty}}
	lib.Edges = []graph.Edge{{To: orphanTestTool, Dev: true}}

	return graph.New([]*graph.Node{app, lib, clap, atty, orphanTestTool})
}

func TestExcludeDevOnlyDropsOrphanedDevDeps(t *testing.T) {
	view := buildSampleView()
	// Every workspace member survives; dev-only nodes are excluded.
	f := Filter{
		Include: Any{IsWorkspaceMember{Want: true}, IsThirdParty{Want: true}},
		Exclude: IsDevOnly{Want: true},
	}

	out, err := Apply(view, f)
	require.NoError(t, err)

	names := nodeNames(out)
	assert.Contains(t, names, "clap")
	assert.Contains(t, names, "atty")
	// criterion is dev-only and only reachable via lib's dev edge; excluded
	// outright, so it never even reaches the reachability walk.
	assert.NotContains(t, names, "criterion")
}

func TestNamePrefixQueryOrphansADroppedIntermediary(t *testing.T) {
	view := buildSampleView()
	// atty matches by name, but its only path from the workspace runs
	// through clap, which does not match and is not a workspace member —
	// atty is orphaned and must be dropped despite matching (§4.6).
	f := Filter{Include: Any{Name{Prefix: "at"}, IsWorkspaceMember{Want: true}}}

	out, err := Apply(view, f)
	require.NoError(t, err)
	names := nodeNames(out)
	assert.NotContains(t, names, "atty")
	assert.NotContains(t, names, "clap")
}

func TestNamePrefixQueryKeepsReachableMatch(t *testing.T) {
	view := buildSampleView()
	f := Filter{Include: Any{Name{Prefix: "cl"}, IsWorkspaceMember{Want: true}}}

	out, err := Apply(view, f)
	require.NoError(t, err)
	names := nodeNames(out)
	assert.Contains(t, names, "clap")
	assert.NotContains(t, names, "atty")
}

func TestIsRootMatchesTopLevelNodes(t *testing.T) {
	view := buildSampleView()
	root := &IsRoot{Want: true}
	f := Filter{Include: root}
	Compile(view, f)

	var roots []string
	for _, n := range view.Nodes() {
		if root.Eval(n) {
			roots = append(roots, n.Name)
		}
	}
	assert.ElementsMatch(t, []string{"app", "internal-lib"}, roots)
}

func TestIndexNamesWithPrefix(t *testing.T) {
	idx := NewIndex(buildSampleView())
	assert.ElementsMatch(t, []string{"atty", "app"}, idx.NamesWithPrefix("a"))
}

func nodeNames(v *graph.View) []string {
	var out []string
	for _, n := range v.Nodes() {
		out = append(out, n.Name)
	}
	return out
}
