package suggest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
	"github.com/vetchain/vetchain/graph"
	"github.com/vetchain/vetchain/resolve"
)

// fixedOracle returns a cost for every (pkg, from, to), or an error when
// asked about a package named in failFor.
type fixedOracle struct {
	costs   map[string]int
	failFor map[string]bool
}

func (o *fixedOracle) EstimateCost(_ context.Context, pkg, from, to string) (int, error) {
	if o.failFor[pkg] {
		return 0, errOracle
	}
	if c, ok := o.costs[pkg+"|"+from+"|"+to]; ok {
		return c, nil
	}
	return 100, nil
}

var errOracle = assert.AnError

func TestSuggestBrokenDeltaChainPicksCheapestBridge(t *testing.T) {
	table, err := criteria.New()
	require.NoError(t, err)

	root := &graph.Node{Name: "app", Version: "0.0.0", IsWorkspaceMember: true}
	dep := &graph.Node{Name: "base64", Version: "0.13.0", IsThirdParty: true}
	root.Edges = []graph.Edge{{To: dep}}
	view := graph.New([]*graph.Node{root, dep})

	store, err := audit.Build(table, audit.Input{
		Fulls: []audit.FullAudit{{Package: "base64", Version: "0.1.0", Criteria: criteria.NewSet(criteria.SafeToDeploy)}},
		Deltas: []audit.DeltaAudit{
			{Package: "base64", From: "0.1.0", To: "0.4.0", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: "0.8.1", To: "0.9.0", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: "0.9.0", To: "0.13.0", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Policies: []audit.Policy{{Root: "app", Required: criteria.NewSet(criteria.SafeToDeploy)}},
	})
	require.NoError(t, err)

	report, err := resolve.New(view, store, table, false).Resolve()
	require.NoError(t, err)
	require.False(t, report.Verdicts[dep.Key()].Satisfied(table, criteria.NewSet(criteria.SafeToDeploy)))

	// reached(base64, safe-to-deploy) = {0.1.0, 0.4.0}: the break at
	// 0.4.0->0.8.1 means neither 0.8.1, 0.9.0, nor 0.13.0 is reached, so
	// only bridges from those two versions are candidates.
	oracle := &fixedOracle{costs: map[string]int{
		"base64||0.13.0":      500, // full audit, expensive
		"base64|0.1.0|0.13.0": 300,
		"base64|0.4.0|0.13.0": 20, // cheapest bridge
	}}

	// One suggestion each for safe-to-deploy and its implied safe-to-run.
	sg := New(view, store, table, oracle, Options{Shallow: true})
	suggestions, err := sg.Suggest(context.Background(), report)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	got := suggestions[0]
	assert.Equal(t, ActionDelta, got.Action.Kind)
	assert.Equal(t, "0.4.0", got.Action.From)
	assert.Equal(t, 20, got.Cost)
}

func TestSuggestOracleFailureDegradesToCostUnknown(t *testing.T) {
	table, err := criteria.New()
	require.NoError(t, err)

	root := &graph.Node{Name: "app", Version: "0.0.0", IsWorkspaceMember: true}
	dep := &graph.Node{Name: "never-audited", Version: "1.0.0", IsThirdParty: true}
	root.Edges = []graph.Edge{{To: dep}}
	view := graph.New([]*graph.Node{root, dep})

	store, err := audit.Build(table, audit.Input{
		Policies: []audit.Policy{{Root: "app", Required: criteria.NewSet(criteria.SafeToDeploy)}},
	})
	require.NoError(t, err)

	report, err := resolve.New(view, store, table, false).Resolve()
	require.NoError(t, err)

	oracle := &fixedOracle{failFor: map[string]bool{"never-audited": true}}
	sg := New(view, store, table, oracle, Options{Shallow: true})

	suggestions, err := sg.Suggest(context.Background(), report)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.True(t, suggestions[0].CostUnknown)
	assert.True(t, suggestions[1].CostUnknown)
}
