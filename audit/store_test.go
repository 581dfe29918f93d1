package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetchain/vetchain/criteria"
)

func mustTable(t *testing.T, extra ...criteria.Criterion) *criteria.Table {
	t.Helper()
	tbl, err := criteria.New(extra...)
	require.NoError(t, err)
	return tbl
}

func TestBuildNormalizesClosure(t *testing.T) {
	tbl := mustTable(t, criteria.Criterion{Name: "audited", Implies: []string{criteria.SafeToDeploy}})

	st, err := Build(tbl, Input{
		Fulls: []FullAudit{{
			Package:  "bitflags",
			Version:  "0.1.0",
			Criteria: criteria.NewSet("audited"),
		}},
	})
	require.NoError(t, err)

	fulls := st.Fulls("bitflags")
	require.Len(t, fulls, 1)
	assert.True(t, fulls[0].Criteria.Contains(criteria.SafeToDeploy))
	assert.True(t, fulls[0].Criteria.Contains(criteria.SafeToRun))
}

func TestBuildRejectsUnknownCriterion(t *testing.T) {
	tbl := mustTable(t)
	_, err := Build(tbl, Input{
		Fulls: []FullAudit{{Package: "x", Version: "1.0.0", Criteria: criteria.NewSet("not-a-thing")}},
	})
	require.Error(t, err)
}

func TestBuildRejectsCyclicDeltaDAG(t *testing.T) {
	tbl := mustTable(t)
	_, err := Build(tbl, Input{
		Deltas: []DeltaAudit{
			{Package: "base64", From: "0.1.0", To: "0.4.0", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: "0.4.0", To: "0.1.0", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
	})
	require.Error(t, err)
}

func TestDepCriteriaForDefaultsToOwn(t *testing.T) {
	own := criteria.NewSet(criteria.SafeToDeploy)
	deps := map[string]criteria.Set{"atty": criteria.NewSet(criteria.SafeToRun)}

	assert.True(t, DepCriteriaFor(own, deps, "atty").Contains(criteria.SafeToRun))
	assert.True(t, DepCriteriaFor(own, deps, "unlisted").Contains(criteria.SafeToDeploy))
}

func TestPackagesWithPrefix(t *testing.T) {
	tbl := mustTable(t)
	st, err := Build(tbl, Input{
		Fulls: []FullAudit{
			{Package: "clap", Version: "3.1.8", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "clap_derive", Version: "3.1.8", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "bitflags", Version: "1.3.2", Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"clap", "clap_derive"}, st.PackagesWithPrefix("clap"))
}
