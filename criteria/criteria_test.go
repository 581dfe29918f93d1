package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuiltins(t *testing.T) {
	tbl, err := New()
	require.NoError(t, err)
	assert.True(t, tbl.Has(SafeToRun))
	assert.True(t, tbl.Has(SafeToDeploy))
	assert.True(t, tbl.Satisfies(NewSet(SafeToDeploy), NewSet(SafeToRun)))
	assert.False(t, tbl.Satisfies(NewSet(SafeToRun), NewSet(SafeToDeploy)))
}

func TestUnknownImplyIsFatal(t *testing.T) {
	_, err := New(Criterion{Name: "audited", Implies: []string{"does-not-exist"}})
	require.Error(t, err)
}

func TestCycleIsFatal(t *testing.T) {
	_, err := New(
		Criterion{Name: "a", Implies: []string{"b"}},
		Criterion{Name: "b", Implies: []string{"a"}},
	)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestClosureIdempotent(t *testing.T) {
	tbl, err := New(Criterion{Name: "audited", Implies: []string{SafeToDeploy}})
	require.NoError(t, err)

	s := NewSet("audited")
	c1 := tbl.Closure(s)
	c2 := tbl.Closure(c1)
	assert.ElementsMatch(t, c1.Slice(), c2.Slice())
	assert.ElementsMatch(t, []string{"audited", SafeToDeploy, SafeToRun}, c1.Slice())
}

func TestMeetAndJoin(t *testing.T) {
	tbl, err := New(
		Criterion{Name: "audited", Implies: []string{SafeToDeploy}},
		Criterion{Name: "fuzzed"},
	)
	require.NoError(t, err)

	a := NewSet("audited")
	b := NewSet("fuzzed")

	meet := tbl.Meet(a, b)
	assert.Empty(t, meet.Slice())

	join := tbl.Join(a, b)
	assert.ElementsMatch(t, []string{"audited", "fuzzed", SafeToDeploy, SafeToRun}, join.Slice())
}

func TestEmptySetSatisfiesOnlyEmptyDemand(t *testing.T) {
	tbl, err := New()
	require.NoError(t, err)

	assert.True(t, tbl.Satisfies(NewSet(), NewSet()))
	assert.False(t, tbl.Satisfies(NewSet(), NewSet(SafeToRun)))
}
