package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
)

const sampleAudits = `
[criteria.audited]
description = "manually audited"
implies = "safe-to-deploy"

[[audits.autocfg]]
version = "1.1.0"
criteria = "safe-to-deploy"

[[audits.base64]]
delta = "0.1.0 -> 0.4.0"
criteria = ["safe-to-deploy"]

[[violations.legacy-crate]]
version = ">=1.0, <3.0"
criteria = "safe-to-deploy"
`

func TestParseAuditsDocument(t *testing.T) {
	doc, err := ParseAudits([]byte(sampleAudits))
	require.NoError(t, err)

	table, err := doc.CriteriaTable()
	require.NoError(t, err)
	assert.True(t, table.Has("audited"))

	fulls, deltas, err := doc.Entries(audit.Source{})
	require.NoError(t, err)
	require.Len(t, fulls, 1)
	assert.Equal(t, "autocfg", fulls[0].Package)
	assert.Equal(t, "1.1.0", fulls[0].Version)

	require.Len(t, deltas, 1)
	assert.Equal(t, "0.1.0", deltas[0].From)
	assert.Equal(t, "0.4.0", deltas[0].To)

	violations := doc.Violations(audit.Source{})
	require.Len(t, violations, 1)
	assert.Equal(t, "legacy-crate", violations[0].Package)
	assert.Equal(t, ">=1.0, <3.0", violations[0].Range)
}

func TestAuditsRoundTrip(t *testing.T) {
	doc, err := ParseAudits([]byte(sampleAudits))
	require.NoError(t, err)
	table, err := doc.CriteriaTable()
	require.NoError(t, err)
	fulls, deltas, err := doc.Entries(audit.Source{})
	require.NoError(t, err)
	violations := doc.Violations(audit.Source{})

	rebuilt := BuildAuditsDoc(table, fulls, deltas, violations)
	data, err := MarshalAudits(rebuilt)
	require.NoError(t, err)

	reparsed, err := ParseAudits(data)
	require.NoError(t, err)
	fulls2, deltas2, err := reparsed.Entries(audit.Source{})
	require.NoError(t, err)
	violations2 := reparsed.Violations(audit.Source{})

	assert.ElementsMatch(t, fulls, fulls2)
	assert.ElementsMatch(t, deltas, deltas2)
	assert.ElementsMatch(t, violations, violations2)
}

const sampleConfig = `
[[exemptions.onlyexempt]]
version = "1.0.0"
criteria = "safe-to-deploy"
suggest = false

[policy.app]
criteria = ["safe-to-deploy"]

[policy.app.dependency-criteria]
atty = "safe-to-run"
`

func TestParseConfigDocument(t *testing.T) {
	doc, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	exemptions := doc.Exemptions(audit.Source{})
	require.Len(t, exemptions, 1)
	assert.Equal(t, "onlyexempt", exemptions[0].Package)
	assert.False(t, exemptions[0].Suggest)

	policies := doc.Policies()
	require.Len(t, policies, 1)
	assert.Equal(t, "app", policies[0].Root)
	assert.True(t, policies[0].Required.Contains(criteria.SafeToDeploy))
	assert.True(t, policies[0].DepOverride["atty"].Contains(criteria.SafeToRun))
}

func TestConfigRoundTrip(t *testing.T) {
	doc, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	exemptions := doc.Exemptions(audit.Source{})
	policies := doc.Policies()

	rebuilt := BuildConfigDoc(exemptions, policies)
	data, err := MarshalConfig(rebuilt)
	require.NoError(t, err)

	reparsed, err := ParseConfig(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, exemptions, reparsed.Exemptions(audit.Source{}))
	assert.ElementsMatch(t, policies, reparsed.Policies())
}
