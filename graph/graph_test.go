package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceMembers(t *testing.T) {
	root := &Node{Name: "app", Version: "0.0.0", IsWorkspaceMember: true}
	dep := &Node{Name: "clap", Version: "3.1.8", IsThirdParty: true}
	root.Edges = []Edge{{To: dep}}

	v := New([]*Node{root, dep})
	members := v.WorkspaceMembers()
	assert.Len(t, members, 1)
	assert.Equal(t, "app", members[0].Name)
}

func TestThirdPartyVersionsSorted(t *testing.T) {
	v := New([]*Node{
		{Name: "base64", Version: "0.13.0"},
		{Name: "base64", Version: "0.1.0"},
		{Name: "base64", Version: "0.9.0"},
	})
	assert.Equal(t, []string{"0.1.0", "0.9.0", "0.13.0"}, v.ThirdPartyVersions("base64"))
}

func TestCompareVersionsToleratesMissingVPrefix(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("0.1.0", "0.4.0"))
	assert.Equal(t, 0, CompareVersions("1.2.3", "v1.2.3"))
	assert.Equal(t, 1, CompareVersions("2.0.0", "1.9.9"))
}
