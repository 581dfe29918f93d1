package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
	"github.com/vetchain/vetchain/format"
	"github.com/vetchain/vetchain/graph"
)

// Ctx carries the global options and working directory every command
// runs against, mirroring the teacher's own per-invocation context
// threaded through Register/Run.
type Ctx struct {
	Logger *logrus.Logger

	Dir          string
	OutputFormat string
	Shallow      bool
	Locked       bool
	Frozen       bool
	FilterGraph  string
}

func (c *Ctx) path(name string) string { return filepath.Join(c.Dir, name) }

// loadAuditStore reads audits, config, and imports.lock from the working
// directory and builds a validated criteria table and audit store. A
// missing imports.lock degrades to running without imports rather than
// failing (§7: "I/O failure on imports").
func (c *Ctx) loadAuditStore() (*criteria.Table, *audit.Store, error) {
	auditsData, err := os.ReadFile(c.path("audits.toml"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "read audits.toml")
	}
	auditsDoc, err := format.ParseAudits(auditsData)
	if err != nil {
		return nil, nil, err
	}
	table, err := auditsDoc.CriteriaTable()
	if err != nil {
		return nil, nil, err
	}

	fulls, deltas, err := auditsDoc.Entries(audit.Source{})
	if err != nil {
		return nil, nil, err
	}
	violations := auditsDoc.Violations(audit.Source{})

	var configDoc *format.ConfigDoc
	if data, err := os.ReadFile(c.path("config.toml")); err == nil {
		configDoc, err = format.ParseConfig(data)
		if err != nil {
			return nil, nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, errors.Wrap(err, "read config.toml")
	} else {
		configDoc = &format.ConfigDoc{}
	}

	if data, err := os.ReadFile(c.path("imports.lock")); err == nil {
		lockDoc, err := format.ParseImportsLock(data)
		if err != nil {
			return nil, nil, err
		}
		impFulls, impDeltas, impViolations, err := lockDoc.Entries()
		if err != nil {
			return nil, nil, err
		}
		fulls = append(fulls, impFulls...)
		deltas = append(deltas, impDeltas...)
		violations = append(violations, impViolations...)
	} else if !os.IsNotExist(err) {
		if c.Locked {
			return nil, nil, errors.Wrap(err, "read imports.lock (--locked forbids continuing without it)")
		}
		c.Logger.WithError(err).Warn("vetchain: imports.lock unreadable, running with stale/no cached imports")
	}

	store, err := audit.Build(table, audit.Input{
		Fulls:      fulls,
		Deltas:     deltas,
		Violations: violations,
		Exemptions: configDoc.Exemptions(audit.Source{}),
		Policies:   configDoc.Policies(),
	})
	if err != nil {
		return nil, nil, err
	}
	return table, store, nil
}

// jsonNode/jsonEdge are the graph-input wire shape this driver accepts on
// its own stdin/file boundary. The engine itself never parses graph
// input (§1, an external package-manager collaborator); this is a
// minimal stand-in so the CLI has something concrete to drive.
type jsonNode struct {
	Name            string     `json:"name"`
	Version         string     `json:"version"`
	WorkspaceMember bool       `json:"workspace_member"`
	DevOnly         bool       `json:"dev_only"`
	Deps            []jsonEdge `json:"deps"`
}

type jsonEdge struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Kind    string `json:"kind"` // "normal", "dev", "build"
}

// loadGraph reads dep-graph.json and wires it into a graph.View.
func (c *Ctx) loadGraph() (*graph.View, error) {
	data, err := os.ReadFile(c.path("dep-graph.json"))
	if err != nil {
		return nil, errors.Wrap(err, "read dep-graph.json")
	}
	var raw []jsonNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode dep-graph.json")
	}

	nodes := make(map[graph.Key]*graph.Node, len(raw))
	var order []*graph.Node
	for _, n := range raw {
		node := &graph.Node{Name: n.Name, Version: n.Version, IsWorkspaceMember: n.WorkspaceMember, IsDevOnly: n.DevOnly, IsThirdParty: !n.WorkspaceMember}
		nodes[node.Key()] = node
		order = append(order, node)
	}
	for i, n := range raw {
		for _, e := range n.Deps {
			target, ok := nodes[graph.Key{Name: e.Name, Version: e.Version}]
			if !ok {
				return nil, errors.Errorf("dep-graph.json: %s@%s depends on unknown %s@%s", n.Name, n.Version, e.Name, e.Version)
			}
			order[i].Edges = append(order[i].Edges, graph.Edge{To: target, Dev: e.Kind == "dev"})
		}
	}
	return graph.New(order), nil
}
