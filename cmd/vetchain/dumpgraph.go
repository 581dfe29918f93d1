package main

import (
	"context"
	"flag"
	"fmt"
)

type dumpGraphCommand struct{}

func (*dumpGraphCommand) Name() string      { return "dump-graph" }
func (*dumpGraphCommand) ShortHelp() string { return "print the loaded (and filtered) graph view" }

func (*dumpGraphCommand) Register(*flag.FlagSet) {}

func (*dumpGraphCommand) Run(_ context.Context, vctx *Ctx, _ []string) error {
	view, err := vctx.loadGraph()
	if err != nil {
		return err
	}
	view, err = applyFilterGraph(view, vctx.FilterGraph)
	if err != nil {
		return err
	}

	for _, n := range view.Nodes() {
		role := "third-party"
		switch {
		case n.IsWorkspaceMember:
			role = "workspace-member"
		case n.IsDevOnly:
			role = "dev-only"
		}
		fmt.Printf("%s@%s [%s]\n", n.Name, n.Version, role)
		for _, e := range n.Edges {
			kind := "normal"
			if e.Dev {
				kind = "dev"
			}
			fmt.Printf("  -> %s@%s (%s)\n", e.To.Name, e.To.Version, kind)
		}
	}
	return nil
}
