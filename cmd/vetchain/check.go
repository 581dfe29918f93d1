package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/vetchain/vetchain/filter"
	"github.com/vetchain/vetchain/graph"
	"github.com/vetchain/vetchain/resolve"
)

// unmetDemandError signals a resolved-but-unsatisfied run: distinguishable
// from a fatal error (§6 exit codes; §7 "unmet demand ... not an error at
// the engine layer").
type unmetDemandError struct {
	unmet int
}

func (e *unmetDemandError) Error() string {
	return fmt.Sprintf("vetchain: %d criterion demand(s) unsatisfied", e.unmet)
}

type checkCommand struct {
	includeDevDemands bool
}

func (*checkCommand) Name() string      { return "check" }
func (*checkCommand) ShortHelp() string { return "resolve the graph against declared policy (default command)" }

func (c *checkCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.includeDevDemands, "dev", false, "demand criteria through dev-only edges as well as normal ones")
}

func (c *checkCommand) Run(ctx context.Context, vctx *Ctx, _ []string) error {
	table, store, err := vctx.loadAuditStore()
	if err != nil {
		return err
	}
	view, err := vctx.loadGraph()
	if err != nil {
		return err
	}
	view, err = applyFilterGraph(view, vctx.FilterGraph)
	if err != nil {
		return err
	}

	report, err := resolve.New(view, store, table, c.includeDevDemands).Resolve()
	if err != nil {
		return err
	}

	unmet := report.Unsatisfied()
	printReport(vctx, report, unmet)

	if len(unmet) > 0 {
		return &unmetDemandError{unmet: len(unmet)}
	}
	return nil
}

func printReport(vctx *Ctx, report *resolve.Report, unmet []struct {
	Node  graph.Key
	Unmet resolve.Unmet
}) {
	if vctx.OutputFormat == "json" {
		printReportJSON(vctx, report, unmet)
		return
	}
	if len(unmet) == 0 {
		fmt.Println("vetchain: all demanded criteria satisfied")
	}
	for _, u := range unmet {
		fmt.Printf("%s@%s: %s unmet (%s)\n", u.Node.Name, u.Node.Version, u.Unmet.Criterion, u.Unmet.Reason)
	}
	if len(report.UsedExemptions) > 0 {
		fmt.Printf("relies on %d exemption(s)\n", len(report.UsedExemptions))
	}
	if len(report.UnusedExemptions) > 0 {
		fmt.Printf("%d exemption(s) declared but unused\n", len(report.UnusedExemptions))
	}
}

// applyFilterGraph interprets the small subset of the §4.6 query
// language this driver understands directly from a flag string. The full
// grammar is implemented in filter/ for embedding callers; a textual
// lexer/parser for the whole grammar is left to a richer front end.
func applyFilterGraph(view *graph.View, expr string) (*graph.View, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return view, nil
	}

	var f filter.Filter
	switch {
	case expr == "third_party":
		f = filter.Filter{Include: filter.IsThirdParty{Want: true}}
	case expr == "workspace":
		f = filter.Filter{Include: filter.IsWorkspaceMember{Want: true}}
	case strings.HasPrefix(expr, "name:"):
		f = filter.Filter{Include: filter.Any{
			filter.Name{Prefix: strings.TrimPrefix(expr, "name:")},
			filter.IsWorkspaceMember{Want: true},
		}}
	default:
		return nil, errors.Errorf("vetchain: unsupported --filter-graph expression %q", expr)
	}
	return filter.Apply(view, f)
}
