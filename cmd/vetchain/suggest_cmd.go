package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/vetchain/vetchain/internal/diffcache"
	"github.com/vetchain/vetchain/resolve"
	"github.com/vetchain/vetchain/suggest"
)

type suggestCommand struct {
	includeDevDemands bool
}

func (*suggestCommand) Name() string      { return "suggest" }
func (*suggestCommand) ShortHelp() string { return "propose audits that would resolve unmet demands" }

func (c *suggestCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.includeDevDemands, "dev", false, "demand criteria through dev-only edges as well as normal ones")
}

func (c *suggestCommand) Run(ctx context.Context, vctx *Ctx, _ []string) error {
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
	if len(report.Unsatisfied()) == 0 {
		fmt.Println("vetchain: nothing to suggest, all demands satisfied")
		return nil
	}

	cache, err := diffcache.Open(vctx.path("diffcache.toml"), stubOracle{})
	if err != nil {
		return err
	}
	defer cache.Close()

	suggestions, err := suggest.New(view, store, table, cache, suggest.Options{Shallow: vctx.Shallow}).Suggest(ctx, report)
	if err != nil {
		vctx.Logger.WithError(err).Warn("vetchain: some suggestions could not be computed and were left out")
	}

	for _, s := range suggestions {
		if s.CostUnknown {
			fmt.Printf("%s@%s [%s]: cost unknown\n", s.Node.Name, s.Node.Version, s.Criterion)
			continue
		}
		switch s.Action.Kind {
		case suggest.ActionFull:
			fmt.Printf("%s@%s [%s]: full audit (cost %d)\n", s.Node.Name, s.Node.Version, s.Criterion, s.Cost+s.DownstreamCost)
		case suggest.ActionDelta:
			fmt.Printf("%s@%s [%s]: delta %s -> %s (cost %d)\n", s.Node.Name, s.Node.Version, s.Criterion, s.Action.From, s.Action.To, s.Cost+s.DownstreamCost)
		}
	}
	return nil
}

// stubOracle is a placeholder diff-size oracle: the real implementation
// fetches and diffs source tarballs (§6), which is an external
// collaborator this driver does not implement.
type stubOracle struct{}

func (stubOracle) EstimateCost(context.Context, string, string, string) (int, error) {
	return 0, fmt.Errorf("vetchain: no diff oracle configured")
}
