// Command vetchain is the thin CLI driver over the resolution engine
// (§6): it wires together graph/audit loading, the resolver, and the
// suggester behind the subcommand surface, following the teacher's own
// flag.FlagSet-per-command dispatch shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// command is the same shape as the teacher's own cmd/dep commands:
// register flags, then run against a shared context and the remaining
// positional args.
type command interface {
	Name() string
	ShortHelp() string
	Register(fs *flag.FlagSet)
	Run(ctx context.Context, vctx *Ctx, args []string) error
}

func commands() []command {
	return []command{
		&checkCommand{},
		&suggestCommand{},
		&inspectCommand{},
		&dumpGraphCommand{},
		&initCommand{},
		&diffCommand{},
		&certifyCommand{},
		&addExemptionCommand{},
		&recordViolationCommand{},
		&fmtCommand{},
		&regenerateCommand{},
		&fetchImportsCommand{},
		&gcCommand{},
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	name := "check"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name = args[0]
		args = args[1:]
	}

	var cmd command
	for _, c := range commands() {
		if c.Name() == name {
			cmd = c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "vetchain: unknown command %q\n", name)
		return 2
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	locked := fs.Bool("locked", false, "fail when imports.lock exists but cannot be read, instead of running without it")
	frozen := fs.Bool("frozen", false, "fail rather than updating any cached state")
	shallow := fs.Bool("shallow", false, "suggester: do not cost unaudited transitive deps against the ancestor")
	filterGraph := fs.String("filter-graph", "", "filter-graph expression applied before resolution")
	outputFormat := fs.String("output-format", "human", "human or json")
	dir := fs.String("dir", ".", "project directory containing audits.toml, config.toml, dep-graph.json")
	cmd.Register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := logrus.New()
	vctx := &Ctx{
		Logger:       logger,
		Dir:          *dir,
		OutputFormat: *outputFormat,
		Shallow:      *shallow,
		Locked:       *locked,
		Frozen:       *frozen,
		FilterGraph:  *filterGraph,
	}

	err := cmd.Run(context.Background(), vctx, fs.Args())
	switch e := err.(type) {
	case nil:
		return 0
	case *unmetDemandError:
		logger.Warn(e.Error())
		return 1
	default:
		logger.WithError(err).Error("vetchain: fatal")
		return 2
	}
}
