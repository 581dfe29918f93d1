package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"
)

type inspectCommand struct{}

func (*inspectCommand) Name() string      { return "inspect" }
func (*inspectCommand) ShortHelp() string { return "print everything known about one package@version" }

func (*inspectCommand) Register(*flag.FlagSet) {}

func (*inspectCommand) Run(_ context.Context, vctx *Ctx, args []string) error {
	if len(args) != 2 {
		return errors.New("vetchain: inspect requires <package> <version>")
	}
	pkg, version := args[0], args[1]

	_, store, err := vctx.loadAuditStore()
	if err != nil {
		return err
	}

	fmt.Printf("%s@%s\n", pkg, version)
	for _, f := range store.Fulls(pkg) {
		if f.Version == version {
			fmt.Printf("  full audit: %v (%s)\n", f.Criteria.Slice(), f.Source)
		}
	}
	for _, d := range store.Deltas(pkg) {
		if d.To == version {
			fmt.Printf("  delta from %s: %v (%s)\n", d.From, d.Criteria.Slice(), d.Source)
		}
	}
	for _, e := range store.Exemptions(pkg) {
		if e.Version == version {
			fmt.Printf("  exemption: %v (suggest=%v)\n", e.Criteria.Slice(), e.Suggest)
		}
	}
	for _, v := range store.Violations(pkg) {
		fmt.Printf("  violation range %s: %v\n", v.Range, v.Criteria.Slice())
	}
	return nil
}
