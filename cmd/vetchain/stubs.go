package main

import (
	"context"
	"flag"

	"github.com/pkg/errors"
)

// The commands in this file mutate on-disk state (certifying an audit,
// recording an exemption or violation, reformatting or regenerating a
// file, fetching imports, or garbage-collecting unused exemptions) and
// are out of scope for the engine itself (§1): the engine consumes and
// produces already-parsed in-memory values, it does not own any file
// format's write path beyond the atomic-write helper in format/. Each
// stub below states its specific reason rather than silently no-opping.

type certifyCommand struct{}

func (*certifyCommand) Name() string             { return "certify" }
func (*certifyCommand) ShortHelp() string         { return "record a full or delta audit (not implemented: mutates audits.toml)" }
func (*certifyCommand) Register(*flag.FlagSet)    {}
func (*certifyCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: certify is not implemented; the engine only consumes parsed audits, it does not author them")
}

type addExemptionCommand struct{}

func (*addExemptionCommand) Name() string          { return "add-exemption" }
func (*addExemptionCommand) ShortHelp() string      { return "record an exemption (not implemented: mutates config.toml)" }
func (*addExemptionCommand) Register(*flag.FlagSet) {}
func (*addExemptionCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: add-exemption is not implemented; the engine only consumes parsed exemptions, it does not author them")
}

type recordViolationCommand struct{}

func (*recordViolationCommand) Name() string     { return "record-violation" }
func (*recordViolationCommand) ShortHelp() string { return "record a violation (not implemented: mutates audits.toml)" }
func (*recordViolationCommand) Register(*flag.FlagSet) {}
func (*recordViolationCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: record-violation is not implemented; the engine only consumes parsed violations, it does not author them")
}

type fmtCommand struct{}

func (*fmtCommand) Name() string          { return "fmt" }
func (*fmtCommand) ShortHelp() string      { return "canonicalize a document's formatting (not implemented: needs comment-preserving parse)" }
func (*fmtCommand) Register(*flag.FlagSet) {}
func (*fmtCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: fmt is not implemented; round-tripping comments/layout needs a concrete-syntax-tree parser, not the semantic decode format/ provides")
}

type regenerateCommand struct{}

func (*regenerateCommand) Name() string          { return "regenerate" }
func (*regenerateCommand) ShortHelp() string      { return "regenerate derived config sections (not implemented: mutates config.toml)" }
func (*regenerateCommand) Register(*flag.FlagSet) {}
func (*regenerateCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: regenerate is not implemented; it would author config.toml from a suggestion report, a write path the engine does not own")
}

type fetchImportsCommand struct{}

func (*fetchImportsCommand) Name() string          { return "fetch-imports" }
func (*fetchImportsCommand) ShortHelp() string      { return "refresh imports.lock from peer organizations (not implemented: network fetch)" }
func (*fetchImportsCommand) Register(*flag.FlagSet) {}
func (*fetchImportsCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: fetch-imports is not implemented; fetching peer audit files over the network is an external collaborator per the engine's scope")
}

type gcCommand struct{}

func (*gcCommand) Name() string          { return "gc" }
func (*gcCommand) ShortHelp() string      { return "drop unused exemptions (not implemented: mutates config.toml)" }
func (*gcCommand) Register(*flag.FlagSet) {}
func (*gcCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: gc is not implemented as a file-mutating command; run check and inspect Report.UnusedExemptions instead")
}

type initCommand struct{}

func (*initCommand) Name() string          { return "init" }
func (*initCommand) ShortHelp() string      { return "scaffold a new audits.toml/config.toml (not implemented: project scaffolding)" }
func (*initCommand) Register(*flag.FlagSet) {}
func (*initCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: init is not implemented; scaffolding empty documents is not an engine concern")
}

type diffCommand struct{}

func (*diffCommand) Name() string          { return "diff" }
func (*diffCommand) ShortHelp() string      { return "show a package's source diff between two versions (not implemented: needs source fetch)" }
func (*diffCommand) Register(*flag.FlagSet) {}
func (*diffCommand) Run(context.Context, *Ctx, []string) error {
	return errors.New("vetchain: diff is not implemented; fetching and diffing source tarballs is the external diff-oracle's job, not the engine's")
}
