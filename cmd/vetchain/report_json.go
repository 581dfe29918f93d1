package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vetchain/vetchain/graph"
	"github.com/vetchain/vetchain/resolve"
)

type jsonReport struct {
	Satisfied        bool          `json:"satisfied"`
	Unmet            []jsonUnmet   `json:"unmet,omitempty"`
	UsedExemptions   int           `json:"used_exemptions"`
	UnusedExemptions int           `json:"unused_exemptions"`
}

type jsonUnmet struct {
	Package   string `json:"package"`
	Version   string `json:"version"`
	Criterion string `json:"criterion"`
	Reason    string `json:"reason"`
}

func printReportJSON(vctx *Ctx, report *resolve.Report, unmet []struct {
	Node  graph.Key
	Unmet resolve.Unmet
}) {
	out := jsonReport{
		Satisfied:        len(unmet) == 0,
		UsedExemptions:   len(report.UsedExemptions),
		UnusedExemptions: len(report.UnusedExemptions),
	}
	for _, u := range unmet {
		out.Unmet = append(out.Unmet, jsonUnmet{
			Package: u.Node.Name, Version: u.Node.Version,
			Criterion: u.Unmet.Criterion, Reason: string(u.Unmet.Reason),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, "vetchain: encode json report:", err)
	}
}
