package audit

import "github.com/vetchain/vetchain/criteria"

// Source records where an audit-bearing entry came from: the local audits
// file, or a named imported peer organization. Provenance never affects
// what an entry asserts, only how it is reported and tie-broken (§4.4:
// "prefer local audits over imported").
type Source struct {
	Import string // empty for local entries
}

// Local reports whether the entry originates from the project's own
// audits file rather than an import.
func (s Source) Local() bool { return s.Import == "" }

// String renders the source for diagnostics.
func (s Source) String() string {
	if s.Local() {
		return "local"
	}
	return "import:" + s.Import
}

// FullAudit asserts that a specific version of a package satisfies
// Criteria, provided every dependency satisfies its own (possibly
// overridden) criteria-set.
type FullAudit struct {
	Package     string
	Version     string
	Criteria    criteria.Set
	DepCriteria map[string]criteria.Set // nil entries default to Criteria
	Notes       string
	Source      Source
}

// DeltaAudit asserts that the incremental review from From to To
// satisfies Criteria, under the same dependency precondition as a
// FullAudit.
type DeltaAudit struct {
	Package     string
	From        string
	To          string
	Criteria    criteria.Set
	DepCriteria map[string]criteria.Set
	Notes       string
	Source      Source
}

// Violation asserts that every version matching Range fails Criteria,
// overriding any audit that would otherwise certify it (§3 invariant 2).
type Violation struct {
	Package  string
	Range    string // a semver constraint expression, e.g. ">=1.0, <3.0"
	Criteria criteria.Set
	Source   Source
}

// Exemption grandfathers a specific version under Criteria without human
// review. It behaves like a FullAudit with no dependency precondition,
// but is tracked separately so the resolver can report reliance on it and
// the (out-of-scope) gc operation can find unused ones.
type Exemption struct {
	Package  string
	Version  string
	Criteria criteria.Set
	// Suggest controls whether this exemption is offered to cleanup
	// tooling; false hides it (§3).
	Suggest bool
	Source  Source
}

// Policy is the demand side: for a workspace-member root, the criteria
// the project requires, plus any per-dependency overrides.
type Policy struct {
	Root        string
	Required    criteria.Set
	DepOverride map[string]criteria.Set
}

// Import names a peer organization whose audits are merged into lookups.
type Import struct {
	Name string
	URL  string
}
