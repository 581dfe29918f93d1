// Package audit holds the normalized, immutable in-memory representation
// of a project's audits, exemptions, policy, and imported peer audits,
// indexed by package name for the resolver and suggester to consume.
package audit

import (
	"fmt"

	"github.com/armon/go-radix"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/vetchain/vetchain/criteria"
)

// Store is the normalized audit database. It is built once by Build and
// never mutated afterward (§3 Lifecycle).
type Store struct {
	table *criteria.Table

	fulls      map[string][]FullAudit
	deltas     map[string][]DeltaAudit
	exemptions map[string][]Exemption
	violations map[string][]Violation
	policy     map[string]Policy
	imports    []Import

	// index supports sublinear name and name-prefix lookups, the same
	// role github.com/armon/go-radix plays in the teacher's solver for
	// project-root lookup.
	index *radix.Tree
}

// Input is everything needed to build a Store: the raw, as-loaded
// entries from the local audits file, the merged imports, and the
// project's policy. The engine never parses files itself (§1); this is
// the boundary where already-parsed values arrive.
type Input struct {
	Fulls      []FullAudit
	Deltas     []DeltaAudit
	Violations []Violation
	Exemptions []Exemption
	Policies   []Policy
	Imports    []Import
}

// Build normalizes and validates an Input against table, returning a
// Store, or a fatal schema/reference/cycle error (§7). Every entry's
// criteria set is replaced by its closure; dependency-criteria default to
// the entry's own criteria for any dependency left unlisted.
func Build(table *criteria.Table, in Input) (*Store, error) {
	s := &Store{
		table:      table,
		fulls:      make(map[string][]FullAudit),
		deltas:     make(map[string][]DeltaAudit),
		exemptions: make(map[string][]Exemption),
		violations: make(map[string][]Violation),
		policy:     make(map[string]Policy),
		imports:    in.Imports,
		index:      radix.New(),
	}

	var merr *multierror.Error

	for _, f := range in.Fulls {
		f.Criteria = s.closeOrError(&merr, "audits."+f.Package, f.Criteria)
		f.DepCriteria = s.closeDeps(&merr, f.Package, f.Criteria, f.DepCriteria)
		s.fulls[f.Package] = append(s.fulls[f.Package], f)
		s.index.Insert(f.Package, struct{}{})
	}
	for _, d := range in.Deltas {
		d.Criteria = s.closeOrError(&merr, "audits."+d.Package, d.Criteria)
		d.DepCriteria = s.closeDeps(&merr, d.Package, d.Criteria, d.DepCriteria)
		s.deltas[d.Package] = append(s.deltas[d.Package], d)
		s.index.Insert(d.Package, struct{}{})
	}
	for _, v := range in.Violations {
		v.Criteria = s.closeOrError(&merr, "violations."+v.Package, v.Criteria)
		s.violations[v.Package] = append(s.violations[v.Package], v)
		s.index.Insert(v.Package, struct{}{})
	}
	for _, e := range in.Exemptions {
		e.Criteria = s.closeOrError(&merr, "config."+e.Package, e.Criteria)
		s.exemptions[e.Package] = append(s.exemptions[e.Package], e)
		s.index.Insert(e.Package, struct{}{})
	}
	for _, p := range in.Policies {
		p.Required = s.closeOrError(&merr, "policy."+p.Root, p.Required)
		closedOverride := make(map[string]criteria.Set, len(p.DepOverride))
		for dep, set := range p.DepOverride {
			closedOverride[dep] = s.closeOrError(&merr, "policy."+p.Root+"."+dep, set)
		}
		p.DepOverride = closedOverride
		s.policy[p.Root] = p
	}

	if err := s.validateDeltaDAGs(); err != nil {
		merr = multierror.Append(merr, err)
	}

	if merr != nil && merr.ErrorOrNil() != nil {
		return nil, errors.Wrap(merr.ErrorOrNil(), "audit: invalid store")
	}
	return s, nil
}

// closeOrError validates that every member of set is a known criterion,
// recording a reference error otherwise, and returns its closure.
func (s *Store) closeOrError(merr **multierror.Error, context string, set criteria.Set) criteria.Set {
	for name := range set {
		if !s.table.Has(name) {
			*merr = multierror.Append(*merr, errors.Errorf("%s: unknown criterion %q", context, name))
		}
	}
	return s.table.Closure(set)
}

// closeDeps validates and closes every explicitly listed
// dependency-criteria set. Unlisted dependencies are not added here;
// DepCriteriaFor supplies the entry's own criteria for them at lookup time.
func (s *Store) closeDeps(merr **multierror.Error, pkg string, own criteria.Set, deps map[string]criteria.Set) map[string]criteria.Set {
	out := make(map[string]criteria.Set, len(deps))
	for dep, set := range deps {
		out[dep] = s.closeOrError(merr, fmt.Sprintf("audits.%s.dependency-criteria.%s", pkg, dep), set)
	}
	_ = own // defaulting happens lazily in lookups via DepCriteriaFor
	return out
}

// DepCriteriaFor returns the dependency-criteria demand a witness places
// on dep, defaulting to the witness's own criteria when dep is unlisted.
func DepCriteriaFor(own criteria.Set, deps map[string]criteria.Set, dep string) criteria.Set {
	if set, ok := deps[dep]; ok {
		return set
	}
	return own
}

// Fulls returns the full audits recorded for pkg, local and imported.
func (s *Store) Fulls(pkg string) []FullAudit { return s.fulls[pkg] }

// Deltas returns the delta audits recorded for pkg.
func (s *Store) Deltas(pkg string) []DeltaAudit { return s.deltas[pkg] }

// Exemptions returns the exemptions recorded for pkg.
func (s *Store) Exemptions(pkg string) []Exemption { return s.exemptions[pkg] }

// Violations returns the violations recorded for pkg.
func (s *Store) Violations(pkg string) []Violation { return s.violations[pkg] }

// Policy looks up the policy declared for a workspace-member root.
func (s *Store) Policy(root string) (Policy, bool) {
	p, ok := s.policy[root]
	return p, ok
}

// Imports returns the peer organizations whose audits were merged in.
func (s *Store) Imports() []Import { return s.imports }

// PackagesWithPrefix returns every package name known to the store (via
// any audit, delta, exemption, or violation) that starts with prefix, in
// sorted order. Backs the filter graph's name(...) prefix queries.
func (s *Store) PackagesWithPrefix(prefix string) []string {
	var out []string
	s.index.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		out = append(out, k)
		return false
	})
	return out
}

// Table returns the criteria table the store was built against.
func (s *Store) Table() *criteria.Table { return s.table }
