// Package format parses and emits the three persisted document kinds
// of §6 — the audits file, the exemptions/policy config file, and the
// cached imports.lock — translating between their TOML wire shape and
// the engine's domain types in audit/.
package format

import (
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/vetchain/vetchain/audit"
	"github.com/vetchain/vetchain/criteria"
)

// StringList accepts either a bare string or an array of strings on
// decode (§6: "criteria (string or array)"), and always encodes as an
// array — both forms are semantically a set, so round-tripping through
// the array form preserves meaning even when the source used a string.
type StringList []string

// UnmarshalTOML implements go-toml/v2's value-based unmarshaler.
func (s *StringList) UnmarshalTOML(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = StringList{v}
	case []interface{}:
		out := make(StringList, 0, len(v))
		for _, e := range v {
			str, ok := e.(string)
			if !ok {
				return errors.Errorf("format: expected string in list, got %T", e)
			}
			out = append(out, str)
		}
		*s = out
	default:
		return errors.Errorf("format: expected string or array of strings, got %T", value)
	}
	return nil
}

func (s StringList) toSet() criteria.Set { return criteria.NewSet([]string(s)...) }

func fromSet(s criteria.Set) StringList { return StringList(s.Slice()) }

// RawCriterion is one entry of the audits file's criteria.<name> table.
type RawCriterion struct {
	Description string     `toml:"description"`
	Implies     StringList `toml:"implies,omitempty"`
}

// RawAuditEntry is one entry in audits.<package>: exactly one of Version
// or Delta is set.
type RawAuditEntry struct {
	Version            string                `toml:"version,omitempty"`
	Delta              string                `toml:"delta,omitempty"`
	Criteria           StringList            `toml:"criteria"`
	DependencyCriteria map[string]StringList `toml:"dependency-criteria,omitempty"`
	Notes              string                `toml:"notes,omitempty"`
}

// RawViolation is one entry in violations.<package>.
type RawViolation struct {
	Version  string     `toml:"version"`
	Criteria StringList `toml:"criteria"`
}

// AuditsDoc is the parsed shape of an audits file.
type AuditsDoc struct {
	Criteria   map[string]RawCriterion   `toml:"criteria,omitempty"`
	Audits     map[string][]RawAuditEntry `toml:"audits,omitempty"`
	Violations map[string][]RawViolation  `toml:"violations,omitempty"`
}

// ParseAudits decodes an audits file.
func ParseAudits(data []byte) (*AuditsDoc, error) {
	var doc AuditsDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "format: decode audits document")
	}
	return &doc, nil
}

// CriteriaTable builds a criteria.Table from the document's declared
// criteria plus the two built-ins (§4.1); built-in names appearing in
// the document are ignored rather than rejected, since a project's
// audits file commonly re-documents them for readability.
func (d *AuditsDoc) CriteriaTable() (*criteria.Table, error) {
	var extra []criteria.Criterion
	for _, name := range sortedKeys(d.Criteria) {
		if name == criteria.SafeToRun || name == criteria.SafeToDeploy {
			continue
		}
		c := d.Criteria[name]
		extra = append(extra, criteria.Criterion{
			Name:        name,
			Description: c.Description,
			Implies:     []string(c.Implies),
		})
	}
	return criteria.New(extra...)
}

// Entries splits the document's audits.<package> entries into full and
// delta audits, parsing "V1 -> V2" delta endpoints (§6).
func (d *AuditsDoc) Entries(source audit.Source) ([]audit.FullAudit, []audit.DeltaAudit, error) {
	var fulls []audit.FullAudit
	var deltas []audit.DeltaAudit

	for _, pkg := range sortedKeys(d.Audits) {
		for _, e := range d.Audits[pkg] {
			switch {
			case e.Version != "" && e.Delta != "":
				return nil, nil, errors.Errorf("format: audits.%s: entry has both version and delta", pkg)
			case e.Version != "":
				fulls = append(fulls, audit.FullAudit{
					Package: pkg, Version: e.Version, Criteria: e.Criteria.toSet(),
					DepCriteria: toDepCriteria(e.DependencyCriteria), Notes: e.Notes, Source: source,
				})
			case e.Delta != "":
				from, to, err := splitDelta(e.Delta)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "format: audits.%s", pkg)
				}
				deltas = append(deltas, audit.DeltaAudit{
					Package: pkg, From: from, To: to, Criteria: e.Criteria.toSet(),
					DepCriteria: toDepCriteria(e.DependencyCriteria), Notes: e.Notes, Source: source,
				})
			default:
				return nil, nil, errors.Errorf("format: audits.%s: entry has neither version nor delta", pkg)
			}
		}
	}
	return fulls, deltas, nil
}

// Violations converts the document's violations.<package> entries.
func (d *AuditsDoc) Violations(source audit.Source) []audit.Violation {
	var out []audit.Violation
	for _, pkg := range sortedKeys(d.Violations) {
		for _, v := range d.Violations[pkg] {
			out = append(out, audit.Violation{Package: pkg, Range: v.Version, Criteria: v.Criteria.toSet(), Source: source})
		}
	}
	return out
}

func splitDelta(s string) (from, to string, err error) {
	parts := strings.SplitN(s, "->", 2)
	if len(parts) != 2 {
		return "", "", errors.Errorf("malformed delta %q, expected \"V1 -> V2\"", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func toDepCriteria(m map[string]StringList) map[string]criteria.Set {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]criteria.Set, len(m))
	for k, v := range m {
		out[k] = v.toSet()
	}
	return out
}

func fromDepCriteria(m map[string]criteria.Set) map[string]StringList {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]StringList, len(m))
	for k, v := range m {
		out[k] = fromSet(v)
	}
	return out
}

// BuildAuditsDoc assembles the emittable document for a table and a set
// of local full/delta audits and violations — the inverse of
// CriteriaTable/Entries/Violations, used by the (out-of-scope as a
// mutating command, but engine-internal) round trip.
func BuildAuditsDoc(table *criteria.Table, fulls []audit.FullAudit, deltas []audit.DeltaAudit, violations []audit.Violation) *AuditsDoc {
	doc := &AuditsDoc{
		Criteria:   make(map[string]RawCriterion),
		Audits:     make(map[string][]RawAuditEntry),
		Violations: make(map[string][]RawViolation),
	}
	for _, name := range table.Names() {
		if name == criteria.SafeToRun || name == criteria.SafeToDeploy {
			continue
		}
		implied := table.Closure(criteria.NewSet(name))
		delete(implied, name)
		doc.Criteria[name] = RawCriterion{Description: table.Describe(name), Implies: fromSet(implied)}
	}
	for _, f := range fulls {
		doc.Audits[f.Package] = append(doc.Audits[f.Package], RawAuditEntry{
			Version: f.Version, Criteria: fromSet(f.Criteria), DependencyCriteria: fromDepCriteria(f.DepCriteria), Notes: f.Notes,
		})
	}
	for _, dl := range deltas {
		doc.Audits[dl.Package] = append(doc.Audits[dl.Package], RawAuditEntry{
			Delta: dl.From + " -> " + dl.To, Criteria: fromSet(dl.Criteria), DependencyCriteria: fromDepCriteria(dl.DepCriteria), Notes: dl.Notes,
		})
	}
	for _, v := range violations {
		doc.Violations[v.Package] = append(doc.Violations[v.Package], RawViolation{Version: v.Range, Criteria: fromSet(v.Criteria)})
	}
	return doc
}

// MarshalAudits encodes a document back to TOML.
func MarshalAudits(doc *AuditsDoc) ([]byte, error) {
	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "format: encode audits document")
	}
	return data, nil
}

// RawExemption is one entry of a config file's <package> table.
type RawExemption struct {
	Version  string     `toml:"version"`
	Criteria StringList `toml:"criteria"`
	Suggest  *bool      `toml:"suggest,omitempty"`
}

// RawPolicy is a policy.<package> entry.
type RawPolicy struct {
	Criteria           StringList            `toml:"criteria"`
	DependencyCriteria map[string]StringList `toml:"dependency-criteria,omitempty"`
}

// ConfigDoc is the parsed shape of the exemptions/policy config file.
type ConfigDoc struct {
	Exemptions map[string][]RawExemption `toml:"exemptions,omitempty"`
	Policy     map[string]RawPolicy      `toml:"policy,omitempty"`
}

// ParseConfig decodes a config file.
func ParseConfig(data []byte) (*ConfigDoc, error) {
	var doc ConfigDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "format: decode config document")
	}
	return &doc, nil
}

// Exemptions converts the document's declared exemptions.
func (d *ConfigDoc) Exemptions(source audit.Source) []audit.Exemption {
	var out []audit.Exemption
	for _, pkg := range sortedKeys(d.Exemptions) {
		for _, e := range d.Exemptions[pkg] {
			out = append(out, audit.Exemption{
				Package: pkg, Version: e.Version, Criteria: e.Criteria.toSet(),
				Suggest: e.Suggest == nil || *e.Suggest, Source: source,
			})
		}
	}
	return out
}

// Policies converts the document's declared policies.
func (d *ConfigDoc) Policies() []audit.Policy {
	var out []audit.Policy
	for _, root := range sortedKeys(d.Policy) {
		p := d.Policy[root]
		dep := make(map[string]criteria.Set, len(p.DependencyCriteria))
		for k, v := range p.DependencyCriteria {
			dep[k] = v.toSet()
		}
		out = append(out, audit.Policy{Root: root, Required: p.Criteria.toSet(), DepOverride: dep})
	}
	return out
}

// BuildConfigDoc assembles the emittable document for a set of local
// exemptions and policies.
func BuildConfigDoc(exemptions []audit.Exemption, policies []audit.Policy) *ConfigDoc {
	doc := &ConfigDoc{Exemptions: make(map[string][]RawExemption), Policy: make(map[string]RawPolicy)}
	for _, e := range exemptions {
		suggest := e.Suggest
		doc.Exemptions[e.Package] = append(doc.Exemptions[e.Package], RawExemption{
			Version: e.Version, Criteria: fromSet(e.Criteria), Suggest: &suggest,
		})
	}
	for _, p := range policies {
		doc.Policy[p.Root] = RawPolicy{Criteria: fromSet(p.Required), DependencyCriteria: fromDepCriteria(p.DepOverride)}
	}
	return doc
}

// MarshalConfig encodes a config document back to TOML.
func MarshalConfig(doc *ConfigDoc) ([]byte, error) {
	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "format: encode config document")
	}
	return data, nil
}

// ImportsLockDoc is the cached copy of every imported peer's audit file,
// keyed by import name, validated by the same schema as local audits.
type ImportsLockDoc struct {
	Imports map[string]AuditsDoc `toml:"imports,omitempty"`
}

// ParseImportsLock decodes an imports.lock file.
func ParseImportsLock(data []byte) (*ImportsLockDoc, error) {
	var doc ImportsLockDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "format: decode imports.lock document")
	}
	return &doc, nil
}

// Entries flattens every imported peer's full/delta audits and
// violations, tagging each with its import Source.
func (d *ImportsLockDoc) Entries() ([]audit.FullAudit, []audit.DeltaAudit, []audit.Violation, error) {
	var fulls []audit.FullAudit
	var deltas []audit.DeltaAudit
	var violations []audit.Violation

	for _, name := range sortedKeys(d.Imports) {
		sub := d.Imports[name]
		source := audit.Source{Import: name}
		f, dl, err := sub.Entries(source)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "format: imports.%s", name)
		}
		fulls = append(fulls, f...)
		deltas = append(deltas, dl...)
		violations = append(violations, sub.Violations(source)...)
	}
	return fulls, deltas, violations, nil
}

// MarshalImportsLock encodes an imports.lock document back to TOML.
func MarshalImportsLock(doc *ImportsLockDoc) ([]byte, error) {
	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "format: encode imports.lock document")
	}
	return data, nil
}

// WriteAtomic writes data to path via a temp file plus rename, so a
// crash mid-write never leaves a truncated document on disk.
func WriteAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "format: write temp file for %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "format: rename temp file into %s", path)
	}
	return nil
}

// sortedKeys returns a map's keys in sorted order, for deterministic
// iteration over TOML tables (which Go decodes into unordered maps).
func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
