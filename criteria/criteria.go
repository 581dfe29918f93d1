// Package criteria implements the criteria algebra: named audit criteria,
// their implication graph, and the closure/meet/join operations over sets
// of criteria that the rest of vetchain is built on.
package criteria

import (
	"sort"

	"github.com/pkg/errors"
)

// SafeToRun is the weakest built-in criterion: code may be executed
// (e.g. in a build script or test) without further review.
const SafeToRun = "safe-to-run"

// SafeToDeploy implies SafeToRun and additionally certifies the code is
// fit to ship to production.
const SafeToDeploy = "safe-to-deploy"

// Criterion is a named trust property a human reviewer may assert about a
// package version, plus the set of weaker criteria it subsumes.
type Criterion struct {
	Name        string
	Description string
	Implies     []string
}

// Table is the validated, acyclic universe of criteria known to a project.
// A Table is immutable once built by New.
type Table struct {
	byName map[string]Criterion
	names  []string // insertion order, for deterministic iteration
}

// builtins returns the two criteria every project starts with.
func builtins() []Criterion {
	return []Criterion{
		{Name: SafeToRun, Description: "safe to execute as part of a build or test"},
		{Name: SafeToDeploy, Description: "safe to ship in a production artifact", Implies: []string{SafeToRun}},
	}
}

// New builds a Table from the built-in criteria plus any project-declared
// extras, validating that every `implies` reference resolves to a known
// criterion and that the implication graph is acyclic. Unknown criteria and
// cycles are both fatal (§7: reference error, cycle error).
func New(extra ...Criterion) (*Table, error) {
	t := &Table{byName: make(map[string]Criterion)}

	for _, c := range append(builtins(), extra...) {
		if _, dup := t.byName[c.Name]; dup {
			return nil, errors.Errorf("criteria: duplicate criterion %q", c.Name)
		}
		t.byName[c.Name] = c
		t.names = append(t.names, c.Name)
	}

	if err := t.validateReferences(); err != nil {
		return nil, err
	}
	if err := t.validateAcyclic(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validateReferences() error {
	for _, c := range t.byName {
		for _, dep := range c.Implies {
			if _, ok := t.byName[dep]; !ok {
				return errors.Errorf("criteria: %q implies unknown criterion %q", c.Name, dep)
			}
		}
	}
	return nil
}

// CycleError reports an implication cycle detected at load time.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	s := "criteria: cyclic implies relation: "
	for i, n := range e.Cycle {
		if i > 0 {
			s += " -> "
		}
		s += n
	}
	return s
}

// validateAcyclic detects cycles in the implies relation with a three-color
// DFS: white (unvisited), gray (on the current path), black (fully
// explored). A gray node reached again is a back edge, i.e. a cycle.
func (t *Table) validateAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(t.names))
	path := make([]string, 0, len(t.names))

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		path = append(path, name)
		for _, dep := range t.byName[name].Implies {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), dep)
				return &CycleError{Cycle: cycle}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for _, name := range t.names {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Has reports whether name is a known criterion.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Describe returns the human description for a known criterion.
func (t *Table) Describe(name string) string {
	return t.byName[name].Description
}

// Names returns all known criteria in deterministic (insertion) order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Set is an unordered collection of criterion names.
type Set map[string]struct{}

// NewSet builds a Set from a list of names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Slice returns the set's members in sorted order, for deterministic
// output.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether name is a member.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Union returns a new Set containing the members of both sets.
func (s Set) Union(o Set) Set {
	out := make(Set, len(s)+len(o))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range o {
		out[n] = struct{}{}
	}
	return out
}

// Closure forward-closes a criteria set under the table's implies
// relation. Pure and idempotent: Closure(Closure(s)) == Closure(s).
func (t *Table) Closure(s Set) Set {
	out := make(Set, len(s))
	var visit func(name string)
	visit = func(name string) {
		if _, seen := out[name]; seen {
			return
		}
		out[name] = struct{}{}
		for _, dep := range t.byName[name].Implies {
			visit(dep)
		}
	}
	for n := range s {
		visit(n)
	}
	return out
}

// Satisfies reports whether `have` meets the demand `need`, i.e.
// closure(have) is a superset of closure(need). An empty need is always
// satisfied; an empty have satisfies nothing except an empty need.
func (t *Table) Satisfies(have, need Set) bool {
	closedHave := t.Closure(have)
	for n := range t.Closure(need) {
		if _, ok := closedHave[n]; !ok {
			return false
		}
	}
	return true
}

// Meet returns the criteria guaranteed when only one of two alternatives
// is taken: the intersection of their closures.
func (t *Table) Meet(a, b Set) Set {
	ca, cb := t.Closure(a), t.Closure(b)
	out := make(Set)
	for n := range ca {
		if _, ok := cb[n]; ok {
			out[n] = struct{}{}
		}
	}
	return out
}

// Join returns the criteria known when both alternatives are independently
// established on the same version: the union of their closures.
func (t *Table) Join(a, b Set) Set {
	ca, cb := t.Closure(a), t.Closure(b)
	out := make(Set, len(ca)+len(cb))
	for n := range ca {
		out[n] = struct{}{}
	}
	for n := range cb {
		out[n] = struct{}{}
	}
	return out
}
