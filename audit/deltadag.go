package audit

import "github.com/pkg/errors"

// validateDeltaDAGs enforces invariant 3: delta audits form a DAG per
// (package, criterion). A cycle in the (From -> To) edges restricted to
// any single criterion is fatal at load time.
func (s *Store) validateDeltaDAGs() error {
	for pkg, deltas := range s.deltas {
		// Every criterion any delta for this package claims.
		seen := make(map[string]struct{})
		for _, d := range deltas {
			for c := range d.Criteria {
				seen[c] = struct{}{}
			}
		}
		for c := range seen {
			if cyc := findCycle(deltas, c); cyc != nil {
				return errors.Errorf("audit: package %q has a cyclic delta chain under criterion %q: %v", pkg, c, cyc)
			}
		}
	}
	return nil
}

// findCycle runs a three-color DFS over the (From -> To) edges of deltas
// that carry criterion c, returning the cycle (as a version path) if one
// exists.
func findCycle(deltas []DeltaAudit, c string) []string {
	adj := make(map[string][]string)
	for _, d := range deltas {
		if _, ok := d.Criteria[c]; ok {
			adj[d.From] = append(adj[d.From], d.To)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var path []string
	var cycle []string

	var visit func(v string) bool
	visit = func(v string) bool {
		color[v] = gray
		path = append(path, v)
		for _, to := range adj[v] {
			switch color[to] {
			case white:
				if visit(to) {
					return true
				}
			case gray:
				start := 0
				for i, n := range path {
					if n == to {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, path[start:]...), to)
				return true
			}
		}
		path = path[:len(path)-1]
		color[v] = black
		return false
	}

	for from := range adj {
		if color[from] == white {
			if visit(from) {
				return cycle
			}
		}
	}
	return nil
}
