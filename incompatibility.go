package pubgrub

import (
	"fmt"
	"sort"
	"strings"
)

// A Cause records where an incompatibility came from. Conflict causes link
// two parent incompatibilities, so the causes of a derived incompatibility
// form a DAG whose leaves are root, dependency and no-available-version
// nodes.
type Cause interface {
	_cause()
}

type rootCause struct{}

type dependencyCause struct {
	pkg PackageRef
}

type conflictCause struct {
	// conflict is the incompatibility that was satisfied by the partial
	// solution; other is the cause of the most recent satisfier the resolver
	// rewrote it against.
	conflict *Incompatibility
	other    *Incompatibility
}

type noVersionCause struct{}

func (rootCause) _cause()       {}
func (dependencyCause) _cause() {}
func (conflictCause) _cause()   {}
func (noVersionCause) _cause()  {}

// An Incompatibility is a set of terms that cannot all hold at once: at
// least one of them must be false in any solution. The solver's entire
// knowledge of the problem is a database of these.
type Incompatibility struct {
	terms []Term
	cause Cause
}

// newIncompatibility builds an incompatibility from the provided terms,
// dropping positive root terms from multi-term conflicts (root is always
// selected, so they constrain nothing) and normalizing so that each package
// appears in exactly one term. Terms are emitted sorted by package for
// deterministic iteration everywhere downstream.
func newIncompatibility(root PackageRef, cause Cause, terms ...Term) *Incompatibility {
	if len(terms) == 0 {
		panic("canary - constructing incompatibility with no terms")
	}

	if _, isConflict := cause.(conflictCause); isConflict && len(terms) > 1 {
		kept := terms[:0]
		for _, t := range terms {
			if t.Positive && t.Package == root {
				continue
			}
			kept = append(kept, t)
		}
		terms = kept
	}

	byPkg := make(map[PackageRef]Term, len(terms))
	order := make([]PackageRef, 0, len(terms))
	for _, t := range terms {
		prev, seen := byPkg[t.Package]
		if !seen {
			byPkg[t.Package] = t
			order = append(order, t.Package)
			continue
		}
		merged, ok := prev.Intersect(t)
		if !ok {
			panic(fmt.Sprintf("canary - normalizing %s with %s produced an empty term", prev, t))
		}
		byPkg[t.Package] = merged
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	normalized := make([]Term, 0, len(order))
	for _, pkg := range order {
		normalized = append(normalized, byPkg[pkg])
	}

	return &Incompatibility{terms: normalized, cause: cause}
}

// Terms returns the incompatibility's terms, one per package, sorted by
// package.
func (i *Incompatibility) Terms() []Term {
	return i.terms
}

// Cause returns the origin of the incompatibility.
func (i *Incompatibility) Cause() Cause {
	return i.cause
}

// isConflict indicates the incompatibility was derived during conflict
// resolution, returning its two parents.
func (i *Incompatibility) isConflict() (conflict, other *Incompatibility, ok bool) {
	c, ok := i.cause.(conflictCause)
	if !ok {
		return nil, nil, false
	}
	return c.conflict, c.other, true
}

// equal is structural equality over terms. Cause identity is deliberately
// excluded: two derivations of the same statement are the same statement.
func (i *Incompatibility) equal(other *Incompatibility) bool {
	if len(i.terms) != len(other.terms) {
		return false
	}
	for k := range i.terms {
		if !i.terms[k].equal(other.terms[k]) {
			return false
		}
	}
	return true
}

// key is a canonical string over the terms, used wherever structural
// identity must index a map.
func (i *Incompatibility) key() string {
	parts := make([]string, len(i.terms))
	for k, t := range i.terms {
		parts[k] = t.String()
	}
	return strings.Join(parts, " ∧ ")
}

func (i *Incompatibility) String() string {
	return "{" + i.key() + "}"
}

func (*Incompatibility) _traceable() {}
