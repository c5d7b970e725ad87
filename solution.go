package pubgrub

import "fmt"

// partialSolution is the solver's working state: the chronological list of
// assignments, the decisions taken so far, and per-package summaries of what
// the assignments allow.
//
// For each package at most one of the two summaries exists: positive holds
// the intersection of every positive assignment (minus any negatives) once a
// positive exists; negative holds the running combination of negatives until
// then.
type partialSolution struct {
	assignments []Assignment
	decisions   map[PackageRef]BoundVersion

	positive map[PackageRef]Term
	// posOrder preserves the order packages first gained a positive term;
	// decision making walks undecided packages in this order.
	posOrder []PackageRef
	negative map[PackageRef]Term
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		decisions: make(map[PackageRef]BoundVersion),
		positive:  make(map[PackageRef]Term),
		negative:  make(map[PackageRef]Term),
	}
}

// decisionLevel is the number of decisions taken, minus one: the root
// decision establishes level 0.
func (s *partialSolution) decisionLevel() int {
	return len(s.decisions) - 1
}

// register folds an assignment's term into the per-package summaries.
func (s *partialSolution) register(a Assignment) {
	pkg := a.Term.Package

	if cur, ok := s.positive[pkg]; ok {
		merged, ok := cur.Intersect(a.Term)
		if !ok {
			panic(fmt.Sprintf("canary - registering %s against positive %s produced an empty term", a.Term, cur))
		}
		s.positive[pkg] = merged
		return
	}

	term := a.Term
	if neg, ok := s.negative[pkg]; ok {
		// Disjoint negatives have no single-term combination; the newer
		// statement supersedes.
		if merged, ok := term.Intersect(neg); ok {
			term = merged
		}
	}

	if term.Positive {
		delete(s.negative, pkg)
		s.positive[pkg] = term
		s.posOrder = append(s.posOrder, pkg)
	} else {
		s.negative[pkg] = term
	}
}

// derive appends a derivation at the current decision level.
func (s *partialSolution) derive(term Term, cause *Incompatibility) {
	a := derivation(term, cause, s.decisionLevel())
	s.assignments = append(s.assignments, a)
	s.register(a)
}

// decide records the chosen binding for pkg, opening a new decision level.
func (s *partialSolution) decide(pkg PackageRef, binding BoundVersion) {
	s.decisions[pkg] = binding
	term := Term{Package: pkg, Requirement: binding.requirement(), Positive: true}
	a := decision(term, s.decisionLevel())
	s.assignments = append(s.assignments, a)
	s.register(a)
}

// satisfier returns the earliest assignment such that the accumulated
// intersection of assignments on term's package up to and including it
// satisfies term, along with its index in the chronology.
func (s *partialSolution) satisfier(term Term) (Assignment, int) {
	var accumulated *Term
	for idx, a := range s.assignments {
		if a.Term.Package != term.Package {
			continue
		}
		if accumulated == nil {
			t := a.Term
			accumulated = &t
		} else {
			merged, ok := accumulated.Intersect(a.Term)
			if !ok {
				panic(fmt.Sprintf("canary - satisfier accumulation for %s emptied at %s", term, a.Term))
			}
			accumulated = &merged
		}
		if accumulated.Satisfies(term) {
			return a, idx
		}
	}
	panic(fmt.Sprintf("canary - no assignment satisfies %s", term))
}

// backtrack removes every assignment above the given decision level and
// rebuilds the summaries from what remains.
func (s *partialSolution) backtrack(toLevel int) {
	kept := s.assignments[:0]
	for _, a := range s.assignments {
		if a.DecisionLevel > toLevel {
			if a.IsDecision {
				delete(s.decisions, a.Term.Package)
			}
			continue
		}
		kept = append(kept, a)
	}
	s.assignments = kept

	s.positive = make(map[PackageRef]Term)
	s.posOrder = s.posOrder[:0]
	s.negative = make(map[PackageRef]Term)
	for _, a := range s.assignments {
		s.register(a)
	}
}

// relation reports how the solution's current knowledge of term's package
// relates to term; overlap when nothing is known yet.
func (s *partialSolution) relation(term Term) SetRelation {
	pkg := term.Package
	if pos, ok := s.positive[pkg]; ok {
		return pos.Relation(term)
	}
	if neg, ok := s.negative[pkg]; ok {
		return neg.Relation(term)
	}
	return RelationOverlap
}

// satisfies indicates the solution already implies term.
func (s *partialSolution) satisfies(term Term) bool {
	return s.relation(term) == RelationSubset
}

// undecided returns the positive terms of packages that are constrained but
// not yet decided, in the order their constraints first appeared.
func (s *partialSolution) undecided() []Term {
	var terms []Term
	for _, pkg := range s.posOrder {
		if _, decided := s.decisions[pkg]; decided {
			continue
		}
		terms = append(terms, s.positive[pkg])
	}
	return terms
}
