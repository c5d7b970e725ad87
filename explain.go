package pubgrub

import (
	"fmt"
	"strings"
)

// explain walks the cause DAG of a terminal incompatibility and renders the
// numbered derivation report. Incompatibilities derived more than once are
// printed once, numbered, and referenced by "(N)" thereafter.
func explain(terminal *Incompatibility, root PackageRef) string {
	e := &explainer{
		root:        root,
		derivations: make(map[string]int),
		lineNumbers: make(map[string]int),
	}
	e.countDerivations(terminal)
	e.visit(terminal, false)
	return strings.Join(e.lines, "\n")
}

type explainer struct {
	root        PackageRef
	derivations map[string]int
	lineNumbers map[string]int
	lines       []string
}

// countDerivations counts how many times each node is reached walking down
// conflict edges from the terminal, which itself counts once. Shared
// subtrees are walked again on every path through them, so the nodes below
// a shared node are counted once per path. The DAG can be deep, so the walk
// keeps its own stack.
func (e *explainer) countDerivations(terminal *Incompatibility) {
	stack := []*Incompatibility{terminal}
	for len(stack) > 0 {
		inc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e.derivations[inc.key()]++
		if lhs, rhs, ok := inc.isConflict(); ok {
			stack = append(stack, lhs, rhs)
		}
	}
}

func (e *explainer) write(inc *Incompatibility, message string, numbered bool) {
	if numbered {
		n := len(e.lineNumbers) + 1
		e.lineNumbers[inc.key()] = n
		message = fmt.Sprintf("%s (%d)", message, n)
	}
	e.lines = append(e.lines, message)
}

func (e *explainer) visit(inc *Incompatibility, isConclusion bool) {
	isNumbered := isConclusion || e.derivations[inc.key()] > 1
	conjunction := ""
	if isConclusion {
		conjunction = "As a result, "
	}
	incDesc := e.describe(inc)

	lhs, rhs, ok := inc.isConflict()
	if !ok {
		e.write(inc, incDesc+".", isNumbered)
		return
	}

	_, _, lhsIsConflict := lhs.isConflict()
	_, _, rhsIsConflict := rhs.isConflict()

	switch {
	case lhsIsConflict && rhsIsConflict:
		lhsLine, lhsHas := e.lineNumbers[lhs.key()]
		rhsLine, rhsHas := e.lineNumbers[rhs.key()]
		switch {
		case lhsHas && rhsHas:
			e.write(inc, fmt.Sprintf("%sBecause %s (%d) and %s (%d), %s.",
				conjunction, e.describe(lhs), lhsLine, e.describe(rhs), rhsLine, incDesc), isNumbered)
		case lhsHas || rhsHas:
			withLine, withoutLine, line := lhs, rhs, lhsLine
			if rhsHas {
				withLine, withoutLine, line = rhs, lhs, rhsLine
			}
			e.visit(withoutLine, false)
			e.write(inc, fmt.Sprintf("%sAnd because %s (%d), %s.",
				conjunction, e.describe(withLine), line, incDesc), isNumbered)
		default:
			if e.isSingleLine(lhs) || e.isSingleLine(rhs) {
				first, second := lhs, rhs
				if e.isSingleLine(lhs) {
					first, second = rhs, lhs
				}
				e.visit(first, false)
				e.visit(second, false)
				e.write(inc, fmt.Sprintf("%sThus, %s.", conjunction, incDesc), isNumbered)
			} else {
				e.visit(lhs, true)
				e.lines = append(e.lines, "")
				e.visit(rhs, false)
				e.write(inc, fmt.Sprintf("%sAnd because %s (%d), %s.",
					conjunction, e.describe(lhs), e.lineNumbers[lhs.key()], incDesc), isNumbered)
			}
		}
	case lhsIsConflict || rhsIsConflict:
		derived, external := lhs, rhs
		if rhsIsConflict {
			derived, external = rhs, lhs
		}
		if line, has := e.lineNumbers[derived.key()]; has {
			e.write(inc, fmt.Sprintf("%sBecause %s and %s (%d), %s.",
				conjunction, e.describe(external), e.describe(derived), line, incDesc), isNumbered)
		} else if e.isCollapsible(derived) {
			dlhs, drhs, _ := derived.isConflict()
			_, _, dlhsIsConflict := dlhs.isConflict()
			// TODO: when the conflict sits on the right these two arms
			// should swap; today both pick the same pair.
			var collapsedDerived, collapsedExternal *Incompatibility
			if dlhsIsConflict {
				collapsedDerived, collapsedExternal = dlhs, drhs
			} else {
				collapsedDerived, collapsedExternal = dlhs, drhs
			}
			e.visit(collapsedDerived, false)
			e.write(inc, fmt.Sprintf("%sAnd because %s and %s, %s.",
				conjunction, e.describe(collapsedExternal), e.describe(external), incDesc), isNumbered)
		} else {
			e.visit(derived, false)
			e.write(inc, fmt.Sprintf("%sAnd because %s, %s.",
				conjunction, e.describe(external), incDesc), isNumbered)
		}
	default:
		e.write(inc, fmt.Sprintf("%sBecause %s and %s, %s.",
			conjunction, e.describe(lhs), e.describe(rhs), incDesc), isNumbered)
	}
}

// isCollapsible indicates a derived incompatibility whose report can fold
// into its parent's line: derived exactly once, exactly one conflict parent,
// and that parent not yet numbered.
func (e *explainer) isCollapsible(inc *Incompatibility) bool {
	if e.derivations[inc.key()] > 1 {
		return false
	}
	lhs, rhs, ok := inc.isConflict()
	if !ok {
		return false
	}
	_, _, lhsIsConflict := lhs.isConflict()
	_, _, rhsIsConflict := rhs.isConflict()
	if lhsIsConflict == rhsIsConflict {
		return false
	}
	complex := lhs
	if rhsIsConflict {
		complex = rhs
	}
	_, has := e.lineNumbers[complex.key()]
	return !has
}

// isSingleLine indicates the incompatibility's report is a single
// "Because … and …" line, i.e. both parents are external.
func (e *explainer) isSingleLine(inc *Incompatibility) bool {
	// TODO: decide what this should report for deeper shapes.
	lhs, rhs, ok := inc.isConflict()
	if !ok {
		return false
	}
	_, _, lhsIsConflict := lhs.isConflict()
	_, _, rhsIsConflict := rhs.isConflict()
	return !lhsIsConflict && !rhsIsConflict
}

// describe renders an incompatibility as prose.
func (e *explainer) describe(inc *Incompatibility) string {
	if e.isFailure(inc) {
		return "version solving failed"
	}

	switch c := inc.cause.(type) {
	case dependencyCause, rootCause:
		if len(inc.terms) == 2 {
			depender, dependee, ok := dependencyTerms(inc)
			if ok {
				if _, isRoot := c.(rootCause); isRoot {
					return fmt.Sprintf("%s depends on %s", depender.Package, e.describeTerm(dependee))
				}
				return fmt.Sprintf("%s depends on %s", e.describeTerm(depender), e.describeTerm(dependee))
			}
		}
	case noVersionCause:
		t := inc.terms[0]
		return fmt.Sprintf("no versions of %s match the requirement %s", t.Package, t.Requirement)
	}

	if len(inc.terms) == 1 {
		t := inc.terms[0]
		if t.Positive {
			return fmt.Sprintf("%s is forbidden", e.describeTerm(t))
		}
		return fmt.Sprintf("%s is required", e.describeTerm(t))
	}

	var positive, negative []string
	for _, t := range inc.terms {
		if t.Positive {
			positive = append(positive, e.describeTerm(t))
		} else {
			negative = append(negative, e.describeTerm(t))
		}
	}
	switch {
	case len(positive) > 0 && len(negative) > 0:
		if len(positive) == 1 {
			return fmt.Sprintf("%s practically depends on %s", positive[0], strings.Join(negative, " or "))
		}
		return fmt.Sprintf("if %s then %s", strings.Join(positive, " and "), strings.Join(negative, " or "))
	case len(positive) > 0:
		return fmt.Sprintf("one of %s must be false", strings.Join(positive, " or "))
	default:
		return fmt.Sprintf("one of %s must be true", strings.Join(negative, " or "))
	}
}

// describeTerm renders a term positively: "a", "a 1.0.0", "a >=1.0.0 <2.0.0".
func (e *explainer) describeTerm(t Term) string {
	if vs, ok := requirementSet(t.Requirement); ok {
		if _, isAny := vs.(anySet); isAny {
			return string(t.Package)
		}
	}
	return fmt.Sprintf("%s %s", t.Package, t.Requirement)
}

// isFailure matches the terminal shapes conflict resolution can bottom out
// on: no terms at all, or a lone positive root term.
func (e *explainer) isFailure(inc *Incompatibility) bool {
	if len(inc.terms) == 0 {
		return true
	}
	return len(inc.terms) == 1 && inc.terms[0].Package == e.root && inc.terms[0].Positive
}

// dependencyTerms splits a two-term dependency incompatibility into its
// positive depender and (positively rendered) dependee.
func dependencyTerms(inc *Incompatibility) (depender, dependee Term, ok bool) {
	if len(inc.terms) != 2 {
		return Term{}, Term{}, false
	}
	a, b := inc.terms[0], inc.terms[1]
	switch {
	case a.Positive && !b.Positive:
		return a, b.Inverse(), true
	case b.Positive && !a.Positive:
		return b, a.Inverse(), true
	}
	return Term{}, Term{}, false
}
