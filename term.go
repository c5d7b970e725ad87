package pubgrub

import "fmt"

// SetRelation describes how one term's allowed space relates to another's.
type SetRelation uint8

const (
	// RelationDisjoint means the two terms cannot hold together.
	RelationDisjoint SetRelation = iota
	// RelationOverlap means the terms share some, but not all, of their space.
	RelationOverlap
	// RelationSubset means that whenever the first term holds, so does the
	// second.
	RelationSubset
)

func (r SetRelation) String() string {
	switch r {
	case RelationDisjoint:
		return "disjoint"
	case RelationOverlap:
		return "overlap"
	case RelationSubset:
		return "subset"
	}
	return fmt.Sprintf("SetRelation(%d)", uint8(r))
}

// A Term is one literal of the PubGrub algebra: a statement that some
// version of a package within a requirement is (positive) or is not
// (negative) part of the solution.
type Term struct {
	Package     PackageRef
	Requirement Requirement
	Positive    bool
}

func (t Term) String() string {
	if t.Positive {
		return fmt.Sprintf("%s[%s]", t.Package, t.Requirement)
	}
	return fmt.Sprintf("¬%s[%s]", t.Package, t.Requirement)
}

func (Term) _traceable() {}

// Inverse returns the term with its polarity flipped.
func (t Term) Inverse() Term {
	return Term{Package: t.Package, Requirement: t.Requirement, Positive: !t.Positive}
}

// equal is structural equality over all three components.
func (t Term) equal(other Term) bool {
	return t.Package == other.Package &&
		t.Positive == other.Positive &&
		t.Requirement.Identical(other.Requirement)
}

// Satisfies indicates that if t holds, other necessarily holds as well.
func (t Term) Satisfies(other Term) bool {
	return t.Package == other.Package && t.Relation(other) == RelationSubset
}

// Relation computes the set relation of t with other per the PubGrub
// relation table. Both terms must concern the same package.
func (t Term) Relation(other Term) SetRelation {
	if t.Package != other.Package {
		panic(fmt.Sprintf("canary - relating terms of distinct packages %s and %s", t.Package, other.Package))
	}

	lhs, lok := requirementSet(t.Requirement)
	rhs, rok := requirementSet(other.Requirement)
	if !lok || !rok {
		// Revision and unversioned requirements relate like singleton sets
		// over an opaque space: an identical statement implies the other,
		// and anything else shares no members with it.
		identical := t.Requirement.Identical(other.Requirement)
		switch {
		case identical && t.Positive == other.Positive:
			return RelationSubset
		case identical:
			return RelationDisjoint
		case t.Positive && other.Positive:
			return RelationDisjoint
		case t.Positive != other.Positive:
			return RelationSubset
		default:
			return RelationOverlap
		}
	}

	switch {
	case t.Positive && other.Positive:
		if subsetOf(lhs, rhs) {
			return RelationSubset
		}
		if !disjointSets(lhs, rhs) {
			return RelationOverlap
		}
		return RelationDisjoint
	case t.Positive && !other.Positive:
		if disjointSets(lhs, rhs) {
			return RelationSubset
		}
		if subsetOf(lhs, rhs) {
			return RelationDisjoint
		}
		return RelationOverlap
	case !t.Positive && other.Positive:
		if disjointSets(lhs, rhs) {
			return RelationSubset
		}
		if subsetOf(rhs, lhs) {
			return RelationDisjoint
		}
		return RelationOverlap
	default:
		if subsetOf(rhs, lhs) {
			return RelationSubset
		}
		return RelationOverlap
	}
}

// Intersect combines two terms on the same package into the single term
// implied by both. The second return is false when the terms cannot hold
// together (the intersection is empty). Requirements without set algebra
// intersect only with an identical statement; every other combination is
// not possible.
//
// Two negative ranges intersect to the negation of a single range spanning
// both: a superset of the true union. Negative terms widen, so the combined
// term also forbids any versions lying between the two ranges.
func (t Term) Intersect(other Term) (Term, bool) {
	if t.Package != other.Package {
		return Term{}, false
	}

	lhs, lok := requirementSet(t.Requirement)
	rhs, rok := requirementSet(other.Requirement)
	if !lok || !rok {
		if t.Positive == other.Positive && t.Requirement.Identical(other.Requirement) {
			return t, true
		}
		return Term{}, false
	}

	var vs VersionSet
	var positive bool
	switch {
	case t.Positive == other.Positive:
		if !t.Positive {
			if lr, lIsRange := lhs.(rangeSet); lIsRange {
				if rr, rIsRange := rhs.(rangeSet); rIsRange {
					return Term{
						Package:     t.Package,
						Requirement: VersionSetRequirement(mkrange(minVersion(lr.lo, rr.lo), maxVersion(lr.hi, rr.hi))),
						Positive:    false,
					}, true
				}
			}
		}
		vs = lhs.Intersect(rhs)
		positive = t.Positive
	case t.Positive:
		vs = lhs.IntersectInverse(rhs)
		positive = true
	default:
		vs = rhs.IntersectInverse(lhs)
		positive = true
	}

	if vs.Identical(noVersions) {
		return Term{}, false
	}
	return Term{Package: t.Package, Requirement: VersionSetRequirement(vs), Positive: positive}, true
}

// Difference computes t ∩ ¬other.
func (t Term) Difference(other Term) (Term, bool) {
	return t.Intersect(other.Inverse())
}
