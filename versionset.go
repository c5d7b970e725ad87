package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver"
)

var (
	noVersions  = emptySet{}
	allVersions = anySet{}
)

// A VersionSet describes the versions of a package admitted by some
// requirement: all of them, none of them, exactly one, or a contiguous
// half-open range.
//
// It has a private method because the set algebra is complete as implemented
// here; the solver relies on type switches over the concrete cases.
type VersionSet interface {
	fmt.Stringer
	// Contains indicates if the provided version is a member of the set.
	Contains(v *semver.Version) bool
	// Intersect computes the intersection of the set with the provided set.
	Intersect(VersionSet) VersionSet
	// IntersectInverse computes the intersection of the set with the
	// complement of the provided set. Where the true residual would need two
	// disjoint intervals, a single containing interval is chosen; see
	// rangeSet.IntersectInverse.
	IntersectInverse(VersionSet) VersionSet
	// Identical indicates if the two sets are structurally equal.
	Identical(VersionSet) bool
	_private()
}

func (anySet) _private()   {}
func (emptySet) _private() {}
func (exactSet) _private() {}
func (rangeSet) _private() {}

// AnyVersions returns the set admitting every version.
func AnyVersions() VersionSet {
	return allVersions
}

// NoVersions returns the empty set.
func NoVersions() VersionSet {
	return noVersions
}

// ExactVersion returns the set admitting only the provided version.
func ExactVersion(v *semver.Version) VersionSet {
	if v == nil {
		panic("canary - constructing exact version set from nil version")
	}
	return exactSet{v: v}
}

// VersionRange returns the half-open set [lo, hi). The bounds must be
// strictly ordered; a degenerate range is a caller bug, not an empty set.
func VersionRange(lo, hi *semver.Version) VersionSet {
	if lo == nil || hi == nil || !lo.LessThan(hi) {
		panic(fmt.Sprintf("canary - malformed version range [%s, %s)", lo, hi))
	}
	return rangeSet{lo: lo, hi: hi}
}

// mkrange is the internal constructor used by the set algebra: unlike
// VersionRange, a degenerate interval collapses to the empty set.
func mkrange(lo, hi *semver.Version) VersionSet {
	if !lo.LessThan(hi) {
		return noVersions
	}
	return rangeSet{lo: lo, hi: hi}
}

func minVersion(a, b *semver.Version) *semver.Version {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxVersion(a, b *semver.Version) *semver.Version {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// anySet is the unbounded set - it admits every version.
type anySet struct{}

func (anySet) String() string {
	return "*"
}

func (anySet) Contains(*semver.Version) bool {
	return true
}

func (anySet) Intersect(other VersionSet) VersionSet {
	return other
}

func (s anySet) IntersectInverse(other VersionSet) VersionSet {
	switch other.(type) {
	case anySet:
		return noVersions
	case emptySet:
		return s
	}
	// The residual of the full space around a bounded set is not expressible
	// as a single case; approximate by the full set.
	return s
}

func (anySet) Identical(other VersionSet) bool {
	_, ok := other.(anySet)
	return ok
}

// emptySet admits no versions.
type emptySet struct{}

func (emptySet) String() string {
	return "none"
}

func (emptySet) Contains(*semver.Version) bool {
	return false
}

func (emptySet) Intersect(VersionSet) VersionSet {
	return noVersions
}

func (emptySet) IntersectInverse(VersionSet) VersionSet {
	return noVersions
}

func (emptySet) Identical(other VersionSet) bool {
	_, ok := other.(emptySet)
	return ok
}

// exactSet admits a single version.
type exactSet struct {
	v *semver.Version
}

func (s exactSet) String() string {
	return s.v.String()
}

func (s exactSet) Contains(v *semver.Version) bool {
	return s.v.Equal(v)
}

func (s exactSet) Intersect(other VersionSet) VersionSet {
	if other.Contains(s.v) {
		return s
	}
	return noVersions
}

func (s exactSet) IntersectInverse(other VersionSet) VersionSet {
	if other.Contains(s.v) {
		return noVersions
	}
	return s
}

func (s exactSet) Identical(other VersionSet) bool {
	o, ok := other.(exactSet)
	return ok && s.v.Equal(o.v)
}

// rangeSet admits the half-open interval [lo, hi).
type rangeSet struct {
	lo, hi *semver.Version
}

func (s rangeSet) String() string {
	return fmt.Sprintf(">=%s <%s", s.lo, s.hi)
}

func (s rangeSet) Contains(v *semver.Version) bool {
	return !v.LessThan(s.lo) && v.LessThan(s.hi)
}

func (s rangeSet) Intersect(other VersionSet) VersionSet {
	switch o := other.(type) {
	case anySet:
		return s
	case emptySet:
		return noVersions
	case exactSet:
		return o.Intersect(s)
	case rangeSet:
		return mkrange(maxVersion(s.lo, o.lo), minVersion(s.hi, o.hi))
	}
	panic(fmt.Sprintf("canary - unknown version set %T", other))
}

// IntersectInverse computes s ∩ ¬other. The exact residual of a range around
// another range can be two disjoint intervals; only single-interval cases
// exist here, so when the subtrahend splits the receiver the left residual is
// kept if the subtrahend's lower bound lies above the receiver's, and the
// right residual otherwise.
func (s rangeSet) IntersectInverse(other VersionSet) VersionSet {
	switch o := other.(type) {
	case anySet:
		return noVersions
	case emptySet:
		return s
	case exactSet:
		if !s.Contains(o.v) {
			return s
		}
		if o.v.GreaterThan(s.lo) {
			return mkrange(s.lo, o.v)
		}
		// The removed version sits on the lower bound; the true residual
		// (lo, hi) is open below and not representable, keep the range.
		return s
	case rangeSet:
		if o.lo.GreaterThan(s.lo) {
			return mkrange(s.lo, minVersion(s.hi, o.lo))
		}
		return mkrange(maxVersion(s.lo, o.hi), s.hi)
	}
	panic(fmt.Sprintf("canary - unknown version set %T", other))
}

func (s rangeSet) Identical(other VersionSet) bool {
	o, ok := other.(rangeSet)
	return ok && s.lo.Equal(o.lo) && s.hi.Equal(o.hi)
}

// subsetOf indicates if every member of a is also a member of b.
func subsetOf(a, b VersionSet) bool {
	return a.Intersect(b).Identical(a)
}

// disjointSets indicates if a and b share no members.
func disjointSets(a, b VersionSet) bool {
	return a.Intersect(b).Identical(noVersions)
}
