package pubgrub

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// A Requirement is the constraint one package places on another: a set of
// admissible versions, a fixed opaque revision, or an unversioned (local)
// binding. Set algebra is only defined between version-set requirements;
// every other combination is non-intersectable.
type Requirement interface {
	fmt.Stringer
	// Identical indicates structural equality with the provided requirement.
	Identical(Requirement) bool
	_requirement()
}

func (versionSetRequirement) _requirement()  {}
func (revisionRequirement) _requirement()    {}
func (unversionedRequirement) _requirement() {}

// VersionSetRequirement wraps a version set as a requirement.
func VersionSetRequirement(vs VersionSet) Requirement {
	return versionSetRequirement{vs: vs}
}

// RevisionRequirement pins a package to an opaque revision identifier.
func RevisionRequirement(rev string) Requirement {
	return revisionRequirement{rev: rev}
}

// UnversionedRequirement marks a dependency with no version discipline at
// all, e.g. a local checkout.
func UnversionedRequirement() Requirement {
	return unversionedRequirement{}
}

type versionSetRequirement struct {
	vs VersionSet
}

func (r versionSetRequirement) String() string {
	return r.vs.String()
}

func (r versionSetRequirement) Identical(other Requirement) bool {
	o, ok := other.(versionSetRequirement)
	return ok && r.vs.Identical(o.vs)
}

// VersionSet returns the wrapped set.
func (r versionSetRequirement) VersionSet() VersionSet {
	return r.vs
}

type revisionRequirement struct {
	rev string
}

func (r revisionRequirement) String() string {
	return "revision:" + r.rev
}

func (r revisionRequirement) Identical(other Requirement) bool {
	o, ok := other.(revisionRequirement)
	return ok && r.rev == o.rev
}

type unversionedRequirement struct{}

func (unversionedRequirement) String() string {
	return "unversioned"
}

func (unversionedRequirement) Identical(other Requirement) bool {
	_, ok := other.(unversionedRequirement)
	return ok
}

// requirementSet extracts the version set from a requirement, if it has one.
func requirementSet(r Requirement) (VersionSet, bool) {
	vr, ok := r.(versionSetRequirement)
	if !ok {
		return nil, false
	}
	return vr.vs, true
}

// ParseRequirement reads the requirement grammar used by registry files and
// test fixtures:
//
//	*                  any version
//	^1.2.3             caret range [1.2.3, 2.0.0)
//	1.2.3              exactly 1.2.3
//	1.2.3..2.5.0       half-open range [1.2.3, 2.5.0)
//	revision:deadbeef  opaque revision
//	unversioned        unversioned binding
func ParseRequirement(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, errors.New("empty requirement")
	case s == "*":
		return VersionSetRequirement(AnyVersions()), nil
	case s == "unversioned":
		return UnversionedRequirement(), nil
	case strings.HasPrefix(s, "revision:"):
		rev := strings.TrimPrefix(s, "revision:")
		if rev == "" {
			return nil, errors.New("empty revision requirement")
		}
		return RevisionRequirement(rev), nil
	case strings.HasPrefix(s, "^"):
		lo, err := semver.NewVersion(strings.TrimPrefix(s, "^"))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing caret requirement %q", s)
		}
		return VersionSetRequirement(VersionRange(lo, nextMajor(lo))), nil
	case strings.Contains(s, ".."):
		parts := strings.SplitN(s, "..", 2)
		lo, err := semver.NewVersion(parts[0])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing range lower bound %q", parts[0])
		}
		hi, err := semver.NewVersion(parts[1])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing range upper bound %q", parts[1])
		}
		if !lo.LessThan(hi) {
			return nil, errors.Errorf("range %q is empty", s)
		}
		return VersionSetRequirement(VersionRange(lo, hi)), nil
	default:
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing requirement %q", s)
		}
		return VersionSetRequirement(ExactVersion(v)), nil
	}
}
