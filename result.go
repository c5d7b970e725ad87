package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver"
)

type bindingKind uint8

const (
	boundVersion bindingKind = iota
	boundRevision
	boundUnversioned
)

// A BoundVersion is the concrete binding the solver produced for one
// package: a version, an opaque revision, or an unversioned marker.
type BoundVersion struct {
	kind     bindingKind
	version  *semver.Version
	revision string
}

// BoundToVersion binds to a concrete version.
func BoundToVersion(v *semver.Version) BoundVersion {
	if v == nil {
		panic("canary - binding to nil version")
	}
	return BoundVersion{kind: boundVersion, version: v}
}

// BoundToRevision binds to an opaque revision.
func BoundToRevision(rev string) BoundVersion {
	return BoundVersion{kind: boundRevision, revision: rev}
}

// BoundUnversioned marks a package bound without version discipline.
func BoundUnversioned() BoundVersion {
	return BoundVersion{kind: boundUnversioned}
}

// Version returns the bound version, if the binding is one.
func (b BoundVersion) Version() (*semver.Version, bool) {
	return b.version, b.kind == boundVersion
}

// Revision returns the bound revision, if the binding is one.
func (b BoundVersion) Revision() (string, bool) {
	return b.revision, b.kind == boundRevision
}

// IsUnversioned indicates an unversioned binding.
func (b BoundVersion) IsUnversioned() bool {
	return b.kind == boundUnversioned
}

// requirement returns the binding in requirement form, the shape a decision
// records in the partial solution.
func (b BoundVersion) requirement() Requirement {
	switch b.kind {
	case boundVersion:
		return VersionSetRequirement(ExactVersion(b.version))
	case boundRevision:
		return RevisionRequirement(b.revision)
	default:
		return UnversionedRequirement()
	}
}

func (b BoundVersion) String() string {
	switch b.kind {
	case boundVersion:
		return b.version.String()
	case boundRevision:
		return "revision:" + b.revision
	default:
		return "unversioned"
	}
}

// A Binding pairs a package with what the solver bound it to. The root
// package never appears in a solve's bindings.
type Binding struct {
	Package PackageRef
	Binding BoundVersion
}

func (b Binding) String() string {
	return fmt.Sprintf("%s %s", b.Package, b.Binding)
}
