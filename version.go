package pubgrub

import "github.com/Masterminds/semver"

// PackageRef is the opaque identity of a package. Callers supply it; the
// solver only ever compares it for equality and uses it as a map key.
type PackageRef string

// PackageConstraint names a package together with the requirement placed on
// it, either by a depending package version or by the solve's inputs.
type PackageConstraint struct {
	Package     PackageRef
	Requirement Requirement
}

// nextMajor returns the smallest version of the next major release line,
// i.e. (v.major+1).0.0. It is the upper bound of the depending package's
// range, [v, nextMajor(v)), in the dependency incompatibilities the solver
// records for a chosen version v, even when v is not the latest available
// release.
func nextMajor(v *semver.Version) *semver.Version {
	nv := v.IncMajor()
	return &nv
}
