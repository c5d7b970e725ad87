package pubgrub

// ErrUnresolvable reports that no assignment of versions can satisfy the
// root package's transitive requirements. Incompatibility is the terminal,
// always-satisfied incompatibility conflict resolution bottomed out on; its
// cause graph carries the full derivation.
type ErrUnresolvable struct {
	Incompatibility *Incompatibility
	root            PackageRef
}

// Error renders the numbered derivation report for the terminal
// incompatibility.
func (e *ErrUnresolvable) Error() string {
	return explain(e.Incompatibility, e.root)
}
