// Package pubgrub implements a PubGrub version solver: given a root package
// and a provider of package containers, it either assigns one concrete
// version to every transitively reachable package or explains, via a
// derivation tree of incompatibilities, why no assignment exists.
package pubgrub

import (
	"github.com/Masterminds/semver"
	"github.com/sirupsen/logrus"
)

// rootVersion is the sentinel decision recorded for the root package. The
// root is always selected and never reported, so the literal never leaks.
var rootVersion = semver.MustParse("1.0.0")

// A Solver runs the version-solving algorithm.
type Solver interface {
	// Solve resolves root's transitive dependencies. Pins are pre-seeded
	// constraints from a previous resolution; the solver currently only
	// uses them as a prefetch hint.
	Solve(root PackageRef, pins []PackageConstraint) ([]Binding, error)
}

// NewSolver returns a Solver backed by the given provider. The delegate may
// be nil; a nil logger gets a default one.
func NewSolver(provider ContainerProvider, delegate Delegate, l *logrus.Logger) Solver {
	if l == nil {
		l = logrus.New()
	}
	return &solver{
		l:        l,
		delegate: delegate,
		provider: provider,
	}
}

// solver is a conflict-driven clause-learning solver over version terms.
type solver struct {
	l        *logrus.Logger
	delegate Delegate
	provider ContainerProvider

	root PackageRef
	pins []PackageConstraint

	solution   *partialSolution
	incompats  map[PackageRef][]*Incompatibility
	containers *containerCache
}

func (s *solver) Solve(root PackageRef, pins []PackageConstraint) ([]Binding, error) {
	s.root = root
	s.pins = pins
	s.solution = newPartialSolution()
	s.incompats = make(map[PackageRef][]*Incompatibility)
	s.containers = newContainerCache(s.provider, false)

	// The pins are not constraints on this solve, but they do name the
	// packages most likely to be needed.
	if len(pins) > 0 {
		hint := make([]PackageRef, 0, len(pins))
		for _, pin := range pins {
			hint = append(hint, pin.Package)
		}
		s.containers.prefetch(hint)
	}

	rootContainer, err := s.containers.get(root)
	if err != nil {
		return nil, err
	}
	rootDeps, err := rootContainer.GetUnversionedDependencies()
	if err != nil {
		return nil, err
	}
	for _, dep := range rootDeps {
		inc := newIncompatibility(root, rootCause{},
			Term{Package: root, Requirement: VersionSetRequirement(ExactVersion(rootVersion)), Positive: true},
			Term{Package: dep.Package, Requirement: dep.Requirement, Positive: false},
		)
		s.add(inc, StepLocationTopLevel)
	}
	s.decide(root, BoundToVersion(rootVersion), StepLocationTopLevel)

	if err := s.run(); err != nil {
		return nil, err
	}

	var bindings []Binding
	for _, a := range s.solution.assignments {
		if !a.IsDecision || a.Term.Package == root {
			continue
		}
		bindings = append(bindings, Binding{
			Package: a.Term.Package,
			Binding: s.solution.decisions[a.Term.Package],
		})
	}

	if s.l.Level >= logrus.InfoLevel {
		s.l.WithFields(logrus.Fields{
			"root":     root,
			"packages": len(bindings),
		}).Info("Found solution")
	}
	return bindings, nil
}

// run is the top-level loop: propagate the consequences of the last
// decision, then make the next one, until nothing is left undecided.
func (s *solver) run() error {
	next := s.root
	for {
		if err := s.propagate(next); err != nil {
			return err
		}
		pkg, done, err := s.makeDecision()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		next = pkg
	}
}

// positiveIncompatibilities returns the incompatibilities indexed under pkg
// whose term for pkg is positive, in registration order.
func (s *solver) positiveIncompatibilities(pkg PackageRef) []*Incompatibility {
	all := s.incompats[pkg]
	if len(all) == 0 {
		return nil
	}
	pos := make([]*Incompatibility, 0, len(all))
	for _, inc := range all {
		for _, t := range inc.terms {
			if t.Package == pkg {
				if t.Positive {
					pos = append(pos, inc)
				}
				break
			}
		}
	}
	return pos
}

// add registers an incompatibility under each of its terms' packages,
// suppressing structural duplicates.
func (s *solver) add(inc *Incompatibility, location StepLocation) {
	for _, t := range inc.terms {
		exists := false
		for _, known := range s.incompats[t.Package] {
			if known.equal(inc) {
				exists = true
				break
			}
		}
		if !exists {
			s.incompats[t.Package] = append(s.incompats[t.Package], inc)
		}
	}
	s.trace(GeneralTraceStep{
		Value:         inc,
		Kind:          StepIncompatibility,
		Location:      location,
		DecisionLevel: s.solution.decisionLevel(),
	})
}

func (s *solver) decide(pkg PackageRef, binding BoundVersion, location StepLocation) {
	s.solution.decide(pkg, binding)
	s.trace(GeneralTraceStep{
		Value:         Term{Package: pkg, Requirement: binding.requirement(), Positive: true},
		Kind:          StepDecision,
		Location:      location,
		DecisionLevel: s.solution.decisionLevel(),
	})
}

func (s *solver) derive(term Term, cause *Incompatibility, location StepLocation) {
	s.solution.derive(term, cause)
	s.trace(GeneralTraceStep{
		Value:         term,
		Kind:          StepDerivation,
		Location:      location,
		Cause:         cause.String(),
		DecisionLevel: s.solution.decisionLevel(),
	})
}

func (s *solver) trace(step TraceStep) {
	if s.delegate != nil {
		s.delegate.Trace(step)
	}
}

// propagationState is the outcome of checking one incompatibility against
// the partial solution.
type propagationState uint8

const (
	// propagationNone: already contradicted, or too many open terms.
	propagationNone propagationState = iota
	// propagationAlmostSatisfied: exactly one term was open; its inverse
	// has been derived.
	propagationAlmostSatisfied
	// propagationConflict: every term is satisfied.
	propagationConflict
)

// propagate performs unit propagation outward from pkg until a fixpoint.
// Packages to revisit are kept in a deduplicated FIFO; each package's
// positive incompatibilities are scanned newest-first, since later entries
// are the more general learned clauses.
func (s *solver) propagate(pkg PackageRef) error {
	changed := []PackageRef{pkg}
	queued := map[PackageRef]bool{pkg: true}

	for len(changed) > 0 {
		pkg := changed[0]
		changed = changed[1:]
		delete(queued, pkg)

		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"name":  pkg,
				"queue": len(changed),
			}).Debug("Propagating package")
		}

		pos := s.positiveIncompatibilities(pkg)
	incompatibilities:
		for i := len(pos) - 1; i >= 0; i-- {
			inc := pos[i]
			state, unsatisfied := s.propagateIncompatibility(inc)
			switch state {
			case propagationConflict:
				rootCauseInc, err := s.resolve(inc)
				if err != nil {
					return err
				}
				state, unsatisfied := s.propagateIncompatibility(rootCauseInc)
				if state != propagationAlmostSatisfied {
					panic("canary - conflict resolution root cause did not propagate to a single unsatisfied term")
				}
				changed = changed[:0]
				for p := range queued {
					delete(queued, p)
				}
				changed = append(changed, unsatisfied)
				queued[unsatisfied] = true
				break incompatibilities
			case propagationAlmostSatisfied:
				if !queued[unsatisfied] {
					changed = append(changed, unsatisfied)
					queued[unsatisfied] = true
				}
			}
		}
	}
	return nil
}

// propagateIncompatibility relates every term of inc to the partial
// solution. If all are satisfied the incompatibility is a conflict; if
// exactly one is open, its inverse is derived with inc as cause and that
// term's package is returned.
func (s *solver) propagateIncompatibility(inc *Incompatibility) (propagationState, PackageRef) {
	var unsatisfied *Term
	for i := range inc.terms {
		switch s.solution.relation(inc.terms[i]) {
		case RelationDisjoint:
			return propagationNone, ""
		case RelationOverlap:
			if unsatisfied != nil {
				return propagationNone, ""
			}
			unsatisfied = &inc.terms[i]
		}
	}
	if unsatisfied == nil {
		return propagationConflict, ""
	}

	s.derive(unsatisfied.Inverse(), inc, StepLocationUnitPropagation)
	return propagationAlmostSatisfied, unsatisfied.Package
}

// isCompleteFailure indicates conflict resolution has reduced the conflict
// to a statement about nothing, or about the root alone: there is no level
// left to backjump to.
func (s *solver) isCompleteFailure(inc *Incompatibility) bool {
	if len(inc.terms) == 0 {
		return true
	}
	return len(inc.terms) == 1 && inc.terms[0].Package == s.root && inc.terms[0].Positive
}

// resolve performs conflict-driven clause learning on a satisfied
// incompatibility. It repeatedly rewrites the conflict against the cause of
// its most recently satisfied term until the conflict would have fired at
// an earlier decision level, then backjumps there and returns the learned
// root cause. If the conflict reduces to a complete failure the solve is
// unresolvable.
func (s *solver) resolve(conflict *Incompatibility) (*Incompatibility, error) {
	if s.l.Level >= logrus.DebugLevel {
		s.l.WithFields(logrus.Fields{
			"conflict": conflict,
			"level":    s.solution.decisionLevel(),
		}).Debug("Beginning conflict resolution")
	}

	inc := conflict
	createdNew := false
	for !s.isCompleteFailure(inc) {
		var mostRecentTerm *Term
		var mostRecentSatisfier Assignment
		mostRecentIdx := -1
		var difference *Term
		previousLevel := 0

		for i := range inc.terms {
			t := inc.terms[i]
			satisfier, idx := s.solution.satisfier(t)
			switch {
			case mostRecentIdx < 0:
				mostRecentTerm = &inc.terms[i]
				mostRecentSatisfier = satisfier
				mostRecentIdx = idx
			case mostRecentIdx < idx:
				if mostRecentSatisfier.DecisionLevel > previousLevel {
					previousLevel = mostRecentSatisfier.DecisionLevel
				}
				mostRecentTerm = &inc.terms[i]
				mostRecentSatisfier = satisfier
				mostRecentIdx = idx
				difference = nil
			default:
				if satisfier.DecisionLevel > previousLevel {
					previousLevel = satisfier.DecisionLevel
				}
			}

			if mostRecentTerm == &inc.terms[i] {
				if d, ok := mostRecentSatisfier.Term.Difference(*mostRecentTerm); ok {
					difference = &d
					diffSatisfier, _ := s.solution.satisfier(d.Inverse())
					if diffSatisfier.DecisionLevel > previousLevel {
						previousLevel = diffSatisfier.DecisionLevel
					}
				} else {
					difference = nil
				}
			}
		}

		s.trace(ConflictResolutionTraceStep{
			Incompatibility: inc,
			Term:            *mostRecentTerm,
			Satisfier:       mostRecentSatisfier,
		})

		if previousLevel < mostRecentSatisfier.DecisionLevel || mostRecentSatisfier.Cause == nil {
			if s.l.Level >= logrus.DebugLevel {
				s.l.WithFields(logrus.Fields{
					"conflict": inc,
					"tolevel":  previousLevel,
				}).Debug("Backjumping")
			}
			s.solution.backtrack(previousLevel)
			if createdNew {
				s.add(inc, StepLocationConflictResolution)
			}
			return inc, nil
		}

		prior := mostRecentSatisfier.Cause
		newTerms := make([]Term, 0, len(inc.terms)+len(prior.terms))
		for i := range inc.terms {
			if &inc.terms[i] != mostRecentTerm {
				newTerms = append(newTerms, inc.terms[i])
			}
		}
		for _, t := range prior.terms {
			if t.Package != mostRecentSatisfier.Term.Package {
				newTerms = append(newTerms, t)
			}
		}
		if difference != nil {
			newTerms = append(newTerms, difference.Inverse())
		}
		inc = newIncompatibility(s.root, conflictCause{conflict: inc, other: prior}, newTerms...)
		createdNew = true

		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"conflict": inc,
			}).Debug("Rewrote conflict against prior cause")
		}
	}

	return nil, &ErrUnresolvable{Incompatibility: inc, root: s.root}
}

// makeDecision picks the next undecided package, chooses its highest
// admissible version, and registers that version's dependency
// incompatibilities. Returns done when nothing is undecided.
func (s *solver) makeDecision() (PackageRef, bool, error) {
	undecided := s.solution.undecided()
	if len(undecided) == 0 {
		return "", true, nil
	}
	pkgTerm := undecided[0]
	pkg := pkgTerm.Package

	// A package required at an opaque revision, or without version
	// discipline at all, is a fixed binding: there are no candidate
	// versions to search and no per-version dependencies to consult.
	switch req := pkgTerm.Requirement.(type) {
	case revisionRequirement:
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithFields(logrus.Fields{
				"name":     pkg,
				"revision": req.rev,
			}).Info("Accepted fixed revision binding")
		}
		s.decide(pkg, BoundToRevision(req.rev), StepLocationDecisionMaking)
		return pkg, false, nil
	case unversionedRequirement:
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithField("name", pkg).Info("Accepted unversioned binding")
		}
		s.decide(pkg, BoundUnversioned(), StepLocationDecisionMaking)
		return pkg, false, nil
	}

	container, err := s.containers.get(pkg)
	if err != nil {
		return "", false, err
	}

	version := bestVersion(container, pkgTerm)
	if version == nil {
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithFields(logrus.Fields{
				"name":       pkg,
				"constraint": pkgTerm.Requirement,
			}).Info("No available version satisfies constraint")
		}
		s.add(newIncompatibility(s.root, noVersionCause{}, pkgTerm), StepLocationDecisionMaking)
		return pkg, false, nil
	}

	deps, err := container.GetDependencies(version)
	if err != nil {
		return "", false, err
	}

	haveConflict := false
	for _, dep := range deps {
		inc := newIncompatibility(s.root, dependencyCause{pkg: pkg},
			Term{Package: pkg, Requirement: VersionSetRequirement(VersionRange(version, nextMajor(version))), Positive: true},
			Term{Package: dep.Package, Requirement: dep.Requirement, Positive: false},
		)
		s.add(inc, StepLocationDecisionMaking)

		satisfied := true
		for _, t := range inc.terms {
			if t.Package == pkg {
				continue
			}
			if !s.solution.satisfies(t) {
				satisfied = false
				break
			}
		}
		haveConflict = haveConflict || satisfied
	}

	if !haveConflict {
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithFields(logrus.Fields{
				"name":    pkg,
				"version": version,
			}).Info("Accepted package version")
		}
		s.decide(pkg, BoundToVersion(version), StepLocationDecisionMaking)
	}
	return pkg, false, nil
}

// bestVersion returns the highest container version inside the term's
// version set, or nil when the set has no available member. Terms without a
// version set never reach here; makeDecision binds them as fixed bindings.
func bestVersion(container Container, term Term) *semver.Version {
	vs, ok := requirementSet(term.Requirement)
	if !ok {
		return nil
	}
	versions := container.Versions(vs.Contains)
	if len(versions) == 0 {
		return nil
	}
	return versions[0]
}
