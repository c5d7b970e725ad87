package pubgrub

import "fmt"

// An Assignment is one entry in the partial solution's chronology: either a
// decision (a concrete version was chosen for a package) or a derivation (a
// term forced by unit propagation, with the incompatibility that forced it
// as its cause).
type Assignment struct {
	Term          Term
	DecisionLevel int
	// Cause is the propagating incompatibility for derivations; nil for
	// decisions.
	Cause      *Incompatibility
	IsDecision bool
}

func (a Assignment) String() string {
	if a.IsDecision {
		return fmt.Sprintf("decision %s @%d", a.Term, a.DecisionLevel)
	}
	return fmt.Sprintf("derivation %s @%d due to %s", a.Term, a.DecisionLevel, a.Cause)
}

// A decision term is an exact version, or an opaque fixed binding (revision
// or unversioned); anything else is a solver bug.
func decision(term Term, level int) Assignment {
	if vs, ok := requirementSet(term.Requirement); ok {
		if _, exact := vs.(exactSet); !exact {
			panic(fmt.Sprintf("canary - decision term %s is not an exact version", term))
		}
	}
	return Assignment{Term: term, DecisionLevel: level, IsDecision: true}
}

func derivation(term Term, cause *Incompatibility, level int) Assignment {
	return Assignment{Term: term, DecisionLevel: level, Cause: cause}
}
