package pubgrub

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Traceable is a value a trace step reports on: a Term or an
// *Incompatibility.
type Traceable interface {
	fmt.Stringer
	_traceable()
}

// StepKind classifies what a general trace step records.
type StepKind uint8

const (
	// StepIncompatibility reports an incompatibility entering the database.
	StepIncompatibility StepKind = iota
	// StepDecision reports a version decision.
	StepDecision
	// StepDerivation reports a term derived by unit propagation.
	StepDerivation
)

func (k StepKind) String() string {
	switch k {
	case StepIncompatibility:
		return "incompatibility"
	case StepDecision:
		return "decision"
	case StepDerivation:
		return "derivation"
	}
	return fmt.Sprintf("StepKind(%d)", uint8(k))
}

// StepLocation identifies the phase of the algorithm a step occurred in.
type StepLocation uint8

const (
	StepLocationTopLevel StepLocation = iota
	StepLocationUnitPropagation
	StepLocationDecisionMaking
	StepLocationConflictResolution
)

func (l StepLocation) String() string {
	switch l {
	case StepLocationTopLevel:
		return "top level"
	case StepLocationUnitPropagation:
		return "unit propagation"
	case StepLocationDecisionMaking:
		return "decision making"
	case StepLocationConflictResolution:
		return "conflict resolution"
	}
	return fmt.Sprintf("StepLocation(%d)", uint8(l))
}

// A TraceStep is one event in the stream a Delegate receives.
type TraceStep interface {
	_step()
}

// GeneralTraceStep reports database growth, decisions and derivations.
type GeneralTraceStep struct {
	Value         Traceable
	Kind          StepKind
	Location      StepLocation
	Cause         string
	DecisionLevel int
}

// ConflictResolutionTraceStep reports one rewrite during conflict
// resolution: the incompatibility being resolved, the term chosen as most
// recently satisfied, and the assignment that satisfied it.
type ConflictResolutionTraceStep struct {
	Incompatibility *Incompatibility
	Term            Term
	Satisfier       Assignment
}

func (GeneralTraceStep) _step()            {}
func (ConflictResolutionTraceStep) _step() {}

// A Delegate observes the solver's progress. Implementations must not
// retain the incompatibilities they are handed beyond the solve.
type Delegate interface {
	Trace(TraceStep)
}

// LogDelegate writes every trace step to a logrus logger at debug level.
type LogDelegate struct {
	Logger *logrus.Logger
}

// Trace implements Delegate.
func (d *LogDelegate) Trace(step TraceStep) {
	if d.Logger.Level < logrus.DebugLevel {
		return
	}
	switch s := step.(type) {
	case GeneralTraceStep:
		d.Logger.WithFields(logrus.Fields{
			"kind":     s.Kind,
			"location": s.Location,
			"value":    s.Value.String(),
			"cause":    s.Cause,
			"level":    s.DecisionLevel,
		}).Debug("Solver step")
	case ConflictResolutionTraceStep:
		d.Logger.WithFields(logrus.Fields{
			"incompatibility": s.Incompatibility.String(),
			"term":            s.Term.String(),
			"satisfier":       s.Satisfier.String(),
		}).Debug("Conflict resolution step")
	}
}
