package pubgrub

import "testing"

func TestPartialSolutionDecisionLevels(t *testing.T) {
	s := newPartialSolution()
	if s.decisionLevel() != -1 {
		t.Fatalf("fresh solution at level %d, want -1", s.decisionLevel())
	}

	s.decide("root", BoundToVersion(mkv("1.0.0")))
	if s.decisionLevel() != 0 {
		t.Errorf("after root decision at level %d, want 0", s.decisionLevel())
	}
	s.decide("a", BoundToVersion(mkv("1.2.0")))
	if s.decisionLevel() != 1 {
		t.Errorf("after second decision at level %d, want 1", s.decisionLevel())
	}

	for _, a := range s.assignments {
		if !a.IsDecision {
			t.Errorf("unexpected derivation %s", a)
		}
		if vs, ok := requirementSet(a.Term.Requirement); ok {
			if _, exact := vs.(exactSet); !exact {
				t.Errorf("decision %s is not an exact version", a)
			}
		}
	}
}

func TestPartialSolutionDecideFixedBindings(t *testing.T) {
	cause := newIncompatibility("root", rootCause{}, mkterm("root 1.0.0"), mkterm("not a revision:abc"))

	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))
	s.derive(mkterm("a revision:abc"), cause)
	s.derive(mkterm("b unversioned"), cause)

	s.decide("a", BoundToRevision("abc"))
	s.decide("b", BoundUnversioned())

	if s.decisionLevel() != 2 {
		t.Errorf("level after fixed-binding decisions = %d, want 2", s.decisionLevel())
	}
	if rev, ok := s.decisions["a"].Revision(); !ok || rev != "abc" {
		t.Errorf("decision for a = %s, want revision:abc", s.decisions["a"])
	}
	if !s.decisions["b"].IsUnversioned() {
		t.Errorf("decision for b = %s, want unversioned", s.decisions["b"])
	}

	// Deciding the fixed binding discharges its requirement.
	if !s.satisfies(mkterm("a revision:abc")) {
		t.Error("solution does not satisfy the revision term it decided")
	}
	if got := s.relation(mkterm("not a revision:abc")); got != RelationDisjoint {
		t.Errorf("relation with the negated revision term = %s, want disjoint", got)
	}
	if len(s.undecided()) != 0 {
		t.Errorf("undecided = %v, want none", s.undecided())
	}
}

func TestPartialSolutionRegisterSummaries(t *testing.T) {
	cause := newIncompatibility("root", rootCause{}, mkterm("root 1.0.0"), mkterm("not a ^1.0.0"))

	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))

	// A lone negative stays in the negative summary.
	s.derive(mkterm("not a ^2.0.0"), cause)
	if _, ok := s.positive["a"]; ok {
		t.Fatal("negative derivation landed in the positive summary")
	}
	if neg, ok := s.negative["a"]; !ok || neg.Positive {
		t.Fatalf("negative summary for a = %v, %v", neg, ok)
	}

	// A positive derivation absorbs the stored negative.
	s.derive(mkterm("a 1.0.0..3.0.0"), cause)
	if _, ok := s.negative["a"]; ok {
		t.Fatal("positive and negative summaries both present for a")
	}
	pos, ok := s.positive["a"]
	if !ok {
		t.Fatal("positive summary missing after positive derivation")
	}
	// [1.0.0, 3.0.0) minus ^2.0.0 leaves [1.0.0, 2.0.0).
	if want := mkterm("a 1.0.0..2.0.0"); !pos.equal(want) {
		t.Errorf("positive summary = %s, want %s", pos, want)
	}

	// Further positives tighten by intersection.
	s.derive(mkterm("a 1.1.0..4.0.0"), cause)
	if want := mkterm("a 1.1.0..2.0.0"); !s.positive["a"].equal(want) {
		t.Errorf("positive summary = %s, want %s", s.positive["a"], want)
	}
}

func TestPartialSolutionRelation(t *testing.T) {
	cause := newIncompatibility("root", rootCause{}, mkterm("root 1.0.0"), mkterm("not a ^1.0.0"))

	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))
	if got := s.relation(mkterm("b ^1.0.0")); got != RelationOverlap {
		t.Errorf("relation for unknown package = %s, want overlap", got)
	}

	s.derive(mkterm("a ^1.0.0"), cause)
	if got := s.relation(mkterm("a 1.2.0..1.4.0")); got != RelationOverlap {
		t.Errorf("relation with narrower term = %s, want overlap", got)
	}
	if got := s.relation(mkterm("a 1.0.0..3.0.0")); got != RelationSubset {
		t.Errorf("relation with wider term = %s, want subset", got)
	}
	if !s.satisfies(mkterm("a 1.0.0..3.0.0")) {
		t.Error("solution does not satisfy a term its positive summary implies")
	}
	if got := s.relation(mkterm("a ^2.0.0")); got != RelationDisjoint {
		t.Errorf("relation with disjoint term = %s, want disjoint", got)
	}
}

func TestPartialSolutionSatisfier(t *testing.T) {
	cause := newIncompatibility("root", rootCause{}, mkterm("root 1.0.0"), mkterm("not a ^1.0.0"))

	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))
	s.derive(mkterm("a 1.0.0..4.0.0"), cause)
	s.derive(mkterm("a 1.0.0..3.0.0"), cause)
	s.derive(mkterm("a ^1.0.0"), cause)

	// The first a-derivation, [1.0.0, 4.0.0), does not imply [1.0.0, 3.0.0);
	// the accumulated intersection does from the second a-derivation onward.
	a, idx := s.satisfier(mkterm("a 1.0.0..3.0.0"))
	if idx != 2 {
		t.Errorf("satisfier index = %d, want 2", idx)
	}
	if want := mkterm("a 1.0.0..3.0.0"); !a.Term.equal(want) {
		t.Errorf("satisfier term = %s, want %s", a.Term, want)
	}

	// A term the first derivation already implies is satisfied there.
	if _, idx := s.satisfier(mkterm("a 1.0.0..5.0.0")); idx != 1 {
		t.Errorf("satisfier index = %d, want 1", idx)
	}
}

func TestPartialSolutionSatisfierPanicsWhenAbsent(t *testing.T) {
	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))
	defer func() {
		if recover() == nil {
			t.Error("satisfier for an unsatisfied term did not panic")
		}
	}()
	s.satisfier(mkterm("a ^1.0.0"))
}

func TestPartialSolutionBacktrack(t *testing.T) {
	cause := newIncompatibility("root", rootCause{}, mkterm("root 1.0.0"), mkterm("not a ^1.0.0"))

	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))
	s.derive(mkterm("a ^1.0.0"), cause)
	s.decide("a", BoundToVersion(mkv("1.2.0")))
	s.derive(mkterm("b ^1.0.0"), cause)
	s.decide("b", BoundToVersion(mkv("1.0.0")))

	s.backtrack(0)

	if s.decisionLevel() != 0 {
		t.Errorf("level after backtrack = %d, want 0", s.decisionLevel())
	}
	for _, a := range s.assignments {
		if a.DecisionLevel > 0 {
			t.Errorf("assignment above target level survived: %s", a)
		}
	}
	if _, ok := s.decisions["a"]; ok {
		t.Error("decision for a survived backtrack")
	}
	if _, ok := s.decisions["b"]; ok {
		t.Error("decision for b survived backtrack")
	}

	// The summaries equal a replay of the surviving assignments: root's
	// decision and the first a-derivation.
	if want := mkterm("a ^1.0.0"); !s.positive["a"].equal(want) {
		t.Errorf("positive summary for a = %s, want %s", s.positive["a"], want)
	}
	if _, ok := s.positive["b"]; ok {
		t.Error("positive summary for b survived backtrack")
	}

	// Undecided reflects the replayed ordering.
	und := s.undecided()
	if len(und) != 1 || und[0].Package != "a" {
		t.Errorf("undecided = %v, want just a", und)
	}
}

func TestPartialSolutionUndecidedOrder(t *testing.T) {
	cause := newIncompatibility("root", rootCause{}, mkterm("root 1.0.0"), mkterm("not a ^1.0.0"))

	s := newPartialSolution()
	s.decide("root", BoundToVersion(mkv("1.0.0")))
	s.derive(mkterm("b ^1.0.0"), cause)
	s.derive(mkterm("a ^1.0.0"), cause)
	s.derive(mkterm("c ^1.0.0"), cause)
	s.decide("b", BoundToVersion(mkv("1.0.0")))

	und := s.undecided()
	if len(und) != 2 || und[0].Package != "a" || und[1].Package != "c" {
		t.Errorf("undecided = %v, want a then c in first-constrained order", und)
	}
}
