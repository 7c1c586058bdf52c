package plan

import "github.com/kevinawalsh/datalogdb"

// tupleSet accumulates ground tuples in insertion order, deduplicating by
// value. It underlies both BottomUp and JointBottomUp's working sets.
type tupleSet struct {
	seen  map[string]bool
	order []datalog.Tuple
}

func newTupleSet(base []datalog.Tuple) *tupleSet {
	s := &tupleSet{seen: make(map[string]bool)}
	for _, t := range base {
		s.add(t)
	}
	return s
}

func (s *tupleSet) add(t datalog.Tuple) bool {
	k := datalog.TupleKey(t)
	if s.seen[k] {
		return false
	}
	s.seen[k] = true
	s.order = append(s.order, t)
	return true
}

// BottomUp holds the materialized, eagerly-computed fixed point of one
// relation belonging to a (possibly single-member) recursive component.
// It is the result type NewJointBottomUp hands back per relation;
// Next/Reset simply replay the already-computed tuples.
type BottomUp struct {
	*VecPlan[datalog.Tuple]
}

// JointRule is one recursive rule belonging to a mutually-recursive
// strongly-connected component: Relation names which view the rule's
// head belongs to, and Build compiles the rule body given the current
// working sets of every relation in the component.
type JointRule struct {
	Relation string
	Build    func(working map[string][]datalog.Tuple) TuplePlan
}

// NewJointBottomUp computes the simultaneous naive fixed point of a set of
// mutually recursive views: every rule in the component is re-evaluated
// each round against the previous round's working sets for all of them,
// until a full round adds nothing to any relation in the component. A
// relation with no recursive peers is simply a component of one, so the
// planner always uses this for intensional relations' fixed points,
// never a single-relation special case.
func NewJointBottomUp(base map[string][]datalog.Tuple, rules []JointRule) map[string]*BottomUp {
	sets := make(map[string]*tupleSet, len(base))
	for rel, tuples := range base {
		sets[rel] = newTupleSet(tuples)
	}
	for _, r := range rules {
		if _, ok := sets[r.Relation]; !ok {
			sets[r.Relation] = newTupleSet(nil)
		}
	}
	for changed := true; changed; {
		changed = false
		snapshot := make(map[string][]datalog.Tuple, len(sets))
		for rel, s := range sets {
			snapshot[rel] = append([]datalog.Tuple(nil), s.order...)
		}
		for _, r := range rules {
			p := r.Build(snapshot)
			dest := sets[r.Relation]
			for {
				t, ok := p.Next()
				if !ok {
					break
				}
				if dest.add(t) {
					changed = true
				}
			}
		}
	}
	out := make(map[string]*BottomUp, len(sets))
	for rel, s := range sets {
		out[rel] = &BottomUp{VecPlan: NewVecPlan(s.order)}
	}
	return out
}
