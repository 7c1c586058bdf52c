package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/datalogdb"
)

func drainTuples(t TuplePlan) []datalog.Tuple {
	var out []datalog.Tuple
	for {
		v, ok := t.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestVecPlanResets(t *testing.T) {
	p := NewVecPlan([]datalog.Tuple{{"a"}, {"b"}})
	require.Equal(t, []datalog.Tuple{{"a"}, {"b"}}, drainTuples(p))
	require.Empty(t, drainTuples(p))
	p.Reset()
	require.Equal(t, []datalog.Tuple{{"a"}, {"b"}}, drainTuples(p))
}

func TestChainConcatenatesAndResets(t *testing.T) {
	a := NewVecPlan([]datalog.Tuple{{"a"}})
	b := NewVecPlan([]datalog.Tuple{{"b"}, {"c"}})
	chain := NewChain[datalog.Tuple](a, b)
	require.Equal(t, []datalog.Tuple{{"a"}, {"b"}, {"c"}}, drainTuples(chain))
	chain.Reset()
	require.Equal(t, []datalog.Tuple{{"a"}, {"b"}, {"c"}}, drainTuples(chain))
}

func TestPatternMatchBindsAndFilters(t *testing.T) {
	src := NewVecPlan([]datalog.Tuple{{"alice", "bob"}, {"alice", "alice"}, {"bob", "carol"}})
	pattern := Pattern{Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("X")}}
	pm := NewPatternMatch(src, pattern)
	frame, ok := pm.Next()
	require.True(t, ok)
	require.Equal(t, "alice", frame["X"])
	_, ok = pm.Next()
	require.False(t, ok)
}

func TestJoinMergesOnSharedVariable(t *testing.T) {
	left := NewVecPlan([]datalog.Frame{{"X": "alice"}, {"X": "bob"}})
	right := NewVecPlan([]datalog.Frame{{"X": "alice", "Y": "carol"}, {"X": "dan", "Y": "erin"}})
	j := NewJoin(left, right)
	results := []datalog.Frame{}
	for {
		f, ok := j.Next()
		if !ok {
			break
		}
		results = append(results, f)
	}
	require.Len(t, results, 1)
	require.Equal(t, "alice", results[0]["X"])
	require.Equal(t, "carol", results[0]["Y"])
}

func TestProjectProducesGroundTuples(t *testing.T) {
	src := NewVecPlan([]datalog.Frame{{"X": "alice", "Y": "bob"}})
	head := Pattern{Params: []datalog.AtomicTerm{datalog.Variable("Y"), datalog.Variable("X")}}
	proj := NewProject(src, head)
	tuple, ok := proj.Next()
	require.True(t, ok)
	require.Equal(t, datalog.Tuple{"bob", "alice"}, tuple)
}

func TestBottomUpComputesTransitiveClosure(t *testing.T) {
	// parent(alice,bob). parent(bob,carol). parent(carol,dana).
	parent := []datalog.Tuple{{"alice", "bob"}, {"bob", "carol"}, {"carol", "dana"}}
	base := []datalog.Tuple{} // ancestor(X,Y) :- parent(X,Y) contributes nothing extra beyond parent itself here
	for _, p := range parent {
		base = append(base, p)
	}
	joint := []JointRule{
		{
			Relation: "ancestor",
			Build: func(working map[string][]datalog.Tuple) TuplePlan {
				// ancestor(X,Y) :- parent(X,Z), ancestor(Z,Y).
				parentScan := NewVecPlan(parent)
				ancestorSelf := NewSetScan(working["ancestor"])
				left := NewPatternMatch(parentScan, Pattern{Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Z")}})
				right := NewPatternMatch(ancestorSelf, Pattern{Params: []datalog.AtomicTerm{datalog.Variable("Z"), datalog.Variable("Y")}})
				joined := NewJoin(left, right)
				head := Pattern{Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}}
				return NewProject(joined, head)
			},
		},
	}
	results := NewJointBottomUp(map[string][]datalog.Tuple{"ancestor": base}, joint)
	result := drainTuples(results["ancestor"])
	require.Contains(t, result, datalog.Tuple{"alice", "dana"})
	require.Contains(t, result, datalog.Tuple{"alice", "carol"})
}
