package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/datalogdb"
	"github.com/kevinawalsh/datalogdb/cache"
	"github.com/kevinawalsh/datalogdb/storage"
)

func mustTable(t *testing.T, eng *storage.Engine, name string, arity int, rows ...datalog.Tuple) {
	t.Helper()
	tbl, err := eng.GetOrCreateTable(name, arity)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, tbl.Assert(r))
	}
}

func TestPlanQueryExtensional(t *testing.T) {
	eng, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	mustTable(t, eng, "parent", 2, datalog.Tuple{"alice", "bob"}, datalog.Tuple{"bob", "carol"})

	p := NewPlanner(eng, cache.New())
	fp, err := p.Query("parent", []datalog.AtomicTerm{datalog.Atom("alice"), datalog.Variable("Y")})
	require.NoError(t, err)
	frame, ok := fp.Next()
	require.True(t, ok)
	require.Equal(t, "bob", frame["Y"])
	_, ok = fp.Next()
	require.False(t, ok)
}

func TestPlanQueryRecursiveView(t *testing.T) {
	eng, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	mustTable(t, eng, "parent", 2,
		datalog.Tuple{"alice", "bob"},
		datalog.Tuple{"bob", "carol"},
		datalog.Tuple{"carol", "dana"})

	view, err := eng.GetOrCreateView("ancestor", 2)
	require.NoError(t, err)
	require.NoError(t, view.AddRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}},
		Body: []datalog.CompoundTerm{
			{Relation: "parent", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}},
		},
	}))
	require.NoError(t, view.AddRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}},
		Body: []datalog.CompoundTerm{
			{Relation: "parent", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Z")}},
			{Relation: "ancestor", Params: []datalog.AtomicTerm{datalog.Variable("Z"), datalog.Variable("Y")}},
		},
	}))

	vc := cache.New()
	p := NewPlanner(eng, vc)
	fp, err := p.Query("ancestor", []datalog.AtomicTerm{datalog.Atom("alice"), datalog.Variable("Y")})
	require.NoError(t, err)

	var got []string
	for {
		f, ok := fp.Next()
		if !ok {
			break
		}
		got = append(got, f["Y"])
	}
	require.ElementsMatch(t, []string{"bob", "carol", "dana"}, got)

	// After the query is drained the cache holds every derived ancestor
	// pair, not just those matching this query's pattern, so a later query
	// against the same view can be served from it.
	cached, ok := vc.ReadCache("ancestor")
	require.True(t, ok)
	require.Len(t, cached, 6)
}

func TestPlanQueryCacheInvalidatedAfterAssert(t *testing.T) {
	eng, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	mustTable(t, eng, "parent", 2, datalog.Tuple{"alice", "bob"})

	view, err := eng.GetOrCreateView("ancestor", 2)
	require.NoError(t, err)
	require.NoError(t, view.AddRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}},
		Body: []datalog.CompoundTerm{
			{Relation: "parent", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}},
		},
	}))

	vc := cache.New()
	p := NewPlanner(eng, vc)
	fp, err := p.Query("ancestor", []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")})
	require.NoError(t, err)
	require.Len(t, drainFrames(fp), 1)

	tbl, ok := eng.GetRelation("parent")
	require.True(t, ok)
	table, err := tbl.AsTable()
	require.NoError(t, err)
	require.NoError(t, table.Assert(datalog.Tuple{"bob", "carol"}))
	vc.Invalidate("parent")

	fp2, err := p.Query("ancestor", []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")})
	require.NoError(t, err)
	require.Len(t, drainFrames(fp2), 2)
}

func drainFrames(f FramePlan) []datalog.Frame {
	var out []datalog.Frame
	for {
		v, ok := f.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestPlanQueryMutualRecursion(t *testing.T) {
	eng, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	mustTable(t, eng, "edge", 2, datalog.Tuple{"a", "b"}, datalog.Tuple{"b", "c"})

	even, err := eng.GetOrCreateView("even_path", 2)
	require.NoError(t, err)
	odd, err := eng.GetOrCreateView("odd_path", 2)
	require.NoError(t, err)

	x, y, z := datalog.Variable("X"), datalog.Variable("Y"), datalog.Variable("Z")
	// odd_path(X,Y) :- edge(X,Y).
	require.NoError(t, odd.AddRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "odd_path", Params: []datalog.AtomicTerm{x, y}},
		Body: []datalog.CompoundTerm{{Relation: "edge", Params: []datalog.AtomicTerm{x, y}}},
	}))
	// odd_path(X,Y) :- edge(X,Z), even_path(Z,Y).
	require.NoError(t, odd.AddRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "odd_path", Params: []datalog.AtomicTerm{x, y}},
		Body: []datalog.CompoundTerm{
			{Relation: "edge", Params: []datalog.AtomicTerm{x, z}},
			{Relation: "even_path", Params: []datalog.AtomicTerm{z, y}},
		},
	}))
	// even_path(X,Y) :- edge(X,Z), odd_path(Z,Y).
	require.NoError(t, even.AddRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "even_path", Params: []datalog.AtomicTerm{x, y}},
		Body: []datalog.CompoundTerm{
			{Relation: "edge", Params: []datalog.AtomicTerm{x, z}},
			{Relation: "odd_path", Params: []datalog.AtomicTerm{z, y}},
		},
	}))

	p := NewPlanner(eng, cache.New())
	fp, err := p.Query("odd_path", []datalog.AtomicTerm{datalog.Atom("a"), datalog.Variable("Y")})
	require.NoError(t, err)
	got := drainFrames(fp)
	var ys []string
	for _, f := range got {
		ys = append(ys, f["Y"])
	}
	require.Contains(t, ys, "b")
}
