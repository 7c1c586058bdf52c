package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/datalogdb"
)

func TestTableAssertAndScan(t *testing.T) {
	tbl := NewTable("parent", 2)
	require.NoError(t, tbl.Assert(datalog.Tuple{"alice", "bob"}))
	require.NoError(t, tbl.Assert(datalog.Tuple{"bob", "carol"}))

	scan := tbl.Scan()
	var rows []datalog.Tuple
	for {
		row, ok := scan.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)

	scan.Reset()
	row, ok := scan.Next()
	require.True(t, ok)
	require.Equal(t, datalog.Tuple{"alice", "bob"}, row)
}

func TestTableAssertArityMismatch(t *testing.T) {
	tbl := NewTable("parent", 2)
	err := tbl.Assert(datalog.Tuple{"alice"})
	require.Error(t, err)
	var arityErr *datalog.ArityMismatchError
	require.ErrorAs(t, err, &arityErr)
	require.Equal(t, 2, arityErr.Expected)
	require.Equal(t, 1, arityErr.Got)
}

func TestViewAddRuleRejectsUnsafe(t *testing.T) {
	v := NewView("ancestor", 2)
	rule := datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Z")}},
		Body: []datalog.CompoundTerm{
			{Relation: "parent", Params: []datalog.AtomicTerm{datalog.Variable("X"), datalog.Variable("Y")}},
		},
	}
	err := v.AddRule(rule)
	require.Error(t, err)
	require.Empty(t, v.Rules)
}

func TestViewAddRuleRejectsArityMismatch(t *testing.T) {
	v := NewView("ancestor", 2)
	rule := datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{datalog.Variable("X")}},
	}
	err := v.AddRule(rule)
	require.Error(t, err)
}

func TestRelationAsTableAndAsView(t *testing.T) {
	rel := &Relation{Table: NewTable("parent", 2)}
	require.True(t, rel.IsExtensional())
	_, err := rel.AsView()
	require.Error(t, err)
	_, err = rel.AsTable()
	require.NoError(t, err)
}
