// Package storage holds extensional and intensional relations on disk: the
// ground-tuple Table, the rule-bodied View, their common Relation wrapper,
// the Catalog keyed by relation name, and the background writer that
// flushes dirty relations without ever waiting for the lock.
package storage

import (
	"fmt"

	"github.com/kevinawalsh/datalogdb"
)

// Table holds the ground tuples of one extensional relation. All rows
// share Arity columns for the table's lifetime.
type Table struct {
	Name  string
	Arity int
	Rows  []datalog.Tuple
}

// NewTable creates an empty table of the given arity.
func NewTable(name string, arity int) *Table {
	return &Table{Name: name, Arity: arity}
}

// Assert appends a ground tuple, rejecting one whose length does not match
// the table's arity.
func (t *Table) Assert(row datalog.Tuple) error {
	if len(row) != t.Arity {
		return &datalog.ArityMismatchError{Relation: t.Name, Expected: t.Arity, Got: len(row)}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// TableScan is a resettable iterator over a table's rows, borrowing
// directly from the table's backing slice: no row is copied during a scan.
type TableScan struct {
	rows []datalog.Tuple
	pos  int
}

// Scan returns a fresh scan over the table's current rows.
func (t *Table) Scan() *TableScan {
	return &TableScan{rows: t.Rows}
}

// Next returns the next row, or (nil, false) once exhausted.
func (s *TableScan) Next() (datalog.Tuple, bool) {
	if s.pos >= len(s.rows) {
		return nil, false
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true
}

// Reset rewinds the scan to its first row.
func (s *TableScan) Reset() { s.pos = 0 }

func (t *Table) String() string {
	return fmt.Sprintf("table %s/%d (%d rows)", t.Name, t.Arity, len(t.Rows))
}
