package plan

import (
	"fmt"

	"github.com/kevinawalsh/datalogdb"
)

// ExtensionalScan wraps a storage.TableScan-shaped iterator of ground
// tuples, lifting it to a TuplePlan. It is the leaf of every plan that
// bottoms out in a table.
type ExtensionalScan struct {
	src interface {
		Next() (datalog.Tuple, bool)
		Reset()
	}
}

// NewExtensionalScan wraps src (typically a *storage.TableScan).
func NewExtensionalScan(src interface {
	Next() (datalog.Tuple, bool)
	Reset()
}) *ExtensionalScan {
	return &ExtensionalScan{src: src}
}

func (s *ExtensionalScan) Next() (datalog.Tuple, bool) { return s.src.Next() }
func (s *ExtensionalScan) Reset()                      { s.src.Reset() }

// Pattern is a compound term's parameter list used to match tuples: each
// position is either a bound atom (the tuple's value at that position
// must equal it) or a variable (the tuple's value is bound to it,
// consistently with any other occurrence of the same variable in the
// pattern).
type Pattern struct {
	Params []datalog.AtomicTerm
}

// Match attempts to unify tuple against the pattern, returning the
// resulting bindings. It fails if an atom position disagrees with the
// tuple, or if a variable appears twice in the pattern bound to two
// different tuple values.
func (p Pattern) Match(tuple datalog.Tuple) (datalog.Frame, bool) {
	if len(tuple) != len(p.Params) {
		return nil, false
	}
	frame := make(datalog.Frame)
	for i, term := range p.Params {
		val := tuple[i]
		switch t := term.(type) {
		case datalog.Atom:
			if string(t) != val {
				return nil, false
			}
		case datalog.Variable:
			name := string(t)
			if bound, ok := frame[name]; ok {
				if bound != val {
					return nil, false
				}
			} else {
				frame[name] = val
			}
		}
	}
	return frame, true
}

// PatternMatch filters and rewrites a TuplePlan through a Pattern,
// producing a FramePlan of the bindings each matching tuple induces.
type PatternMatch struct {
	src     TuplePlan
	pattern Pattern
}

// NewPatternMatch builds a PatternMatch over src.
func NewPatternMatch(src TuplePlan, pattern Pattern) *PatternMatch {
	return &PatternMatch{src: src, pattern: pattern}
}

func (p *PatternMatch) Next() (datalog.Frame, bool) {
	for {
		tuple, ok := p.src.Next()
		if !ok {
			return nil, false
		}
		if frame, ok := p.pattern.Match(tuple); ok {
			return frame, true
		}
	}
}

func (p *PatternMatch) Reset() { p.src.Reset() }

// Project reads a rule head's pattern out of a stream of bindings,
// turning each fully-bound Frame back into a ground Tuple. This is the
// frame-to-tuple projection step of evaluating an intensional relation:
// every head parameter is a Variable (View.AddRule rejects any rule whose
// head contains an atom), and rule safety (every head variable appears in
// the body) guarantees each one is bound in frame. A frame missing a named
// column is a planner bug, not a data condition, so Next panics rather
// than silently emitting an empty column.
type Project struct {
	src  FramePlan
	head Pattern
}

// NewProject builds a Project over src using head as the output shape.
func NewProject(src FramePlan, head Pattern) *Project {
	return &Project{src: src, head: head}
}

func (p *Project) Next() (datalog.Tuple, bool) {
	frame, ok := p.src.Next()
	if !ok {
		return nil, false
	}
	tuple := make(datalog.Tuple, len(p.head.Params))
	for i, term := range p.head.Params {
		v, ok := term.(datalog.Variable)
		if !ok {
			panic(fmt.Sprintf("Project: head parameter %v is not a variable", term))
		}
		val, ok := frame[string(v)]
		if !ok {
			panic(fmt.Sprintf("Project: frame missing binding for head variable %q", v))
		}
		tuple[i] = val
	}
	return tuple, true
}

func (p *Project) Reset() { p.src.Reset() }
