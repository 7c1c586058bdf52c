// Package plan implements the lazy, resettable operator tree a query
// compiles to, and the planner that builds one from a relation and a
// query pattern.
package plan

import "github.com/kevinawalsh/datalogdb"

// Plan is a lazy, resettable iterator: calling Reset rewinds it to its
// first element without re-running whatever produced those elements. It
// is the one interface every operator below implements, parameterized by
// the kind of value it produces (a ground Tuple, or a variable-binding
// Frame).
type Plan[T any] interface {
	Next() (T, bool)
	Reset()
}

// TuplePlan produces ground tuples: scans, caching wrappers, fixed-point
// evaluation, and the final projection of a rule body's bindings all
// produce a TuplePlan.
type TuplePlan = Plan[datalog.Tuple]

// FramePlan produces variable bindings: pattern matching and joins
// produce a FramePlan.
type FramePlan = Plan[datalog.Frame]

// VecPlan replays a fixed, owned slice of values. It is used to hand back
// a cache hit (the cache's owned tuples) or any other result that has
// already been fully materialized.
type VecPlan[T any] struct {
	items []T
	pos   int
}

// NewVecPlan wraps items for replay. The slice is not copied; callers
// should pass values the plan may treat as immutable for its lifetime.
func NewVecPlan[T any](items []T) *VecPlan[T] {
	return &VecPlan[T]{items: items}
}

func (p *VecPlan[T]) Next() (T, bool) {
	var zero T
	if p.pos >= len(p.items) {
		return zero, false
	}
	v := p.items[p.pos]
	p.pos++
	return v, true
}

func (p *VecPlan[T]) Reset() { p.pos = 0 }

// Chain concatenates several plans of the same kind into one sequential
// union: it exhausts each part in order before moving to the next.
// Resetting a Chain resets every part and returns to the first.
type Chain[T any] struct {
	parts []Plan[T]
	idx   int
}

// NewChain builds a Chain over parts, evaluated left to right.
func NewChain[T any](parts ...Plan[T]) *Chain[T] {
	return &Chain[T]{parts: parts}
}

func (c *Chain[T]) Next() (T, bool) {
	var zero T
	for c.idx < len(c.parts) {
		if v, ok := c.parts[c.idx].Next(); ok {
			return v, true
		}
		c.idx++
	}
	return zero, false
}

func (c *Chain[T]) Reset() {
	for _, p := range c.parts {
		p.Reset()
	}
	c.idx = 0
}

// SetScan iterates a fixed set of tuples by reference: it is how a
// recursive rule's self-reference reads the in-progress working set
// during naive bottom-up evaluation without copying it.
type SetScan struct {
	set []datalog.Tuple
	pos int
}

// NewSetScan wraps set for iteration. set is read, never copied;
// NewJointBottomUp rebuilds each recursive rule's plan, and so a fresh
// SetScan, every round, so growth between rounds is visible the next time
// the rule is planned, not mid-scan.
func NewSetScan(set []datalog.Tuple) *SetScan {
	return &SetScan{set: set}
}

func (s *SetScan) Next() (datalog.Tuple, bool) {
	if s.pos >= len(s.set) {
		return nil, false
	}
	v := s.set[s.pos]
	s.pos++
	return v, true
}

func (s *SetScan) Reset() { s.pos = 0 }
