// Package engine wires the storage engine, view cache, and query planner
// into the database's driving surface: Process, Assert, Query, and Close.
package engine

import (
	"github.com/hashicorp/go-hclog"

	"github.com/kevinawalsh/datalogdb"
	"github.com/kevinawalsh/datalogdb/cache"
	"github.com/kevinawalsh/datalogdb/plan"
	"github.com/kevinawalsh/datalogdb/storage"
)

// Engine is the top-level database handle: it owns the on-disk catalog,
// the materialized view cache, and the background writer that persists
// dirty relations to disk.
type Engine struct {
	storage *storage.Engine
	cache   *cache.ViewCache
	writer  *storage.BackgroundWriter
	log     hclog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(log hclog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Open loads (or creates) a database rooted at dataDir and starts its
// background writer.
func Open(dataDir string, opts ...Option) (*Engine, error) {
	st, err := storage.Open(dataDir)
	if err != nil {
		return nil, err
	}
	vc := cache.New()
	e := &Engine{
		storage: st,
		cache:   vc,
		log:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	plan.InitializeViewCache(st, vc)
	e.writer = storage.NewBackgroundWriter(st, e.log)
	e.writer.Start()
	return e, nil
}

// Close stops the background writer and performs one final synchronous
// flush of every dirty relation.
func (e *Engine) Close() error {
	return e.writer.Stop()
}

// Answer is one binding produced by a query: a map from the query's
// variable names to the constants they were bound to.
type Answer = datalog.Frame

// Query evaluates term (which must be a CompoundTerm) against the
// catalog. The answers are collected eagerly into a slice: the engine's
// shared lock is held while they are computed and released before Query
// returns. No lazy answer stream is returned.
func (e *Engine) Query(term datalog.Term) ([]Answer, error) {
	compound, ok := term.(datalog.CompoundTerm)
	if !ok {
		return nil, &datalog.MalformedLineError{Reason: "query term must be a compound term"}
	}
	if err := e.storage.RLock(); err != nil {
		return nil, err
	}
	defer e.storage.RUnlock()

	p := plan.NewPlanner(e.storage, e.cache)
	fp, err := p.Query(compound.Relation, compound.Params)
	if err != nil {
		return nil, err
	}
	var out []Answer
	for {
		frame, ok := fp.Next()
		if !ok {
			break
		}
		out = append(out, frame)
	}
	return out, nil
}

// Process applies one driver Line: a Query is answered and returned, a
// Rule (a fact when its Body is empty, otherwise a view rule) is asserted.
func (e *Engine) Process(line datalog.Line) ([]Answer, error) {
	if line.Query != nil {
		return e.Query(*line.Query)
	}
	if line.Rule != nil {
		return nil, e.Assert(*line.Rule)
	}
	return nil, &datalog.MalformedLineError{Reason: "line has neither query nor rule"}
}

// Batch applies a sequence of lines in order, collecting the answers of
// any queries among them.
func (e *Engine) Batch(lines []datalog.Line) ([][]Answer, error) {
	var out [][]Answer
	for _, line := range lines {
		answers, err := e.Process(line)
		if err != nil {
			return out, err
		}
		if line.Query != nil {
			out = append(out, answers)
		}
	}
	return out, nil
}

// Assert adds rule to the catalog: as an extensional fact if Body is
// empty (failing with NotExtensionalError if the relation is a view),
// otherwise as an intensional rule (failing with NotIntensionalError if
// the relation is a table). Asserting invalidates the view cache for the
// relation and everything that transitively depends on it.
func (e *Engine) Assert(rule datalog.Rule) error {
	if err := e.storage.Lock(); err != nil {
		return err
	}
	defer e.storage.Unlock()

	name := rule.Head.Relation
	arity := len(rule.Head.Params)

	if len(rule.Body) == 0 {
		row := make(datalog.Tuple, arity)
		for i, p := range rule.Head.Params {
			atom, err := datalog.ToAtom(p)
			if err != nil {
				return err
			}
			row[i] = string(atom)
		}
		table, err := e.storage.GetOrCreateTable(name, arity)
		if err != nil {
			return err
		}
		if err := table.Assert(row); err != nil {
			return err
		}
		e.storage.MarkDirty(name)
		e.cache.Invalidate(name)
		return nil
	}

	view, err := e.storage.GetOrCreateView(name, arity)
	if err != nil {
		return err
	}
	if err := view.AddRule(rule); err != nil {
		return err
	}
	e.storage.MarkDirty(name)
	e.cache.Invalidate(name)
	return nil
}

// DataDir returns the directory this engine persists into.
func (e *Engine) DataDir() string { return e.storage.DataDir() }
