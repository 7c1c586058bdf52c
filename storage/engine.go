package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/kevinawalsh/datalogdb"
)

// validName matches relation names that are safe to turn into a filename
// directly: this is the filename half of BadFilenameError.
var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Catalog maps relation names to relations. Every name in a Catalog is
// either extensional or intensional for the Catalog's entire lifetime.
type Catalog struct {
	relations map[string]*Relation
}

func newCatalog() *Catalog {
	return &Catalog{relations: make(map[string]*Relation)}
}

// Engine is the on-disk store: a Catalog, a directory it persists to, and
// a dirty set recording which relations have unflushed mutations. All
// access goes through a single RWMutex: queries take RLock for the
// lifetime of their answer stream, assertions take Lock.
type Engine struct {
	mu       sync.RWMutex
	dataDir  string
	catalog  *Catalog
	dirty    map[string]bool
	poisoned bool
}

// Open loads every relation file already present in dataDir (creating the
// directory if absent) into a fresh Engine.
func Open(dataDir string) (*Engine, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, datalog.WrapStorage(err, "creating data directory")
	}
	e := &Engine{
		dataDir: dataDir,
		catalog: newCatalog(),
		dirty:   make(map[string]bool),
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, datalog.WrapStorage(err, "reading data directory")
	}
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".json" {
			continue
		}
		name := ent.Name()[:len(ent.Name())-len(".json")]
		rel, err := loadRelation(dataDir, name)
		if err != nil {
			return nil, err
		}
		e.catalog.relations[name] = rel
	}
	return e, nil
}

// checkPoisoned is consulted, under lock, by RLock and Lock: a panic
// recovered elsewhere marks the engine permanently unusable, the Go analog
// of a poisoned lock, and every later RLock or Lock fails.
func (e *Engine) checkPoisoned() error {
	if e.poisoned {
		return &datalog.StorageError{Inner: errFault}
	}
	return nil
}

var errFault = &datalog.MalformedLineError{Reason: "engine poisoned by a prior panic"}

// Poison marks the engine permanently unusable. Called by the background
// writer when it recovers a panic.
func (e *Engine) Poison() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.poisoned = true
}

// RLock acquires the engine's shared lock for the duration of a query's
// answer stream. The caller must call RUnlock when done.
func (e *Engine) RLock() error {
	e.mu.RLock()
	if e.poisoned {
		e.mu.RUnlock()
		return e.checkPoisoned()
	}
	return nil
}

// RUnlock releases the shared lock acquired by RLock.
func (e *Engine) RUnlock() { e.mu.RUnlock() }

// Lock acquires the engine's exclusive lock for an assertion.
func (e *Engine) Lock() error {
	e.mu.Lock()
	if e.poisoned {
		e.mu.Unlock()
		return e.checkPoisoned()
	}
	return nil
}

// Unlock releases the exclusive lock acquired by Lock.
func (e *Engine) Unlock() { e.mu.Unlock() }

// GetRelation looks up a relation by name. Caller must hold RLock or Lock.
func (e *Engine) GetRelation(name string) (*Relation, bool) {
	r, ok := e.catalog.relations[name]
	return r, ok
}

// Relations returns every relation name currently in the catalog. Caller
// must hold RLock or Lock.
func (e *Engine) Relations() []string {
	names := make([]string, 0, len(e.catalog.relations))
	for n := range e.catalog.relations {
		names = append(names, n)
	}
	return names
}

// GetOrCreateTable returns the named table, creating an empty extensional
// relation of the given arity if it does not yet exist, or an error if the
// name is already intensional or has a different arity. Caller must hold
// Lock.
func (e *Engine) GetOrCreateTable(name string, arity int) (*Table, error) {
	if !validName.MatchString(name) {
		return nil, &datalog.BadFilenameError{Name: name}
	}
	rel, ok := e.catalog.relations[name]
	if !ok {
		t := NewTable(name, arity)
		e.catalog.relations[name] = &Relation{Table: t}
		e.markDirty(name)
		return t, nil
	}
	t, err := rel.AsTable()
	if err != nil {
		return nil, err
	}
	if t.Arity != arity {
		return nil, &datalog.ArityMismatchError{Relation: name, Expected: t.Arity, Got: arity}
	}
	return t, nil
}

// GetOrCreateView returns the named view, creating an empty intensional
// relation of the given arity if it does not yet exist, or an error if the
// name is already extensional or has a different arity. Caller must hold
// Lock.
func (e *Engine) GetOrCreateView(name string, arity int) (*View, error) {
	if !validName.MatchString(name) {
		return nil, &datalog.BadFilenameError{Name: name}
	}
	rel, ok := e.catalog.relations[name]
	if !ok {
		v := NewView(name, arity)
		e.catalog.relations[name] = &Relation{View: v}
		e.markDirty(name)
		return v, nil
	}
	v, err := rel.AsView()
	if err != nil {
		return nil, err
	}
	if v.Arity != arity {
		return nil, &datalog.ArityMismatchError{Relation: name, Expected: v.Arity, Got: arity}
	}
	return v, nil
}

// markDirty records that a relation has pending changes not yet flushed to
// disk. Caller must hold Lock.
func (e *Engine) markDirty(name string) { e.dirty[name] = true }

// MarkDirty is the exported form, used by callers (e.g. the assertion
// path) that mutate a relation returned by GetOrCreate*.
func (e *Engine) MarkDirty(name string) { e.markDirty(name) }

// DataDir returns the directory this engine persists into.
func (e *Engine) DataDir() string { return e.dataDir }
