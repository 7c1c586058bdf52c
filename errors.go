package datalog

import (
	"fmt"

	"github.com/pkg/errors"
)

// LexerError reports a failure in an upstream lexer. The core never
// constructs one itself; the type exists so a driver sitting in front of
// this engine can fold its own lexing errors into the same taxonomy.
type LexerError struct{ Reason string }

func (e *LexerError) Error() string { return "lexer: " + e.Reason }

// ParserError reports a failure in an upstream parser. Like LexerError,
// the core never raises one; it is surfaced, not produced, here.
type ParserError struct{ Reason string }

func (e *ParserError) Error() string { return "parser: " + e.Reason }

// MalformedLineError reports a line (fact, rule, or query) that is
// syntactically well typed but violates a semantic rule, such as the
// safety requirement that every head variable appear in the body.
type MalformedLineError struct{ Reason string }

func (e *MalformedLineError) Error() string { return "malformed line: " + e.Reason }

// NotExtensionalError reports an attempt to assert a fact into a relation
// that is already declared as a view (intensional).
type NotExtensionalError struct{ Relation string }

func (e *NotExtensionalError) Error() string {
	return fmt.Sprintf("relation %q is not extensional", e.Relation)
}

// NotIntensionalError reports an attempt to assert a rule for a relation
// that is already declared as a table (extensional).
type NotIntensionalError struct{ Relation string }

func (e *NotIntensionalError) Error() string {
	return fmt.Sprintf("relation %q is not intensional", e.Relation)
}

// ArityMismatchError reports a tuple or pattern whose argument count does
// not match the arity already established for a relation.
type ArityMismatchError struct {
	Relation       string
	Expected, Got int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("relation %q: arity mismatch: expected %d, got %d", e.Relation, e.Expected, e.Got)
}

// StorageError wraps a failure from the persistence layer (I/O, decode).
// Cause recovers the underlying error, mirroring error.rs's cause().
type StorageError struct{ Inner error }

func (e *StorageError) Error() string { return "storage: " + e.Inner.Error() }
func (e *StorageError) Unwrap() error { return e.Inner }
func (e *StorageError) Cause() error  { return e.Inner }

// WrapStorage wraps err (if non-nil) as a *StorageError, attaching msg as
// context via github.com/pkg/errors so the original error remains
// recoverable through errors.Cause.
func WrapStorage(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Inner: errors.Wrap(err, msg)}
}

// BadFilenameError reports a relation name that cannot be mapped to a
// well-formed path on disk.
type BadFilenameError struct{ Name string }

func (e *BadFilenameError) Error() string {
	return fmt.Sprintf("bad filename for relation %q", e.Name)
}

// UnknownRelationError reports a query or rule body term naming a
// relation that has never been asserted into the catalog, extensional or
// intensional. Unlike a cache miss this is a hard failure: a relation
// that has simply never been declared is not the same as one with zero
// rows.
type UnknownRelationError struct{ Relation string }

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("unknown relation %q", e.Relation)
}
