package storage

import "github.com/kevinawalsh/datalogdb"

// View holds every rule whose head names one intensional relation. All
// rules in a View must share the same head arity and relation name.
type View struct {
	Name  string
	Arity int
	Rules []datalog.Rule
}

// NewView creates an empty view of the given arity.
func NewView(name string, arity int) *View {
	return &View{Name: name, Arity: arity}
}

// AddRule appends a rule to the view, rejecting one whose head does not
// match the view's name and arity, or whose head variables are not all
// bound in its body.
func (v *View) AddRule(r datalog.Rule) error {
	if r.Head.Relation != v.Name {
		return &datalog.MalformedLineError{Reason: "rule head relation " + r.Head.Relation + " does not match view " + v.Name}
	}
	if len(r.Head.Params) != v.Arity {
		return &datalog.ArityMismatchError{Relation: v.Name, Expected: v.Arity, Got: len(r.Head.Params)}
	}
	for _, p := range r.Head.Params {
		if _, err := datalog.ToVariable(p); err != nil {
			return err
		}
	}
	if safe, bad := datalog.HeadVarsInBody(r); !safe {
		return &datalog.MalformedLineError{Reason: "unsafe rule: head variable " + string(bad) + " does not appear in body"}
	}
	v.Rules = append(v.Rules, r)
	return nil
}

// Relation is an extensional Table or an intensional View. Exactly one of
// Table, View is non-nil.
type Relation struct {
	Table *Table
	View  *View
}

// IsExtensional reports whether this relation is backed by a Table.
func (r *Relation) IsExtensional() bool { return r.Table != nil }

// IsIntensional reports whether this relation is backed by a View.
func (r *Relation) IsIntensional() bool { return r.View != nil }

// Name returns the relation's name regardless of kind.
func (r *Relation) Name() string {
	if r.Table != nil {
		return r.Table.Name
	}
	return r.View.Name
}

// Arity returns the relation's arity regardless of kind.
func (r *Relation) Arity() int {
	if r.Table != nil {
		return r.Table.Arity
	}
	return r.View.Arity
}

// AsTable returns the underlying Table, or a NotExtensionalError.
func (r *Relation) AsTable() (*Table, error) {
	if r.Table == nil {
		return nil, &datalog.NotExtensionalError{Relation: r.Name()}
	}
	return r.Table, nil
}

// AsView returns the underlying View, or a NotIntensionalError.
func (r *Relation) AsView() (*View, error) {
	if r.View == nil {
		return nil, &datalog.NotIntensionalError{Relation: r.Name()}
	}
	return r.View, nil
}
