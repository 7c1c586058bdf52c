package plan

import (
	"github.com/kevinawalsh/datalogdb"
	"github.com/kevinawalsh/datalogdb/storage"
)

// cacheReader is the subset of cache.ViewCache the planner depends on.
// Satisfied structurally by *cache.ViewCache; kept as an interface here
// so package plan never imports package cache.
type cacheReader interface {
	viewCache
	ReadCache(relation string) ([]datalog.Tuple, bool)
	AddDependency(on, dependent string)
}

// Planner compiles a query pattern against a relation in eng into a lazy
// FramePlan, consulting and populating vc as it goes.
type Planner struct {
	eng *storage.Engine
	vc  cacheReader
}

// NewPlanner builds a Planner over eng and vc. Caller must already hold
// eng's read or write lock for the planner's lifetime.
func NewPlanner(eng *storage.Engine, vc cacheReader) *Planner {
	return &Planner{eng: eng, vc: vc}
}

// Query looks the relation name up (extensional or intensional) and
// returns a FramePlan of every binding that satisfies params.
func (p *Planner) Query(name string, params []datalog.AtomicTerm) (FramePlan, error) {
	tuples, err := p.planRelation(name)
	if err != nil {
		return nil, err
	}
	return NewPatternMatch(tuples, Pattern{Params: params}), nil
}

// planRelation returns a TuplePlan over every tuple currently belonging
// to relation name, whether extensional or intensional, using the view
// cache to skip view evaluation when possible.
func (p *Planner) planRelation(name string) (TuplePlan, error) {
	if cached, ok := p.vc.ReadCache(name); ok {
		return NewVecPlan(cached), nil
	}
	rel, ok := p.eng.GetRelation(name)
	if !ok {
		return nil, &datalog.UnknownRelationError{Relation: name}
	}
	if rel.IsExtensional() {
		table, err := rel.AsTable()
		if err != nil {
			return nil, err
		}
		return NewExtensionalScan(table.Scan()), nil
	}
	return p.planView(name)
}

// callGraph builds, for every intensional relation currently in the
// catalog, the set of other intensional relations its rules' bodies
// reference. An edge v -> u means some rule with head v has a body term
// naming u.
func (p *Planner) callGraph() map[string][]string {
	graph := make(map[string][]string)
	for _, name := range p.eng.Relations() {
		rel, ok := p.eng.GetRelation(name)
		if !ok || !rel.IsIntensional() {
			continue
		}
		view, _ := rel.AsView()
		seen := make(map[string]bool)
		for _, rule := range view.Rules {
			for _, b := range rule.Body {
				other, ok := p.eng.GetRelation(b.Relation)
				if !ok || !other.IsIntensional() {
					continue
				}
				if !seen[b.Relation] {
					seen[b.Relation] = true
					graph[name] = append(graph[name], b.Relation)
				}
			}
		}
		if _, ok := graph[name]; !ok {
			graph[name] = nil
		}
	}
	return graph
}

// InitializeViewCache scans every intensional relation already in eng and
// declares its dependencies in vc, so the first query against any view
// does not pay for dependency bookkeeping that could have been done once
// up front. Queries also declare dependencies lazily as they plan, so
// this is an optimization, not a correctness requirement: a view added
// after Open is still wired up correctly the first time it is planned.
func InitializeViewCache(eng *storage.Engine, vc cacheReader) {
	for _, name := range eng.Relations() {
		rel, ok := eng.GetRelation(name)
		if !ok || !rel.IsIntensional() {
			continue
		}
		view, err := rel.AsView()
		if err != nil {
			continue
		}
		for _, rule := range view.Rules {
			for _, b := range rule.Body {
				vc.AddDependency(b.Relation, name)
			}
		}
	}
}

// planView builds the full-relation TuplePlan for one intensional
// relation: a non-recursive view becomes a Chain of per-rule projections;
// a recursive one (self-recursive, or a member of a multi-member strongly
// connected component) is evaluated by NewJointBottomUp over its whole
// component, a self-recursive view being a component of one.
func (p *Planner) planView(name string) (TuplePlan, error) {
	rel, ok := p.eng.GetRelation(name)
	if !ok {
		return nil, &datalog.UnknownRelationError{Relation: name}
	}
	view, err := rel.AsView()
	if err != nil {
		return nil, err
	}

	graph := p.callGraph()
	components := newTarjan(graph).run()
	component := componentOf(components, name)
	recursive := len(component) > 1 || hasSelfLoop(graph, name)

	if !recursive {
		plans := make([]TuplePlan, 0, len(view.Rules))
		for _, rule := range view.Rules {
			resolve := func(relName string) (TuplePlan, error) { return p.planRelation(relName) }
			rp, err := p.buildRulePlan(rule, resolve)
			if err != nil {
				return nil, err
			}
			plans = append(plans, rp)
		}
		inner := TuplePlan(NewChain(plans...))
		p.declareDependencies(name, view)
		return NewCachingWrapper(inner, p.vc, name), nil
	}

	if len(component) <= 1 {
		component = []string{name}
	}
	member := make(map[string]bool, len(component))
	for _, m := range component {
		member[m] = true
	}

	views := make(map[string]*storage.View, len(component))
	for _, m := range component {
		r, ok := p.eng.GetRelation(m)
		if !ok {
			continue
		}
		v, err := r.AsView()
		if err != nil {
			return nil, err
		}
		views[m] = v
		p.declareDependencies(m, v)
	}

	base := make(map[string][]datalog.Tuple, len(component))
	var joint []JointRule
	for m, v := range views {
		for _, rule := range v.Rules {
			if ruleReferencesSet(rule, member) {
				rule := rule
				relName := m
				joint = append(joint, JointRule{
					Relation: relName,
					Build: func(working map[string][]datalog.Tuple) TuplePlan {
						resolve := func(relName string) (TuplePlan, error) {
							if set, ok := working[relName]; ok && member[relName] {
								return NewSetScan(set), nil
							}
							return p.planRelation(relName)
						}
						rp, err := p.buildRulePlan(rule, resolve)
						if err != nil {
							return NewVecPlan[datalog.Tuple](nil)
						}
						return rp
					},
				})
			} else {
				resolve := func(relName string) (TuplePlan, error) { return p.planRelation(relName) }
				rp, err := p.buildRulePlan(rule, resolve)
				if err != nil {
					return nil, err
				}
				tuples := drain(rp)
				base[m] = append(base[m], tuples...)
			}
		}
	}

	results := NewJointBottomUp(base, joint)
	target, ok := results[name]
	if !ok {
		return NewVecPlan[datalog.Tuple](nil), nil
	}
	// NewJointBottomUp computes the fixed point for every member of the
	// component in one pass, not just name. Cache the other members' results
	// too, so a later query against one of them reuses this computation
	// instead of rerunning the whole joint fixed point from scratch.
	for m, plan := range results {
		if m == name {
			continue
		}
		for _, t := range drain(TuplePlan(plan)) {
			p.vc.AddTuple(m, t)
		}
	}
	return NewCachingWrapper(TuplePlan(target), p.vc, name), nil
}

// drain fully exhausts a TuplePlan into a slice. Used for the base-case
// (non-recursive) rules of a recursive component, whose results must be
// materialized once up front, and to copy the other component members'
// fixed points into the view cache.
func drain(p TuplePlan) []datalog.Tuple {
	var out []datalog.Tuple
	for {
		t, ok := p.Next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out
}

// ruleReferencesSet reports whether any body term of rule names a
// relation in set.
func ruleReferencesSet(rule datalog.Rule, set map[string]bool) bool {
	for _, b := range rule.Body {
		if set[b.Relation] {
			return true
		}
	}
	return false
}

// declareDependencies registers, in the view cache's dependency graph,
// that view's cached entry must be invalidated whenever any relation its
// rules read from changes.
func (p *Planner) declareDependencies(name string, view *storage.View) {
	for _, rule := range view.Rules {
		for _, b := range rule.Body {
			p.vc.AddDependency(b.Relation, name)
		}
	}
}

// buildRulePlan compiles one rule's body into a TuplePlan of the ground
// tuples it derives, given a resolver for what a body term's named
// relation produces (ordinarily planRelation; a SetScan over the current
// working set when the term refers back into the recursive component
// being evaluated).
func (p *Planner) buildRulePlan(rule datalog.Rule, resolve func(string) (TuplePlan, error)) (TuplePlan, error) {
	frames, err := p.buildBodyPlan(rule.Body, resolve)
	if err != nil {
		return nil, err
	}
	head := Pattern{Params: rule.Head.Params}
	return NewProject(frames, head), nil
}

// buildBodyPlan compiles a rule body (a conjunction of compound terms)
// into a FramePlan: each term becomes a PatternMatch over its resolved
// relation, and the terms are combined with a right-leaning chain of
// Joins, mirroring plan_joins.
func (p *Planner) buildBodyPlan(body []datalog.CompoundTerm, resolve func(string) (TuplePlan, error)) (FramePlan, error) {
	if len(body) == 0 {
		return NewVecPlan([]datalog.Frame{{}}), nil
	}
	matches := make([]FramePlan, len(body))
	for i, term := range body {
		tuples, err := resolve(term.Relation)
		if err != nil {
			return nil, err
		}
		matches[i] = NewPatternMatch(tuples, Pattern{Params: term.Params})
	}
	result := matches[len(matches)-1]
	for i := len(matches) - 2; i >= 0; i-- {
		result = NewJoin(matches[i], result)
	}
	return result, nil
}
