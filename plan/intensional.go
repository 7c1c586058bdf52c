package plan

import "github.com/kevinawalsh/datalogdb"

// viewCache is the subset of cache.ViewCache the plan package depends on.
// Declaring it here keeps package plan from importing package cache;
// engine wires the concrete type in.
type viewCache interface {
	AddTuple(relation string, tuple datalog.Tuple)
}

// CachingWrapper records every tuple it passes through into a ViewCache
// entry for relation, so the next query against the same relation can be
// answered from the cache instead of recomputing the plan beneath it.
type CachingWrapper struct {
	src      TuplePlan
	cache    viewCache
	relation string
}

// NewCachingWrapper builds a CachingWrapper over src, caching emitted
// tuples under relation.
func NewCachingWrapper(src TuplePlan, cache viewCache, relation string) *CachingWrapper {
	return &CachingWrapper{src: src, cache: cache, relation: relation}
}

func (c *CachingWrapper) Next() (datalog.Tuple, bool) {
	t, ok := c.src.Next()
	if !ok {
		return nil, false
	}
	c.cache.AddTuple(c.relation, t)
	return t, true
}

func (c *CachingWrapper) Reset() { c.src.Reset() }
