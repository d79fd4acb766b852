// Package cache wraps a GraphStore with LRU caches for taxa and child lists.
// Lineage walks hit the same upper ranks on almost every request, so those
// lookups rarely reach the backend.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// DefaultSize is the per-cache entry count used when none is configured.
const DefaultSize = 4096

// Graph is a caching taxonomy.GraphStore. Misses are not cached.
type Graph struct {
	next     taxonomy.GraphStore
	taxa     *lru.Cache[string, taxonomy.Taxon]
	children *lru.Cache[string, []taxonomy.Taxon]
}

// NewGraph wraps next with caches holding up to size entries each.
func NewGraph(next taxonomy.GraphStore, size int) (*Graph, error) {
	if size <= 0 {
		size = DefaultSize
	}
	taxa, err := lru.New[string, taxonomy.Taxon](size)
	if err != nil {
		return nil, errors.Wrap(err, "create taxon cache")
	}
	children, err := lru.New[string, []taxonomy.Taxon](size)
	if err != nil {
		return nil, errors.Wrap(err, "create children cache")
	}
	return &Graph{next: next, taxa: taxa, children: children}, nil
}

// GetTaxon implements taxonomy.GraphStore.
func (g *Graph) GetTaxon(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	if t, ok := g.taxa.Get(id); ok {
		return &t, nil
	}
	t, err := g.next.GetTaxon(ctx, id)
	if err != nil {
		return nil, err
	}
	g.taxa.Add(id, *t)
	out := *t
	return &out, nil
}

// GetChildren implements taxonomy.GraphStore.
func (g *Graph) GetChildren(ctx context.Context, id string) ([]taxonomy.Taxon, error) {
	if c, ok := g.children.Get(id); ok {
		return append([]taxonomy.Taxon(nil), c...), nil
	}
	c, err := g.next.GetChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	g.children.Add(id, append([]taxonomy.Taxon(nil), c...))
	return c, nil
}

// GetParent implements taxonomy.GraphStore through the taxon cache.
func (g *Graph) GetParent(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	t, err := g.GetTaxon(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsRoot() {
		return nil, errors.Wrapf(errors.ErrNotFound, "parent of root %q", id)
	}
	return g.GetTaxon(ctx, t.ParentID)
}

// Stats reports the number of cached taxa and child lists.
func (g *Graph) Stats() (taxa, children int) {
	return g.taxa.Len(), g.children.Len()
}

// Purge drops every cached entry.
func (g *Graph) Purge() {
	g.taxa.Purge()
	g.children.Purge()
}
