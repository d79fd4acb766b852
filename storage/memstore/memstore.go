// Package memstore serves a namespace from memory. It backs tests and small
// datasets loaded straight from a dataset file.
package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// Store implements taxonomy.GraphStore, taxonomy.SearchIndex and
// taxonomy.AssociationIndex over one namespace held in memory.
// It is immutable after construction.
type Store struct {
	ns       string
	taxa     map[string]*taxonomy.Taxon
	children map[string][]string
	// byName holds every taxon in search order.
	byName []*taxonomy.Taxon

	byTaxon  map[string][]taxonomy.Association
	byObject map[string][]taxonomy.Association
}

// New builds a store for namespace ns. The taxa are assumed to form a valid
// tree (see dataset.ValidateTree).
func New(ns string, taxa []taxonomy.Taxon, assocs []taxonomy.Association) *Store {
	s := &Store{
		ns:       ns,
		taxa:     make(map[string]*taxonomy.Taxon, len(taxa)),
		children: make(map[string][]string),
		byName:   make([]*taxonomy.Taxon, 0, len(taxa)),
		byTaxon:  make(map[string][]taxonomy.Association),
		byObject: make(map[string][]taxonomy.Association),
	}
	for i := range taxa {
		t := taxa[i]
		t.NS = ns
		s.taxa[t.ID] = &t
		s.byName = append(s.byName, &t)
		if !t.IsRoot() {
			s.children[t.ParentID] = append(s.children[t.ParentID], t.ID)
		}
	}
	for _, ids := range s.children {
		sort.Strings(ids)
	}
	sort.Slice(s.byName, func(i, j int) bool { return taxonomy.SearchOrder(s.byName[i], s.byName[j]) })

	for _, a := range assocs {
		s.byTaxon[a.TaxonID] = append(s.byTaxon[a.TaxonID], a)
		s.byObject[a.ObjRef] = append(s.byObject[a.ObjRef], a)
	}
	return s
}

// FromDataset builds the store for namespace ns of d.
func FromDataset(d *dataset.Dataset, ns string) (*Store, error) {
	n, ok := d.Namespace(ns)
	if !ok {
		return nil, errors.Newf("dataset has no namespace %q", ns)
	}
	return New(ns, n.Taxa, n.Associations), nil
}

// Len returns the number of taxa in the store.
func (s *Store) Len() int {
	return len(s.taxa)
}

// GetTaxon implements taxonomy.GraphStore.
func (s *Store) GetTaxon(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := s.taxa[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "taxon %q", id)
	}
	out := *t
	return &out, nil
}

// GetChildren implements taxonomy.GraphStore.
func (s *Store) GetChildren(ctx context.Context, id string) ([]taxonomy.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := s.children[id]
	out := make([]taxonomy.Taxon, len(ids))
	for i, cid := range ids {
		out[i] = *s.taxa[cid]
	}
	return out, nil
}

// GetParent implements taxonomy.GraphStore.
func (s *Store) GetParent(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	t, err := s.GetTaxon(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsRoot() {
		return nil, errors.Wrapf(errors.ErrNotFound, "parent of root %q", id)
	}
	return s.GetTaxon(ctx, t.ParentID)
}

// Search implements taxonomy.SearchIndex with a linear scan in search order.
func (s *Store) Search(ctx context.Context, q taxonomy.SearchQuery) (taxonomy.SearchPage, error) {
	if err := ctx.Err(); err != nil {
		return taxonomy.SearchPage{}, err
	}
	text := strings.ToLower(q.Text)
	page := taxonomy.SearchPage{IDs: []string{}}
	for _, t := range s.byName {
		if !q.Mode.Matches(t.Name, text) || !q.Admits(t) {
			continue
		}
		if page.TotalCount >= q.Offset && len(page.IDs) < q.Limit {
			page.IDs = append(page.IDs, t.ID)
		}
		page.TotalCount++
	}
	return page, nil
}

// ObjectsForTaxon implements taxonomy.AssociationIndex.
func (s *Store) ObjectsForTaxon(ctx context.Context, taxonID string, ts int64) ([]taxonomy.Association, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return validAt(s.byTaxon[taxonID], ts), nil
}

// TaxaForObject implements taxonomy.AssociationIndex.
func (s *Store) TaxaForObject(ctx context.Context, objRef string, ts int64) ([]taxonomy.Association, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return validAt(s.byObject[objRef], ts), nil
}

func validAt(assocs []taxonomy.Association, ts int64) []taxonomy.Association {
	var out []taxonomy.Association
	for _, a := range assocs {
		if a.ValidAt(ts) {
			out = append(out, a)
		}
	}
	return out
}

// Objects implements taxonomy.ObjectSource over a fixed set of objects.
type Objects map[string]taxonomy.WorkspaceObject

// ObjectsFromDataset joins the objects of d with their workspaces.
func ObjectsFromDataset(d *dataset.Dataset) (Objects, error) {
	objs, err := d.WorkspaceObjects()
	if err != nil {
		return nil, err
	}
	return Objects(objs), nil
}

// GetObjects implements taxonomy.ObjectSource.
func (o Objects) GetObjects(ctx context.Context, refs []string) (map[string]taxonomy.WorkspaceObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]taxonomy.WorkspaceObject, len(refs))
	for _, ref := range refs {
		if obj, ok := o[ref]; ok {
			out[ref] = obj
		}
	}
	return out, nil
}
