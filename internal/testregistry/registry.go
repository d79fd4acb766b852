// Package testregistry builds a namespace registry over the fixture dataset,
// served from memory, for engine and gateway tests.
package testregistry

import (
	"testing"

	"github.com/teranos/taxa/dataset"
	taxatest "github.com/teranos/taxa/internal/testing"
	"github.com/teranos/taxa/storage/memstore"
	"github.com/teranos/taxa/taxonomy"
)

// Namespaces returns descriptors for the three fixture namespaces of d,
// shaped like the production ones: NCBI has ranks, strains and workspace
// links; GTDB has ranks only; RDP has neither and surfaces "name".
func Namespaces(t testing.TB, d *dataset.Dataset) []*taxonomy.Namespace {
	t.Helper()

	objects, err := memstore.ObjectsFromDataset(d)
	if err != nil {
		t.Fatalf("Failed to load fixture objects: %v", err)
	}
	store := func(ns string) *memstore.Store {
		s, err := memstore.FromDataset(d, ns)
		if err != nil {
			t.Fatalf("Failed to build fixture namespace %s: %v", ns, err)
		}
		return s
	}

	ncbi, gtdb, rdp := store(taxatest.NCBI), store(taxatest.GTDB), store(taxatest.RDP)
	return []*taxonomy.Namespace{
		{
			ID:           taxatest.NCBI,
			NameField:    taxonomy.FieldScientificName,
			HasRank:      true,
			HasStrains:   true,
			Graph:        ncbi,
			Search:       ncbi,
			Associations: ncbi,
			Objects:      objects,
		},
		{
			ID:        taxatest.GTDB,
			NameField: taxonomy.FieldScientificName,
			HasRank:   true,
			Graph:     gtdb,
			Search:    gtdb,
		},
		{
			ID:        taxatest.RDP,
			NameField: taxonomy.FieldName,
			Graph:     rdp,
			Search:    rdp,
		},
	}
}

// New returns a registry over a fresh copy of the fixture.
func New(t testing.TB) *taxonomy.Registry {
	t.Helper()

	r, err := taxonomy.NewRegistry(Namespaces(t, taxatest.Fixture(t))...)
	if err != nil {
		t.Fatalf("Failed to build fixture registry: %v", err)
	}
	return r
}
