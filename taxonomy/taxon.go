// Package taxonomy implements the taxonomy graph query engine.
//
// A taxonomy is a single rooted tree of taxa per namespace. Namespaces are
// independently sourced datasets (an NCBI-derived taxonomy, GTDB, RDP, ...)
// that differ in which fields they carry: some have no rank, some call the
// display name "name" rather than "scientific_name". Those differences are
// captured by the Namespace descriptor and applied in one place, the
// projection step, so every other part of the engine works with the single
// generic Taxon record.
//
// The engine only reads. Storage is reached through the GraphStore,
// SearchIndex and AssociationIndex contracts in store.go; backends live
// under storage/.
package taxonomy

// Field names surfaced in projected records.
const (
	FieldID             = "id"
	FieldNS             = "ns"
	FieldScientificName = "scientific_name"
	FieldName           = "name"
	FieldRank           = "rank"
	FieldParentID       = "parent_id"
	FieldStrain         = "strain"
)

// Well-known rank values.
const (
	RankSpecies = "species"
	RankNoRank  = "no rank"
)

// Taxon is a node in exactly one namespace's hierarchy.
type Taxon struct {
	ID       string `json:"id" yaml:"id"`
	NS       string `json:"ns" yaml:"-"`
	Name     string `json:"name" yaml:"name"`
	Rank     string `json:"rank,omitempty" yaml:"rank,omitempty"`
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	// Strain marks nodes finer than species in namespaces with a strain concept.
	Strain bool `json:"strain,omitempty" yaml:"strain,omitempty"`
	// Attributes holds namespace-specific values (ncbi_taxon_id, gencode, ...).
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// IsRoot reports whether t has no parent.
func (t *Taxon) IsRoot() bool {
	return t.ParentID == ""
}

// Record is a projected taxon (or association) as returned to callers.
type Record map[string]any

// Result is the response of every engine operation: a page of records and,
// for paginated operations, the total number of matches.
type Result struct {
	Results    []Record `json:"results"`
	TotalCount *int     `json:"total_count,omitempty"`
}

func newResult(records []Record, total *int) *Result {
	if records == nil {
		records = []Record{}
	}
	return &Result{Results: records, TotalCount: total}
}

func counted(n int) *int {
	return &n
}
