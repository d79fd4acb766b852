package taxonomy

import (
	"context"
)

// GraphStore is the read interface over one namespace's hierarchy.
//
// Implementations serve data for which the single-rooted-tree invariant
// already holds; the engine does not re-validate it. A missing taxon (or the
// parent of the root) is reported as an error wrapping errors.ErrNotFound.
type GraphStore interface {
	// GetTaxon returns the taxon with the given id.
	GetTaxon(ctx context.Context, id string) (*Taxon, error)

	// GetChildren returns the direct children of id ordered by id.
	// An id without children (or an unknown id) yields an empty slice.
	GetChildren(ctx context.Context, id string) ([]Taxon, error)

	// GetParent returns the parent of id.
	GetParent(ctx context.Context, id string) (*Taxon, error)
}

// MatchMode selects how search text is compared against taxon names.
type MatchMode int

const (
	// MatchContains matches names containing the text anywhere, case-insensitively.
	MatchContains MatchMode = iota
	// MatchPrefix matches names starting with the text, case-insensitively.
	MatchPrefix
)

func (m MatchMode) String() string {
	switch m {
	case MatchContains:
		return "contains"
	case MatchPrefix:
		return "prefix"
	default:
		return "unknown"
	}
}

// SearchQuery is the request handed to a SearchIndex. Text never carries the
// "prefix:" sentinel; Mode is authoritative.
type SearchQuery struct {
	Text string
	Mode MatchMode
	// Ranks restricts matches to these ranks when non-empty.
	Ranks []string
	// IncludeStrains also admits strain nodes when Ranks is non-empty.
	IncludeStrains bool
	Limit          int
	Offset         int
}

// SearchPage is one page of matching taxon ids plus the full match count.
type SearchPage struct {
	IDs        []string
	TotalCount int
}

// SearchIndex is the read interface over one namespace's searchable names.
//
// Matches are ordered by lowercased name, then id, so that pages taken at
// different offsets of the same query never overlap or skip.
type SearchIndex interface {
	Search(ctx context.Context, q SearchQuery) (SearchPage, error)
}

// Association links a taxon to a workspace object for the half-open time
// interval [Created, Expired). Expired == 0 means the link is still current.
// Times are epoch milliseconds.
type Association struct {
	TaxonID string `json:"taxon_id" yaml:"taxon_id"`
	ObjRef  string `json:"obj_ref" yaml:"obj_ref"`
	Created int64  `json:"created" yaml:"created"`
	Expired int64  `json:"expired,omitempty" yaml:"expired,omitempty"`
}

// ValidAt reports whether the association holds at ts.
func (a Association) ValidAt(ts int64) bool {
	return a.Created <= ts && (a.Expired == 0 || ts < a.Expired)
}

// AssociationIndex answers the bidirectional taxon/object lookup.
// Both methods return every association valid at ts; picking the most recent
// version is the resolver's job.
type AssociationIndex interface {
	ObjectsForTaxon(ctx context.Context, taxonID string, ts int64) ([]Association, error)
	TaxaForObject(ctx context.Context, objRef string, ts int64) ([]Association, error)
}

// WorkspaceInfo describes the workspace an object lives in.
type WorkspaceInfo struct {
	ID            int64  `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	NarrName      string `json:"narr_name" yaml:"narr_name"`
	Owner         string `json:"owner,omitempty" yaml:"owner,omitempty"`
	RefdataSource string `json:"refdata_source,omitempty" yaml:"refdata_source,omitempty"`
}

// WorkspaceObject is the metadata attached to an associated object.
type WorkspaceObject struct {
	Ref         string        `json:"ref"`
	WorkspaceID int64         `json:"workspace_id"`
	ObjectID    int64         `json:"object_id"`
	Version     int64         `json:"version"`
	Name        string        `json:"name"`
	Type        string        `json:"type,omitempty"`
	Workspace   WorkspaceInfo `json:"workspace"`
}

// ObjectSource resolves object metadata for a batch of refs. Refs without
// metadata are absent from the returned map.
type ObjectSource interface {
	GetObjects(ctx context.Context, refs []string) (map[string]WorkspaceObject, error)
}
