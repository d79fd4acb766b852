package taxonomy

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/taxa/errors"
)

// Namespace describes one registered taxonomy dataset: which fields it
// exposes and where its data lives. Descriptors are immutable once the
// registry is built.
type Namespace struct {
	ID string
	// NameField is the key the display name is surfaced under
	// (FieldScientificName or FieldName).
	NameField string
	// HasRank is false for namespaces without a rank field.
	HasRank bool
	// HasStrains is true when strain nodes exist below species.
	HasStrains bool
	// Release is the dataset version, if known.
	Release *semver.Version

	Graph  GraphStore
	Search SearchIndex
	// Associations and Objects are nil for namespaces without workspace links.
	Associations AssociationIndex
	Objects      ObjectSource
}

// Registry maps namespace ids to descriptors.
type Registry struct {
	namespaces map[string]*Namespace
}

// NewRegistry builds a registry from the given descriptors.
// Empty or duplicate ids, unknown name fields, and missing stores are rejected.
func NewRegistry(namespaces ...*Namespace) (*Registry, error) {
	r := &Registry{namespaces: make(map[string]*Namespace, len(namespaces))}
	for _, ns := range namespaces {
		if ns == nil || ns.ID == "" {
			return nil, errors.New("namespace id is required")
		}
		if _, dup := r.namespaces[ns.ID]; dup {
			return nil, errors.Newf("namespace %q registered twice", ns.ID)
		}
		switch ns.NameField {
		case "":
			ns.NameField = FieldScientificName
		case FieldScientificName, FieldName:
		default:
			return nil, errors.Newf("namespace %q: unsupported name field %q", ns.ID, ns.NameField)
		}
		if ns.Graph == nil || ns.Search == nil {
			return nil, errors.Newf("namespace %q: graph store and search index are required", ns.ID)
		}
		if (ns.Associations == nil) != (ns.Objects == nil) {
			return nil, errors.Newf("namespace %q: associations and object source must be configured together", ns.ID)
		}
		r.namespaces[ns.ID] = ns
	}
	return r, nil
}

// ParseRelease parses a dataset release string; empty means unknown.
func ParseRelease(release string) (*semver.Version, error) {
	if release == "" {
		return nil, nil
	}
	v, err := semver.NewVersion(release)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid release %q", release)
	}
	return v, nil
}

// Resolve returns the descriptor for ns, failing fast for unknown ids.
func (r *Registry) Resolve(ns string) (*Namespace, error) {
	if ns == "" {
		return nil, errors.NewInvalidParams("'ns' is required")
	}
	desc, ok := r.namespaces[ns]
	if !ok {
		return nil, errors.NewUnknownNamespace(ns)
	}
	return desc, nil
}

// List returns all descriptors ordered by id.
func (r *Registry) List() []*Namespace {
	out := make([]*Namespace, 0, len(r.namespaces))
	for _, ns := range r.namespaces {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
