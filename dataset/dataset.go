// Package dataset reads taxonomy snapshots from YAML (or JSON) files and
// checks them before they are imported into a backend.
//
// Validation happens here, once, at loading time: every backend assumes the
// data it serves forms a single rooted tree per namespace.
package dataset

import (
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// FormatConstraint is the range of dataset format versions this build reads.
const FormatConstraint = "^1.0"

// Dataset is a complete snapshot of one or more namespaces plus the
// workspace objects they are associated with.
type Dataset struct {
	FormatVersion string                   `yaml:"format_version"`
	Namespaces    []Namespace              `yaml:"namespaces"`
	Workspaces    []taxonomy.WorkspaceInfo `yaml:"workspaces"`
	Objects       []Object                 `yaml:"objects"`
}

// Namespace holds the taxa and associations of one namespace.
type Namespace struct {
	ID           string                 `yaml:"id"`
	Taxa         []taxonomy.Taxon       `yaml:"taxa"`
	Associations []taxonomy.Association `yaml:"associations"`
}

// Object is a workspace object as written in the dataset file.
type Object struct {
	Ref  string `yaml:"ref"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Load reads and validates the dataset at path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %s", path)
	}
	return d, nil
}

// Parse decodes and validates a dataset document.
func Parse(data []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "decode dataset")
	}
	for i := range d.Namespaces {
		ns := &d.Namespaces[i]
		for j := range ns.Taxa {
			ns.Taxa[j].NS = ns.ID
		}
	}
	d.canonicalizeRefs()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// canonicalizeRefs rewrites object and association refs in their canonical
// form so that "15792:022:1" and "15792:22:1" name the same object.
// Malformed refs are left for Validate to report.
func (d *Dataset) canonicalizeRefs() {
	for i := range d.Objects {
		d.Objects[i].Ref = canonicalRef(d.Objects[i].Ref)
	}
	for i := range d.Namespaces {
		assocs := d.Namespaces[i].Associations
		for j := range assocs {
			assocs[j].ObjRef = canonicalRef(assocs[j].ObjRef)
		}
	}
}

func canonicalRef(s string) string {
	ref, err := taxonomy.ParseObjRef(s)
	if err != nil {
		return s
	}
	return ref.String()
}

// Namespace returns the namespace with the given id.
func (d *Dataset) Namespace(id string) (*Namespace, bool) {
	for i := range d.Namespaces {
		if d.Namespaces[i].ID == id {
			return &d.Namespaces[i], true
		}
	}
	return nil, false
}

// NamespaceIDs returns the ids of all namespaces in file order.
func (d *Dataset) NamespaceIDs() []string {
	ids := make([]string, len(d.Namespaces))
	for i, ns := range d.Namespaces {
		ids[i] = ns.ID
	}
	return ids
}

// WorkspaceObjects joins objects with their workspaces, keyed by canonical ref.
func (d *Dataset) WorkspaceObjects() (map[string]taxonomy.WorkspaceObject, error) {
	workspaces := make(map[int64]taxonomy.WorkspaceInfo, len(d.Workspaces))
	for _, ws := range d.Workspaces {
		workspaces[ws.ID] = ws
	}
	out := make(map[string]taxonomy.WorkspaceObject, len(d.Objects))
	for _, o := range d.Objects {
		ref, err := taxonomy.ParseObjRef(o.Ref)
		if err != nil {
			return nil, errors.Wrapf(err, "object %q", o.Ref)
		}
		ws, ok := workspaces[ref.Workspace]
		if !ok {
			return nil, errors.Newf("object %q: workspace %d is not defined", o.Ref, ref.Workspace)
		}
		key := ref.String()
		if _, dup := out[key]; dup {
			return nil, errors.Newf("object %q defined twice", key)
		}
		out[key] = taxonomy.WorkspaceObject{
			Ref:         key,
			WorkspaceID: ref.Workspace,
			ObjectID:    ref.Object,
			Version:     ref.Version,
			Name:        o.Name,
			Type:        o.Type,
			Workspace:   ws,
		}
	}
	return out, nil
}

// Validate checks the format version, the tree invariant of every namespace,
// and the integrity of associations and objects.
func (d *Dataset) Validate() error {
	if err := checkFormat(d.FormatVersion); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Namespaces))
	for i := range d.Namespaces {
		ns := &d.Namespaces[i]
		if ns.ID == "" {
			return errors.Newf("namespace #%d has no id", i)
		}
		if seen[ns.ID] {
			return errors.Newf("namespace %q defined twice", ns.ID)
		}
		seen[ns.ID] = true

		if err := ValidateTree(ns.Taxa); err != nil {
			return errors.Wrapf(err, "namespace %q", ns.ID)
		}
		if err := validateAssociations(ns); err != nil {
			return errors.Wrapf(err, "namespace %q", ns.ID)
		}
	}

	_, err := d.WorkspaceObjects()
	return err
}

func checkFormat(version string) error {
	if version == "" {
		return errors.New("format_version is required")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "invalid format_version %q", version)
	}
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return errors.Wrap(err, "format constraint")
	}
	if !c.Check(v) {
		return errors.WithHintf(
			errors.Newf("format_version %s is not supported", v),
			"this build reads datasets matching %s", FormatConstraint)
	}
	return nil
}

// ValidateTree checks that taxa form a single rooted tree: unique non-empty
// ids, non-empty names, exactly one root, existing parents, no cycles.
func ValidateTree(taxa []taxonomy.Taxon) error {
	if len(taxa) == 0 {
		return errors.New("no taxa")
	}

	byID := make(map[string]*taxonomy.Taxon, len(taxa))
	var roots []string
	for i := range taxa {
		t := &taxa[i]
		if t.ID == "" {
			return errors.Newf("taxon #%d has no id", i)
		}
		if t.Name == "" {
			return errors.Newf("taxon %q has no name", t.ID)
		}
		if _, dup := byID[t.ID]; dup {
			return errors.Newf("taxon %q defined twice", t.ID)
		}
		byID[t.ID] = t
		if t.IsRoot() {
			roots = append(roots, t.ID)
		}
	}

	switch len(roots) {
	case 0:
		return errors.New("no root taxon")
	case 1:
	default:
		sort.Strings(roots)
		return errors.Newf("multiple root taxa: %v", roots)
	}

	children := make(map[string][]string, len(taxa))
	for _, t := range byID {
		if t.IsRoot() {
			continue
		}
		if _, ok := byID[t.ParentID]; !ok {
			return errors.Newf("taxon %q has unknown parent %q", t.ID, t.ParentID)
		}
		children[t.ParentID] = append(children[t.ParentID], t.ID)
	}

	// With one root and every parent present, the graph is a tree exactly
	// when every taxon is reachable from the root.
	reached := 0
	queue := []string{roots[0]}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		reached++
		queue = append(queue, children[id]...)
	}
	if reached != len(byID) {
		var stray []string
		for id := range byID {
			if !reachable(byID, id, roots[0]) {
				stray = append(stray, id)
			}
		}
		sort.Strings(stray)
		return errors.Newf("parent cycle among taxa %v", stray)
	}
	return nil
}

// reachable walks parent links from id looking for root, bounded by the
// number of taxa.
func reachable(byID map[string]*taxonomy.Taxon, id, root string) bool {
	for steps := 0; steps <= len(byID); steps++ {
		if id == root {
			return true
		}
		t := byID[id]
		if t.IsRoot() {
			return false
		}
		id = t.ParentID
	}
	return false
}

func validateAssociations(ns *Namespace) error {
	ids := make(map[string]bool, len(ns.Taxa))
	for _, t := range ns.Taxa {
		ids[t.ID] = true
	}
	for _, a := range ns.Associations {
		if !ids[a.TaxonID] {
			return errors.Newf("association %s -> %q references unknown taxon", a.ObjRef, a.TaxonID)
		}
		if _, err := taxonomy.ParseObjRef(a.ObjRef); err != nil {
			return errors.Wrapf(err, "association of taxon %q", a.TaxonID)
		}
		if a.Created < 0 {
			return errors.Newf("association %s -> %q has negative created time", a.ObjRef, a.TaxonID)
		}
		if a.Expired != 0 && a.Expired <= a.Created {
			return errors.Newf("association %s -> %q expires before it is created", a.ObjRef, a.TaxonID)
		}
	}
	return nil
}
