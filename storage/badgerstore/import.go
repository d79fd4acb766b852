package badgerstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// Import replaces the namespaces of d and upserts its workspace objects.
// The dataset must already be validated. Each namespace is dropped and then
// rewritten with a write batch, so readers may briefly see it empty.
func (d *DB) Import(ctx context.Context, ds *dataset.Dataset) error {
	objects, err := ds.WorkspaceObjects()
	if err != nil {
		return err
	}

	for _, ns := range ds.Namespaces {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.dropNamespace(ns.ID); err != nil {
			return err
		}
		if err := d.writeNamespace(&ns); err != nil {
			return errors.Wrapf(err, "import namespace %q", ns.ID)
		}
		d.logger.Infow("Imported namespace",
			logger.FieldNamespace, ns.ID,
			"taxa", len(ns.Taxa),
			"associations", len(ns.Associations),
		)
	}

	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for ref, obj := range objects {
		v, err := json.Marshal(obj)
		if err != nil {
			return errors.Wrapf(err, "encode object %s", ref)
		}
		if err := wb.Set(key(prefixObject, ref), v); err != nil {
			return errors.Wrapf(err, "write object %s", ref)
		}
	}
	return errors.Wrap(wb.Flush(), "flush objects")
}

func (d *DB) dropNamespace(ns string) error {
	prefixes := make([][]byte, 0, 5)
	for _, p := range []byte{prefixTaxon, prefixChild, prefixName, prefixAssocTaxon, prefixAssocObject} {
		prefixes = append(prefixes, scanPrefix(p, ns))
	}
	return errors.Wrapf(d.db.DropPrefix(prefixes...), "drop namespace %q", ns)
}

func (d *DB) writeNamespace(ns *dataset.Namespace) error {
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()

	for _, t := range ns.Taxa {
		v, err := json.Marshal(taxonValue{
			Name:       t.Name,
			Rank:       t.Rank,
			ParentID:   t.ParentID,
			Strain:     t.Strain,
			Attributes: t.Attributes,
		})
		if err != nil {
			return errors.Wrapf(err, "encode taxon %q", t.ID)
		}
		if err := wb.Set(key(prefixTaxon, ns.ID, t.ID), v); err != nil {
			return errors.Wrapf(err, "write taxon %q", t.ID)
		}

		nv, err := json.Marshal(nameValue{Rank: t.Rank, Strain: t.Strain})
		if err != nil {
			return errors.Wrapf(err, "encode name index of %q", t.ID)
		}
		if err := wb.Set(key(prefixName, ns.ID, strings.ToLower(t.Name), t.ID), nv); err != nil {
			return errors.Wrapf(err, "write name index of %q", t.ID)
		}

		if !t.IsRoot() {
			if err := wb.Set(key(prefixChild, ns.ID, t.ParentID, t.ID), nil); err != nil {
				return errors.Wrapf(err, "write child index of %q", t.ID)
			}
		}
	}

	for _, a := range ns.Associations {
		created, expired := encodeInt(a.Created), encodeInt(a.Expired)
		byTaxon := append(key(prefixAssocTaxon, ns.ID, a.TaxonID, a.ObjRef, ""), created...)
		byObject := append(key(prefixAssocObject, ns.ID, a.ObjRef, a.TaxonID, ""), created...)
		if err := wb.Set(byTaxon, expired); err != nil {
			return errors.Wrapf(err, "write association %s -> %q", a.ObjRef, a.TaxonID)
		}
		if err := wb.Set(byObject, expired); err != nil {
			return errors.Wrapf(err, "write association %q -> %s", a.TaxonID, a.ObjRef)
		}
	}
	return wb.Flush()
}
