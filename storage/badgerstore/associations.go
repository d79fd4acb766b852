package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// scanAssociations iterates prefix, where every key ends in
// first 0x00 second 0x00 created and the value is the expiry.
func (s *Store) scanAssociations(ctx context.Context, prefix []byte, ts int64, build func(second string, created, expired int64) taxonomy.Association) ([]taxonomy.Association, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []taxonomy.Association
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := it.Item().Key()[len(prefix):]
			// created is fixed width and may itself contain 0x00 bytes
			if len(rest) < 9 {
				return errors.Newf("malformed association key %q", it.Item().Key())
			}
			second := string(rest[:len(rest)-9])
			created, err := decodeInt(rest[len(rest)-8:])
			if err != nil {
				return err
			}
			var expired int64
			if err := it.Item().Value(func(val []byte) (err error) {
				expired, err = decodeInt(val)
				return err
			}); err != nil {
				return errors.Wrap(err, "decode association expiry")
			}
			a := build(second, created, expired)
			if a.ValidAt(ts) {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// ObjectsForTaxon implements taxonomy.AssociationIndex.
func (s *Store) ObjectsForTaxon(ctx context.Context, taxonID string, ts int64) ([]taxonomy.Association, error) {
	assocs, err := s.scanAssociations(ctx, scanPrefix(prefixAssocTaxon, s.ns, taxonID), ts,
		func(ref string, created, expired int64) taxonomy.Association {
			return taxonomy.Association{TaxonID: taxonID, ObjRef: ref, Created: created, Expired: expired}
		})
	return assocs, errors.Wrapf(err, "objects of taxon %q", taxonID)
}

// TaxaForObject implements taxonomy.AssociationIndex.
func (s *Store) TaxaForObject(ctx context.Context, objRef string, ts int64) ([]taxonomy.Association, error) {
	assocs, err := s.scanAssociations(ctx, scanPrefix(prefixAssocObject, s.ns, objRef), ts,
		func(taxonID string, created, expired int64) taxonomy.Association {
			return taxonomy.Association{TaxonID: taxonID, ObjRef: objRef, Created: created, Expired: expired}
		})
	return assocs, errors.Wrapf(err, "taxa of object %q", objRef)
}

// GetObjects implements taxonomy.ObjectSource.
func (s *Store) GetObjects(ctx context.Context, refs []string) (map[string]taxonomy.WorkspaceObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]taxonomy.WorkspaceObject, len(refs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, ref := range refs {
			item, err := txn.Get(key(prefixObject, ref))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "get object %s", ref)
			}
			var obj taxonomy.WorkspaceObject
			if err := item.Value(func(val []byte) error { return decodeJSON(val, &obj) }); err != nil {
				return errors.Wrapf(err, "decode object %s", ref)
			}
			out[ref] = obj
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
