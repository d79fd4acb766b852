package badgerstore

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// taxonValue is the stored form of a taxon; id and ns live in the key.
type taxonValue struct {
	Name       string         `json:"name"`
	Rank       string         `json:"rank,omitempty"`
	ParentID   string         `json:"parent_id,omitempty"`
	Strain     bool           `json:"strain,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// nameValue is stored in the name index so rank filters need no taxon lookup.
type nameValue struct {
	Rank   string `json:"rank,omitempty"`
	Strain bool   `json:"strain,omitempty"`
}

// Store implements taxonomy.GraphStore, taxonomy.SearchIndex,
// taxonomy.AssociationIndex and taxonomy.ObjectSource for one namespace.
type Store struct {
	db *badger.DB
	ns string
}

func (s *Store) getTaxon(txn *badger.Txn, id string) (*taxonomy.Taxon, error) {
	item, err := txn.Get(key(prefixTaxon, s.ns, id))
	if err == badger.ErrKeyNotFound {
		return nil, errors.Wrapf(errors.ErrNotFound, "taxon %q in namespace %q", id, s.ns)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get taxon %q", id)
	}
	var v taxonValue
	if err := item.Value(func(val []byte) error { return decodeJSON(val, &v) }); err != nil {
		return nil, errors.Wrapf(err, "decode taxon %q", id)
	}
	return &taxonomy.Taxon{
		ID:         id,
		NS:         s.ns,
		Name:       v.Name,
		Rank:       v.Rank,
		ParentID:   v.ParentID,
		Strain:     v.Strain,
		Attributes: v.Attributes,
	}, nil
}

// GetTaxon implements taxonomy.GraphStore.
func (s *Store) GetTaxon(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var t *taxonomy.Taxon
	err := s.db.View(func(txn *badger.Txn) (err error) {
		t, err = s.getTaxon(txn, id)
		return err
	})
	return t, err
}

// GetParent implements taxonomy.GraphStore.
func (s *Store) GetParent(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var parent *taxonomy.Taxon
	err := s.db.View(func(txn *badger.Txn) error {
		t, err := s.getTaxon(txn, id)
		if err != nil {
			return err
		}
		if t.IsRoot() {
			return errors.Wrapf(errors.ErrNotFound, "parent of root %q", id)
		}
		parent, err = s.getTaxon(txn, t.ParentID)
		return err
	})
	return parent, err
}

// GetChildren implements taxonomy.GraphStore.
func (s *Store) GetChildren(ctx context.Context, id string) ([]taxonomy.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children := []taxonomy.Taxon{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := scanPrefix(prefixChild, s.ns, id)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			child, err := s.getTaxon(txn, lastComponent(it.Item().Key()))
			if err != nil {
				return errors.Wrapf(err, "child index of %q", id)
			}
			children = append(children, *child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// Search implements taxonomy.SearchIndex by walking the name index. Prefix
// queries seek straight to the first candidate; substring queries scan the
// namespace's whole index.
func (s *Store) Search(ctx context.Context, q taxonomy.SearchQuery) (taxonomy.SearchPage, error) {
	if err := ctx.Err(); err != nil {
		return taxonomy.SearchPage{}, err
	}
	page := taxonomy.SearchPage{IDs: []string{}}
	text := strings.ToLower(q.Text)

	nsPrefix := scanPrefix(prefixName, s.ns)
	scan := nsPrefix
	if q.Mode == taxonomy.MatchPrefix {
		scan = append(append([]byte(nil), nsPrefix...), text...)
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scan
		it := txn.NewIterator(opts)
		defer it.Close()

		scanned := 0
		for it.Seek(scan); it.ValidForPrefix(scan); it.Next() {
			if scanned++; scanned%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			k := it.Item().Key()
			rest := k[len(nsPrefix):]
			cut := strings.LastIndexByte(string(rest), sep)
			name, id := string(rest[:cut]), string(rest[cut+1:])
			if q.Mode == taxonomy.MatchContains && !strings.Contains(name, text) {
				continue
			}

			if len(q.Ranks) > 0 {
				var v nameValue
				if err := it.Item().Value(func(val []byte) error { return decodeJSON(val, &v) }); err != nil {
					return errors.Wrapf(err, "decode name index of %q", id)
				}
				if !q.Admits(&taxonomy.Taxon{Rank: v.Rank, Strain: v.Strain}) {
					continue
				}
			}

			if page.TotalCount >= q.Offset && len(page.IDs) < q.Limit {
				page.IDs = append(page.IDs, id)
			}
			page.TotalCount++
		}
		return nil
	})
	if err != nil {
		return taxonomy.SearchPage{}, errors.Wrapf(err, "search %q", s.ns)
	}
	return page, nil
}
