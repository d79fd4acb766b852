// Package sqlitestore serves taxonomy namespaces from the SQLite schema
// created by db.Migrate. Many namespaces share one database; a Store is
// scoped to exactly one of them.
package sqlitestore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

const (
	tableTaxa         = "taxa"
	tableAssociations = "taxon_ws_associations"
	tableObjects      = "ws_objects"
	tableWorkspaces   = "ws_workspaces"

	colNS         = "ns"
	colID         = "id"
	colName       = "name"
	colNameLower  = "name_lower"
	colRank       = "rank"
	colParentID   = "parent_id"
	colStrain     = "strain"
	colAttributes = "attributes"

	colTaxonID = "taxon_id"
	colObjRef  = "obj_ref"
	colCreated = "created"
	colExpired = "expired"
)

// sb builds statements with sqlite's "?" placeholders.
var sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var taxonColumns = []string{colID, colName, colRank, colParentID, colStrain, colAttributes}

// Store implements taxonomy.GraphStore, taxonomy.SearchIndex,
// taxonomy.AssociationIndex and taxonomy.ObjectSource for one namespace.
type Store struct {
	db *sql.DB
	ns string
}

// New returns a store for namespace ns of db.
func New(db *sql.DB, ns string) *Store {
	return &Store{db: db, ns: ns}
}

// Namespace returns the namespace the store is scoped to.
func (s *Store) Namespace() string {
	return s.ns
}

func qualified(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTaxon(row rowScanner) (*taxonomy.Taxon, error) {
	var (
		t      = taxonomy.Taxon{NS: s.ns}
		parent sql.NullString
		attrs  string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Rank, &parent, &t.Strain, &attrs); err != nil {
		return nil, err
	}
	t.ParentID = parent.String
	var err error
	if t.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, errors.Wrapf(err, "attributes of taxon %q", t.ID)
	}
	return &t, nil
}

// decodeAttributes keeps numbers as json.Number so integer ids survive intact.
func decodeAttributes(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func encodeAttributes(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Store) queryTaxon(ctx context.Context, q sq.SelectBuilder, what string) (*taxonomy.Taxon, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrapf(err, "build %s query", what)
	}
	t, err := s.scanTaxon(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s in namespace %q", what, s.ns)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", what)
	}
	return t, nil
}

// GetTaxon implements taxonomy.GraphStore.
func (s *Store) GetTaxon(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	q := sb.Select(taxonColumns...).
		From(tableTaxa).
		Where(sq.Eq{colNS: s.ns, colID: id})
	return s.queryTaxon(ctx, q, "taxon "+id)
}

// GetParent implements taxonomy.GraphStore. A root and a missing taxon both
// yield NotFound.
func (s *Store) GetParent(ctx context.Context, id string) (*taxonomy.Taxon, error) {
	q := sb.Select(qualified("p", taxonColumns)...).
		From(tableTaxa + " c").
		Join(tableTaxa + " p ON p.ns = c.ns AND p.id = c.parent_id").
		Where(sq.Eq{"c." + colNS: s.ns, "c." + colID: id})
	return s.queryTaxon(ctx, q, "parent of "+id)
}

// GetChildren implements taxonomy.GraphStore.
func (s *Store) GetChildren(ctx context.Context, id string) ([]taxonomy.Taxon, error) {
	query, args, err := sb.Select(taxonColumns...).
		From(tableTaxa).
		Where(sq.Eq{colNS: s.ns, colParentID: id}).
		OrderBy(colID).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build children query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query children of %q", id)
	}
	defer rows.Close()

	children := []taxonomy.Taxon{}
	for rows.Next() {
		t, err := s.scanTaxon(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan child of %q", id)
		}
		children = append(children, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate children of %q", id)
	}
	return children, nil
}
