package sqlitestore

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// validAt restricts a query to associations whose [created, expired)
// interval contains ts.
func validAt(q sq.SelectBuilder, ts int64) sq.SelectBuilder {
	return q.Where(sq.LtOrEq{colCreated: ts}).
		Where(sq.Or{
			sq.Eq{colExpired: 0},
			sq.Gt{colExpired: ts},
		})
}

func (s *Store) associations(ctx context.Context, filter sq.Eq, ts int64) ([]taxonomy.Association, error) {
	filter[colNS] = s.ns
	query, args, err := validAt(
		sb.Select(colTaxonID, colObjRef, colCreated, colExpired).From(tableAssociations).Where(filter),
		ts,
	).OrderBy(colObjRef, colTaxonID, colCreated).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build association query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query associations")
	}
	defer rows.Close()

	var out []taxonomy.Association
	for rows.Next() {
		var a taxonomy.Association
		if err := rows.Scan(&a.TaxonID, &a.ObjRef, &a.Created, &a.Expired); err != nil {
			return nil, errors.Wrap(err, "scan association")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "iterate associations")
}

// ObjectsForTaxon implements taxonomy.AssociationIndex.
func (s *Store) ObjectsForTaxon(ctx context.Context, taxonID string, ts int64) ([]taxonomy.Association, error) {
	return s.associations(ctx, sq.Eq{colTaxonID: taxonID}, ts)
}

// TaxaForObject implements taxonomy.AssociationIndex.
func (s *Store) TaxaForObject(ctx context.Context, objRef string, ts int64) ([]taxonomy.Association, error) {
	return s.associations(ctx, sq.Eq{colObjRef: objRef}, ts)
}

// GetObjects implements taxonomy.ObjectSource with one join over the batch.
func (s *Store) GetObjects(ctx context.Context, refs []string) (map[string]taxonomy.WorkspaceObject, error) {
	out := make(map[string]taxonomy.WorkspaceObject, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	query, args, err := sb.Select(
		"o.ref", "o.workspace_id", "o.object_id", "o.version", "o.name", "o.type",
		"w.name", "w.narr_name", "w.owner", "w.refdata_source",
	).
		From(tableObjects + " o").
		Join(tableWorkspaces + " w ON w.id = o.workspace_id").
		Where(sq.Eq{"o.ref": refs}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build object query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query objects")
	}
	defer rows.Close()

	for rows.Next() {
		var o taxonomy.WorkspaceObject
		if err := rows.Scan(
			&o.Ref, &o.WorkspaceID, &o.ObjectID, &o.Version, &o.Name, &o.Type,
			&o.Workspace.Name, &o.Workspace.NarrName, &o.Workspace.Owner, &o.Workspace.RefdataSource,
		); err != nil {
			return nil, errors.Wrap(err, "scan object")
		}
		o.Workspace.ID = o.WorkspaceID
		out[o.Ref] = o
	}
	return out, errors.Wrap(rows.Err(), "iterate objects")
}
