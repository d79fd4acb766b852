package sqlitestore

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// ImportResult counts the rows written by Import.
type ImportResult struct {
	Taxa         map[string]int
	Associations map[string]int
	Workspaces   int
	Objects      int
}

// insertSQL renders a single-row INSERT with one placeholder per column.
func insertSQL(table string, cols ...string) (string, error) {
	query, _, err := sb.Insert(table).
		Options("OR REPLACE").
		Columns(cols...).
		Values(make([]any, len(cols))...).
		ToSql()
	return query, errors.Wrapf(err, "build insert into %s", table)
}

// Import replaces the namespaces of d in db and upserts its workspaces and
// objects, all in one transaction. The dataset must already be validated.
func Import(ctx context.Context, db *sql.DB, d *dataset.Dataset, log *zap.SugaredLogger) (*ImportResult, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	objects, err := d.WorkspaceObjects()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin import")
	}
	defer tx.Rollback()

	res := &ImportResult{Taxa: map[string]int{}, Associations: map[string]int{}}

	for _, ns := range d.Namespaces {
		if err := clearNamespace(ctx, tx, ns.ID); err != nil {
			return nil, err
		}
		if res.Taxa[ns.ID], err = importTaxa(ctx, tx, &ns); err != nil {
			return nil, errors.Wrapf(err, "import taxa of %q", ns.ID)
		}
		if res.Associations[ns.ID], err = importAssociations(ctx, tx, &ns); err != nil {
			return nil, errors.Wrapf(err, "import associations of %q", ns.ID)
		}
		log.Infow("Imported namespace",
			logger.FieldNamespace, ns.ID,
			"taxa", res.Taxa[ns.ID],
			"associations", res.Associations[ns.ID],
		)
	}

	wsInsert, err := insertSQL(tableWorkspaces, "id", "name", "narr_name", "owner", "refdata_source")
	if err != nil {
		return nil, err
	}
	for _, ws := range d.Workspaces {
		if _, err := tx.ExecContext(ctx, wsInsert, ws.ID, ws.Name, ws.NarrName, ws.Owner, ws.RefdataSource); err != nil {
			return nil, errors.Wrapf(err, "insert workspace %d", ws.ID)
		}
		res.Workspaces++
	}

	objInsert, err := insertSQL(tableObjects, "ref", "workspace_id", "object_id", "version", "name", "type")
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		if _, err := tx.ExecContext(ctx, objInsert, o.Ref, o.WorkspaceID, o.ObjectID, o.Version, o.Name, o.Type); err != nil {
			return nil, errors.Wrapf(err, "insert object %s", o.Ref)
		}
		res.Objects++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit import")
	}
	return res, nil
}

func clearNamespace(ctx context.Context, tx *sql.Tx, ns string) error {
	for _, table := range []string{tableAssociations, tableTaxa} {
		query, args, err := sb.Delete(table).Where(sq.Eq{colNS: ns}).ToSql()
		if err != nil {
			return errors.Wrapf(err, "build delete from %s", table)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "clear %s of %q", table, ns)
		}
	}
	return nil
}

func importTaxa(ctx context.Context, tx *sql.Tx, ns *dataset.Namespace) (int, error) {
	query, err := insertSQL(tableTaxa, colNS, colID, colName, colNameLower, colRank, colParentID, colStrain, colAttributes)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, errors.Wrap(err, "prepare taxon insert")
	}
	defer stmt.Close()

	for _, t := range ns.Taxa {
		attrs, err := encodeAttributes(t.Attributes)
		if err != nil {
			return 0, errors.Wrapf(err, "encode attributes of %q", t.ID)
		}
		parent := sql.NullString{String: t.ParentID, Valid: t.ParentID != ""}
		if _, err := stmt.ExecContext(ctx, ns.ID, t.ID, t.Name, strings.ToLower(t.Name), t.Rank, parent, t.Strain, attrs); err != nil {
			return 0, errors.Wrapf(err, "insert taxon %q", t.ID)
		}
	}
	return len(ns.Taxa), nil
}

func importAssociations(ctx context.Context, tx *sql.Tx, ns *dataset.Namespace) (int, error) {
	if len(ns.Associations) == 0 {
		return 0, nil
	}
	query, err := insertSQL(tableAssociations, colNS, colTaxonID, colObjRef, colCreated, colExpired)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, errors.Wrap(err, "prepare association insert")
	}
	defer stmt.Close()

	for _, a := range ns.Associations {
		if _, err := stmt.ExecContext(ctx, ns.ID, a.TaxonID, a.ObjRef, a.Created, a.Expired); err != nil {
			return 0, errors.Wrapf(err, "insert association %s -> %q", a.ObjRef, a.TaxonID)
		}
	}
	return len(ns.Associations), nil
}
