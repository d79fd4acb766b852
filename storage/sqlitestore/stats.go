package sqlitestore

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/taxa/errors"
)

// NamespaceStats summarizes one namespace stored in the database.
type NamespaceStats struct {
	NS           string
	Taxa         int
	Roots        int
	Associations int
}

// Stats summarizes every namespace in db, ordered by namespace id.
// Objects is the number of workspace objects, which are shared by all namespaces.
func Stats(ctx context.Context, db *sql.DB) (namespaces []NamespaceStats, objects int, err error) {
	var (
		taxa, roots, assocs map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		taxa, err = countBy(gctx, db, sb.Select(colNS, "COUNT(*)").From(tableTaxa).GroupBy(colNS))
		return err
	})
	g.Go(func() (err error) {
		roots, err = countBy(gctx, db, sb.Select(colNS, "COUNT(*)").From(tableTaxa).Where(colParentID+" IS NULL").GroupBy(colNS))
		return err
	})
	g.Go(func() (err error) {
		assocs, err = countBy(gctx, db, sb.Select(colNS, "COUNT(*)").From(tableAssociations).GroupBy(colNS))
		return err
	})
	g.Go(func() error {
		return errors.Wrap(db.QueryRowContext(gctx, "SELECT COUNT(*) FROM "+tableObjects).Scan(&objects), "count objects")
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	for ns, n := range taxa {
		namespaces = append(namespaces, NamespaceStats{NS: ns, Taxa: n, Roots: roots[ns], Associations: assocs[ns]})
	}
	sort.Slice(namespaces, func(i, j int) bool { return namespaces[i].NS < namespaces[j].NS })
	return namespaces, objects, nil
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func countBy(ctx context.Context, db *sql.DB, q sqlizer) (map[string]int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build count query")
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "count rows")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			ns string
			n  int
		)
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		out[ns] = n
	}
	return out, errors.Wrap(rows.Err(), "iterate counts")
}
