package sqlitestore

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns search text into a LIKE pattern on name_lower.
func likePattern(text string, mode taxonomy.MatchMode) string {
	escaped := likeEscaper.Replace(strings.ToLower(text))
	if mode == taxonomy.MatchPrefix {
		return escaped + "%"
	}
	return "%" + escaped + "%"
}

func searchFilter(ns string, q taxonomy.SearchQuery) sq.And {
	where := sq.And{
		sq.Eq{colNS: ns},
		sq.Expr(colNameLower+` LIKE ? ESCAPE '\'`, likePattern(q.Text, q.Mode)),
	}
	if len(q.Ranks) > 0 {
		ranks := sq.Or{sq.Eq{colRank: q.Ranks}}
		if q.IncludeStrains {
			ranks = append(ranks, sq.Eq{colStrain: true})
		}
		where = append(where, ranks)
	}
	return where
}

// Search implements taxonomy.SearchIndex. The page is ordered by
// (name_lower, id), which the idx_taxa_name index serves directly.
func (s *Store) Search(ctx context.Context, q taxonomy.SearchQuery) (taxonomy.SearchPage, error) {
	where := searchFilter(s.ns, q)
	page := taxonomy.SearchPage{IDs: []string{}}

	query, args, err := sb.Select("COUNT(*)").From(tableTaxa).Where(where).ToSql()
	if err != nil {
		return page, errors.Wrap(err, "build count query")
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&page.TotalCount); err != nil {
		return page, errors.Wrap(err, "count matches")
	}
	if q.Limit == 0 || q.Offset >= page.TotalCount {
		return page, nil
	}

	query, args, err = sb.Select(colID).
		From(tableTaxa).
		Where(where).
		OrderBy(colNameLower, colID).
		Limit(uint64(q.Limit)).
		Offset(uint64(q.Offset)).
		ToSql()
	if err != nil {
		return page, errors.Wrap(err, "build search query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return page, errors.Wrap(err, "search taxa")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return page, errors.Wrap(err, "scan match")
		}
		page.IDs = append(page.IDs, id)
	}
	return page, errors.Wrap(rows.Err(), "iterate matches")
}
