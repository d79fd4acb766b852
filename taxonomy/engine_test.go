package taxonomy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/taxa/errors"
	taxatest "github.com/teranos/taxa/internal/testing"
	"github.com/teranos/taxa/internal/testregistry"
	"github.com/teranos/taxa/internal/util"
	"github.com/teranos/taxa/taxonomy"
)

func newEngine(t *testing.T, opts taxonomy.Options) *taxonomy.Engine {
	t.Helper()
	return taxonomy.NewEngine(testregistry.New(t), opts, zaptest.NewLogger(t).Sugar())
}

func ids(records []taxonomy.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i], _ = r[taxonomy.FieldID].(string)
	}
	return out
}

func TestGetTaxon(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	res, err := e.GetTaxon(ctx, taxonomy.TaxonRequest{ID: "100", NS: taxatest.NCBI})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	rec := res.Results[0]
	assert.Equal(t, "Ancylobacter", rec["scientific_name"])
	assert.Equal(t, "genus", rec["rank"])
	assert.Equal(t, "335928", rec["parent_id"])
	assert.Equal(t, false, rec["strain"])
	assert.Nil(t, res.TotalCount)

	tests := []struct {
		name string
		req  taxonomy.TaxonRequest
		kind errors.Kind
	}{
		{"missing id", taxonomy.TaxonRequest{NS: taxatest.NCBI}, errors.KindInvalidParams},
		{"missing ns", taxonomy.TaxonRequest{ID: "100"}, errors.KindInvalidParams},
		{"unknown ns", taxonomy.TaxonRequest{ID: "100", NS: "silva"}, errors.KindUnknownNamespace},
		{"unknown id", taxonomy.TaxonRequest{ID: "nope", NS: taxatest.NCBI}, errors.KindNotFound},
		{"id from another namespace", taxonomy.TaxonRequest{ID: "g__Rhodobacter", NS: taxatest.NCBI}, errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.GetTaxon(ctx, tt.req)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}

func TestGetLineage(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	res, err := e.GetLineage(ctx, taxonomy.TaxonRequest{ID: "100", NS: taxatest.NCBI})
	require.NoError(t, err)
	require.Len(t, res.Results, 8)
	assert.Equal(t, "1", res.Results[0]["id"])
	assert.Equal(t, "100", res.Results[7]["id"])
	for i := 1; i < len(res.Results); i++ {
		assert.Equal(t, res.Results[i-1]["id"], res.Results[i]["parent_id"])
	}

	root, err := e.GetLineage(ctx, taxonomy.TaxonRequest{ID: "1", NS: taxatest.NCBI})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(root.Results))

	_, err = e.GetLineage(ctx, taxonomy.TaxonRequest{ID: "nope", NS: taxatest.NCBI})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestGetChildren(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	all, err := e.GetChildren(ctx, taxonomy.ChildrenRequest{ID: "28211", NS: taxatest.NCBI, Limit: util.Ptr(100)})
	require.NoError(t, err)
	require.NotNil(t, all.TotalCount)
	assert.Equal(t, 24, *all.TotalCount)
	assert.Len(t, all.Results, 24)
	assert.IsIncreasing(t, ids(all.Results))

	t.Run("pages concatenate to the full list", func(t *testing.T) {
		var got []string
		for offset := 0; offset < 30; offset += 5 {
			page, err := e.GetChildren(ctx, taxonomy.ChildrenRequest{
				ID: "28211", NS: taxatest.NCBI, Limit: util.Ptr(5), Offset: offset,
			})
			require.NoError(t, err)
			assert.Equal(t, 24, *page.TotalCount)
			got = append(got, ids(page.Results)...)
		}
		assert.Equal(t, ids(all.Results), got)
	})

	t.Run("search text filters", func(t *testing.T) {
		res, err := e.GetChildren(ctx, taxonomy.ChildrenRequest{
			ID: "28211", NS: taxatest.NCBI, SearchText: "CAULOBACTERALES",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"204458"}, ids(res.Results))
		assert.Equal(t, 1, *res.TotalCount)
	})

	t.Run("leaf has no children", func(t *testing.T) {
		res, err := e.GetChildren(ctx, taxonomy.ChildrenRequest{ID: "652611", NS: taxatest.NCBI})
		require.NoError(t, err)
		assert.Empty(t, res.Results)
		assert.Equal(t, 0, *res.TotalCount)
	})

	t.Run("offset past the end", func(t *testing.T) {
		res, err := e.GetChildren(ctx, taxonomy.ChildrenRequest{ID: "28211", NS: taxatest.NCBI, Offset: 500})
		require.NoError(t, err)
		assert.NotNil(t, res.Results)
		assert.Empty(t, res.Results)
		assert.Equal(t, 24, *res.TotalCount)
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := e.GetChildren(ctx, taxonomy.ChildrenRequest{ID: "nope", NS: taxatest.NCBI})
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestPaginationLimits(t *testing.T) {
	e := newEngine(t, taxonomy.Options{DefaultLimit: 5, MaxLimit: 10})
	ctx := context.Background()
	req := func(limit *int, offset int) taxonomy.ChildrenRequest {
		return taxonomy.ChildrenRequest{ID: "28211", NS: taxatest.NCBI, Limit: limit, Offset: offset}
	}

	res, err := e.GetChildren(ctx, req(nil, 0))
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)

	res, err = e.GetChildren(ctx, req(util.Ptr(50), 0))
	require.NoError(t, err)
	assert.Len(t, res.Results, 10)

	res, err = e.GetChildren(ctx, req(util.Ptr(0), 0))
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, 24, *res.TotalCount)

	_, err = e.GetChildren(ctx, req(util.Ptr(-1), 0))
	assert.True(t, errors.IsInvalidParamsError(err))

	_, err = e.GetChildren(ctx, req(nil, -3))
	assert.True(t, errors.IsInvalidParamsError(err))
}

func TestGetSiblings(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	res, err := e.GetSiblings(ctx, taxonomy.SiblingsRequest{ID: "287", NS: taxatest.NCBI})
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Results), "287")
	assert.Equal(t, len(res.Results), *res.TotalCount)
	for _, r := range res.Results {
		assert.Equal(t, "136841", r["parent_id"])
	}

	_, err = e.GetSiblings(ctx, taxonomy.SiblingsRequest{ID: "1", NS: taxatest.NCBI})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestSearchTaxa(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	t.Run("prefix and substring", func(t *testing.T) {
		prefix, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{NS: taxatest.GTDB, SearchText: "prefix:proteo"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p__Proteobacteria"}, ids(prefix.Results))

		contains, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{NS: taxatest.GTDB, SearchText: "proteo"})
		require.NoError(t, err)
		assert.Contains(t, ids(contains.Results), "c__Alphaproteobacteria")
	})

	t.Run("pages do not overlap", func(t *testing.T) {
		full, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{
			NS: taxatest.NCBI, SearchText: "rhodobact", Limit: util.Ptr(1000),
		})
		require.NoError(t, err)

		var got []string
		for offset := 0; offset < *full.TotalCount; offset += 7 {
			page, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{
				NS: taxatest.NCBI, SearchText: "rhodobact", Limit: util.Ptr(7), Offset: offset,
			})
			require.NoError(t, err)
			got = append(got, ids(page.Results)...)
		}
		assert.Equal(t, ids(full.Results), got)
	})

	t.Run("rank filter with strains", func(t *testing.T) {
		res, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{
			NS: taxatest.NCBI, SearchText: "pseudomonas aeruginosa",
			Ranks: []string{"species"}, IncludeStrains: true, Limit: util.Ptr(100),
		})
		require.NoError(t, err)
		assert.Contains(t, ids(res.Results), "287")
		assert.Contains(t, ids(res.Results), "208964")
	})

	t.Run("ranks on a rankless namespace", func(t *testing.T) {
		_, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{NS: taxatest.RDP, SearchText: "rhodo", Ranks: []string{"genus"}})
		assert.True(t, errors.IsInvalidParamsError(err))
	})

	t.Run("empty text", func(t *testing.T) {
		for _, text := range []string{"", "   ", "prefix:"} {
			_, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{NS: taxatest.NCBI, SearchText: text})
			assert.True(t, errors.IsInvalidParamsError(err), "text %q", text)
		}
	})
}

func TestSearchSpecies(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	plain, err := e.SearchSpecies(ctx, taxonomy.SearchSpeciesRequest{
		NS: taxatest.NCBI, SearchText: "pseudomonas aeruginosa", Limit: util.Ptr(100),
	})
	require.NoError(t, err)
	assert.Contains(t, ids(plain.Results), "287")
	assert.NotContains(t, ids(plain.Results), "208964")
	for _, r := range plain.Results {
		assert.Equal(t, "species", r["rank"])
	}

	strains, err := e.SearchSpecies(ctx, taxonomy.SearchSpeciesRequest{
		NS: taxatest.NCBI, SearchText: "pseudomonas aeruginosa", IncludeStrains: true, Limit: util.Ptr(100),
	})
	require.NoError(t, err)
	assert.Contains(t, ids(strains.Results), "208964")
	assert.Contains(t, ids(strains.Results), "652611")

	_, err = e.SearchSpecies(ctx, taxonomy.SearchSpeciesRequest{NS: taxatest.RDP, SearchText: "rhodobacter"})
	assert.True(t, errors.IsInvalidParamsError(err))
}

func TestProjection(t *testing.T) {
	e := newEngine(t, taxonomy.Options{})
	ctx := context.Background()

	res, err := e.GetTaxon(ctx, taxonomy.TaxonRequest{ID: "287", NS: taxatest.NCBI, Select: []string{"gencode", "missing"}})
	require.NoError(t, err)
	assert.Equal(t, taxonomy.Record{"id": "287", "ns": taxatest.NCBI, "gencode": 11}, res.Results[0])

	rdp, err := e.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{
		NS: taxatest.RDP, SearchText: "rhodobacter", Select: []string{"name", "rank"}, Limit: util.Ptr(1),
	})
	require.NoError(t, err)
	require.Len(t, rdp.Results, 1)
	assert.ElementsMatch(t, []string{"id", "ns", "name"}, keys(rdp.Results[0]))
}

func keys(r taxonomy.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
