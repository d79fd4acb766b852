// Package storetest holds the behavioural suite every storage backend must
// pass. Backends run it against the shared fixture dataset.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/errors"
	taxatest "github.com/teranos/taxa/internal/testing"
	"github.com/teranos/taxa/taxonomy"
)

// Backend is one namespace opened on the backend under test. Search and
// Associations may be nil for backends that only provide a graph.
type Backend struct {
	Graph        taxonomy.GraphStore
	Search       taxonomy.SearchIndex
	Associations taxonomy.AssociationIndex
}

// OpenFunc opens namespace ns of d on the backend under test.
type OpenFunc func(t *testing.T, d *dataset.Dataset, ns string) Backend

// Run exercises the store contracts against the fixture dataset.
func Run(t *testing.T, open OpenFunc) {
	d := taxatest.Fixture(t)
	ncbi := open(t, d, taxatest.NCBI)

	t.Run("graph", func(t *testing.T) { testGraph(t, ncbi.Graph) })

	if ncbi.Search != nil {
		t.Run("search", func(t *testing.T) { testSearch(t, ncbi.Search) })
		t.Run("search without rank", func(t *testing.T) {
			rdp := open(t, d, taxatest.RDP)
			testSearchWithoutRank(t, rdp.Search)
		})
	}
	if ncbi.Associations != nil {
		t.Run("associations", func(t *testing.T) { testAssociations(t, ncbi.Associations) })
	}
}

func testGraph(t *testing.T, g taxonomy.GraphStore) {
	ctx := context.Background()

	t.Run("get taxon", func(t *testing.T) {
		tx, err := g.GetTaxon(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, "100", tx.ID)
		assert.Equal(t, taxatest.NCBI, tx.NS)
		assert.Equal(t, "Ancylobacter", tx.Name)
		assert.Equal(t, "genus", tx.Rank)
		assert.Equal(t, "335928", tx.ParentID)
		assert.False(t, tx.Strain)
		assert.Equal(t, "100", fmt.Sprint(tx.Attributes["ncbi_taxon_id"]))
		assert.Equal(t, "11", fmt.Sprint(tx.Attributes["gencode"]))
	})

	t.Run("get strain", func(t *testing.T) {
		tx, err := g.GetTaxon(ctx, "208964")
		require.NoError(t, err)
		assert.True(t, tx.Strain)
	})

	t.Run("get missing taxon", func(t *testing.T) {
		_, err := g.GetTaxon(ctx, "does-not-exist")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
	})

	t.Run("children ordered by id", func(t *testing.T) {
		children, err := g.GetChildren(ctx, "28211")
		require.NoError(t, err)
		require.Len(t, children, 24)
		ids := make([]string, len(children))
		for i, c := range children {
			ids[i] = c.ID
			assert.Equal(t, "28211", c.ParentID)
		}
		assert.True(t, sort.StringsAreSorted(ids), "children not ordered: %v", ids)
	})

	t.Run("leaf has no children", func(t *testing.T) {
		children, err := g.GetChildren(ctx, "101")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("parent", func(t *testing.T) {
		p, err := g.GetParent(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, "335928", p.ID)
		assert.Equal(t, "Xanthobacteraceae", p.Name)
	})

	t.Run("root has no parent", func(t *testing.T) {
		_, err := g.GetParent(ctx, "1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
	})

	t.Run("parent of missing taxon", func(t *testing.T) {
		_, err := g.GetParent(ctx, "does-not-exist")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
	})
}

func search(t *testing.T, idx taxonomy.SearchIndex, q taxonomy.SearchQuery) taxonomy.SearchPage {
	t.Helper()
	if q.Limit == 0 {
		q.Limit = 1000
	}
	page, err := idx.Search(context.Background(), q)
	require.NoError(t, err)
	return page
}

func testSearch(t *testing.T, idx taxonomy.SearchIndex) {
	t.Run("contains", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{Text: "aeruginosa", Mode: taxonomy.MatchContains})
		assert.Equal(t, 4, page.TotalCount)
		// Lowercased name order, then id.
		assert.Equal(t, []string{"287", "136841", "652611", "208964"}, page.IDs)
	})

	t.Run("contains is case insensitive", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{Text: "AERUGINOSA", Mode: taxonomy.MatchContains})
		assert.Equal(t, 4, page.TotalCount)
	})

	t.Run("prefix", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{Text: "rhodobact", Mode: taxonomy.MatchPrefix})
		assert.Equal(t, 36, page.TotalCount)
		assert.Len(t, page.IDs, 36)

		// "Alphaproteobacteria" contains the text but does not start with it.
		contains := search(t, idx, taxonomy.SearchQuery{Text: "proteobacteria", Mode: taxonomy.MatchContains})
		prefix := search(t, idx, taxonomy.SearchQuery{Text: "proteobacteria", Mode: taxonomy.MatchPrefix})
		assert.Equal(t, []string{"1224"}, prefix.IDs)
		assert.Greater(t, contains.TotalCount, prefix.TotalCount)
	})

	t.Run("rank filter", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{
			Text: "rhodobact", Mode: taxonomy.MatchPrefix, Ranks: []string{"species"},
		})
		assert.Equal(t, 32, page.TotalCount)
		assert.NotContains(t, page.IDs, "272943")
	})

	t.Run("rank filter with strains", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{
			Text: "rhodobact", Mode: taxonomy.MatchPrefix, Ranks: []string{"species"}, IncludeStrains: true,
		})
		assert.Equal(t, 33, page.TotalCount)
		require.Len(t, page.IDs, 33)
		// Strain sorts after every species sharing its prefix.
		assert.Equal(t, "272943", page.IDs[32])
	})

	t.Run("several ranks", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{
			Text: "rhodobact", Mode: taxonomy.MatchPrefix, Ranks: []string{"order", "family", "genus"},
		})
		assert.Equal(t, []string{"1060", "31989", "204455"}, page.IDs)
	})

	t.Run("pages tile the full result", func(t *testing.T) {
		q := taxonomy.SearchQuery{Text: "rhodobact", Mode: taxonomy.MatchPrefix}
		full := search(t, idx, q)

		var tiled []string
		for offset := 0; offset < full.TotalCount; offset += 7 {
			q.Offset, q.Limit = offset, 7
			page := search(t, idx, q)
			assert.Equal(t, full.TotalCount, page.TotalCount)
			tiled = append(tiled, page.IDs...)
		}
		assert.Equal(t, full.IDs, tiled)
	})

	t.Run("offset past the end", func(t *testing.T) {
		page, err := idx.Search(context.Background(), taxonomy.SearchQuery{
			Text: "aeruginosa", Mode: taxonomy.MatchContains, Limit: 10, Offset: 50,
		})
		require.NoError(t, err)
		assert.Empty(t, page.IDs)
		assert.Equal(t, 4, page.TotalCount)
	})

	t.Run("zero limit still counts", func(t *testing.T) {
		page, err := idx.Search(context.Background(), taxonomy.SearchQuery{
			Text: "aeruginosa", Mode: taxonomy.MatchContains, Limit: 0,
		})
		require.NoError(t, err)
		assert.Empty(t, page.IDs)
		assert.Equal(t, 4, page.TotalCount)
	})

	t.Run("pattern characters are literal", func(t *testing.T) {
		for _, text := range []string{"%", "_", `\`, "rhodo%"} {
			page := search(t, idx, taxonomy.SearchQuery{Text: text, Mode: taxonomy.MatchContains})
			assert.Zero(t, page.TotalCount, "text %q", text)
		}
	})

	t.Run("no match", func(t *testing.T) {
		page := search(t, idx, taxonomy.SearchQuery{Text: "zzzz", Mode: taxonomy.MatchContains})
		assert.Zero(t, page.TotalCount)
		assert.Empty(t, page.IDs)
	})
}

func testSearchWithoutRank(t *testing.T, idx taxonomy.SearchIndex) {
	page := search(t, idx, taxonomy.SearchQuery{Text: "rhodobacter", Mode: taxonomy.MatchContains})
	assert.Equal(t, 25, page.TotalCount)
}

func testAssociations(t *testing.T, idx taxonomy.AssociationIndex) {
	ctx := context.Background()

	refs := func(assocs []taxonomy.Association) []string {
		out := make([]string, len(assocs))
		for i, a := range assocs {
			out[i] = a.ObjRef
		}
		sort.Strings(out)
		return out
	}
	taxa := func(assocs []taxonomy.Association) []string {
		out := make([]string, len(assocs))
		for i, a := range assocs {
			out[i] = a.TaxonID
		}
		sort.Strings(out)
		return out
	}

	t.Run("objects for taxon", func(t *testing.T) {
		assocs, err := idx.ObjectsForTaxon(ctx, "287", taxatest.FixtureTS)
		require.NoError(t, err)
		assert.Equal(t, []string{"15792:10546:2", "15792:22:1"}, refs(assocs))
	})

	t.Run("objects after later version", func(t *testing.T) {
		assocs, err := idx.ObjectsForTaxon(ctx, "287", 1600000000000)
		require.NoError(t, err)
		assert.Equal(t, []string{"15792:10546:2", "15792:22:1", "15792:22:2"}, refs(assocs))
	})

	t.Run("objects before creation", func(t *testing.T) {
		assocs, err := idx.ObjectsForTaxon(ctx, "287", 1520000000000)
		require.NoError(t, err)
		assert.Equal(t, []string{"15792:10546:2"}, refs(assocs))
	})

	t.Run("taxa for object", func(t *testing.T) {
		assocs, err := idx.TaxaForObject(ctx, "15792:10546:2", taxatest.FixtureTS)
		require.NoError(t, err)
		assert.Equal(t, []string{"287"}, taxa(assocs))
	})

	t.Run("expired association", func(t *testing.T) {
		assocs, err := idx.TaxaForObject(ctx, "15792:10546:2", 1450000000000)
		require.NoError(t, err)
		assert.Equal(t, []string{"286"}, taxa(assocs))

		// Expiry is exclusive.
		assocs, err = idx.TaxaForObject(ctx, "15792:10546:2", 1500000000000)
		require.NoError(t, err)
		assert.Equal(t, []string{"287"}, taxa(assocs))
	})

	t.Run("unknown object", func(t *testing.T) {
		assocs, err := idx.TaxaForObject(ctx, "1:1:1", taxatest.FixtureTS)
		require.NoError(t, err)
		assert.Empty(t, assocs)
	})

	t.Run("interval fields survive", func(t *testing.T) {
		assocs, err := idx.TaxaForObject(ctx, "15792:40:1", 1350000000000)
		require.NoError(t, err)
		require.Len(t, assocs, 1)
		assert.Equal(t, "1063", assocs[0].TaxonID)
		assert.Equal(t, int64(1300000000000), assocs[0].Created)
		assert.Equal(t, int64(1400000000000), assocs[0].Expired)
	})
}
