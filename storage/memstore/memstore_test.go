package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/internal/storetest"
	taxatest "github.com/teranos/taxa/internal/testing"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, d *dataset.Dataset, ns string) storetest.Backend {
		s, err := FromDataset(d, ns)
		require.NoError(t, err)
		return storetest.Backend{Graph: s, Search: s, Associations: s}
	})
}

func TestFromDatasetUnknownNamespace(t *testing.T) {
	_, err := FromDataset(taxatest.Fixture(t), "silva")
	assert.ErrorContains(t, err, `no namespace "silva"`)
}

func TestReturnedTaxaAreCopies(t *testing.T) {
	s, err := FromDataset(taxatest.Fixture(t), taxatest.NCBI)
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := s.GetTaxon(ctx, "100")
	require.NoError(t, err)
	tx.Name = "mutated"

	again, err := s.GetTaxon(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "Ancylobacter", again.Name)
}

func TestCancelledContext(t *testing.T) {
	s, err := FromDataset(taxatest.Fixture(t), taxatest.NCBI)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.GetTaxon(ctx, "100")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.GetChildren(ctx, "28211")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObjects(t *testing.T) {
	objs, err := ObjectsFromDataset(taxatest.Fixture(t))
	require.NoError(t, err)

	got, err := objs.GetObjects(context.Background(), []string{"15792:10546:2", "15792:31337:1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GCF_000006765.1", got["15792:10546:2"].Name)
}
