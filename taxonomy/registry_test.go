package taxonomy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/taxa/errors"
	taxatest "github.com/teranos/taxa/internal/testing"
	"github.com/teranos/taxa/internal/testregistry"
	"github.com/teranos/taxa/taxonomy"
)

func TestNewRegistry(t *testing.T) {
	namespaces := testregistry.Namespaces(t, taxatest.Fixture(t))
	r, err := taxonomy.NewRegistry(namespaces...)
	require.NoError(t, err)

	listed := r.List()
	require.Len(t, listed, 3)
	assert.Equal(t, taxatest.GTDB, listed[0].ID)
	assert.Equal(t, taxatest.NCBI, listed[1].ID)
	assert.Equal(t, taxatest.RDP, listed[2].ID)

	ns, err := r.Resolve(taxatest.RDP)
	require.NoError(t, err)
	assert.Equal(t, taxonomy.FieldName, ns.NameField)
	assert.False(t, ns.HasRank)

	_, err = r.Resolve("")
	assert.True(t, errors.IsInvalidParamsError(err))
	_, err = r.Resolve("silva")
	assert.Equal(t, errors.KindUnknownNamespace, errors.KindOf(err))
}

func TestNewRegistry_Rejects(t *testing.T) {
	base := func() *taxonomy.Namespace {
		return testregistry.Namespaces(t, taxatest.Fixture(t))[0]
	}

	tests := []struct {
		name    string
		build   func() []*taxonomy.Namespace
		wantErr string
	}{
		{"empty id", func() []*taxonomy.Namespace {
			ns := base()
			ns.ID = ""
			return []*taxonomy.Namespace{ns}
		}, "id is required"},
		{"duplicate", func() []*taxonomy.Namespace {
			return []*taxonomy.Namespace{base(), base()}
		}, "registered twice"},
		{"bad name field", func() []*taxonomy.Namespace {
			ns := base()
			ns.NameField = "label"
			return []*taxonomy.Namespace{ns}
		}, "unsupported name field"},
		{"missing graph", func() []*taxonomy.Namespace {
			ns := base()
			ns.Graph = nil
			return []*taxonomy.Namespace{ns}
		}, "graph store and search index"},
		{"half-configured associations", func() []*taxonomy.Namespace {
			ns := base()
			ns.Objects = nil
			return []*taxonomy.Namespace{ns}
		}, "configured together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taxonomy.NewRegistry(tt.build()...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseRelease(t *testing.T) {
	v, err := taxonomy.ParseRelease("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = taxonomy.ParseRelease("2.3")
	require.NoError(t, err)
	assert.Equal(t, "2.3.0", v.String())

	_, err = taxonomy.ParseRelease("latest")
	assert.ErrorContains(t, err, "invalid release")
}
