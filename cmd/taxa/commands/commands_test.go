package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/taxonomy"
	"github.com/teranos/taxa/version"
)

func TestVersionCmd_JSON(t *testing.T) {
	var out bytes.Buffer
	VersionCmd.SetOut(&out)
	require.NoError(t, VersionCmd.Flags().Set("json", "true"))
	t.Cleanup(func() { _ = VersionCmd.Flags().Set("json", "false") })

	require.NoError(t, VersionCmd.RunE(VersionCmd, nil))

	var info version.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version.VersionTag, info.Version)
}

func TestAmInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")

	require.NoError(t, runAmInit(amInitCmd, []string{path}))

	cfg, err := am.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, am.Default(), cfg)
}

func TestWriteResult(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	total := 12
	res := &taxonomy.Result{
		Results:    []taxonomy.Record{{"id": "562"}, {"id": "561"}},
		TotalCount: &total,
	}
	require.NoError(t, writeResult(cmd, res))

	var decoded taxonomy.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Len(t, decoded.Results, 2)
	assert.Equal(t, "2 of 12 shown\n", errOut.String())

	t.Run("no summary without a total", func(t *testing.T) {
		errOut.Reset()
		require.NoError(t, writeResult(cmd, &taxonomy.Result{Results: []taxonomy.Record{}}))
		assert.Empty(t, errOut.String())
	})
}

func TestRunQuery_RejectsBadParams(t *testing.T) {
	queryParams = "{not json"
	t.Cleanup(func() { queryParams = "{}" })

	err := runQuery(QueryCmd, []string{"get_taxon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--params is not valid JSON")
}
