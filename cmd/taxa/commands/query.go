package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
	"github.com/teranos/taxa/server"
	"github.com/teranos/taxa/taxonomy"
)

// QueryCmd runs one operation in-process
var QueryCmd = &cobra.Command{
	Use:   "query <operation>",
	Short: "Run a single taxonomy operation",
	Long: `Run one operation against the configured namespaces without starting the
gateway. Arguments are the same JSON object an RPC call carries in params[0].

Operations: get_taxon, get_lineage, get_children, get_siblings, search_taxa,
search_species, get_associated_ws_objects, get_taxon_from_ws_obj

Examples:
  taxa query get_lineage --params '{"id":"562","ns":"ncbi_taxonomy","select":["rank"]}'
  echo '{"ns":"gtdb","search_text":"prefix:rhodo"}' | taxa query search_species --params -`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var queryParams string

func init() {
	QueryCmd.Flags().StringVarP(&queryParams, "params", "p", "{}", "Argument object as JSON, or - to read stdin")
}

func runQuery(cmd *cobra.Command, args []string) error {
	raw := []byte(queryParams)
	if queryParams == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "read params from stdin")
		}
		raw = data
	}
	if !json.Valid(raw) {
		return errors.Newf("--params is not valid JSON: %s", raw)
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	srv, err := server.NewFromConfig(cfg, logger.Logger.Named("query"))
	if err != nil {
		return errors.Wrap(err, "failed to open namespaces")
	}
	defer srv.Stop()

	result, err := srv.Call(context.Background(), args[0], raw)
	if err != nil {
		return errors.Wrapf(err, "%s", errors.KindOf(err))
	}
	return writeResult(cmd, result)
}

// writeResult prints result as indented JSON on stdout and, for paged
// operations, a count summary on stderr.
func writeResult(cmd *cobra.Command, result *taxonomy.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return errors.Wrap(err, "encode result")
	}
	if result.TotalCount != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d shown\n", len(result.Results), *result.TotalCount)
	}
	return nil
}
