package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/db"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
	"github.com/teranos/taxa/storage/badgerstore"
	"github.com/teranos/taxa/storage/sqlitestore"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the taxonomy store",
	Long: `db - Manage the taxonomy store

Examples:
  taxa db migrate                 # Apply pending SQLite migrations
  taxa db import taxa.yaml        # Load a dataset into the configured backends
  taxa db stats                   # Show per-namespace counts`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQLite schema migrations",
	RunE:  runDbMigrate,
}

var dbImportCmd = &cobra.Command{
	Use:   "import <dataset>",
	Short: "Import a dataset file",
	Long: `Validate a YAML dataset and load it into every persistent backend the
configuration uses. Namespaces present in the file replace their previous
contents; other namespaces are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runDbImport,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show SQLite store statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbImportCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

// openDatabase opens and migrates the configured SQLite database.
func openDatabase(cfg *am.Config) (*sql.DB, error) {
	path := cfg.GetDatabasePath()
	database, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return database, nil
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	schema, err := db.SchemaVersion(database)
	if err != nil {
		return err
	}
	pterm.Success.Printf("%s is at schema version %s\n", cfg.GetDatabasePath(), schema)
	return nil
}

func runDbImport(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	d, err := dataset.Load(args[0])
	if err != nil {
		return err
	}
	pterm.Info.Printf("Validated %s: namespaces %v, %d objects\n", args[0], d.NamespaceIDs(), len(d.Objects))

	ctx := context.Background()
	imported := false

	if cfg.UsesBackend(am.BackendSQLite) {
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		res, err := sqlitestore.Import(ctx, database, d, logger.Logger)
		if err != nil {
			return err
		}
		for _, ns := range d.NamespaceIDs() {
			pterm.Success.Printf("sqlite %s: %d taxa, %d associations\n", ns, res.Taxa[ns], res.Associations[ns])
		}
		imported = true
	}

	if cfg.UsesBackend(am.BackendBadger) {
		kv, err := badgerstore.Open(badgerstore.Options{Dir: cfg.Database.BadgerDir, Logger: logger.Logger.Named("badger")})
		if err != nil {
			return err
		}
		defer kv.Close()

		if err := kv.Import(ctx, d); err != nil {
			return err
		}
		pterm.Success.Printf("badger %s: imported %v\n", cfg.Database.BadgerDir, d.NamespaceIDs())
		imported = true
	}

	if !imported {
		pterm.Warning.Println("No persistent backend configured; memory namespaces read their dataset at startup")
	}
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	namespaces, objects, err := sqlitestore.Stats(context.Background(), database)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Println("Database Statistics")
	fmt.Fprintf(cmd.OutOrStdout(), "Database Path:     %s\n", cfg.GetDatabasePath())
	fmt.Fprintf(cmd.OutOrStdout(), "Workspace Objects: %d\n\n", objects)

	data := pterm.TableData{{"Namespace", "Taxa", "Roots", "Associations"}}
	for _, ns := range namespaces {
		data = append(data, []string{ns.NS, strconv.Itoa(ns.Taxa), strconv.Itoa(ns.Roots), strconv.Itoa(ns.Associations)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}
