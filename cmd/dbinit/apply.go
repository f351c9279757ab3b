package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/spf13/cobra"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/internal/log"
	"github.com/Station-Manager/dbinit/scriptinit"
)

const (
	datasourceBean = "datasource"
	migrationsBean = "migrations"
	scriptsBean    = "scripts"
)

type applyFlags struct {
	db              string
	root            string
	schema          []string
	data            []string
	migrations      string
	mode            string
	continueOnError bool
}

func newApplyCmd(a *app) *cobra.Command {
	var f applyFlags
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Initialize a SQLite database from migrations and SQL scripts",
		Long: `Initialize a SQLite database from versioned migrations and SQL scripts.

Script settings are read from the "sql.init" section of the config file and
overridden by the flags. Locations are glob patterns relative to --root; prefix
a location with "optional:" when it may match nothing.

Examples:
  dbinit apply --db app.db --migrations migrations
  dbinit apply --db app.db --schema schema.sql --data 'optional:data/*.sql'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.apply(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite database file")
	cmd.Flags().StringVar(&f.root, "root", ".", "directory the script and migration locations are relative to")
	cmd.Flags().StringArrayVar(&f.schema, "schema", nil, "schema script location (repeatable)")
	cmd.Flags().StringArrayVar(&f.data, "data", nil, "data script location (repeatable)")
	cmd.Flags().StringVar(&f.migrations, "migrations", "", "directory of NNN_name.up.sql migrations")
	cmd.Flags().StringVar(&f.mode, "mode", "", "when scripts run: always, embedded or never")
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "log failing statements and carry on")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func (a *app) apply(cmd *cobra.Command, f applyFlags) error {
	settings, err := scriptinit.LoadSettings(a.v, "sql.init")
	if err != nil {
		return err
	}
	if len(f.schema) > 0 {
		settings.SchemaLocations = f.schema
	}
	if len(f.data) > 0 {
		settings.DataLocations = f.data
	}
	if f.mode != "" {
		if settings.Mode, err = scriptinit.ParseMode(f.mode); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("continue-on-error") {
		settings.ContinueOnError = f.continueOnError
	}

	db, err := sql.Open("sqlite3", "file:"+f.db)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.db, err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("open %s: %w", f.db, err)
	}
	log.Info(log.CatCLI, "database opened", "path", f.db)

	fsys := os.DirFS(f.root)
	c := container.New()
	if err := c.SetEnvironment(a.v); err != nil {
		return err
	}
	if err := c.RegisterInstance(datasourceBean, db); err != nil {
		return err
	}
	if f.migrations != "" {
		if err := c.RegisterInstance(migrationsBean, scriptinit.NewMigrationInitializer(db, fsys, f.migrations)); err != nil {
			return err
		}
	}
	if len(settings.SchemaLocations)+len(settings.DataLocations) > 0 {
		// Scripts run against the migrated schema.
		if err := c.RegisterInstance(scriptsBean, scriptinit.NewScriptDatabaseInitializer(db, fsys, settings),
			dependsOnIf(f.migrations != "", migrationsBean)...); err != nil {
			return err
		}
	}

	if err := dbinit.Install(c, dbinit.WithTracer(a.provider.Tracer())); err != nil {
		return err
	}
	if err := c.Build(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "initialized %s: %s\n", f.db, strings.Join(c.ActivationOrder(), " -> "))
	return nil
}

func dependsOnIf(cond bool, ids ...string) []container.RegisterOption {
	if !cond {
		return nil
	}
	return []container.RegisterOption{container.WithDependsOn(ids...)}
}
