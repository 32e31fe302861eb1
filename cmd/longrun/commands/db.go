package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/db"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the registry database",
	Long: sym.DB + ` db — Manage the SQLite registry database

Examples:
  longrun db migrate               # Apply pending migrations
  longrun db status                # List migrations and whether they are applied`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations",
	RunE:  runDbStatus,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatusCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.ComponentLogger("db"))
	if err != nil {
		return errors.Wrapf(err, "failed to migrate %s", cfg.Database.Path)
	}
	defer database.Close()

	migrations, err := db.Migrations(contextOf(cmd), database)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s is at migration %s\n", sym.DB, cfg.Database.Path, migrations[len(migrations)-1].Version)
	return nil
}

func runDbStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.Path, logger.ComponentLogger("db"))
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", cfg.Database.Path)
	}
	defer database.Close()

	migrations, err := db.Migrations(contextOf(cmd), database)
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Version", "File", "Applied"}}
	for _, m := range migrations {
		data = append(data, []string{m.Version, m.File, strconv.FormatBool(m.Applied)})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}
