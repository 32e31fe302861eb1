package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/am"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage longrun configuration",
	Long: sym.AM + ` am — Manage longrun configuration

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (LONGRUN_* prefix)
3. Project config (./am.toml, searched up from the working directory)
4. User config (~/.longrun/am.toml)
5. System config (/etc/longrun/config.toml)
6. Default values

Examples:
  longrun am show                    # Show current configuration
  longrun am show --format json      # Show configuration in JSON format
  longrun am get registry.backend    # Get specific config value
  longrun am where                   # Show where each value came from
  longrun am init                    # Write defaults to ./am.toml`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, service.seed)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each configuration value is loaded from",
	RunE:  runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to am.toml",
	RunE:  runAmInit,
}

var (
	configFormat string
	initUserFlag bool
	initForce    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", am.FormatTOML, "Output format: toml, json, yaml")
	amInitCmd.Flags().BoolVar(&initUserFlag, "user", false, "Write ~/.longrun/am.toml instead of ./am.toml")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file (a backup is kept)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	data, err := am.Marshal(cfg, configFormat)
	if err != nil {
		return err
	}
	if configFormat != am.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout(), "# longrun configuration")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	if !am.GetViper().IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro := am.GetConfigIntrospection()

	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range intro.Settings {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)

	counts := intro.CountBySource()
	fmt.Fprintf(cmd.OutOrStdout(), "%d default, %d system, %d user, %d project, %d environment\n",
		counts[am.SourceDefault], counts[am.SourceSystem], counts[am.SourceUser],
		counts[am.SourceProject], counts[am.SourceEnvironment])
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := "am.toml"
	if initUserFlag {
		path = am.UserConfigPath()
		if path == "" {
			return errors.New("could not determine home directory")
		}
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "failed to resolve config path")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return errors.WithHint(
			errors.Newf("%s already exists", path),
			"pass --force to overwrite it; the previous file is kept as .back1")
	}

	if err := am.Save(path, am.Defaults()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
