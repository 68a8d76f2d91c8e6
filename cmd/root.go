// =============================================================================
// Sales Import - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (salesimport)
//   ├── sheetsCmd  (salesimport sheets FILE)
//   ├── headersCmd (salesimport headers FILE)
//   ├── importCmd  (salesimport import FILE)
//   ├── fieldsCmd  (salesimport fields)
//   ├── memoryCmd  (salesimport memory list|clear|pattern)
//   └── versionCmd (salesimport version)
//
// CONFIGURATION:
//   Before any command runs, the root command:
//   1. Locates config.yaml (--config, ./, $HOME/.config/salesimport)
//   2. Applies SALESIMPORT_* environment variables and global flags
//   3. Sets up logging
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file, if given.
var cfgFile string

// cfg is the loaded configuration, set before any command runs.
var cfg *config.Config

// logger is the configured logger, set before any command runs.
var logger *slog.Logger

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "salesimport",
	Short: "Sales Import - map and validate sales spreadsheets",
	Long: `Sales Import reads sales and payroll spreadsheets (.csv, .xlsx, .xls),
matches their columns to invoice fields, validates every row and exports the
valid rows for bulk upload.

Column choices can be remembered per file name pattern, so next month's
export of the same report maps itself.

Example Usage:
  salesimport sheets march.xlsx              # List worksheets
  salesimport headers march.xlsx             # Show the proposed mapping
  salesimport import march.xlsx --batch      # Validate and export
  salesimport import march.csv --map Rep=first_name --remember`,

	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. Interrupts cancel the running import.
// It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/salesimport/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, text, json)")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig loads the configuration and sets up logging.
func initConfig(_ *cobra.Command, _ []string) error {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "salesimport"))
		}
	}

	v.SetEnvPrefix("SALESIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		path = v.ConfigFileUsed()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	applyOverrides(v, loaded)
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger, err = logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	return nil
}

// applyOverrides copies environment and flag values onto c.
func applyOverrides(v *viper.Viper, c *config.Config) {
	targets := map[string]*string{
		"output_dir":     &c.OutputDir,
		"archive_dir":    &c.ArchiveDir,
		"log_level":      &c.LogLevel,
		"log_format":     &c.LogFormat,
		"date_format":    &c.DateFormat,
		"memory.backend": &c.Memory.Backend,
		"memory.path":    &c.Memory.Path,
		"memory.profile": &c.Memory.Profile,
		"output.format":  &c.Output.Format,
	}

	backend := c.Memory.Backend
	for key, target := range targets {
		if !v.IsSet(key) {
			continue
		}
		if value := v.GetString(key); value != "" {
			*target = value
		}
	}

	c.Memory.Backend = strings.ToLower(c.Memory.Backend)
	c.Output.Format = strings.ToLower(c.Output.Format)

	// A backend switch keeps a default path in step with the new backend.
	if c.Memory.Backend != backend && c.Memory.Path == config.DefaultMemoryPath(backend) {
		c.Memory.Path = config.DefaultMemoryPath(c.Memory.Backend)
	}
}
