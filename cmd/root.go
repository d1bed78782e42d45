/*
Copyright © 2025 Genograb Contributors

Genograb is a CLI tool for acquiring genotype data for research.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/services"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "genograb",
	Short: "Genograb - genotype data acquisition CLI",
	Long: `Genograb acquires genotype data for research from two public web sources.

  impute   Submit raw 23andMe files to the Haplotype Imputer, track the
           jobs and download the imputed results.
  opensnp  Collect the 23andMe files shared by openSNP users for a
           phenotype, grouped by the variant each user reported.

Both workflows checkpoint their progress to disk so an interrupted run can
be resumed without repeating finished work.

Example:
  genograb impute -i ./raw -o ./imputed
  genograb impute -i ./raw -o ./imputed -f
  genograb opensnp -p 24 -o ./data

For more information, visit: https://github.com/trobanga/genograb`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./genograb.yaml, ~/.config/genograb/genograb.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.SetVersionTemplate("Genograb version {{.Version}}\n")
}

// loadConfig loads the configuration and creates the command logger
func loadConfig() (*models.ProjectConfig, *lib.Logger, error) {
	logger := newLogger()
	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return nil, logger, err
	}
	if path := services.GetConfigFilePath(cfgFile); path != "" {
		logger.Debug("Configuration loaded", "file", path)
	} else {
		logger.Debug("No config file found, using defaults and environment")
	}
	return config, logger, nil
}

// newLogger returns the command logger: debug with --verbose, otherwise
// GENOGRAB_LOG_LEVEL (default info)
func newLogger() *lib.Logger {
	if verbose {
		return lib.NewLogger(lib.LogLevelDebug)
	}
	return lib.NewLogger(lib.ParseLogLevel(os.Getenv("GENOGRAB_LOG_LEVEL")))
}

// reportError prints err with guidance when it carries any
func reportError(err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Interrupted")
		return
	}

	genoErr := lib.ClassifyError(err)
	fmt.Fprint(os.Stderr, genoErr.UserMessage())

	var known *lib.GenoError
	if errors.As(err, &known) && err.Error() != known.Error() {
		fmt.Fprintf(os.Stderr, "\nContext: %s\n", err.Error())
	}
}
