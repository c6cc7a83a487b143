// Package cmd provides the CLI commands for casefind.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/akverma-qa/casefind/internal/config"
	"github.com/akverma-qa/casefind/internal/logging"
)

var (
	dataDir   string
	debugMode bool
	noColor   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the casefind CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "casefind",
		Short: "Hybrid search over QA test cases",
		Long: `Casefind searches a catalog of QA test cases with hybrid retrieval.

Queries are normalized, healthcare abbreviations expanded, and synonym
variants generated before lexical (BM25) and vector backends run
concurrently. Results are merged with rank fusion and optionally
reranked by an external relevance service.

Run 'casefind index --file cases.json' once, then 'casefind search'.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("casefind version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Index directory (default ~/.casefind)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging routes structured logs to the rotating log file. Stderr
// stays clean for command output unless debugging.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads configuration from the working directory with the
// --data-dir flag taking precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
