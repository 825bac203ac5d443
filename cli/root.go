// Package cli wires the chunkforge commands: splitting single documents,
// validating rule tables, running ingestion, searching the vector store, and
// serving the HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chunkforge/chunkforge/pkg/config"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// RootCmd assembles the command tree. Configuration and the logger are
// resolved once here and handed to subcommands through the command context.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chunkforge",
		Short:         "Rule-driven document chunking for retrieval pipelines",
		Long:          "chunkforge splits documents into bounded, overlapping chunks and moves them through embedding into a vector store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupContext(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "path to the configuration file")
	root.PersistentFlags().String("cwd", "", "working directory to run from")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "annotate logs with source locations")

	root.AddCommand(
		SplitCmd(),
		RulesCmd(),
		IngestCmd(),
		SearchCmd(),
		ServeCmd(),
		VersionCmd(),
	)
	return root
}

// Execute runs the root command and reports failures on stderr.
func Execute() int {
	cmd := RootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setupContext resolves working directory, environment, logging, and
// configuration before any subcommand runs.
func setupContext(cmd *cobra.Command) error {
	cwd, err := cmd.Flags().GetString("cwd")
	if err != nil {
		return fmt.Errorf("failed to get cwd flag: %w", err)
	}
	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return fmt.Errorf("failed to change directory to %s: %w", cwd, err)
		}
	}
	// Missing .env files are fine; explicit environment always wins.
	_ = godotenv.Load()

	logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	logger.SetupLogger(logLevel, logJSON, logSource)

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	ctx := cmd.Context()
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}
