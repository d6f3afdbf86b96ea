package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/etl-strato/internal/logging"
	"github.com/theoremus-urban-solutions/etl-strato/internal/observability"
)

var (
	// Global flags
	verbose   bool
	logFormat string

	logger          *zap.Logger
	tracingShutdown func(context.Context) error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "etl-strato",
	Short: "Poll a stratospheric balloon tracking API and emit GeoJSON",
	Long: `etl-strato fetches a GeoJSON FeatureCollection from a tracking API,
splits it into a current position and a historic track per balloon and
submits the result.

Options are read from config.yml (or --config) and ETL_* environment
variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Config{Verbose: verbose, Format: logFormat})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		tracingShutdown, err = observability.InitTracing(contextOrBackground(cmd.Context()), observability.TracingConfigFromEnv(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.ShutdownWithTimeout(context.Background(), tracingShutdown, logger)
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json|console")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
