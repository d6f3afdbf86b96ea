package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/etl-strato/config"
	"github.com/theoremus-urban-solutions/etl-strato/converter"
	"github.com/theoremus-urban-solutions/etl-strato/internal/logging"
	"github.com/theoremus-urban-solutions/etl-strato/internal/observability"
	"github.com/theoremus-urban-solutions/etl-strato/source"
	"github.com/theoremus-urban-solutions/etl-strato/submit"
	"github.com/theoremus-urban-solutions/etl-strato/task"
)

type runOptions struct {
	configPath      string
	url             string
	satellite       string
	output          string
	pretty          bool
	metricsTextfile string
}

var runOpts runOptions

// runCmd performs a single invocation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one invocation and write the feature collection",
	Example: `  etl-strato run --config config.yml
  etl-strato run --url https://api.example.com/track --satellite HBAL-123 --pretty`,
	Args: cobra.NoArgs,
	RunE: runInvocation,
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.configPath, "config", "c", "", "Environment file (default: search config.yml)")
	runCmd.Flags().StringVar(&runOpts.url, "url", "", "Upstream URL (overrides config)")
	runCmd.Flags().StringVar(&runOpts.satellite, "satellite", "", "Only keep features with this name")
	runCmd.Flags().StringVarP(&runOpts.output, "output", "o", "-", "Output file, - for stdout")
	runCmd.Flags().BoolVar(&runOpts.pretty, "pretty", false, "Indent the JSON output")
	runCmd.Flags().StringVar(&runOpts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
}

func runInvocation(cmd *cobra.Command, args []string) error {
	log := logging.OrNop(logger)
	env, err := loadEnvironment(runOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// a file is only replaced once the whole invocation succeeded
	var buf bytes.Buffer
	out := cmd.OutOrStdout()
	toFile := runOpts.output != "" && runOpts.output != "-"
	if toFile {
		out = &buf
	}

	var metrics *observability.Collector
	if runOpts.metricsTextfile != "" {
		if metrics, err = observability.NewCollector(prometheus.NewRegistry()); err != nil {
			return err
		}
	}

	t := task.New(env, source.NewClient(env.Timeout(), log), submit.NewWriterSubmitter(out, runOpts.pretty), metrics, log)
	_, runErr := t.Run(ctx)
	if runErr == nil && toFile {
		runErr = writeOutput(runOpts.output, buf.Bytes())
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(runOpts.metricsTextfile); err != nil {
			log.Warn("failed to write metrics textfile", zap.Error(err))
		}
	}
	return runErr
}

// loadEnvironment reads the config file and applies flag overrides. Without a
// config file, --url alone is enough.
func loadEnvironment(opts runOptions) (config.Environment, error) {
	env, err := config.LoadEnvironment(opts.configPath)
	if err != nil {
		if opts.url == "" || opts.configPath != "" || !errors.Is(err, fs.ErrNotExist) {
			return config.Environment{}, fmt.Errorf("load environment: %w", err)
		}
		env = config.FromProcessEnv()
	}

	if opts.url != "" {
		env.URL = opts.url
	}
	if opts.satellite != "" {
		env.QueryParams = withQueryParam(env.QueryParams, converter.SatelliteParam, opts.satellite)
	}
	if err := config.Validate(env); err != nil {
		return config.Environment{}, fmt.Errorf("invalid environment: %w", err)
	}
	return env, nil
}

// withQueryParam returns a copy of params with key set to value, replacing
// earlier entries for key
func withQueryParam(params []config.KeyValue, key, value string) []config.KeyValue {
	out := make([]config.KeyValue, 0, len(params)+1)
	for _, p := range params {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return append(out, config.KeyValue{Key: key, Value: value})
}

// writeOutput replaces path atomically via a temp file in the same directory
func writeOutput(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// contextOrBackground guards commands executed without a context in tests
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
