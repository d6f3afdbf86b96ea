package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/etl-strato/config"
	"github.com/theoremus-urban-solutions/etl-strato/converter"
	"github.com/theoremus-urban-solutions/etl-strato/formatter"
	"github.com/theoremus-urban-solutions/etl-strato/internal/logging"
	"github.com/theoremus-urban-solutions/etl-strato/internal/observability"
	"github.com/theoremus-urban-solutions/etl-strato/source"
	"github.com/theoremus-urban-solutions/etl-strato/submit"
	"github.com/theoremus-urban-solutions/etl-strato/task"
)

var (
	serveOpts runOptions
	serveAddr string
)

// serveCmd exposes invocations over HTTP for schedulers that call a URL
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve invocations, health and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveOpts.configPath, "config", "c", "", "Environment file (default: search config.yml)")
	serveCmd.Flags().StringVar(&serveOpts.url, "url", "", "Upstream URL (overrides config)")
	serveCmd.Flags().BoolVar(&serveOpts.pretty, "pretty", false, "Indent JSON responses")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

type healthResponse struct {
	Status           string `json:"status"`
	LastSuccessEpoch int64  `json:"last_success_epoch"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// invoker runs one task per POST /invoke
type invoker struct {
	env     config.Environment
	fetcher task.Fetcher
	metrics *observability.Collector
	log     *zap.Logger
	pretty  bool

	lastSuccess atomic.Int64
}

func newRouter(inv *invoker) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/invoke", inv.handleInvoke).Methods(http.MethodPost)
	router.HandleFunc("/api/health", inv.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", inv.metrics.Handler()).Methods(http.MethodGet)
	return router
}

func (inv *invoker) handleInvoke(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")

	env := inv.env
	if sat := r.URL.Query().Get(converter.SatelliteParam); sat != "" {
		env.QueryParams = withQueryParam(env.QueryParams, converter.SatelliteParam, sat)
	}

	rec := &submit.Recorder{}
	res, err := task.New(env, inv.fetcher, rec, inv.metrics, inv.log).Run(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		var verr *converter.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	inv.lastSuccess.Store(time.Now().Unix())

	b, err := formatter.NewResponseBuilder(inv.pretty).BuildJSON(res.Collection)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	_, _ = w.Write(b)
}

func (inv *invoker) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		LastSuccessEpoch: inv.lastSuccess.Load(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMargin leaves room after the upstream deadline to encode and write
// the response or the 502
const writeMargin = 10 * time.Second

// writeTimeout outlasts the upstream request so a slow upstream ends in a
// 502 rather than a dropped connection. No upstream timeout means none here.
func writeTimeout(env config.Environment) time.Duration {
	if env.Timeout() <= 0 {
		return 0
	}
	return env.Timeout() + writeMargin
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.OrNop(logger)
	env, err := loadEnvironment(serveOpts)
	if err != nil {
		return err
	}
	metrics, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	inv := &invoker{
		env:     env,
		fetcher: source.NewClient(env.Timeout(), log),
		metrics: metrics,
		log:     log,
		pretty:  serveOpts.pretty,
	}
	server := &http.Server{
		Addr:              serveAddr,
		Handler:           newRouter(inv),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout(env),
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("server listening", zap.String("addr", serveAddr))

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error", zap.Error(err))
		return err
	}
	log.Info("server shut down successfully")
	return nil
}
