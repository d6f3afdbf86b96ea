package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation results used as the "result" label
const (
	ResultOK              = "ok"
	ResultValidationError = "validation_error"
	ResultFetchError      = "fetch_error"
	ResultSubmitError     = "submit_error"
)

// Collector bundles Prometheus metrics for task invocations. A nil
// *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Invocations     *prometheus.CounterVec
	FeaturesEmitted *prometheus.CounterVec
	FeaturesFetched prometheus.Gauge
	FetchDuration   prometheus.Histogram
	VerticesRemoved prometheus.Counter
	LastSuccess     prometheus.Gauge
}

// NewCollector registers the task metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	invocations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_invocations_total",
		Help: "Total number of task invocations, labeled by result.",
	}, []string{"result"}), "etl_invocations_total")
	if err != nil {
		return nil, err
	}

	emitted, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_features_emitted_total",
		Help: "Total number of submitted features, labeled by kind (current, history, passthrough).",
	}, []string{"kind"}), "etl_features_emitted_total")
	if err != nil {
		return nil, err
	}

	fetched, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etl_features_fetched",
		Help: "Number of features in the most recent upstream document.",
	}), "etl_features_fetched")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "etl_fetch_duration_seconds",
		Help:    "Upstream fetch latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}), "etl_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	removed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "etl_track_vertices_removed_total",
		Help: "Total number of track positions removed by simplification.",
	}), "etl_track_vertices_removed_total")
	if err != nil {
		return nil, err
	}

	lastSuccess, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etl_last_success_timestamp_seconds",
		Help: "Unix time of the last successful invocation.",
	}), "etl_last_success_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Invocations:     invocations,
		FeaturesEmitted: emitted,
		FeaturesFetched: fetched,
		FetchDuration:   duration,
		VerticesRemoved: removed,
		LastSuccess:     lastSuccess,
	}, nil
}

// ObserveInvocation counts one invocation with result; successful ones also
// move the last-success timestamp
func (c *Collector) ObserveInvocation(result string, at time.Time) {
	if c == nil {
		return
	}
	c.Invocations.WithLabelValues(result).Inc()
	if result == ResultOK {
		c.LastSuccess.Set(float64(at.Unix()))
	}
}

// ObserveFetch records fetch latency
func (c *Collector) ObserveFetch(d time.Duration) {
	if c == nil {
		return
	}
	c.FetchDuration.Observe(d.Seconds())
}

// ObserveConversion records the counters of one transform pass
func (c *Collector) ObserveConversion(fetched int, emitted map[string]int, verticesRemoved int) {
	if c == nil {
		return
	}
	c.FeaturesFetched.Set(float64(fetched))
	for kind, n := range emitted {
		c.FeaturesEmitted.WithLabelValues(kind).Add(float64(n))
	}
	c.VerticesRemoved.Add(float64(verticesRemoved))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile writes the gathered metrics in the text exposition format,
// for node_exporter's textfile collector after one-shot runs.
func (c *Collector) WriteTextfile(path string) error {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
