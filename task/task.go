package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/etl-strato/config"
	"github.com/theoremus-urban-solutions/etl-strato/converter"
	"github.com/theoremus-urban-solutions/etl-strato/internal/logging"
	"github.com/theoremus-urban-solutions/etl-strato/internal/observability"
	"github.com/theoremus-urban-solutions/etl-strato/source"
	"github.com/theoremus-urban-solutions/etl-strato/submit"
)

// Name is the task name registered with the ETL platform
const Name = "etl-strato"

const tracerName = "github.com/theoremus-urban-solutions/etl-strato/task"

// Data flows and invocation types the task supports
var (
	Flows       = []Flow{FlowIncoming}
	Invocations = []string{"schedule"}
)

// Fetcher retrieves the raw upstream document for an environment
type Fetcher interface {
	Fetch(ctx context.Context, env config.Environment) (*source.Response, error)
}

// Task wires the stages of one invocation together
type Task struct {
	Env       config.Environment
	Source    Fetcher
	Submitter submit.Submitter
	Metrics   *observability.Collector
	Logger    *zap.Logger

	now func() time.Time
}

// New creates a task. metrics and log may be nil.
func New(env config.Environment, src Fetcher, sub submit.Submitter, metrics *observability.Collector, log *zap.Logger) *Task {
	return &Task{
		Env:       env,
		Source:    src,
		Submitter: sub,
		Metrics:   metrics,
		Logger:    logging.OrNop(log),
		now:       time.Now,
	}
}

// Run performs one invocation and returns the submitted result
func (t *Task) Run(ctx context.Context) (*converter.Result, error) {
	if t.Source == nil || t.Submitter == nil {
		return nil, errors.New("task requires a source and a submitter")
	}
	log := logging.OrNop(t.Logger)
	tracer := otel.Tracer(tracerName)

	ctx, span := tracer.Start(ctx, "invoke", trace.WithAttributes(
		attribute.String("etl.task", Name),
		attribute.String("etl.layout", t.Env.Layout),
	))
	defer span.End()

	resp, err := t.fetch(ctx, tracer)
	if err != nil {
		t.fail(span, observability.ResultFetchError, err)
		return nil, err
	}

	res, err := t.convert(ctx, tracer, resp)
	if err != nil {
		result := observability.ResultFetchError
		var verr *converter.ValidationError
		if errors.As(err, &verr) {
			result = observability.ResultValidationError
		}
		t.fail(span, result, err)
		return nil, err
	}

	if err := t.submit(ctx, tracer, res); err != nil {
		t.fail(span, observability.ResultSubmitError, err)
		return nil, err
	}

	log.Info(fmt.Sprintf("ok - obtained %d features", len(res.Collection.Features)),
		zap.Int("fetched", res.Fetched),
		zap.Int("retained", res.Retained),
	)
	t.Metrics.ObserveInvocation(observability.ResultOK, t.clock())
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (t *Task) fetch(ctx context.Context, tracer trace.Tracer) (*source.Response, error) {
	ctx, span := tracer.Start(ctx, "fetch")
	defer span.End()

	start := t.clock()
	resp, err := t.Source.Fetch(ctx, t.Env)
	t.Metrics.ObserveFetch(t.clock().Sub(start))
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int("http.response_size", len(resp.Body)),
	)
	return resp, nil
}

func (t *Task) convert(ctx context.Context, tracer trace.Tracer, resp *source.Response) (*converter.Result, error) {
	_, span := tracer.Start(ctx, "convert")
	defer span.End()

	conv := converter.NewConverter(converter.OptionsFromEnvironment(t.Env), t.Logger)
	res, err := conv.Convert(resp.URL, resp.Body)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("etl.features_fetched", res.Fetched),
		attribute.Int("etl.features_retained", res.Retained),
		attribute.Int("etl.features_emitted", len(res.Collection.Features)),
	)
	t.Metrics.ObserveConversion(res.Fetched, res.Emitted, res.VerticesRemoved)
	return res, nil
}

func (t *Task) submit(ctx context.Context, tracer trace.Tracer, res *converter.Result) error {
	ctx, span := tracer.Start(ctx, "submit")
	defer span.End()

	if err := t.Submitter.Submit(ctx, res.Collection); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (t *Task) fail(span trace.Span, result string, err error) {
	recordError(span, err)
	t.Metrics.ObserveInvocation(result, t.clock())
	logging.OrNop(t.Logger).Error("invocation failed", zap.String("result", result), zap.Error(err))
}

func (t *Task) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
