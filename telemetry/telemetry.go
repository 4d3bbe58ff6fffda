// Package telemetry bundles the logger, metrics and traces emitted by the server. Everything
// is built on OpenTelemetry APIs, so by default (no providers installed globally) it costs
// next to nothing.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/indigo-web/schnell/http/status"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const ScopeName = "github.com/indigo-web/schnell"

const (
	attrMethod     = attribute.Key("http.request.method")
	attrPath       = attribute.Key("url.path")
	attrStatusCode = attribute.Key("http.response.status_code")
	attrErrorType  = attribute.Key("error.type")
)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider log.LoggerProvider
	logger         *slog.Logger
}

type Option func(*config)

// WithTracerProvider overrides the globally registered tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider overrides the globally registered meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// WithLoggerProvider routes the logs into the OpenTelemetry logger provider.
func WithLoggerProvider(lp log.LoggerProvider) Option {
	return func(c *config) {
		c.loggerProvider = lp
	}
}

// WithLogger sets the logger explicitly. It takes precedence over WithLoggerProvider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

type Telemetry struct {
	Logger        *slog.Logger
	tracer        trace.Tracer
	meter         metric.Meter
	accepted      metric.Int64Counter
	acceptErrors  metric.Int64Counter
	requests      metric.Int64Counter
	parseErrors   metric.Int64Counter
	handlerFaults metric.Int64Counter
	duration      metric.Float64Histogram
	queueDepth    metric.Int64ObservableUpDownCounter
}

// New creates the instruments. Unless overridden by options, the global OpenTelemetry
// providers and slog.Default() are used.
func New(opts ...Option) (*Telemetry, error) {
	cfg := config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	switch {
	case logger != nil:
	case cfg.loggerProvider != nil:
		logger = otelslog.NewLogger(ScopeName, otelslog.WithLoggerProvider(cfg.loggerProvider))
	default:
		logger = slog.Default()
	}

	meter := cfg.meterProvider.Meter(ScopeName)
	t := &Telemetry{
		Logger: logger,
		tracer: cfg.tracerProvider.Tracer(ScopeName),
		meter:  meter,
	}

	var err error
	if t.accepted, err = meter.Int64Counter("schnell.connections.accepted",
		metric.WithDescription("Number of accepted connections"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}

	if t.acceptErrors, err = meter.Int64Counter("schnell.accept.errors",
		metric.WithDescription("Number of failed accept attempts"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}

	if t.requests, err = meter.Int64Counter("schnell.requests",
		metric.WithDescription("Number of served requests by response status code"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}

	if t.parseErrors, err = meter.Int64Counter("schnell.parse.errors",
		metric.WithDescription("Number of rejected malformed requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}

	if t.handlerFaults, err = meter.Int64Counter("schnell.handler.faults",
		metric.WithDescription("Number of panics recovered from handlers"),
		metric.WithUnit("{panic}")); err != nil {
		return nil, err
	}

	if t.duration, err = meter.Float64Histogram("schnell.request.duration",
		metric.WithDescription("Time spent in the handler and writing the response"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	if t.queueDepth, err = meter.Int64ObservableUpDownCounter("schnell.queue.depth",
		metric.WithDescription("Number of accepted connections waiting for a worker"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}

	return t, nil
}

// Noop returns telemetry that discards everything. Useful in tests.
func Noop() *Telemetry {
	t, err := New(
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithMeterProvider(metricnoop.NewMeterProvider()),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		// noop meter never fails
		panic(err)
	}

	return t
}

// ObserveQueue reports the value returned by depth as the queue depth on every collection,
// until unregistered.
func (t *Telemetry) ObserveQueue(depth func() int) (unregister func() error, err error) {
	reg, err := t.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(t.queueDepth, int64(depth()))
		return nil
	}, t.queueDepth)
	if err != nil {
		return nil, err
	}

	return reg.Unregister, nil
}

func (t *Telemetry) Accepted(ctx context.Context) {
	t.accepted.Add(ctx, 1)
}

// AcceptError records a transient accept failure.
func (t *Telemetry) AcceptError(ctx context.Context, err error, errno string, delay time.Duration) {
	t.acceptErrors.Add(ctx, 1, metric.WithAttributes(attrErrorType.String(errno)))
	t.Logger.WarnContext(ctx, "accept failed, retrying",
		"error", err, "errno", errno, "delay", delay)
}

// ParseError records a rejected request.
func (t *Telemetry) ParseError(ctx context.Context, err error, code status.Code) {
	t.parseErrors.Add(ctx, 1, metric.WithAttributes(attrStatusCode.Int(int(code))))
	t.Logger.DebugContext(ctx, "malformed request", "error", err, "status", int(code))
}

// HandlerFault records a panic recovered from the handler.
func (t *Telemetry) HandlerFault(ctx context.Context, err error, stack []byte) {
	t.handlerFaults.Add(ctx, 1)
	trace.SpanFromContext(ctx).RecordError(err)
	t.Logger.ErrorContext(ctx, "handler panicked", "error", err, "stack", string(stack))
}

// Request is a single in-flight request observation.
type Request struct {
	t      *Telemetry
	span   trace.Span
	method attribute.KeyValue
	start  time.Time
}

// StartRequest starts the request span. The returned context carries it.
func (t *Telemetry) StartRequest(ctx context.Context, method, path string) (context.Context, Request) {
	methodAttr := attrMethod.String(method)
	ctx, span := t.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(methodAttr, attrPath.String(path)),
	)

	return ctx, Request{
		t:      t,
		span:   span,
		method: methodAttr,
		start:  time.Now(),
	}
}

// End completes the observation with the status code of the response sent.
func (r Request) End(ctx context.Context, code status.Code) {
	codeAttr := attrStatusCode.Int(int(code))
	r.span.SetAttributes(codeAttr)
	if code >= 500 {
		r.span.SetStatus(codes.Error, status.Text(code))
	}
	r.span.End()

	attrs := metric.WithAttributes(r.method, codeAttr)
	r.t.requests.Add(ctx, 1, attrs)
	r.t.duration.Record(ctx, time.Since(r.start).Seconds(), attrs)
}
