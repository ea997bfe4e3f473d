package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stabledesk/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "stabledesk"

// Telemetry owns the OTLP providers. A disabled Telemetry leaves the global
// no-op providers in place, so tracers and meters can be used unconditionally.
type Telemetry struct {
	tracerProvider *trace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
	meterProvider  *sdkmetric.MeterProvider
	config         config.TelemetryConfig
}

func New(ctx context.Context, cfg config.TelemetryConfig) (*Telemetry, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return &Telemetry{config: cfg}, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create trace exporter: %w", err)
	}

	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(cfg.Endpoint),
		otlploggrpc.WithTLSCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create log exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create metric exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(10*time.Second))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Telemetry{
		tracerProvider: tp,
		loggerProvider: lp,
		meterProvider:  mp,
		config:         cfg,
	}, nil
}

func (t *Telemetry) IsEnabled() bool {
	return t.config.Enabled && t.tracerProvider != nil
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.loggerProvider != nil {
		if err := t.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry: shutdown: %w", errors.Join(errs...))
	}
	return nil
}

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	provisioningRuns metric.Int64Counter
	rowsCreated      metric.Int64Counter
	loginAttempts    metric.Int64Counter
}

// NewMetrics registers the counters on meter, or on the global meter
// provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	provisioningRuns, err := meter.Int64Counter(
		"stabledesk_provisioning_runs_total",
		metric.WithDescription("Organization provisioning runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create provisioning runs counter: %w", err)
	}

	rowsCreated, err := meter.Int64Counter(
		"stabledesk_business_rows_created_total",
		metric.WithDescription("Business setup rows created by entity"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create rows created counter: %w", err)
	}

	loginAttempts, err := meter.Int64Counter(
		"stabledesk_login_attempts_total",
		metric.WithDescription("Operator login attempts by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create login attempts counter: %w", err)
	}

	return &Metrics{
		provisioningRuns: provisioningRuns,
		rowsCreated:      rowsCreated,
		loginAttempts:    loginAttempts,
	}, nil
}

// RecordProvisioningRun counts a finished run. failedStep is empty on success.
func (m *Metrics) RecordProvisioningRun(ctx context.Context, outcome, failedStep string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if failedStep != "" {
		attrs = append(attrs, attribute.String("failed_step", failedStep))
	}
	m.provisioningRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	slog.DebugContext(ctx, "Provisioning run metric recorded", "outcome", outcome, "failed_step", failedStep)
}

func (m *Metrics) RecordRowsCreated(ctx context.Context, entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsCreated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("entity", entity)))
}

func (m *Metrics) RecordLoginAttempt(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
