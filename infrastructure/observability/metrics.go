package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"trustbit/config"
)

// MetricsProvider manages OpenTelemetry metrics for the lifecycle and
// billing core
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	botsCreatedCounter        metric.Int64Counter
	botsExpiredCounter        metric.Int64Counter
	botsActiveGauge           metric.Int64UpDownCounter
	transactionsCounter       metric.Int64Counter
	sweepDurationHist         metric.Float64Histogram
	supervisorFailuresCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Create appropriate exporter based on config
	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	// Create meter provider with periodic reader
	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)

	// Set as global meter provider
	otel.SetMeterProvider(mp.meterProvider)

	mp.meter = mp.meterProvider.Meter("trustbit")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.botsCreatedCounter, err = mp.meter.Int64Counter(
		BotsCreatedTotal,
		metric.WithDescription("Total number of bots created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bots created counter: %w", err)
	}

	mp.botsExpiredCounter, err = mp.meter.Int64Counter(
		BotsExpiredTotal,
		metric.WithDescription("Total number of bots claimed by the expiry sweep"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bots expired counter: %w", err)
	}

	mp.botsActiveGauge, err = mp.meter.Int64UpDownCounter(
		BotsActive,
		metric.WithDescription("Current number of bots in an active status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bots active gauge: %w", err)
	}

	mp.transactionsCounter, err = mp.meter.Int64Counter(
		TransactionsTotal,
		metric.WithDescription("Total number of wallet transactions recorded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transactions counter: %w", err)
	}

	mp.sweepDurationHist, err = mp.meter.Float64Histogram(
		SweepDuration,
		metric.WithDescription("Duration of expiry reconciliation sweeps in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep duration histogram: %w", err)
	}

	mp.supervisorFailuresCounter, err = mp.meter.Int64Counter(
		SupervisorFailuresTotal,
		metric.WithDescription("Total number of failed supervisor calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create supervisor failures counter: %w", err)
	}

	return nil
}

// RecordBotCreated records a successfully provisioned bot
func (mp *MetricsProvider) RecordBotCreated(plan string) {
	if !mp.isEnabled() {
		return
	}

	mp.botsCreatedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelPlan, plan)),
	)
	mp.botsActiveGauge.Add(context.Background(), 1)
}

// RecordBotsExpired records bots claimed by one sweep
func (mp *MetricsProvider) RecordBotsExpired(count int64) {
	if !mp.isEnabled() || count == 0 {
		return
	}

	mp.botsExpiredCounter.Add(context.Background(), count)
	mp.botsActiveGauge.Add(context.Background(), -count)
}

// RecordTransaction records a wallet transaction
func (mp *MetricsProvider) RecordTransaction(transactionType string) {
	if !mp.isEnabled() {
		return
	}

	mp.transactionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, transactionType)),
	)
}

// RecordSweepDuration records how long one reconciliation sweep took
func (mp *MetricsProvider) RecordSweepDuration(duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	mp.sweepDurationHist.Record(context.Background(), duration.Seconds())
}

// RecordSupervisorFailure records a failed supervisor call
func (mp *MetricsProvider) RecordSupervisorFailure(operation string) {
	if !mp.isEnabled() {
		return
	}

	mp.supervisorFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled
}
