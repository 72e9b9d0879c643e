package export

import (
	"context"

	"emperror.dev/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/dreamsxin/xperformance/types"
)

// ExporterType specifies which OpenTelemetry exporter to use.
type ExporterType string

const (
	ExporterNone     ExporterType = "none"
	ExporterStdout   ExporterType = "stdout"
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	ExporterOTLPHTTP ExporterType = "otlp-http"
)

// ParseExporterType validates a --metrics flag value.
func ParseExporterType(s string) (ExporterType, error) {
	switch t := ExporterType(s); t {
	case "", ExporterNone:
		return ExporterNone, nil
	case ExporterStdout, ExporterOTLPGRPC, ExporterOTLPHTTP:
		return t, nil
	default:
		return "", errors.Errorf("unknown metrics exporter: %s", s)
	}
}

// MetricsConfig holds configuration for the OpenTelemetry metrics exporter.
type MetricsConfig struct {
	ExporterType   ExporterType
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is the collector endpoint, e.g. "localhost:4317".
	OTLPEndpoint string
	OTLPInsecure bool
	Attributes   map[string]string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		ExporterType: ExporterNone,
		ServiceName:  "xperformance",
	}
}

// Metrics publishes peaks, per-sample process CPU and restarts as
// OpenTelemetry instruments. With ExporterNone it uses a provider without
// readers, so every recording is dropped.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	enabled  bool

	cpuPeak    metric.Float64Gauge
	memoryPeak metric.Int64Gauge
	processCPU metric.Float64Histogram
	restarts   metric.Int64Counter

	cpu          cursor
	lastRestarts int
}

func NewMetrics(ctx context.Context, cfg MetricsConfig) (*Metrics, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "xperformance"
	}
	if cfg.ExporterType == "" || cfg.ExporterType == ExporterNone {
		return newMetrics(cfg, false)
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metrics exporter")
	}
	res, err := createResource(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metrics resource")
	}
	return newMetrics(cfg, true,
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
}

func newMetrics(cfg MetricsConfig, enabled bool, opts ...sdkmetric.Option) (*Metrics, error) {
	m := &Metrics{
		provider: sdkmetric.NewMeterProvider(opts...),
		enabled:  enabled,
	}
	if err := m.registerInstruments(m.provider.Meter(cfg.ServiceName)); err != nil {
		return nil, err
	}
	return m, nil
}

func createExporter(ctx context.Context, cfg MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()

	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)

	default:
		return nil, errors.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func createResource(cfg MetricsConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attrs...),
	)
}

func (m *Metrics) registerInstruments(meter metric.Meter) error {
	var err error

	m.cpuPeak, err = meter.Float64Gauge(
		"xperformance.cpu.peak",
		metric.WithDescription("Highest process CPU seen this session"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create cpu peak gauge")
	}

	m.memoryPeak, err = meter.Int64Gauge(
		"xperformance.memory.peak_pss",
		metric.WithDescription("Highest total PSS seen this session"),
		metric.WithUnit("KiBy"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create memory peak gauge")
	}

	m.processCPU, err = meter.Float64Histogram(
		"xperformance.cpu.process",
		metric.WithDescription("Process CPU per sample"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create process cpu histogram")
	}

	m.restarts, err = meter.Int64Counter(
		"xperformance.process.restarts",
		metric.WithDescription("Restarts of the monitored process"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create restart counter")
	}
	return nil
}

func (m *Metrics) Name() string {
	return "metrics"
}

// Enabled reports whether recordings leave the process.
func (m *Metrics) Enabled() bool {
	return m.enabled
}

func (m *Metrics) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	opt := metric.WithAttributes(
		attribute.String("package", snap.Package),
		attribute.String("pid", snap.Handle.PID),
		attribute.String("trigger", string(trigger)),
	)

	if snap.CPUPeak.Set {
		m.cpuPeak.Record(ctx, snap.CPUPeak.Value, opt)
	}
	if snap.MemoryPeak.Set {
		m.memoryPeak.Record(ctx, int64(snap.MemoryPeak.Value), opt)
	}

	pkgOnly := metric.WithAttributes(attribute.String("package", snap.Package))
	start, next := m.cpu.advance(cpuStamps(snap.CPU))
	for _, c := range snap.CPU[start:] {
		m.processCPU.Record(ctx, c.ProcessCPUPercent, pkgOnly)
	}
	m.cpu = next
	if delta := snap.RestartCount - m.lastRestarts; delta > 0 {
		m.restarts.Add(ctx, int64(delta), pkgOnly)
		m.lastRestarts = snap.RestartCount
	}

	if trigger == TriggerSessionEnd && m.enabled {
		if err := m.provider.ForceFlush(ctx); err != nil {
			return errors.Wrap(err, "flush metrics")
		}
	}
	return nil
}

func (m *Metrics) Close(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
