package observability

import (
	"github.com/gymspot/gymspot/internal/observability/logger"
	"github.com/gymspot/gymspot/internal/observability/metrics"
	"github.com/gymspot/gymspot/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
	),
	fx.Provide(provideHTTPMetrics),
	fx.Invoke(ensureTracingProvider),
	fx.Invoke(ensureMetrics),
)

func provideHTTPMetrics(cfg Config) *metrics.HTTPMetrics {
	return metrics.HTTPWithConfig(metrics.Config{ServiceName: cfg.ServiceName, Environment: cfg.Environment})
}

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func ensureMetrics(cfg Config) {
	mcfg := metrics.Config{ServiceName: cfg.ServiceName, Environment: cfg.Environment}
	metrics.PublisherWithConfig(mcfg)
	metrics.DispatchWithConfig(mcfg)
}
