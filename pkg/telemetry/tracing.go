package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName — имя трейсера для спанов корзины.
const InstrumentationName = "github.com/Gunvolt24/gomarketplace_cart"

// Tracer — трейсер из глобального провайдера (no-op, пока SetupTracing не вызван).
func Tracer() trace.Tracer { return otel.Tracer(InstrumentationName) }

// SetupTracing настраивает OTLP/HTTP экспорт, семплинг и глобальные пропагаторы.
// cartKey попадает в ресурс, чтобы различать экземпляры корзины.
// Возвращает функцию корректного завершения провайдера.
func SetupTracing(
	ctx context.Context,
	serviceName, endpoint, cartKey string,
	sampleRatio float64,
) (func(context.Context) error, error) {
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	sampleRatio = clampRatio(sampleRatio)

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			attribute.String("cart.namespace_key", cartKey),
		)),
	)

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		),
	)

	return traceProvider.Shutdown, nil
}

// clampRatio — границы семплинга [0..1].
func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
