// Package metrics holds the OpenTelemetry instruments recorded along the
// handset session pipeline and the rotary dial path. Instruments are created
// from an explicit [metric.MeterProvider] so tests can read them back through
// a manual reader.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "rotary-phone-lamps"

// Metrics is safe for concurrent use; the OTel instruments synchronise
// internally.
type Metrics struct {
	// Sessions counts completed handset sessions.
	Sessions metric.Int64Counter

	// ChunksCaptured counts chunks handed to the recognition worker.
	ChunksCaptured metric.Int64Counter

	// ChunksDropped counts chunks lost because the chunk queue was full.
	ChunksDropped metric.Int64Counter

	// ChunksRecognized counts chunks fed into a recognizer.
	ChunksRecognized metric.Int64Counter

	// RecognitionDuration is the time from session end to transcript.
	RecognitionDuration metric.Float64Histogram

	// Commands counts actions submitted for execution. Use with attributes:
	//   attribute.String("source", "voice"|"dial"), attribute.String("action", ...)
	Commands metric.Int64Counter

	// Transmissions counts RF transmitter runs. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Transmissions metric.Int64Counter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30,
}

// New creates every instrument from mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("phone.sessions",
		metric.WithDescription("Completed handset sessions."),
	); err != nil {
		return nil, err
	}
	if met.ChunksCaptured, err = m.Int64Counter("phone.audio.chunks_captured",
		metric.WithDescription("Audio chunks queued for recognition."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("phone.audio.chunks_dropped",
		metric.WithDescription("Audio chunks dropped because the queue was full."),
	); err != nil {
		return nil, err
	}
	if met.ChunksRecognized, err = m.Int64Counter("phone.audio.chunks_recognized",
		metric.WithDescription("Audio chunks fed into the recognizer."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionDuration, err = m.Float64Histogram("phone.recognition.duration",
		metric.WithDescription("Time from end of session to final transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("phone.commands",
		metric.WithDescription("Lamp actions submitted for execution."),
	); err != nil {
		return nil, err
	}
	if met.Transmissions, err = m.Int64Counter("phone.lamp.transmissions",
		metric.WithDescription("RF transmitter invocations."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns instruments that record nothing.
func Noop() *Metrics {
	met, err := New(noop.NewMeterProvider())
	if err != nil {
		panic(err)
	}
	return met
}

// InitProvider builds a meter provider that exports through a Prometheus
// registry, and the handler serving that registry. Call shutdown on exit.
func InitProvider(serviceVersion string) (mp *sdkmetric.MeterProvider, handler http.Handler, shutdown func(context.Context) error, err error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(meterName),
		semconv.ServiceVersion(serviceVersion),
	)

	promExp, err := promexporter.New()
	if err != nil {
		return nil, nil, nil, err
	}

	mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)

	return mp, promhttp.Handler(), mp.Shutdown, nil
}
