package observability

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Config holds the OpenTelemetry settings of one service.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TracingEnabled bool
	MetricsEnabled bool
	// OTLPEndpoint accepts "host:port" or a URL; an http:// URL disables TLS.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	SamplingRate float64

	TraceBatchTimeout time.Duration
	MetricInterval    time.Duration
	ResourceAttrs     []attribute.KeyValue
}

// DefaultConfig returns the defaults used when only a service name is known.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:       serviceName,
		ServiceVersion:    "unknown",
		Environment:       "development",
		OTLPEndpoint:      "localhost:4318",
		SamplingRate:      1.0,
		TraceBatchTimeout: 5 * time.Second,
		MetricInterval:    15 * time.Second,
	}
}
