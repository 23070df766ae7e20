package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct indicates Tracing.SamplePct is not in [0.0, 1.0].
	ErrInvalidSamplePct = errors.New("observe: sample percentage must be between 0.0 and 1.0")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")
)

// Validation constants.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// RedactedFields lists field keys whose values are replaced with
// "[REDACTED]" in logs. Matching is case-insensitive.
var RedactedFields = []string{
	"servicekey",
	"service_key",
	"api_key",
	"apikey",
	"authorization",
	"password",
	"secret",
	"token",
	"credential",
}

// redactedQueryParams lists URL query parameters masked by RedactURL.
var redactedQueryParams = []string{"serviceKey", "ServiceKey", "servicekey", "api_key", "apiKey", "token"}
