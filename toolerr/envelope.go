package toolerr

import (
	"fmt"
	"strings"
	"time"
)

// Envelope is the uniform error value returned by tools instead of a Go
// error. Kind, Message and Suggestion are always non-empty.
type Envelope struct {
	Kind       Kind           `json:"error"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion"`
	Code       string         `json:"code,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// New builds an envelope, filling empty fields from the kind's defaults.
func New(kind Kind, message, suggestion string) *Envelope {
	if strings.TrimSpace(message) == "" {
		message = kind.String()
	}
	if strings.TrimSpace(suggestion) == "" {
		suggestion = kind.defaultSuggestion()
	}
	return &Envelope{Kind: kind, Message: message, Suggestion: suggestion}
}

// Error makes an Envelope usable as an error.
func (e *Envelope) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindName returns the wire name of the kind, e.g. "network_error".
func (e *Envelope) KindName() string {
	return e.Kind.String()
}

// WithDetail returns a copy with one more detail entry.
func (e *Envelope) WithDetail(key string, value any) *Envelope {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// ConfigError reports unset environment variables. Extra names are
// alternatives, any one of which would satisfy the tool.
func ConfigError(envVars ...string) *Envelope {
	if len(envVars) == 0 {
		return New(KindConfig, "Required configuration is missing.", "")
	}
	names := envVars[0]
	if len(envVars) > 1 {
		names += " (or " + strings.Join(envVars[1:], ", or ") + ")"
	}
	env := New(KindConfig,
		fmt.Sprintf("Environment variable %s is not set.", names),
		fmt.Sprintf("Set the %s environment variable before using this tool.", envVars[0]),
	)
	return env.WithDetail("env_vars", envVars)
}

// InvalidInput reports a parameter that failed validation.
func InvalidInput(field, reason, example string) *Envelope {
	suggestion := fmt.Sprintf("Provide a valid value for %s.", field)
	if example != "" {
		suggestion += " Example: " + example
	}
	return New(KindInvalidInput, fmt.Sprintf("%s %s", field, reason), suggestion).WithDetail("field", field)
}

// NetworkError reports a transport failure.
func NetworkError(detail string) *Envelope {
	return New(KindNetwork, "Network error: "+detail, "")
}

// CircuitOpen reports a fail-fast rejection for service.
func CircuitOpen(service string, retryAfter time.Duration) *Envelope {
	suggestion := "API requests are temporarily blocked due to repeated failures. Wait and retry later."
	if retryAfter > 0 {
		suggestion = fmt.Sprintf("API requests are temporarily blocked due to repeated failures. Retry in about %d seconds.",
			int(retryAfter.Round(time.Second)/time.Second))
	}
	env := New(KindNetwork, "Service temporarily unavailable: "+serviceLabel(service), suggestion)
	if retryAfter > 0 {
		env = env.WithDetail("retry_after_seconds", int(retryAfter.Round(time.Second)/time.Second))
	}
	return env
}

// APIError reports an upstream error answer, keeping its code.
func APIError(code, message, suggestion string) *Envelope {
	env := New(KindAPI, message, suggestion)
	env.Code = code
	return env
}

// ParseError reports an undecodable body.
func ParseError(format, detail string) *Envelope {
	return New(KindParse, fmt.Sprintf("%s parse failed: %s", format, detail), "")
}

// InternalError reports an unexpected defect.
func InternalError(detail string) *Envelope {
	return New(KindInternal, "Unexpected error: "+detail, "")
}

func serviceLabel(service string) string {
	if service == "" {
		return "upstream API"
	}
	return service
}
