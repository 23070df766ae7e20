package toolerr

import "fmt"

// Kind is the closed set of failure categories.
type Kind int

const (
	// KindInternal is an unexpected defect.
	KindInternal Kind = iota
	// KindConfig is missing or invalid server configuration.
	KindConfig
	// KindInvalidInput is a caller-supplied parameter that failed validation.
	KindInvalidInput
	// KindNetwork is a connection failure, timeout or open circuit.
	KindNetwork
	// KindAPI is a well-formed error answer from the upstream.
	KindAPI
	// KindParse is an upstream body that could not be decoded.
	KindParse
)

// Kinds lists every Kind.
var Kinds = []Kind{KindConfig, KindInvalidInput, KindNetwork, KindAPI, KindParse, KindInternal}

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config_error"
	case KindInvalidInput:
		return "invalid_input"
	case KindNetwork:
		return "network_error"
	case KindAPI:
		return "api_error"
	case KindParse:
		return "parse_error"
	default:
		return "internal_error"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, candidate := range Kinds {
		if candidate.String() == string(b) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("toolerr: unknown kind %q", b)
}

// defaultSuggestion is used when a constructor is not given one.
func (k Kind) defaultSuggestion() string {
	switch k {
	case KindConfig:
		return "Set the required environment variables and restart the server."
	case KindInvalidInput:
		return "Check the input value and try again."
	case KindNetwork:
		return "Please check your network connection and try again later."
	case KindAPI:
		return "Check the API documentation for error resolution."
	case KindParse:
		return "The upstream returned an unexpected format. Try again later."
	default:
		return "Please try again. If the problem persists, contact support."
	}
}
