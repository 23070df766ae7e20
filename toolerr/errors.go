package toolerr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyBody is returned when an upstream answers 2xx with no content.
var ErrEmptyBody = errors.New("toolerr: empty response body")

// MissingConfigError reports unset configuration.
type MissingConfigError struct {
	EnvVars []string
}

func (e *MissingConfigError) Error() string {
	return "config: not set: " + strings.Join(e.EnvVars, ", ")
}

// InputError reports a parameter that failed validation.
type InputError struct {
	Field   string
	Reason  string
	Example string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StatusError is a non-2xx HTTP answer.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ResultCodeError is an in-band error code inside a 2xx body.
type ResultCodeError struct {
	Code    string
	Message string
}

func (e *ResultCodeError) Error() string {
	if e.Message == "" {
		return "upstream result code " + e.Code
	}
	return fmt.Sprintf("upstream result code %s: %s", e.Code, e.Message)
}

// DecodeError is a body that could not be decoded.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
