package toolerr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/jonwraymond/realestate/resilience"
)

// Classify maps any error to exactly one envelope. It returns nil for a
// nil error.
func Classify(err error) *Envelope {
	if err == nil {
		return nil
	}

	var (
		env      *Envelope
		cfgErr   *MissingConfigError
		inputErr *InputError
		status   *StatusError
		rc       *ResultCodeError
		decode   *DecodeError
		dnsErr   *net.DNSError
	)

	switch {
	case errors.As(err, &env):
		return env
	case errors.As(err, &cfgErr):
		return ConfigError(cfgErr.EnvVars...)
	case errors.As(err, &inputErr):
		return InvalidInput(inputErr.Field, inputErr.Reason, inputErr.Example)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return CircuitOpen("", 0)
	case errors.As(err, &status):
		return classifyStatus(status.StatusCode)
	case errors.As(err, &rc):
		return APIResult(rc.Code, rc.Message)
	case errors.As(err, &decode):
		return ParseError(decode.Format, fmt.Sprint(decode.Err))
	case errors.Is(err, ErrEmptyBody):
		return ParseError("response", "empty body")
	case isTimeout(err):
		return NetworkError("request timed out").WithDetail("timeout", true)
	case errors.Is(err, resilience.ErrRateLimitExceeded), errors.Is(err, resilience.ErrBulkheadFull):
		return New(KindNetwork, "Network error: too many concurrent requests to the upstream API",
			"Wait a moment and try again.")
	case errors.Is(err, context.Canceled):
		return NetworkError("request cancelled")
	case errors.As(err, &dnsErr):
		return NetworkError(fmt.Sprintf("could not resolve host %s", dnsErr.Name))
	case isConnection(err):
		return NetworkError(connectionDetail(err))
	default:
		return InternalError(err.Error())
	}
}

// IsTransient reports whether a failed attempt is worth retrying:
// connection failures, timeouts and HTTP 500/502/503/504. Client errors,
// decode failures, cancellation and an open circuit are not, nor are
// client-side request failures such as an unsupported scheme, a TLS
// certificate error or a refused redirect.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		switch status.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var decode *DecodeError
	if errors.As(err, &decode) || errors.Is(err, ErrEmptyBody) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return isTimeout(err) || isConnection(err)
}

func classifyStatus(code int) *Envelope {
	httpCode := fmt.Sprintf("HTTP_%d", code)
	msg := fmt.Sprintf("HTTP error: %d %s", code, http.StatusText(code))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return APIError(httpCode, msg, "Check that the API key is valid and authorized for this service.")
	case code == http.StatusTooManyRequests:
		return APIError(httpCode, msg, "The upstream is rate limiting requests. Wait and try again later.")
	case code >= 500:
		return APIError(httpCode, msg, "The upstream service is failing. Try again later.")
	default:
		return APIError(httpCode, msg, "Check the request parameters.")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, resilience.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnection(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func connectionDetail(err error) string {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "connection failed"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused"
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return "connection closed by upstream"
	}
	return "request failed"
}
