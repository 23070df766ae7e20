package toolerr

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/jonwraymond/realestate/resilience"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"missing config", &MissingConfigError{EnvVars: []string{"DATA_GO_KR_API_KEY"}}, KindConfig},
		{"bad input", &InputError{Field: "region_code", Reason: "must be 5 digits"}, KindInvalidInput},
		{"circuit open", resilience.ErrCircuitOpen, KindNetwork},
		{"timeout sentinel", fmt.Errorf("%w: boom", resilience.ErrTimeout), KindNetwork},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, KindNetwork},
		{"dns", &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Name: "x", Err: "no such host"}}, KindNetwork},
		{"refused", &url.Error{Op: "Get", URL: "http://x", Err: dialErr}, KindNetwork},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindNetwork},
		{"eof", io.ErrUnexpectedEOF, KindNetwork},
		{"cancelled", context.Canceled, KindNetwork},
		{"rate limited locally", resilience.ErrRateLimitExceeded, KindNetwork},
		{"bulkhead", resilience.ErrBulkheadFull, KindNetwork},
		{"http 404", &StatusError{StatusCode: 404}, KindAPI},
		{"http 503", &StatusError{StatusCode: 503}, KindAPI},
		{"result code", &ResultCodeError{Code: "22"}, KindAPI},
		{"json decode", &DecodeError{Format: "JSON", Err: errors.New("unexpected end")}, KindParse},
		{"empty body", ErrEmptyBody, KindParse},
		{"envelope passthrough", InvalidInput("x", "bad", ""), KindInvalidInput},
		{"unknown", errors.New("nil map write"), KindInternal},
		{"unsupported scheme", &url.Error{Op: "Get", URL: "ftp://x", Err: errors.New(`unsupported protocol scheme "ftp"`)}, KindInternal},
		{"certificate", &url.Error{Op: "Get", URL: "https://x", Err: x509.UnknownAuthorityError{}}, KindInternal},
		{"build request", fmt.Errorf("build request: %w", errors.New("invalid control character in URL")), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Classify(tt.err)
			if env == nil {
				t.Fatal("Classify() = nil")
			}
			if env.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", env.Kind, tt.want)
			}
			assertComplete(t, env)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if env := Classify(nil); env != nil {
		t.Errorf("Classify(nil) = %+v, want nil", env)
	}
}

func TestClassify_StatusKeepsCode(t *testing.T) {
	env := Classify(&StatusError{StatusCode: 401})
	if env.Code != "HTTP_401" {
		t.Errorf("Code = %q, want HTTP_401", env.Code)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}}, true},
		{"timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"dns", &net.DNSError{Name: "x"}, true},
		{"500", &StatusError{StatusCode: 500}, true},
		{"502", &StatusError{StatusCode: 502}, true},
		{"503", &StatusError{StatusCode: 503}, true},
		{"504", &StatusError{StatusCode: 504}, true},
		{"501", &StatusError{StatusCode: 501}, false},
		{"400", &StatusError{StatusCode: 400}, false},
		{"429", &StatusError{StatusCode: 429}, false},
		{"decode", &DecodeError{Format: "JSON", Err: errors.New("x")}, false},
		{"empty", ErrEmptyBody, false},
		{"cancelled", context.Canceled, false},
		{"circuit open", resilience.ErrCircuitOpen, false},
		{"plain", errors.New("x"), false},
		{"unsupported scheme", &url.Error{Op: "Get", URL: "ftp://x", Err: errors.New(`unsupported protocol scheme "ftp"`)}, false},
		{"certificate", &url.Error{Op: "Get", URL: "https://x", Err: x509.UnknownAuthorityError{}}, false},
		{"redirect refused", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("stopped after 10 redirects")}, false},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"eof", &url.Error{Op: "Get", URL: "http://x", Err: io.EOF}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) = %v", k, err)
		}
		var got Kind
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s) = %v", b, err)
		}
		if got != k {
			t.Errorf("round trip %v -> %v", k, got)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText should reject unknown names")
	}
}

func TestKinds_ExactlySix(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds {
		seen[k.String()] = true
	}
	want := []string{"config_error", "invalid_input", "network_error", "api_error", "parse_error", "internal_error"}
	if len(seen) != len(want) {
		t.Fatalf("kinds = %v, want %v", seen, want)
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("missing kind %s", w)
		}
	}
}

func TestEnvelope_JSON(t *testing.T) {
	env := APIResult("22", "LIMITED NUMBER OF SERVICE REQUESTS EXCEEDS ERROR.")
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["error"] != "api_error" {
		t.Errorf("error = %v, want api_error", m["error"])
	}
	if m["code"] != "22" {
		t.Errorf("code = %v, want 22", m["code"])
	}
	if m["message"] != "Daily API request limit exceeded." {
		t.Errorf("message = %v", m["message"])
	}
	if _, ok := m["suggestion"].(string); !ok {
		t.Error("suggestion missing")
	}
}

func assertComplete(t *testing.T, env *Envelope) {
	t.Helper()
	if env.Kind.String() == "" || env.Message == "" || env.Suggestion == "" {
		t.Errorf("incomplete envelope: %+v", env)
	}
}
