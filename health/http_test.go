package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(checkers ...Checker) http.Handler {
	agg := NewAggregator(0)
	for _, c := range checkers {
		agg.Register(c)
	}
	r := chi.NewRouter()
	Mount(r, agg)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := get(t, newTestRouter(), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantCode int
		wantBody string
	}{
		{"healthy", Healthy("ok"), http.StatusOK, "OK"},
		{"degraded", Degraded("breaker open"), http.StatusOK, "DEGRADED"},
		{"unhealthy", Unhealthy("down", nil), http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(NewCheckerFunc("c", func(context.Context) Result { return tt.result }))
			rec := get(t, h, "/readyz")
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailed(t *testing.T) {
	h := newTestRouter(
		NewCheckerFunc("cache", func(context.Context) Result {
			return Healthy("3 entries cached").WithDetails(map[string]any{"size": 3})
		}),
		NewCheckerFunc("upstreams", func(context.Context) Result { return Degraded("circuit open for molit") }),
	)

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || len(resp.Checks) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Checks["cache"].Details["size"] != float64(3) {
		t.Errorf("cache details = %v", resp.Checks["cache"].Details)
	}
}

func TestSingleCheck(t *testing.T) {
	h := newTestRouter(NewCheckerFunc("cache", func(context.Context) Result { return Healthy("ok") }))

	if rec := get(t, h, "/health/cache"); rec.Code != http.StatusOK {
		t.Errorf("known check code = %d", rec.Code)
	}
	if rec := get(t, h, "/health/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown check code = %d", rec.Code)
	}
}
