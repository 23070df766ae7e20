package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"

	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/observe"
	"github.com/jonwraymond/realestate/resilience"
	"github.com/jonwraymond/realestate/toolerr"
)

const molitURL = "https://apis.data.go.kr/1613000/RTMSDataSvcAptTrade/getRTMSDataSvcAptTrade"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// fakeUpstream answers every request through respond and counts calls.
type fakeUpstream struct {
	calls   atomic.Int64
	respond func(n int64, r *http.Request) (*http.Response, error)
}

func (u *fakeUpstream) client() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return u.respond(u.calls.Add(1), r)
	})}
}

func okResponse(body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/xml"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func statusResponse(code int) (*http.Response, error) {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("error")),
	}, nil
}

func connRefused() (*http.Response, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type harness struct {
	pipeline *Pipeline
	upstream *fakeUpstream
	clock    *testClock
	sleeps   *sleepRecorder
	logs     *zapobserver.ObservedLogs
}

func newHarness(t *testing.T, respond func(n int64, r *http.Request) (*http.Response, error), opts ...Option) *harness {
	t.Helper()
	h := &harness{
		upstream: &fakeUpstream{respond: respond},
		clock:    newTestClock(),
		sleeps:   &sleepRecorder{},
	}
	core, logs := zapobserver.New(zapcore.DebugLevel)
	h.logs = logs

	base := []Option{
		WithHTTPClient(h.upstream.client()),
		WithCache(cache.NewMemoryCache(cache.DefaultPolicy(), cache.WithClock(h.clock.Now))),
		WithBreakerConfig(resilience.CircuitBreakerConfig{Now: h.clock.Now}),
		WithRetry(resilience.RetryConfig{Sleep: h.sleeps.Sleep}),
		WithLogger(observe.NewZapLogger(zap.New(core))),
	}
	h.pipeline = New(append(base, opts...)...)
	return h
}

func assertEnvelope(t *testing.T, env *toolerr.Envelope, want toolerr.Kind) {
	t.Helper()
	if env == nil {
		t.Fatalf("expected %s envelope, got nil", want)
	}
	if env.Kind != want {
		t.Fatalf("kind = %s, want %s (%s)", env.Kind, want, env.Message)
	}
	if env.Message == "" || env.Suggestion == "" || env.Kind.String() == "" {
		t.Fatalf("incomplete envelope: %+v", env)
	}
}

func TestPipeline_MissThenHit(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse("<response><header><resultCode>000</resultCode></header></response>")
	})
	ctx := context.Background()
	url := molitURL + "?LAWD_CD=11440&DEAL_YMD=202501"

	body, env := h.pipeline.FetchXML(ctx, url)
	if env != nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !strings.Contains(body, "<resultCode>000</resultCode>") {
		t.Fatalf("body = %q", body)
	}
	if got := h.pipeline.CacheStats().Size; got != 1 {
		t.Errorf("cache size = %d, want 1", got)
	}
	if got := h.pipeline.BreakerStates()["molit"].ConsecutiveFailures; got != 0 {
		t.Errorf("consecutive failures = %d, want 0", got)
	}

	again, env := h.pipeline.FetchXML(ctx, url)
	if env != nil || again != body {
		t.Fatalf("repeat fetch = (%q, %v), want cached body", again, env)
	}
	if got := h.upstream.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
	stats := h.pipeline.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestPipeline_BreakerOpensAfterFiveFailedRequests(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return statusResponse(http.StatusServiceUnavailable)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, env := h.pipeline.FetchXML(ctx, fmt.Sprintf("%s?LAWD_CD=11440&DEAL_YMD=2025%02d", molitURL, i+1))
		assertEnvelope(t, env, toolerr.KindAPI)
	}
	if got := h.pipeline.BreakerStates()["molit"].State; got != resilience.StateOpen {
		t.Fatalf("breaker = %s, want open", got)
	}

	before := h.upstream.calls.Load()
	_, env := h.pipeline.FetchXML(ctx, molitURL+"?LAWD_CD=11440&DEAL_YMD=202507")
	assertEnvelope(t, env, toolerr.KindNetwork)
	if !strings.Contains(env.Message, "temporarily unavailable") {
		t.Errorf("message = %q", env.Message)
	}
	if got := h.upstream.calls.Load(); got != before {
		t.Errorf("transport called while open: %d -> %d", before, got)
	}
	if h.pipeline.CacheStats().Size != 0 {
		t.Error("failures must not be cached")
	}
}

func TestPipeline_BreakerIsPerService(t *testing.T) {
	h := newHarness(t, func(_ int64, r *http.Request) (*http.Response, error) {
		if r.URL.Host == "apis.data.go.kr" {
			return statusResponse(http.StatusBadRequest)
		}
		return okResponse(`{"data":[]}`)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.pipeline.FetchXML(ctx, fmt.Sprintf("%s?DEAL_YMD=2025%02d", molitURL, i+1))
	}
	_, env := h.pipeline.FetchJSON(ctx, "https://api.odcloud.kr/api/15101046/v1/x?page=1", nil)
	if env != nil {
		t.Fatalf("odcloud blocked by molit breaker: %+v", env)
	}
}

func TestPipeline_HalfOpenRecovery(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		if failing.Load() {
			return statusResponse(http.StatusBadRequest)
		}
		return okResponse("<ok/>")
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.pipeline.FetchXML(ctx, fmt.Sprintf("%s?n=%d", molitURL, i))
	}

	h.clock.Advance(29 * time.Second)
	calls := h.upstream.calls.Load()
	_, env := h.pipeline.FetchXML(ctx, molitURL+"?n=early")
	assertEnvelope(t, env, toolerr.KindNetwork)
	if h.upstream.calls.Load() != calls {
		t.Fatal("call before recovery timeout reached the transport")
	}

	h.clock.Advance(time.Second)
	failing.Store(false)
	if _, env := h.pipeline.FetchXML(ctx, molitURL+"?n=trial"); env != nil {
		t.Fatalf("trial failed: %+v", env)
	}
	if got := h.pipeline.BreakerStates()["molit"].State; got != resilience.StateClosed {
		t.Fatalf("breaker = %s, want closed", got)
	}
	if _, env := h.pipeline.FetchXML(ctx, molitURL+"?n=after"); env != nil {
		t.Fatalf("closed breaker rejected call: %+v", env)
	}
}

func TestPipeline_HalfOpenTrialFailureReopens(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return statusResponse(http.StatusBadRequest)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.pipeline.FetchXML(ctx, fmt.Sprintf("%s?n=%d", molitURL, i))
	}
	h.clock.Advance(30 * time.Second)

	calls := h.upstream.calls.Load()
	_, env := h.pipeline.FetchXML(ctx, molitURL+"?n=trial")
	assertEnvelope(t, env, toolerr.KindAPI)
	if h.upstream.calls.Load() != calls+1 {
		t.Fatal("trial call was not attempted")
	}

	reopened := h.pipeline.BreakerStates()["molit"]
	if reopened.State != resilience.StateOpen || !reopened.OpenedAt.Equal(h.clock.Now()) {
		t.Fatalf("breaker = %+v, want open since now", reopened)
	}

	h.clock.Advance(29 * time.Second)
	_, env = h.pipeline.FetchXML(ctx, molitURL+"?n=again")
	assertEnvelope(t, env, toolerr.KindNetwork)
}

func TestPipeline_RetryExhaustion(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return connRefused()
	})

	_, env := h.pipeline.FetchXML(context.Background(), molitURL+"?n=1")
	assertEnvelope(t, env, toolerr.KindNetwork)

	if got := h.upstream.calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	delays := h.sleeps.Delays()
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", delays)
	}
	var total time.Duration
	for _, d := range delays {
		total += d
	}
	if total >= DefaultTimeout {
		t.Errorf("backoff total %v exceeds ceiling", total)
	}
	if got := h.pipeline.BreakerStates()["molit"].ConsecutiveFailures; got != 1 {
		t.Errorf("breaker failures = %d, want 1 per logical request", got)
	}
	if n := h.logs.FilterMessage("retrying upstream request").Len(); n != 2 {
		t.Errorf("retry logs = %d, want 2", n)
	}
	if n := h.logs.FilterMessage("upstream retries exhausted").FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Errorf("exhaustion logs = %d, want 1", n)
	}
}

func TestPipeline_RetriesTransientStatusThenSucceeds(t *testing.T) {
	h := newHarness(t, func(n int64, _ *http.Request) (*http.Response, error) {
		if n == 1 {
			return statusResponse(http.StatusBadGateway)
		}
		return okResponse("<ok/>")
	})

	body, env := h.pipeline.FetchXML(context.Background(), molitURL)
	if env != nil || body != "<ok/>" {
		t.Fatalf("got (%q, %v)", body, env)
	}
	if h.upstream.calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", h.upstream.calls.Load())
	}
}

func TestPipeline_ClientErrorsNotRetried(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
				return statusResponse(code)
			})
			_, env := h.pipeline.FetchXML(context.Background(), molitURL)
			assertEnvelope(t, env, toolerr.KindAPI)
			if env.Code != fmt.Sprintf("HTTP_%d", code) {
				t.Errorf("code = %q", env.Code)
			}
			if h.upstream.calls.Load() != 1 {
				t.Errorf("attempts = %d, want 1", h.upstream.calls.Load())
			}
		})
	}
}

func TestPipeline_ErrorsAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		if fail.Load() {
			return statusResponse(http.StatusBadRequest)
		}
		return okResponse("<ok/>")
	})
	ctx := context.Background()

	_, env := h.pipeline.FetchXML(ctx, molitURL)
	assertEnvelope(t, env, toolerr.KindAPI)
	if h.pipeline.CacheStats().Size != 0 {
		t.Fatal("error was cached")
	}

	fail.Store(false)
	body, env := h.pipeline.FetchXML(ctx, molitURL)
	if env != nil || body != "<ok/>" {
		t.Fatalf("second fetch = (%q, %v)", body, env)
	}
	if h.upstream.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", h.upstream.calls.Load())
	}
}

func TestPipeline_Forget(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse("<response><header><resultCode>22</resultCode></header></response>")
	})
	ctx := context.Background()

	_, _ = h.pipeline.FetchXML(ctx, molitURL)
	h.pipeline.Forget(ctx, molitURL)
	_, _ = h.pipeline.FetchXML(ctx, molitURL)

	if h.upstream.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 after Forget", h.upstream.calls.Load())
	}
}

func TestPipeline_FetchJSON(t *testing.T) {
	var gotAuth string
	h := newHarness(t, func(_ int64, r *http.Request) (*http.Response, error) {
		gotAuth = r.Header.Get("Authorization")
		return okResponse(`{"totalCount":2,"data":[{"HOUSE_NM":"A"},{"HOUSE_NM":"B"}]}`)
	})
	url := "https://api.odcloud.kr/api/15101046/v1/uddi:x?page=1&perPage=10"

	v, env := h.pipeline.FetchJSON(context.Background(), url, map[string]string{"Authorization": "Infuser k1"})
	if env != nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if gotAuth != "Infuser k1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	m, ok := v.(map[string]any)
	if !ok || m["totalCount"] != float64(2) {
		t.Fatalf("decoded = %#v", v)
	}

	// Headers are not part of the key.
	if _, env := h.pipeline.FetchJSON(context.Background(), url, map[string]string{"Authorization": "Infuser k2"}); env != nil {
		t.Fatal(env)
	}
	if h.upstream.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", h.upstream.calls.Load())
	}
	if _, ok := h.pipeline.BreakerStates()["odcloud"]; !ok {
		t.Error("odcloud breaker missing")
	}
}

func TestPipeline_MalformedJSON(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse(`{"data": [`)
	})

	_, env := h.pipeline.FetchJSON(context.Background(), "https://api.odcloud.kr/api/x", nil)
	assertEnvelope(t, env, toolerr.KindParse)
	if h.upstream.calls.Load() != 1 {
		t.Errorf("malformed body retried: %d calls", h.upstream.calls.Load())
	}
	if h.pipeline.CacheStats().Size != 0 {
		t.Error("malformed body cached")
	}
	if got := h.pipeline.BreakerStates()["odcloud"].ConsecutiveFailures; got != 0 {
		t.Errorf("breaker failures = %d, want 0", got)
	}
}

func TestPipeline_EmptyBody(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse("  \n")
	})
	_, env := h.pipeline.FetchXML(context.Background(), molitURL)
	assertEnvelope(t, env, toolerr.KindParse)
}

func TestPipeline_SlowResponseWarns(t *testing.T) {
	var h *harness
	h = newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		h.clock.Advance(11 * time.Second)
		return okResponse("<ok/>")
	})

	if _, env := h.pipeline.FetchXML(context.Background(), molitURL); env != nil {
		t.Fatal(env)
	}
	warn := h.logs.FilterMessage("connection quality degraded").FilterLevelExact(zapcore.WarnLevel)
	if warn.Len() != 1 {
		t.Fatalf("slow warnings = %d, want 1", warn.Len())
	}
}

func TestPipeline_FastResponseDoesNotWarn(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse("<ok/>")
	})
	h.pipeline.FetchXML(context.Background(), molitURL)
	if h.logs.FilterMessage("connection quality degraded").Len() != 0 {
		t.Error("unexpected slow warning")
	}
}

func TestPipeline_TimeoutCeiling(t *testing.T) {
	h := newHarness(t, func(_ int64, r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	}, WithTimeout(20*time.Millisecond))

	_, env := h.pipeline.FetchXML(context.Background(), molitURL)
	assertEnvelope(t, env, toolerr.KindNetwork)
	if env.Details["timeout"] != true {
		t.Errorf("details = %v, want timeout", env.Details)
	}
}

func TestPipeline_LogsRedactServiceKey(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse("<ok/>")
	})
	h.pipeline.FetchXML(context.Background(), molitURL+"?serviceKey=SECRET123&LAWD_CD=11440")

	for _, e := range h.logs.All() {
		for _, f := range e.Context {
			if strings.Contains(f.String, "SECRET123") {
				t.Fatalf("key leaked in %q: %s=%s", e.Message, f.Key, f.String)
			}
		}
	}
}

func TestPipeline_CoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		<-release
		return okResponse("<ok/>")
	})

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = h.pipeline.FetchXML(context.Background(), molitURL+"?same=1")
		}(i)
	}
	// Let the goroutines reach the transport before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != "<ok/>" {
			t.Errorf("result %d = %q", i, r)
		}
	}
	if got := h.upstream.calls.Load(); got < 1 || got > n {
		t.Errorf("calls = %d", got)
	}
}

func TestPipeline_LeaderCancelDoesNotFailFollower(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(n int64, r *http.Request) (*http.Response, error) {
		if n == 1 {
			close(started)
		}
		select {
		case <-release:
			return okResponse("<ok/>")
		case <-r.Context().Done():
			return nil, r.Context().Err()
		}
	})
	url := molitURL + "?shared=1"

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan *toolerr.Envelope, 1)
	go func() {
		_, env := h.pipeline.FetchXML(leaderCtx, url)
		leaderDone <- env
	}()
	<-started

	type outcome struct {
		body string
		env  *toolerr.Envelope
	}
	followerDone := make(chan outcome, 1)
	go func() {
		body, env := h.pipeline.FetchXML(context.Background(), url)
		followerDone <- outcome{body, env}
	}()
	// Give the follower time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	if env := <-leaderDone; env == nil {
		t.Fatal("cancelled leader got no envelope")
	}
	close(release)

	got := <-followerDone
	if got.env != nil {
		t.Fatalf("follower failed with leader's cancellation: %+v", got.env)
	}
	if got.body != "<ok/>" {
		t.Errorf("follower body = %q", got.body)
	}
	if calls := h.upstream.calls.Load(); calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestPipeline_CallerDeadlineDoesNotOpenBreaker(t *testing.T) {
	h := newHarness(t, func(_ int64, r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})

	const n = 5
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, env := h.pipeline.FetchXML(ctx, fmt.Sprintf("%s?n=%d", molitURL, i))
		cancel()
		assertEnvelope(t, env, toolerr.KindNetwork)
	}

	deadline := time.Now().Add(5 * time.Second)
	for h.logs.FilterMessage("upstream request abandoned").Len() < n {
		if time.Now().After(deadline) {
			t.Fatal("abandoned loads did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m := h.pipeline.BreakerStates()["molit"]
	if m.State != resilience.StateClosed || m.ConsecutiveFailures != 0 {
		t.Fatalf("breaker = %+v, want closed with no failures", m)
	}
}

func TestPipeline_Throttle(t *testing.T) {
	h := newHarness(t, func(int64, *http.Request) (*http.Response, error) {
		return okResponse("<ok/>")
	}, WithThrottle(resilience.ThrottleConfig{MaxConcurrent: 1}))

	if _, env := h.pipeline.FetchXML(context.Background(), molitURL+"?a=1"); env != nil {
		t.Fatal(env)
	}
	if _, env := h.pipeline.FetchXML(context.Background(), molitURL+"?a=2"); env != nil {
		t.Fatal(env)
	}
}

func TestPipeline_RealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	p := New(WithHTTPClient(NewClient(time.Second, time.Second)))
	v, env := p.FetchJSON(context.Background(), srv.URL+"/x", nil)
	if env != nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if v.(map[string]any)["ok"] != true {
		t.Errorf("decoded = %#v", v)
	}
}

func TestPipeline_ConnectionRefusedServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sleeps := &sleepRecorder{}
	p := New(
		WithHTTPClient(NewClient(time.Second, time.Second)),
		WithRetry(resilience.RetryConfig{Sleep: sleeps.Sleep}),
	)
	_, env := p.FetchXML(context.Background(), url)
	assertEnvelope(t, env, toolerr.KindNetwork)
	if len(sleeps.Delays()) != 2 {
		t.Errorf("delays = %v, want two backoffs", sleeps.Delays())
	}
}
