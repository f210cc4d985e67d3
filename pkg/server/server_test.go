package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/supporttools/kube-probe-demo/pkg/discovery"
	"github.com/supporttools/kube-probe-demo/pkg/metrics"
	"github.com/supporttools/kube-probe-demo/pkg/probe"
	"github.com/supporttools/kube-probe-demo/pkg/types"
)

// fakeClock is an adjustable clock shared with the probe state.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubStrategy returns a fixed peer list.
type stubStrategy struct {
	peers []discovery.Peer
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Discover(context.Context) ([]discovery.Peer, error) {
	return s.peers, nil
}

type fixture struct {
	server *Server
	state  *probe.State
	clock  *fakeClock
}

func newFixture(t *testing.T, peers []discovery.Peer) *fixture {
	t.Helper()

	config := types.DefaultConfig()
	config.PodName = "demo-pod-1"
	config.Namespace = "demo-ns"

	clock := newFakeClock()
	state := probe.NewStateWithClock(config.StartupDelay(), clock.Now)

	d, err := discovery.NewDiscoverer(&discovery.Config{
		Strategies: []discovery.Strategy{&stubStrategy{peers: peers}},
		Timeout:    time.Second,
		SelfIP:     discovery.StaticSelfIP("10.0.0.7"),
	})
	if err != nil {
		t.Fatalf("NewDiscoverer() error = %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(d.Stop)

	m, err := metrics.New("probe_demo_test")
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	srv, err := New(config, state, d, m)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.SetSelfIP(discovery.StaticSelfIP("10.0.0.7"))

	return &fixture{server: srv, state: state, clock: clock}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthzToggleRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	if rec := f.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}

	// Toggle off: probe fails, orchestrator would restart us.
	if rec := f.get(t, "/toggle-health"); rec.Code != http.StatusOK {
		t.Errorf("GET /toggle-health = %d, want 200", rec.Code)
	}
	rec := f.get(t, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz after toggle = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "UNHEALTHY") {
		t.Error("unhealthy response body should mention UNHEALTHY")
	}

	// Toggle back on.
	f.get(t, "/toggle-health")
	if rec := f.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz after second toggle = %d, want 200", rec.Code)
	}
}

func TestReadyStartupDelayGate(t *testing.T) {
	f := newFixture(t, nil)

	// t=3s with a 5s delay: 503, body mentions the ~2s remaining.
	f.clock.Advance(3 * time.Second)
	rec := f.get(t, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready at t=3s = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2") {
		t.Errorf("GET /ready body = %q, want mention of 2 seconds remaining", rec.Body.String())
	}

	// t=6s: gate open.
	f.clock.Advance(3 * time.Second)
	if rec := f.get(t, "/ready"); rec.Code != http.StatusOK {
		t.Errorf("GET /ready at t=6s = %d, want 200", rec.Code)
	}

	// Toggle off and on again: responds immediately, no second gate.
	f.get(t, "/toggle-ready")
	if rec := f.get(t, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready after toggle off = %d, want 503", rec.Code)
	}
	f.get(t, "/toggle-ready")
	if rec := f.get(t, "/ready"); rec.Code != http.StatusOK {
		t.Errorf("GET /ready after toggle on = %d, want 200", rec.Code)
	}
}

func TestStartupProbeLatch(t *testing.T) {
	f := newFixture(t, nil)

	if rec := f.get(t, "/startup"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /startup at t=0 = %d, want 503", rec.Code)
	}

	f.clock.Advance(probe.InitializationWindow)
	if rec := f.get(t, "/startup"); rec.Code != http.StatusOK {
		t.Errorf("GET /startup after init window = %d, want 200", rec.Code)
	}

	// Latched: stays started no matter what else happens.
	f.get(t, "/toggle-health")
	f.get(t, "/toggle-ready")
	if rec := f.get(t, "/startup"); rec.Code != http.StatusOK {
		t.Errorf("GET /startup after toggles = %d, want 200 forever", rec.Code)
	}
}

func TestIndexDegradedPeerTable(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200 even with discovery unavailable", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Peer discovery unavailable") {
		t.Error("empty peer list should render the degraded discovery card")
	}
}

func TestIndexPeerTable(t *testing.T) {
	peers := []discovery.Peer{
		{Name: "pod-a", IP: "10.0.0.4", Node: "node-1", Phase: "Running", Ready: true},
		{Name: "pod-b", IP: "10.0.0.7", Node: "node-2", Phase: "Running", Ready: true},
	}
	f := newFixture(t, peers)

	rec := f.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "pod-a") || !strings.Contains(body, "pod-b") {
		t.Error("peer table should list both peers")
	}
	if !strings.Contains(body, "YOU") {
		t.Error("peer table should tag the self record")
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.get(t, "/no-such-page"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /no-such-page = %d, want 404", rec.Code)
	}
}

func TestInfoEnvironmentMasking(t *testing.T) {
	t.Setenv("DEMO_API_TOKEN", "super-sensitive-value")
	t.Setenv("DEMO_PLAIN", strings.Repeat("x", 150))

	f := newFixture(t, nil)
	rec := f.get(t, "/info")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /info = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "super-sensitive-value") {
		t.Error("secret-like env value must be masked in /info")
	}
	if !strings.Contains(body, "DEMO_API_TOKEN") {
		t.Error("masked variable name should still be listed")
	}
	if strings.Contains(body, strings.Repeat("x", 101)) {
		t.Error("long env values must be truncated to 100 characters")
	}
	if !strings.Contains(body, strings.Repeat("x", 100)) {
		t.Error("truncated env value should keep its first 100 characters")
	}
}

func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CPU burn in short mode")
	}

	f := newFixture(t, nil)
	start := time.Now()
	rec := f.get(t, "/stress")
	elapsed := time.Since(start)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /stress = %d, want 200", rec.Code)
	}
	if elapsed < stressDuration {
		t.Errorf("GET /stress returned after %v, want at least %v of burn", elapsed, stressDuration)
	}
	if !strings.Contains(rec.Body.String(), "CPU burn") {
		t.Error("stress response should report the burn duration")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.get(t, "/healthz")
	f.get(t, "/toggle-ready")

	rec := f.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "probe_requests_total") {
		t.Error("metrics output should include probe request counters")
	}
	if !strings.Contains(body, "toggles_total") {
		t.Error("metrics output should include toggle counters")
	}
}

func TestNewValidation(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := New(nil, nil, nil, nil); err == nil {
		t.Error("New(nil config) error = nil, want error")
	}
	if _, err := New(types.DefaultConfig(), nil, nil, nil); err == nil {
		t.Error("New(nil state) error = nil, want error")
	}
	if _, err := New(types.DefaultConfig(), f.state, nil, nil); err == nil {
		t.Error("New(nil discoverer) error = nil, want error")
	}
}
