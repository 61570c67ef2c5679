package config

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voicebridge/agent-e2e/internal/probe"
)

// Skip helpers: specs whose prerequisites are absent self-skip instead of
// failing the run, mirroring the component test app's own gating. Proxy
// backends are gated on a live handshake, not just on the environment
// variable: a configured-but-dead endpoint should skip, not fail.

// MustLoad loads the configuration, failing the test on error.
func MustLoad(t testing.TB) Config {
	t.Helper()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load suite config: %v", err)
	}
	return cfg
}

// probeTimeout bounds the one handshake probe each endpoint gets.
const probeTimeout = 10 * time.Second

// probeCache memoizes one live handshake per endpoint for the lifetime of
// the test binary, so a suite of specs costs one probe per backend.
var probeCache = struct {
	mu      sync.Mutex
	results map[string]probe.Result
}{results: make(map[string]probe.Result)}

func probeEndpoint(endpoint string) probe.Result {
	probeCache.mu.Lock()
	defer probeCache.mu.Unlock()
	if res, ok := probeCache.results[endpoint]; ok {
		return res
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	res := probe.New(nil, probeTimeout).Probe(ctx, endpoint)
	probeCache.results[endpoint] = res
	return res
}

// backendReachable reports whether a configured backend answers a live
// handshake. Direct Deepgram is exempt: its handshake needs the browser-side
// auth flow, so key presence is the only gate the suite can apply.
func backendReachable(cfg Config, b Backend) (bool, error) {
	if b == BackendDeepgram {
		return true, nil
	}
	ep, err := cfg.Endpoint(b)
	if err != nil {
		return false, err
	}
	res := probeEndpoint(ep)
	return res.Reachable, res.Err
}

// SkipUnlessDeepgram skips unless a Deepgram API key is configured.
func SkipUnlessDeepgram(t testing.TB, cfg Config) {
	t.Helper()
	if !cfg.DeepgramConfigured() {
		t.Skip("skipping: VITE_DEEPGRAM_API_KEY not set")
	}
}

// SkipUnlessDeepgramProxy skips unless a Deepgram proxy endpoint is
// configured and answers a handshake.
func SkipUnlessDeepgramProxy(t testing.TB, cfg Config) {
	t.Helper()
	if !cfg.DeepgramProxyConfigured() {
		t.Skip("skipping: no Deepgram proxy endpoint (VITE_DEEPGRAM_PROXY_ENDPOINT or USE_PROXY_MODE + VITE_PROXY_ENDPOINT)")
	}
	if ok, err := backendReachable(cfg, BackendDeepgramProxy); !ok {
		t.Skipf("skipping: Deepgram proxy endpoint unreachable: %v", err)
	}
}

// SkipUnlessOpenAIProxy skips unless the OpenAI Realtime proxy endpoint is
// configured and answers a handshake.
func SkipUnlessOpenAIProxy(t testing.TB, cfg Config) {
	t.Helper()
	if !cfg.OpenAIConfigured() {
		t.Skip("skipping: VITE_OPENAI_PROXY_ENDPOINT not set")
	}
	if ok, err := backendReachable(cfg, BackendOpenAI); !ok {
		t.Skipf("skipping: OpenAI proxy endpoint unreachable: %v", err)
	}
}

// SkipUnlessAnyBackend skips unless at least one backend is configured and
// reachable, returning the first one that is.
func SkipUnlessAnyBackend(t testing.TB, cfg Config) Backend {
	t.Helper()
	backends := cfg.ConfiguredBackends()
	if len(backends) == 0 {
		t.Skip("skipping: no voice-agent backend configured")
	}
	for _, b := range backends {
		if ok, _ := backendReachable(cfg, b); ok {
			return b
		}
	}
	t.Skip("skipping: no configured voice-agent backend is reachable")
	return ""
}

// SkipInCI skips a spec that must not run in CI (e.g. spends real API
// credits).
func SkipInCI(t testing.TB, cfg Config, reason string) {
	t.Helper()
	if cfg.CI {
		t.Skipf("skipping in CI: %s", reason)
	}
}
