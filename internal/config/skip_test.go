package config

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/agent-e2e/internal/stubagent"
)

// recordingTB captures skip and fatal outcomes from a gating helper. The
// embedded TB is nil; the helpers only touch the methods overridden here.
type recordingTB struct {
	testing.TB
	skipped bool
	failed  bool
	message string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Skip(args ...any) {
	r.skipped = true
	r.message = fmt.Sprint(args...)
	runtime.Goexit()
}

func (r *recordingTB) Skipf(format string, args ...any) {
	r.skipped = true
	r.message = fmt.Sprintf(format, args...)
	runtime.Goexit()
}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
	runtime.Goexit()
}

// runGate runs a gating helper on its own goroutine so the Goexit raised by
// a skip terminates the helper, not the test.
func runGate(fn func(tb testing.TB)) *recordingTB {
	rec := &recordingTB{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(rec)
	}()
	<-done
	return rec
}

func startGateStub(t *testing.T) *stubagent.Server {
	t.Helper()
	srv, err := stubagent.NewServer(stubagent.DefaultConfig())
	require.NoError(t, err)
	_, err = srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestSkipUnlessDeepgramProxyPassesReachableEndpoint(t *testing.T) {
	srv := startGateStub(t)
	cfg := Config{DeepgramProxyEndpoint: srv.WebSocketURL()}

	rec := runGate(func(tb testing.TB) { SkipUnlessDeepgramProxy(tb, cfg) })
	assert.False(t, rec.skipped, "reachable endpoint was skipped: %s", rec.message)
	assert.False(t, rec.failed)
}

func TestSkipUnlessDeepgramProxySkipsDeadEndpoint(t *testing.T) {
	// Configured but nothing listening: the spec must skip, not fail.
	cfg := Config{DeepgramProxyEndpoint: "ws://127.0.0.1:1/agent"}

	rec := runGate(func(tb testing.TB) { SkipUnlessDeepgramProxy(tb, cfg) })
	assert.True(t, rec.skipped, "dead endpoint did not skip")
	assert.False(t, rec.failed)
	assert.Contains(t, rec.message, "unreachable")
}

func TestSkipUnlessDeepgramProxySkipsWhenUnconfigured(t *testing.T) {
	rec := runGate(func(tb testing.TB) { SkipUnlessDeepgramProxy(tb, Config{}) })
	assert.True(t, rec.skipped)
}

func TestSkipUnlessOpenAIProxySkipsDeadEndpoint(t *testing.T) {
	cfg := Config{OpenAIProxyEndpoint: "ws://127.0.0.1:1/openai"}

	rec := runGate(func(tb testing.TB) { SkipUnlessOpenAIProxy(tb, cfg) })
	assert.True(t, rec.skipped, "dead endpoint did not skip")
	assert.False(t, rec.failed)
}

func TestSkipUnlessAnyBackendPicksReachableBackend(t *testing.T) {
	srv := startGateStub(t)
	cfg := Config{
		// OpenAI is configured but dead; the proxy stub answers.
		OpenAIProxyEndpoint:   "ws://127.0.0.1:1/openai",
		DeepgramProxyEndpoint: srv.WebSocketURL(),
	}

	var got Backend
	rec := runGate(func(tb testing.TB) { got = SkipUnlessAnyBackend(tb, cfg) })
	require.False(t, rec.skipped, "reachable backend was skipped: %s", rec.message)
	assert.Equal(t, BackendDeepgramProxy, got)
}

func TestSkipUnlessAnyBackendSkipsWhenAllDead(t *testing.T) {
	cfg := Config{
		OpenAIProxyEndpoint:   "ws://127.0.0.1:1/openai",
		DeepgramProxyEndpoint: "ws://127.0.0.1:1/agent",
	}

	rec := runGate(func(tb testing.TB) { SkipUnlessAnyBackend(tb, cfg) })
	assert.True(t, rec.skipped, "all-dead configuration did not skip")
}

func TestSkipUnlessDeepgramGatesOnKey(t *testing.T) {
	rec := runGate(func(tb testing.TB) { SkipUnlessDeepgram(tb, Config{}) })
	assert.True(t, rec.skipped)

	rec = runGate(func(tb testing.TB) { SkipUnlessDeepgram(tb, Config{DeepgramAPIKey: "dg_secret"}) })
	assert.False(t, rec.skipped)
}

func TestSkipInCI(t *testing.T) {
	rec := runGate(func(tb testing.TB) { SkipInCI(tb, Config{CI: true}, "spends credits") })
	assert.True(t, rec.skipped)
	assert.Contains(t, rec.message, "spends credits")

	rec = runGate(func(tb testing.TB) { SkipInCI(tb, Config{}, "spends credits") })
	assert.False(t, rec.skipped)
}
