//go:build e2e

package e2e

import (
	"testing"
	"time"

	"github.com/go-rod/rod"

	"github.com/voicebridge/agent-e2e/internal/config"
	"github.com/voicebridge/agent-e2e/pkg/harness"
	"github.com/voicebridge/agent-e2e/pkg/harness/wscapture"
)

// Timeouts used across specs. Connection covers app load plus the backend
// handshake; VAD covers streaming enough audio for the backend to commit to
// a speech event.
const (
	connectTimeout  = 15 * time.Second
	responseTimeout = 30 * time.Second
	vadTimeout      = 45 * time.Second
)

// appSession is everything one spec needs: the configured suite, a browser
// page on the test app, frame capture, console capture, and the typed DOM
// contract.
type appSession struct {
	cfg     config.Config
	client  *harness.BrowserClient
	page    *rod.Page
	rec     *wscapture.Recorder
	console *harness.ConsoleLog
	agent   *harness.AgentPage
}

// openApp launches a browser, attaches capture, and navigates to the test
// app with the given backend selected. Teardown is registered on the test.
func openApp(t *testing.T, cfg config.Config, backend config.Backend) *appSession {
	t.Helper()

	browserCfg := harness.DefaultBrowserConfig()
	browserCfg.Headless = cfg.Headless
	client, err := harness.NewBrowserClient(browserCfg)
	if err != nil {
		t.Fatalf("failed to create browser: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("browser close error: %v", err)
		}
	})

	// Capture must attach before navigation or CDP misses the socket.
	page, err := client.NewPage()
	if err != nil {
		t.Fatalf("failed to open page: %v", err)
	}
	rec, err := wscapture.NewRecorder(page)
	if err != nil {
		t.Fatalf("failed to attach websocket recorder: %v", err)
	}
	console := harness.CaptureConsole(page, 200)

	t.Logf("Navigating to %s (backend %s)", cfg.AppURL, backend)
	if _, err := client.Navigate(cfg.AppURL); err != nil {
		t.Fatalf("failed to navigate to test app: %v", err)
	}
	if err := client.WaitStable(); err != nil {
		t.Fatalf("test app page not stable: %v", err)
	}

	agent := harness.Attach(page)
	if err := agent.SelectBackend(string(backend)); err != nil {
		t.Fatalf("failed to select backend: %v", err)
	}

	return &appSession{
		cfg:     cfg,
		client:  client,
		page:    page,
		rec:     rec,
		console: console,
		agent:   agent,
	}
}

// connect clicks connect and waits for the component to report connected,
// dumping diagnostics on failure.
func (s *appSession) connect(t *testing.T) {
	t.Helper()
	if err := s.agent.Connect(); err != nil {
		t.Fatalf("failed to click connect: %v", err)
	}
	if err := s.agent.WaitForConnectionStatus(harness.StatusConnected, connectTimeout); err != nil {
		s.dump(t)
		t.Fatalf("component never connected: %v", err)
	}
}

// dump logs the component state, console tail, and traffic summary. Specs
// call it before failing so the CI log carries enough to diagnose without a
// rerun.
func (s *appSession) dump(t *testing.T) {
	t.Helper()
	status, _ := s.agent.ConnectionStatus()
	state, _ := s.agent.AgentState()
	t.Logf("connection-status: %q, agent-state: %q", status, state)
	t.Logf("websocket traffic: %s", s.rec.Summary())
	if tail := s.console.Tail(20); tail != "" {
		t.Logf("console tail:\n%s", tail)
	}
}
