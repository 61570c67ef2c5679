//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/voicebridge/agent-e2e/internal/stubagent"
	"github.com/voicebridge/agent-e2e/pkg/harness"
)

// TestHarness_BrowserCanLoadStubLanding verifies the harness plumbing before
// any backend spec runs: launch Chrome, serve the stub agent's landing page,
// navigate, and read the title back. If this fails, nothing else in the
// suite is trustworthy.
func TestHarness_BrowserCanLoadStubLanding(t *testing.T) {
	srv, err := stubagent.NewServer(stubagent.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create stub agent: %v", err)
	}
	addr, err := srv.Start()
	if err != nil {
		t.Fatalf("failed to start stub agent: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("stub shutdown error: %v", err)
		}
	}()

	// The listener binds a wildcard address; the browser needs a dialable
	// host.
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("unexpected stub address %q: %v", addr, err)
	}
	url := fmt.Sprintf("http://localhost:%s/", port)

	client, err := harness.NewBrowserClient(harness.DefaultBrowserConfig())
	if err != nil {
		t.Fatalf("failed to create browser: %v", err)
	}
	defer client.Close()

	page, err := client.Navigate(url)
	if err != nil {
		t.Fatalf("failed to navigate to %s: %v", url, err)
	}
	if err := client.WaitStable(); err != nil {
		t.Fatalf("landing page not stable: %v", err)
	}

	info, err := page.Info()
	if err != nil {
		t.Fatalf("failed to read page info: %v", err)
	}
	t.Logf("Loaded %s, title %q", url, info.Title)
	if !strings.Contains(info.Title, "Voice Agent Stub") {
		t.Fatalf("unexpected landing page title %q", info.Title)
	}
}
