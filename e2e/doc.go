//go:build e2e

// Package e2e provides end-to-end tests for the voice-agent component.
//
// These tests are isolated from the standard test suite via build tags.
// They require a Chrome browser (auto-downloaded by Rod if not present),
// a running test app serving the component, and at least one configured
// backend; specs whose prerequisites are absent self-skip.
//
// Running E2E tests:
//
//	go test -tags=e2e ./e2e/...
//
// or, with environment pinning:
//
//	go run ./cmd/agent-e2e run --backend deepgram-proxy
//
// Running all tests except E2E:
//
//	go test ./...
//
// E2E tests use:
//   - Rod for browser automation (Chrome DevTools Protocol)
//   - pkg/harness for the component's data-testid DOM contract
//   - pkg/harness/wscapture for WebSocket frame assertions
//   - internal/config for environment gating and skip decisions
//
// Test isolation:
// Each test launches its own browser instance and opens its own page.
// Captured WebSocket frames and console logs are per-page and discarded
// with the test.
package e2e
