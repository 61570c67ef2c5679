// Package probe checks whether voice-agent backends are actually reachable.
// An environment variable naming an endpoint says nothing about whether the
// process behind it is up; the suite probes with a real Settings handshake
// before deciding to run or skip, and the doctor command reports the same
// results to humans.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voicebridge/agent-e2e/pkg/agentwire"
)

// Result is the outcome of probing one endpoint.
type Result struct {
	Endpoint  string
	Reachable bool
	Latency   time.Duration // dial + handshake round trip
	Greeting  string        // first message type received after Settings
	Err       error
}

// Prober dials agent endpoints and runs the Settings handshake.
type Prober struct {
	log     *zap.Logger
	timeout time.Duration
}

// New creates a Prober. timeout bounds each probe end to end.
func New(log *zap.Logger, timeout time.Duration) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{log: log, timeout: timeout}
}

// Probe dials the endpoint, sends Settings, and waits for the backend to
// acknowledge. A backend that accepts the socket but never answers the
// handshake counts as unreachable: the suite cannot run against it.
func (p *Prober) Probe(ctx context.Context, endpoint string) Result {
	res := Result{Endpoint: endpoint}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		res.Err = fmt.Errorf("dial failed: %w", err)
		return res
	}
	defer conn.Close()

	deadline := time.Now().Add(p.timeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	settings := agentwire.NewSettings(16000, 24000)
	if err := conn.WriteMessage(websocket.TextMessage, agentwire.Marshal(settings)); err != nil {
		res.Err = fmt.Errorf("failed to send settings: %w", err)
		return res
	}

	// Read until the first JSON message; some backends greet with Welcome
	// before acknowledging settings.
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			res.Err = fmt.Errorf("no handshake response: %w", err)
			return res
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msgTypeTag := agentwire.TypeOf(payload)
		if msgTypeTag == "" {
			continue
		}
		if msgTypeTag == agentwire.TypeError {
			var errMsg agentwire.Error
			if decodeErr := json.Unmarshal(payload, &errMsg); decodeErr == nil {
				res.Err = errMsg
				return res
			}
			res.Err = fmt.Errorf("backend rejected handshake")
			return res
		}

		res.Greeting = msgTypeTag
		res.Reachable = true
		res.Latency = time.Since(start)
		p.log.Debug("probe ok",
			zap.String("endpoint", endpoint),
			zap.String("greeting", res.Greeting),
			zap.Duration("latency", res.Latency))
		return res
	}
}

// ProbeAll probes the endpoints concurrently and returns results keyed by
// endpoint. Unreachable endpoints are results, not errors: the caller
// decides whether absence is fatal.
func (p *Prober) ProbeAll(ctx context.Context, endpoints []string) map[string]Result {
	var mu sync.Mutex
	results := make(map[string]Result, len(endpoints))

	g, ctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			res := p.Probe(ctx, ep)
			mu.Lock()
			results[ep] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
