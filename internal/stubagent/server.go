// Package stubagent provides an importable local voice-agent backend for
// exercising this suite's own harness and for standing in when no production
// proxy is running. It speaks the agent WebSocket protocol: a Settings
// handshake, JSON events on text frames, and raw PCM16 audio on binary
// frames. E2E tests can programmatically start and stop it without running
// a separate process.
//
// It is scaffolding for the suite, not the system under test.
package stubagent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicebridge/agent-e2e/pkg/agentwire"
)

// Mode selects which backend flavor the stub imitates.
type Mode string

const (
	// ModeDeepgram imitates the Deepgram-flavored agent protocol.
	ModeDeepgram Mode = "deepgram"
	// ModeOpenAI imitates the OpenAI Realtime proxy mapping.
	ModeOpenAI Mode = "openai"
)

// Config holds stub server configuration options.
type Config struct {
	Addr string // Listen address (e.g., ":8080" or ":0" for random port)
	Mode Mode   // Protocol flavor (default: ModeDeepgram)

	// IdleTimeout is how long after AgentAudioDone the server waits before
	// closing an idle session. Client keepalives do not extend it: the
	// session is idle when the agent is done speaking and the user stays
	// silent, which is exactly the teardown window the suite asserts on.
	IdleTimeout time.Duration

	// UtteranceSilence is the trailing silence that ends a user utterance.
	UtteranceSilence time.Duration

	// OutputSampleRate is the PCM16 rate of synthesized agent audio.
	OutputSampleRate int

	// Functions are advertised client-side functions; a user turn mentioning
	// a function's name triggers a FunctionCallRequest instead of speech.
	Functions []agentwire.FunctionDef

	// ReadTimeout bounds the HTTP handshake; the upgraded socket manages
	// its own deadlines.
	ReadTimeout time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns a configuration suitable for testing.
// Uses ":0" to bind to a random available port.
func DefaultConfig() Config {
	return Config{
		Addr:             ":0",
		Mode:             ModeDeepgram,
		IdleTimeout:      10 * time.Second,
		UtteranceSilence: 500 * time.Millisecond,
		OutputSampleRate: 24000,
		ReadTimeout:      30 * time.Second,
	}
}

// Server is an importable stub voice-agent backend.
type Server struct {
	cfg        Config
	log        *zap.Logger
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.Mutex
	running    bool
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeDeepgram
	}
	if cfg.Mode != ModeDeepgram && cfg.Mode != ModeOpenAI {
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Second
	}
	if cfg.UtteranceSilence <= 0 {
		cfg.UtteranceSilence = 500 * time.Millisecond
	}
	if cfg.OutputSampleRate <= 0 {
		cfg.OutputSampleRate = 24000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{cfg: cfg, log: cfg.Logger.Named("stubagent")}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(landingPage))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/agent", s.handleAgent)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
	return s, nil
}

// Start begins listening and serving.
// Returns the actual address the server is listening on (useful when port is 0).
// This method is non-blocking - the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = ln
	s.addr = ln.Addr().String()
	s.running = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Warn("serve stopped", zap.Error(err))
		}
	}()

	s.log.Info("stub agent listening",
		zap.String("addr", s.addr),
		zap.String("mode", string(s.cfg.Mode)),
		zap.Duration("idle_timeout", s.cfg.IdleTimeout))
	return s.addr, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// WebSocketURL returns the ws:// URL of the agent endpoint.
func (s *Server) WebSocketURL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "ws://" + addr + "/agent"
}
