package stubagent

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voicebridge/agent-e2e/pkg/agentwire"
	"github.com/voicebridge/agent-e2e/pkg/harness/audio"
)

// Trivially permissive upgrader: the stub only ever runs on loopback.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// voicedRMS is the energy floor above which an input chunk counts as voice.
const voicedRMS = 0.02

// session is one agent WebSocket connection.
type session struct {
	id   string
	srv  *Server
	log  *zap.Logger
	conn *websocket.Conn

	writeMu sync.Mutex // serializes frame writes

	mu        sync.Mutex
	settings  agentwire.Settings
	inputRate int

	// VAD state over inbound audio.
	voiceActive   bool
	silenceBudget time.Duration
	utterancePCM  int // bytes accumulated in the current utterance

	// Conversation memory for context-bearing replies.
	userTurns []string

	idleTimer *time.Timer
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()[:8]
	sess := &session{
		id:        id,
		srv:       s,
		log:       s.log.With(zap.String("session", id)),
		conn:      conn,
		inputRate: 16000,
	}
	sess.log.Info("session opened", zap.String("remote", r.RemoteAddr))

	if s.cfg.Mode == ModeOpenAI {
		sess.runOpenAI()
		return
	}
	sess.run()
}

// run drives a Deepgram-flavored session: Settings handshake first, then
// interleaved JSON control messages and binary audio.
func (s *session) run() {
	defer s.close()

	if !s.awaitSettings() {
		return
	}

	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("session read ended", zap.Error(err))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.feedAudio(payload)
		case websocket.TextMessage:
			if !s.handleText(payload) {
				return
			}
		}
	}
}

// awaitSettings enforces the handshake: the first text frame must be a valid
// Settings message. Anything else gets an Error and a close.
func (s *session) awaitSettings() bool {
	msgType, payload, err := s.conn.ReadMessage()
	if err != nil {
		return false
	}
	if msgType != websocket.TextMessage {
		s.sendError("HANDSHAKE", "expected Settings before audio")
		return false
	}

	var settings agentwire.Settings
	if err := json.Unmarshal(payload, &settings); err != nil || settings.Type != agentwire.TypeSettings {
		s.sendError("HANDSHAKE", "first message must be Settings")
		return false
	}
	if err := settings.Validate(); err != nil {
		s.sendError("INVALID_SETTINGS", err.Error())
		return false
	}

	s.mu.Lock()
	s.settings = settings
	s.inputRate = settings.Audio.Input.SampleRate
	s.mu.Unlock()

	s.sendJSON(agentwire.SettingsApplied{Type: agentwire.TypeSettingsApplied})
	if settings.Agent.Greeting != "" {
		s.speak(settings.Agent.Greeting)
	}
	return true
}

// handleText dispatches one JSON control message. Returns false to end the
// session.
func (s *session) handleText(payload []byte) bool {
	switch agentwire.TypeOf(payload) {
	case agentwire.TypeSettings:
		// Settings after the handshake is a client bug.
		s.sendError("PROTOCOL", "Settings already applied")
		return false

	case agentwire.TypeConversationText:
		var msg agentwire.ConversationText
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.sendError("BAD_MESSAGE", "unparseable ConversationText")
			return true
		}
		if msg.Role == "user" {
			s.stopIdleTimer()
			s.respondTo(msg.Content)
		}
		return true

	case agentwire.TypeInjectAgentMessage:
		var msg agentwire.InjectAgentMessage
		if err := json.Unmarshal(payload, &msg); err == nil && msg.Content != "" {
			s.stopIdleTimer()
			s.speak(msg.Content)
		}
		return true

	case agentwire.TypeFunctionCallResponse:
		var msg agentwire.FunctionCallResponse
		if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" {
			s.sendError("BAD_MESSAGE", "function call response without id")
			return true
		}
		s.stopIdleTimer()
		s.speak("The function returned: " + msg.Content)
		return true

	case "KeepAlive":
		// Must not touch the idle timer. Keepalives once extended idle
		// sessions to the provider's full 60s timeout.
		return true

	default:
		s.log.Debug("ignoring message", zap.String("type", agentwire.TypeOf(payload)))
		return true
	}
}

// feedAudio runs the inbound chunk through the energy VAD and fires
// UserStartedSpeaking / UtteranceEnd at the right edges.
func (s *session) feedAudio(chunk []byte) {
	stats, err := audio.Stats(chunk)
	if err != nil {
		return
	}

	s.mu.Lock()
	rate := s.inputRate
	chunkDur := time.Duration(float64(stats.Samples) / float64(rate) * float64(time.Second))
	voiced := stats.RMS >= voicedRMS

	switch {
	case voiced && !s.voiceActive:
		s.voiceActive = true
		s.silenceBudget = 0
		s.utterancePCM = len(chunk)
		s.mu.Unlock()
		s.stopIdleTimer()
		s.sendJSON(agentwire.UserStartedSpeaking{Type: agentwire.TypeUserStartedSpeaking})
		return

	case voiced:
		s.silenceBudget = 0
		s.utterancePCM += len(chunk)
		s.mu.Unlock()
		return

	case s.voiceActive:
		s.silenceBudget += chunkDur
		if s.silenceBudget < s.srv.cfg.UtteranceSilence {
			s.mu.Unlock()
			return
		}
		pcmBytes := s.utterancePCM
		s.voiceActive = false
		s.silenceBudget = 0
		s.utterancePCM = 0
		s.mu.Unlock()

		s.sendJSON(agentwire.UtteranceEnd{Type: agentwire.TypeUtteranceEnd})
		s.log.Debug("utterance ended", zap.Int("pcm_bytes", pcmBytes))
		s.respondTo("(spoken utterance)")
		return

	default:
		s.mu.Unlock()
	}
}

// respondTo produces the agent's reaction to one user turn: a function call
// when the turn names a registered function, otherwise a spoken reply that
// references earlier turns so context-retention specs have something to
// find.
func (s *session) respondTo(userText string) {
	s.mu.Lock()
	s.userTurns = append(s.userTurns, userText)
	turnCount := len(s.userTurns)
	s.mu.Unlock()

	lower := strings.ToLower(userText)
	for _, fn := range s.srv.cfg.Functions {
		if strings.Contains(lower, strings.ToLower(fn.Name)) {
			s.sendJSON(agentwire.FunctionCallRequest{
				Type: agentwire.TypeFunctionCallRequest,
				Functions: []agentwire.FunctionCall{{
					ID:         "fc_" + uuid.NewString()[:8],
					Name:       fn.Name,
					Arguments:  `{"query":` + mustQuote(userText) + `}`,
					ClientSide: true,
				}},
			})
			return
		}
	}

	reply := "I heard you say: " + userText
	if turnCount > 1 {
		s.mu.Lock()
		reply += ". Earlier you said: " + strings.Join(s.userTurns[:turnCount-1], "; ")
		s.mu.Unlock()
	}
	s.speak(reply)
}

// speak runs one full speaking cycle: thinking, speaking, audio frames,
// done, transcript. The idle timer starts when the cycle finishes.
func (s *session) speak(text string) {
	s.sendJSON(agentwire.AgentThinking{Type: agentwire.TypeAgentThinking, Content: text})
	s.sendJSON(agentwire.AgentStartedSpeaking{Type: agentwire.TypeAgentStartedSpeaking})

	rate := s.srv.cfg.OutputSampleRate
	pcm := audio.SynthesizeSpeech(time.Second, rate)

	// 100ms frames, the granularity real TTS backends stream at.
	frameBytes := rate / 10 * 2
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		s.sendBinary(pcm[off:end])
	}

	s.sendJSON(agentwire.ConversationText{
		Type:    agentwire.TypeConversationText,
		Role:    "assistant",
		Content: text,
	})
	s.sendJSON(agentwire.AgentAudioDone{Type: agentwire.TypeAgentAudioDone})
	s.startIdleTimer()
}

// startIdleTimer arms the idle close. The agent just finished speaking; if
// the user stays silent the session closes after IdleTimeout.
func (s *session) startIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.srv.cfg.IdleTimeout, s.closeIdle)
}

func (s *session) stopIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// closeIdle performs the idle-timeout teardown with a normal closure code.
func (s *session) closeIdle() {
	s.log.Info("closing idle session", zap.Duration("idle_timeout", s.srv.cfg.IdleTimeout))
	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "idle timeout"),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	_ = s.conn.Close()
}

func (s *session) sendJSON(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, agentwire.Marshal(v)); err != nil {
		s.log.Debug("write failed", zap.Error(err))
	}
}

func (s *session) sendBinary(payload []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		s.log.Debug("binary write failed", zap.Error(err))
	}
}

func (s *session) sendError(code, description string) {
	s.sendJSON(agentwire.Error{Type: agentwire.TypeError, Code: code, Description: description})
}

func (s *session) close() {
	s.stopIdleTimer()
	_ = s.conn.Close()
	s.log.Info("session closed")
}

func mustQuote(v string) string {
	return string(agentwire.Marshal(v))
}
