package stubagent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voicebridge/agent-e2e/pkg/agentwire"
	"github.com/voicebridge/agent-e2e/pkg/harness/audio"
)

// openAIResponseDone is the completion event of a response cycle. The output
// text carries the session's accumulated context so reconnect specs can
// check that replayed conversation.item.create events were honored.
type openAIResponseDone struct {
	Type     string `json:"type"`
	Response struct {
		OutputText string `json:"output_text"`
	} `json:"response"`
}

// runOpenAI drives an OpenAI-Realtime-flavored session. The proxy mapping
// under test keeps all JSON on text frames; the binary channel carries raw
// PCM16 only, from the first frame on.
func (s *session) runOpenAI() {
	defer s.close()

	var items []agentwire.OpenAIConversationItem

	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("session read ended", zap.Error(err))
			return
		}

		if msgType == websocket.BinaryMessage {
			// Inbound mic audio; the realtime API VADs server-side. The
			// stub reuses the Deepgram-mode VAD and reports speech edges
			// as input_audio_buffer events.
			s.feedOpenAIAudio(payload)
			continue
		}

		switch agentwire.TypeOf(payload) {
		case agentwire.OpenAISessionUpdate:
			s.sendJSON(map[string]string{"type": "session.updated"})

		case agentwire.OpenAIConversationItemCreate:
			var ev agentwire.OpenAIConversationItemCreateEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				s.sendError("BAD_MESSAGE", "unparseable conversation.item.create")
				continue
			}
			s.stopIdleTimer()
			items = append(items, ev.Item)
			s.sendJSON(map[string]string{"type": "conversation.item.created"})

		case agentwire.OpenAIResponseCreate:
			s.stopIdleTimer()
			s.respondOpenAI(items)

		default:
			s.log.Debug("ignoring event", zap.String("type", agentwire.TypeOf(payload)))
		}
	}
}

// feedOpenAIAudio mirrors the Deepgram VAD edges onto realtime event names.
func (s *session) feedOpenAIAudio(chunk []byte) {
	stats, err := audio.Stats(chunk)
	if err != nil {
		return
	}

	s.mu.Lock()
	voiced := stats.RMS >= voicedRMS
	started := voiced && !s.voiceActive
	if started {
		s.voiceActive = true
	}
	s.mu.Unlock()

	if started {
		s.stopIdleTimer()
		s.sendJSON(map[string]string{"type": "input_audio_buffer.speech_started"})
	}
}

// respondOpenAI runs one response cycle: PCM on the binary channel, then a
// response.done text event whose output references every user item so far.
func (s *session) respondOpenAI(items []agentwire.OpenAIConversationItem) {
	rate := s.srv.cfg.OutputSampleRate
	pcm := audio.SynthesizeSpeech(time.Second, rate)

	frameBytes := rate / 10 * 2
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		s.sendBinary(pcm[off:end])
	}

	var userTexts []string
	for _, item := range items {
		if item.Role == "user" {
			userTexts = append(userTexts, item.ItemText())
		}
	}

	done := openAIResponseDone{Type: agentwire.OpenAIResponseDone}
	if len(userTexts) == 0 {
		done.Response.OutputText = "Hello! How can I help you?"
	} else {
		done.Response.OutputText = "You told me: " + strings.Join(userTexts, "; ")
	}
	s.sendJSON(done)
	s.startIdleTimer()
}
