// Package agentwire defines the JSON message shapes exchanged with the
// voice-agent backends over the WebSocket session.
//
// The Deepgram-flavored protocol is a tagged-union: every text frame is a
// JSON object with a "type" field that selects the shape. Binary frames on
// the same socket carry raw PCM16 audio and are never JSON.
package agentwire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message type tags for the Deepgram-flavored agent protocol.
const (
	TypeSettings             = "Settings"
	TypeSettingsApplied      = "SettingsApplied"
	TypeWelcome              = "Welcome"
	TypeUserStartedSpeaking  = "UserStartedSpeaking"
	TypeUtteranceEnd         = "UtteranceEnd"
	TypeAgentThinking        = "AgentThinking"
	TypeAgentStartedSpeaking = "AgentStartedSpeaking"
	TypeAgentAudioDone       = "AgentAudioDone"
	TypeConversationText     = "ConversationText"
	TypeFunctionCallRequest  = "FunctionCallRequest"
	TypeFunctionCallResponse = "FunctionCallResponse"
	TypeInjectAgentMessage   = "InjectAgentMessage"
	TypeError                = "Error"
)

// TypeOf returns the "type" tag of a JSON message, or "" if the payload is
// not a JSON object carrying one. It never returns an error: callers use it
// to sniff captured frames whose shape is not yet known.
func TypeOf(raw []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Type
}

// IsJSON reports whether the payload parses as a JSON value. Leading
// whitespace is tolerated, as the browsers' frame capture preserves it.
func IsJSON(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid(trimmed)
}

// AudioConfig describes one direction of the audio pipe.
type AudioConfig struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Container  string `json:"container,omitempty"`
}

// SettingsAudio pairs the input and output audio configuration.
type SettingsAudio struct {
	Input  AudioConfig `json:"input"`
	Output AudioConfig `json:"output"`
}

// ProviderConfig names a model provider and model for one agent stage.
type ProviderConfig struct {
	Type  string `json:"type,omitempty"`
	Model string `json:"model,omitempty"`
}

// AgentListen configures the speech-to-text stage.
type AgentListen struct {
	Provider ProviderConfig `json:"provider"`
}

// AgentSpeak configures the text-to-speech stage.
type AgentSpeak struct {
	Provider ProviderConfig `json:"provider"`
}

// FunctionDef describes one callable function advertised to the agent.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// AgentThink configures the reasoning stage, including client-side functions.
type AgentThink struct {
	Provider  ProviderConfig `json:"provider"`
	Prompt    string         `json:"prompt,omitempty"`
	Functions []FunctionDef  `json:"functions,omitempty"`
}

// AgentConfig groups the three agent stages.
type AgentConfig struct {
	Listen   AgentListen `json:"listen"`
	Think    AgentThink  `json:"think"`
	Speak    AgentSpeak  `json:"speak"`
	Greeting string      `json:"greeting,omitempty"`
}

// Settings is the client's opening configuration message. The server must
// answer with SettingsApplied before any audio flows.
type Settings struct {
	Type  string        `json:"type"`
	Audio SettingsAudio `json:"audio"`
	Agent AgentConfig   `json:"agent"`
}

// NewSettings returns a Settings message with the canonical linear16 audio
// configuration used by the component under test.
func NewSettings(inputRate, outputRate int) Settings {
	return Settings{
		Type: TypeSettings,
		Audio: SettingsAudio{
			Input:  AudioConfig{Encoding: "linear16", SampleRate: inputRate},
			Output: AudioConfig{Encoding: "linear16", SampleRate: outputRate},
		},
		Agent: AgentConfig{
			Listen: AgentListen{Provider: ProviderConfig{Type: "deepgram", Model: "nova-3"}},
			Think:  AgentThink{Provider: ProviderConfig{Type: "open_ai", Model: "gpt-4o-mini"}},
			Speak:  AgentSpeak{Provider: ProviderConfig{Type: "deepgram", Model: "aura-2-thalia-en"}},
		},
	}
}

// Validate checks the fields the backends reject in practice.
func (s Settings) Validate() error {
	if s.Type != TypeSettings {
		return fmt.Errorf("settings type = %q, want %q", s.Type, TypeSettings)
	}
	if s.Audio.Input.Encoding == "" || s.Audio.Output.Encoding == "" {
		return fmt.Errorf("settings audio encodings must be non-empty")
	}
	if s.Audio.Input.SampleRate <= 0 {
		return fmt.Errorf("input sample rate must be positive, got %d", s.Audio.Input.SampleRate)
	}
	if s.Audio.Output.SampleRate <= 0 {
		return fmt.Errorf("output sample rate must be positive, got %d", s.Audio.Output.SampleRate)
	}
	return nil
}

// SettingsApplied acknowledges a Settings message.
type SettingsApplied struct {
	Type string `json:"type"`
}

// Welcome is sent by some backends on connect, before Settings.
type Welcome struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// UserStartedSpeaking is the VAD speech-onset event.
type UserStartedSpeaking struct {
	Type string `json:"type"`
}

// UtteranceEnd is the VAD end-of-utterance event.
type UtteranceEnd struct {
	Type    string  `json:"type"`
	LastEnd float64 `json:"last_word_end,omitempty"`
}

// AgentThinking signals the agent entered its reasoning stage.
type AgentThinking struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// AgentStartedSpeaking signals agent audio is about to flow.
type AgentStartedSpeaking struct {
	Type         string  `json:"type"`
	TotalLatency float64 `json:"total_latency,omitempty"`
	TTSLatency   float64 `json:"tts_latency,omitempty"`
	TTFBLatency  float64 `json:"ttfb_latency,omitempty"`
}

// AgentAudioDone signals the last binary audio frame for the current
// response has been sent. The idle-timeout window starts here.
type AgentAudioDone struct {
	Type string `json:"type"`
}

// ConversationText carries one turn of the transcript in either direction.
type ConversationText struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionCall is one requested invocation inside a FunctionCallRequest.
type FunctionCall struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	ClientSide bool   `json:"client_side"`
}

// FunctionCallRequest asks the client to run one or more functions.
type FunctionCallRequest struct {
	Type      string         `json:"type"`
	Functions []FunctionCall `json:"functions"`
}

// Validate checks the shape the suite asserts on captured frames.
func (r FunctionCallRequest) Validate() error {
	if r.Type != TypeFunctionCallRequest {
		return fmt.Errorf("request type = %q, want %q", r.Type, TypeFunctionCallRequest)
	}
	if len(r.Functions) == 0 {
		return fmt.Errorf("function call request carries no functions")
	}
	for i, fn := range r.Functions {
		if fn.ID == "" {
			return fmt.Errorf("function %d has empty id", i)
		}
		if fn.Name == "" {
			return fmt.Errorf("function %d has empty name", i)
		}
		if fn.Arguments != "" && !json.Valid([]byte(fn.Arguments)) {
			return fmt.Errorf("function %d arguments are not valid JSON: %q", i, fn.Arguments)
		}
	}
	return nil
}

// FunctionCallResponse returns a function result to the agent.
type FunctionCallResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// InjectAgentMessage makes the agent speak the given text unprompted.
type InjectAgentMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Error reports a protocol-level failure from the backend.
type Error struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
}

func (e Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("agent error %s: %s", e.Code, e.Description)
	}
	return "agent error: " + e.Description
}

// Marshal encodes a message, panicking on the unreachable encode failure of
// a shape this package defines. Use it for messages built from literals.
func Marshal(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("agentwire: marshal %T: %v", v, err))
	}
	return raw
}
