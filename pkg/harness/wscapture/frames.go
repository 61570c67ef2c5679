package wscapture

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/voicebridge/agent-e2e/pkg/agentwire"
)

// Frame is one captured WebSocket frame.
type Frame struct {
	Direction Direction
	Opcode    int
	Payload   []byte
	SocketURL string
	At        time.Time
}

// IsBinary reports whether the frame rode the binary channel.
func (f Frame) IsBinary() bool {
	return f.Opcode == OpcodeBinary
}

// LooksLikeJSON reports whether the payload parses as JSON. A binary frame
// for which this is true is a protocol violation on the OpenAI proxy: its
// binary channel carries PCM only.
func (f Frame) LooksLikeJSON() bool {
	return agentwire.IsJSON(f.Payload)
}

// Type returns the message's "type" tag, or "" for non-JSON payloads.
func (f Frame) Type() string {
	return agentwire.TypeOf(f.Payload)
}

// Decode unmarshals the payload into v.
func (f Frame) Decode(v any) error {
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s frame as %T: %w", f.Direction, v, err)
	}
	return nil
}

// String renders a short description for diagnostics.
func (f Frame) String() string {
	if f.IsBinary() {
		return fmt.Sprintf("%s binary %d bytes", f.Direction, len(f.Payload))
	}
	if t := f.Type(); t != "" {
		return fmt.Sprintf("%s %s (%d bytes)", f.Direction, t, len(f.Payload))
	}
	return fmt.Sprintf("%s text %d bytes", f.Direction, len(f.Payload))
}

// MessagesOfType returns captured JSON frames whose type tag matches.
func (r *Recorder) MessagesOfType(msgType string) []Frame {
	var out []Frame
	for _, f := range r.Frames() {
		if !f.IsBinary() && f.Type() == msgType {
			out = append(out, f)
		}
	}
	return out
}

// SentMessages returns all non-binary frames sent by the page.
func (r *Recorder) SentMessages() []Frame {
	var out []Frame
	for _, f := range r.Frames() {
		if f.Direction == Sent && !f.IsBinary() {
			out = append(out, f)
		}
	}
	return out
}

// BinaryReceived returns all binary frames received from the backend.
func (r *Recorder) BinaryReceived() []Frame {
	var out []Frame
	for _, f := range r.Frames() {
		if f.Direction == Received && f.IsBinary() {
			out = append(out, f)
		}
	}
	return out
}

// FirstBinaryReceived returns the first binary frame received, if any.
func (r *Recorder) FirstBinaryReceived() (Frame, bool) {
	for _, f := range r.Frames() {
		if f.Direction == Received && f.IsBinary() {
			return f, true
		}
	}
	return Frame{}, false
}
