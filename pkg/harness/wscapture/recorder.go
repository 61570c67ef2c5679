// Package wscapture records the WebSocket traffic of a page through the
// Chrome DevTools Protocol. The voice-agent session multiplexes JSON control
// messages and raw PCM audio over one socket; the suite asserts on both, so
// the recorder keeps every frame in arrival order with its direction and
// opcode.
//
// Attach the recorder before navigating: CDP only reports sockets opened
// after the Network domain is enabled.
package wscapture

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// Direction tells which side of the socket produced a frame.
type Direction string

const (
	// Sent frames travel from the page to the backend.
	Sent Direction = "sent"
	// Received frames travel from the backend to the page.
	Received Direction = "received"
)

// WebSocket opcodes as reported by CDP.
const (
	OpcodeText   = 1
	OpcodeBinary = 2
)

// CloseEvent records a socket teardown.
type CloseEvent struct {
	URL string
	At  time.Time
}

// Recorder captures WebSocket frames for one page.
type Recorder struct {
	id     string
	cancel func()

	mu      sync.Mutex
	sockets map[proto.NetworkRequestID]string // request id -> socket URL
	frames  []Frame
	closes  []CloseEvent
	started time.Time
}

// NewRecorder enables the Network domain on the page and starts capturing.
// Call Stop (via defer) when done; the capture also dies with the page.
func NewRecorder(page *rod.Page) (*Recorder, error) {
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable network domain: %w", err)
	}

	r := &Recorder{
		id:      uuid.NewString()[:8],
		sockets: make(map[proto.NetworkRequestID]string),
		started: time.Now(),
	}

	ctx, cancel := context.WithCancel(page.GetContext())
	r.cancel = cancel

	wait := page.Context(ctx).EachEvent(
		func(ev *proto.NetworkWebSocketCreated) {
			r.mu.Lock()
			r.sockets[ev.RequestID] = ev.URL
			r.mu.Unlock()
		},
		func(ev *proto.NetworkWebSocketFrameSent) {
			r.record(ev.RequestID, Sent, ev.Response)
		},
		func(ev *proto.NetworkWebSocketFrameReceived) {
			r.record(ev.RequestID, Received, ev.Response)
		},
		func(ev *proto.NetworkWebSocketClosed) {
			r.mu.Lock()
			r.closes = append(r.closes, CloseEvent{URL: r.sockets[ev.RequestID], At: time.Now()})
			r.mu.Unlock()
		},
	)
	go wait()
	return r, nil
}

// Stop detaches the capture. Frames already recorded stay readable.
func (r *Recorder) Stop() {
	r.cancel()
}

func (r *Recorder) record(id proto.NetworkRequestID, dir Direction, frame *proto.NetworkWebSocketFrame) {
	if frame == nil {
		return
	}

	payload := []byte(frame.PayloadData)
	opcode := int(frame.Opcode)
	if opcode == OpcodeBinary {
		// CDP base64-encodes binary payloads.
		decoded, err := base64.StdEncoding.DecodeString(frame.PayloadData)
		if err == nil {
			payload = decoded
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, Frame{
		Direction: dir,
		Opcode:    opcode,
		Payload:   payload,
		SocketURL: r.sockets[id],
		At:        time.Now(),
	})
}

// Frames returns a copy of all captured frames in arrival order.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// CloseEvents returns the recorded socket closures.
func (r *Recorder) CloseEvents() []CloseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CloseEvent, len(r.closes))
	copy(out, r.closes)
	return out
}

// WaitForMessageType polls until a JSON frame with the given type tag is
// captured, returning it. The error carries a traffic summary for diagnosis.
func (r *Recorder) WaitForMessageType(msgType string, timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if frames := r.MessagesOfType(msgType); len(frames) > 0 {
			return frames[0], nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return Frame{}, fmt.Errorf("timeout after %v waiting for %q message; %s", timeout, msgType, r.Summary())
}

// WaitForClose polls until a socket close event is captured.
func (r *Recorder) WaitForClose(timeout time.Duration) (CloseEvent, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if closes := r.CloseEvents(); len(closes) > 0 {
			return closes[0], nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return CloseEvent{}, fmt.Errorf("timeout after %v waiting for socket close; %s", timeout, r.Summary())
}

// Summary renders one line of traffic counts for failure diagnostics.
func (r *Recorder) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sentJSON, recvJSON, sentBin, recvBin int
	for _, f := range r.frames {
		switch {
		case f.Direction == Sent && f.IsBinary():
			sentBin++
		case f.Direction == Sent:
			sentJSON++
		case f.IsBinary():
			recvBin++
		default:
			recvJSON++
		}
	}
	return fmt.Sprintf("recorder %s: %d sockets, sent %d text / %d binary, received %d text / %d binary, %d closes",
		r.id, len(r.sockets), sentJSON, sentBin, recvJSON, recvBin, len(r.closes))
}
