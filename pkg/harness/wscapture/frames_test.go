package wscapture

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/agent-e2e/pkg/agentwire"
	"github.com/voicebridge/agent-e2e/pkg/harness/audio"
)

// testRecorder builds a Recorder with a canned frame log, bypassing CDP.
func testRecorder(frames ...Frame) *Recorder {
	return &Recorder{
		id:     "test0000",
		cancel: func() {},
		frames: frames,
	}
}

func textFrame(dir Direction, payload string) Frame {
	return Frame{Direction: dir, Opcode: OpcodeText, Payload: []byte(payload), At: time.Now()}
}

func binaryFrame(dir Direction, payload []byte) Frame {
	return Frame{Direction: dir, Opcode: OpcodeBinary, Payload: payload, At: time.Now()}
}

func TestFrameClassification(t *testing.T) {
	pcm := audio.SynthesizeSpeech(20*time.Millisecond, 16000)

	f := binaryFrame(Received, pcm)
	assert.True(t, f.IsBinary())
	assert.False(t, f.LooksLikeJSON(), "PCM misclassified as JSON")
	assert.Empty(t, f.Type())

	j := textFrame(Received, `{"type":"SettingsApplied"}`)
	assert.False(t, j.IsBinary())
	assert.True(t, j.LooksLikeJSON())
	assert.Equal(t, agentwire.TypeSettingsApplied, j.Type())

	// JSON smuggled onto the binary channel must still be detectable:
	// this is exactly the OpenAI proxy regression the suite guards.
	smuggled := binaryFrame(Received, []byte(`{"type":"response.done"}`))
	assert.True(t, smuggled.IsBinary())
	assert.True(t, smuggled.LooksLikeJSON())
}

func TestFrameDecode(t *testing.T) {
	f := textFrame(Received, `{"type":"ConversationText","role":"assistant","content":"hello"}`)

	var msg agentwire.ConversationText
	require.NoError(t, f.Decode(&msg))
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "hello", msg.Content)

	bad := binaryFrame(Received, []byte{0x00, 0x01})
	assert.Error(t, bad.Decode(&msg))
}

func TestRecorderQueries(t *testing.T) {
	r := testRecorder(
		textFrame(Sent, `{"type":"Settings","audio":{"input":{"encoding":"linear16","sample_rate":16000},"output":{"encoding":"linear16","sample_rate":24000}},"agent":{"listen":{"provider":{}},"think":{"provider":{}},"speak":{"provider":{}}}}`),
		textFrame(Received, `{"type":"SettingsApplied"}`),
		textFrame(Received, `{"type":"AgentStartedSpeaking"}`),
		binaryFrame(Received, audio.SynthesizeSpeech(20*time.Millisecond, 24000)),
		binaryFrame(Received, audio.SynthesizeSpeech(20*time.Millisecond, 24000)),
		textFrame(Received, `{"type":"AgentAudioDone"}`),
	)

	assert.Len(t, r.MessagesOfType(agentwire.TypeSettingsApplied), 1)
	assert.Len(t, r.SentMessages(), 1)
	assert.Len(t, r.BinaryReceived(), 2)

	first, ok := r.FirstBinaryReceived()
	require.True(t, ok)
	assert.False(t, first.LooksLikeJSON())

	stats, err := audio.Stats(first.Payload)
	require.NoError(t, err)
	assert.True(t, stats.LooksLikeSpeech())
}

func TestWaitForMessageType(t *testing.T) {
	r := testRecorder()

	go func() {
		time.Sleep(50 * time.Millisecond)
		r.mu.Lock()
		r.frames = append(r.frames, textFrame(Received, `{"type":"Welcome"}`))
		r.mu.Unlock()
	}()

	frame, err := r.WaitForMessageType(agentwire.TypeWelcome, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, agentwire.TypeWelcome, frame.Type())
}

func TestWaitForMessageTypeTimeout(t *testing.T) {
	r := testRecorder(textFrame(Received, `{"type":"Welcome"}`))

	_, err := r.WaitForMessageType(agentwire.TypeSettingsApplied, 150*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SettingsApplied")
	assert.Contains(t, err.Error(), "recorder test0000", "timeout error should carry the traffic summary")
}

func TestSummaryCounts(t *testing.T) {
	r := testRecorder(
		textFrame(Sent, `{"type":"Settings"}`),
		binaryFrame(Sent, []byte{1, 2}),
		textFrame(Received, `{"type":"SettingsApplied"}`),
		binaryFrame(Received, []byte{3, 4}),
		binaryFrame(Received, []byte{5, 6}),
	)
	r.closes = append(r.closes, CloseEvent{At: time.Now()})

	s := r.Summary()
	for _, want := range []string{"sent 1 text / 1 binary", "received 1 text / 2 binary", "1 closes"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q missing %q", s, want)
		}
	}
}
