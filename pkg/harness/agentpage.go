package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// data-testid attributes exposed by the voice-agent test app. The text
// content of the status elements encodes component state; the flag elements
// flip to "true" when the corresponding event has been observed.
const (
	TestIDConnectionStatus    = "connection-status"
	TestIDMicStatus           = "mic-status"
	TestIDAgentState          = "agent-state"
	TestIDAgentResponse       = "agent-response"
	TestIDUserStartedSpeaking = "user-started-speaking"
	TestIDUtteranceEnd        = "utterance-end"
	TestIDAudioPlayingStatus  = "audio-playing-status"
	TestIDConnectButton       = "connect-button"
	TestIDDisconnectButton    = "disconnect-button"
	TestIDMicButton           = "mic-button"
	TestIDTextInput           = "text-input"
	TestIDSendButton          = "send-button"
	TestIDBackendSelect       = "backend-select"
)

// Connection status values rendered by the component.
const (
	StatusConnected    = "connected"
	StatusConnecting   = "connecting"
	StatusDisconnected = "disconnected"
)

// Agent state values rendered by the component.
const (
	AgentIdle      = "idle"
	AgentListening = "listening"
	AgentThinking  = "thinking"
	AgentSpeaking  = "speaking"
)

// DefaultPollInterval is how often waits re-read the DOM. It matches the
// component's own state-render cadence closely enough that tighter polling
// buys nothing.
const DefaultPollInterval = 200 * time.Millisecond

// AgentPage provides typed access to the voice-agent component's DOM
// contract. All reads go through evaluate rather than element handles so a
// re-render between poll iterations cannot invalidate them.
type AgentPage struct {
	page *rod.Page
	poll time.Duration
}

// Attach wraps an already-navigated page.
func Attach(page *rod.Page) *AgentPage {
	return &AgentPage{page: page, poll: DefaultPollInterval}
}

// TestID returns the trimmed text content of the element with the given
// data-testid, or an error if the element is not in the DOM.
func (p *AgentPage) TestID(id string) (string, error) {
	result, err := p.page.Eval(`(id) => {
		const el = document.querySelector('[data-testid="' + id + '"]');
		return el === null ? null : el.textContent.trim();
	}`, id)
	if err != nil {
		return "", fmt.Errorf("failed to read testid %q: %w", id, err)
	}
	if result.Value.Nil() {
		return "", fmt.Errorf("element with data-testid %q not found", id)
	}
	return result.Value.String(), nil
}

// ConnectionStatus reads the connection-status element.
func (p *AgentPage) ConnectionStatus() (string, error) {
	return p.TestID(TestIDConnectionStatus)
}

// MicStatus reads the mic-status element.
func (p *AgentPage) MicStatus() (string, error) {
	return p.TestID(TestIDMicStatus)
}

// AgentState reads the agent-state element.
func (p *AgentPage) AgentState() (string, error) {
	return p.TestID(TestIDAgentState)
}

// AgentResponse reads the latest agent transcript text.
func (p *AgentPage) AgentResponse() (string, error) {
	return p.TestID(TestIDAgentResponse)
}

// AudioPlayingStatus reads the audio-playing-status element.
func (p *AgentPage) AudioPlayingStatus() (string, error) {
	return p.TestID(TestIDAudioPlayingStatus)
}

// FlagSet reports whether a flag element (user-started-speaking,
// utterance-end) has flipped to "true".
func (p *AgentPage) FlagSet(id string) (bool, error) {
	text, err := p.TestID(id)
	if err != nil {
		return false, err
	}
	return text == "true", nil
}

// Click clicks the element with the given data-testid.
func (p *AgentPage) Click(id string) error {
	page := p.page.Timeout(5 * time.Second)
	defer page.CancelTimeout()

	el, err := page.Element(`[data-testid="` + id + `"]`)
	if err != nil {
		return fmt.Errorf("element with data-testid %q not found: %w", id, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %q: %w", id, err)
	}
	return nil
}

// Connect clicks the connect button.
func (p *AgentPage) Connect() error { return p.Click(TestIDConnectButton) }

// Disconnect clicks the disconnect button.
func (p *AgentPage) Disconnect() error { return p.Click(TestIDDisconnectButton) }

// StartMic clicks the mic toggle. With fake media devices the permission
// prompt is auto-granted, so this immediately starts the capture stream.
func (p *AgentPage) StartMic() error { return p.Click(TestIDMicButton) }

// SendText types a message into the text input and submits it.
func (p *AgentPage) SendText(msg string) error {
	page := p.page.Timeout(5 * time.Second)
	defer page.CancelTimeout()

	el, err := page.Element(`[data-testid="` + TestIDTextInput + `"]`)
	if err != nil {
		return fmt.Errorf("text input not found: %w", err)
	}
	if err := el.Input(msg); err != nil {
		return fmt.Errorf("failed to type message: %w", err)
	}
	return p.Click(TestIDSendButton)
}

// SelectBackend picks a backend in the test app's backend selector.
func (p *AgentPage) SelectBackend(value string) error {
	_, err := p.page.Eval(`(value) => {
		const el = document.querySelector('[data-testid="backend-select"]');
		if (el === null) return false;
		el.value = value;
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}`, value)
	if err != nil {
		return fmt.Errorf("failed to select backend %q: %w", value, err)
	}
	return nil
}

// WaitForTestID polls until the element's text equals want.
// The returned error carries the last observed value.
func (p *AgentPage) WaitForTestID(id, want string, timeout time.Duration) error {
	return p.waitFor(fmt.Sprintf("%s == %q", id, want), timeout, func() (string, bool, error) {
		got, err := p.TestID(id)
		if err != nil {
			// Element may not have rendered yet; keep polling.
			return "<not rendered>", false, nil
		}
		return got, got == want, nil
	})
}

// WaitForNonEmptyTestID polls until the element renders any non-empty text
// and returns it.
func (p *AgentPage) WaitForNonEmptyTestID(id string, timeout time.Duration) (string, error) {
	var value string
	err := p.waitFor(fmt.Sprintf("%s non-empty", id), timeout, func() (string, bool, error) {
		got, err := p.TestID(id)
		if err != nil {
			return "<not rendered>", false, nil
		}
		if strings.TrimSpace(got) == "" {
			return "<empty>", false, nil
		}
		value = got
		return got, true, nil
	})
	return value, err
}

// WaitForConnectionStatus polls the connection-status element.
func (p *AgentPage) WaitForConnectionStatus(want string, timeout time.Duration) error {
	return p.WaitForTestID(TestIDConnectionStatus, want, timeout)
}

// WaitForAgentStateNot polls until agent-state reads anything but state.
func (p *AgentPage) WaitForAgentStateNot(state string, timeout time.Duration) error {
	return p.waitFor(fmt.Sprintf("%s != %q", TestIDAgentState, state), timeout, func() (string, bool, error) {
		got, err := p.AgentState()
		if err != nil {
			return "<not rendered>", false, nil
		}
		return got, got != state, nil
	})
}

// WaitForFlag polls until the flag element reads "true".
func (p *AgentPage) WaitForFlag(id string, timeout time.Duration) error {
	return p.WaitForTestID(id, "true", timeout)
}

// WaitForAnyFlag polls until one of the flag elements reads "true",
// returning the id that fired.
func (p *AgentPage) WaitForAnyFlag(timeout time.Duration, ids ...string) (string, error) {
	var fired string
	err := p.waitFor(fmt.Sprintf("any of %v", ids), timeout, func() (string, bool, error) {
		for _, id := range ids {
			ok, err := p.FlagSet(id)
			if err != nil {
				continue
			}
			if ok {
				fired = id
				return id, true, nil
			}
		}
		return "<none>", false, nil
	})
	return fired, err
}

// waitFor runs check every poll interval until it reports done or the
// deadline passes. On timeout the error includes the last observed value so
// failures read as "waited for X, last saw Y".
func (p *AgentPage) waitFor(desc string, timeout time.Duration, check func() (string, bool, error)) error {
	deadline := time.Now().Add(timeout)
	last := "<never checked>"

	for time.Now().Before(deadline) {
		got, done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		last = got
		time.Sleep(p.poll)
	}

	return fmt.Errorf("timeout after %v waiting for %s (last: %s)", timeout, desc, last)
}
