package harness

import (
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

func TestWaitForReturnsOnSuccess(t *testing.T) {
	p := &AgentPage{poll: time.Millisecond}

	calls := 0
	err := p.waitFor("status", time.Second, func() (string, bool, error) {
		calls++
		return "connecting", calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("waitFor: %v", err)
	}
	if calls != 3 {
		t.Errorf("check called %d times, want 3", calls)
	}
}

func TestWaitForTimeoutCarriesLastValue(t *testing.T) {
	p := &AgentPage{poll: time.Millisecond}

	err := p.waitFor("connection-status == connected", 10*time.Millisecond, func() (string, bool, error) {
		return "connecting", false, nil
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "connecting") {
		t.Errorf("timeout error does not carry last value: %v", err)
	}
	if !strings.Contains(err.Error(), "connection-status") {
		t.Errorf("timeout error does not name the wait: %v", err)
	}
}

func TestWaitForPropagatesCheckError(t *testing.T) {
	p := &AgentPage{poll: time.Millisecond}

	wantErr := "page closed"
	err := p.waitFor("x", time.Second, func() (string, bool, error) {
		return "", false, errTest(wantErr)
	})
	if err == nil || err.Error() != wantErr {
		t.Fatalf("err = %v, want %q", err, wantErr)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestConsoleLogRing(t *testing.T) {
	log := &ConsoleLog{max: 3}
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		log.add(ConsoleEntry{Level: "log", Text: text})
	}

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("retained %d entries, want 3", len(entries))
	}
	if entries[0].Text != "c" || entries[2].Text != "e" {
		t.Errorf("ring kept wrong entries: %v", entries)
	}

	tail := log.Tail(2)
	if !strings.Contains(tail, "d") || !strings.Contains(tail, "e") {
		t.Errorf("tail missing newest entries: %q", tail)
	}
	if strings.Contains(tail, "c") {
		t.Errorf("tail includes entry beyond requested count: %q", tail)
	}

	if !log.Contains("d") {
		t.Error("Contains failed to find retained entry")
	}
	if log.Contains("a") {
		t.Error("Contains found dropped entry")
	}
}

func TestStringifyConsoleArgs(t *testing.T) {
	args := []*proto.RuntimeRemoteObject{
		{Type: proto.RuntimeRemoteObjectTypeString, Value: gson.New("connection closed")},
		{Type: proto.RuntimeRemoteObjectTypeNumber, Value: gson.New(1006)},
		{Type: proto.RuntimeRemoteObjectTypeObject, Description: "CloseEvent"},
		nil,
	}
	got := stringifyConsoleArgs(args)
	want := "connection closed 1006 CloseEvent"
	if got != want {
		t.Errorf("stringifyConsoleArgs = %q, want %q", got, want)
	}
}
