package harness

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ConsoleEntry is one captured console call from the page.
type ConsoleEntry struct {
	Level string
	Text  string
	At    time.Time
}

func (e ConsoleEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Level, e.Text)
}

// ConsoleLog captures Runtime.consoleAPICalled events into a bounded ring.
// The component under test logs its connection lifecycle to the console, so
// the tail of this ring is the first thing the suite dumps on failure.
type ConsoleLog struct {
	mu      sync.Mutex
	entries []ConsoleEntry
	max     int
	cancel  context.CancelFunc
}

// CaptureConsole attaches a console capture to the page. Capture runs until
// Stop is called or the page closes. max bounds retained entries; older
// entries are dropped first.
func CaptureConsole(page *rod.Page, max int) *ConsoleLog {
	if max <= 0 {
		max = 200
	}
	ctx, cancel := context.WithCancel(page.GetContext())
	log := &ConsoleLog{max: max, cancel: cancel}

	wait := page.Context(ctx).EachEvent(func(ev *proto.RuntimeConsoleAPICalled) {
		log.add(ConsoleEntry{
			Level: string(ev.Type),
			Text:  stringifyConsoleArgs(ev.Args),
			At:    time.Now(),
		})
	})
	go wait()

	return log
}

// Stop detaches the capture.
func (l *ConsoleLog) Stop() {
	l.cancel()
}

func (l *ConsoleLog) add(e ConsoleEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Entries returns a copy of all retained entries in arrival order.
func (l *ConsoleLog) Entries() []ConsoleEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ConsoleEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail renders the newest n entries, one per line, for failure diagnostics.
func (l *ConsoleLog) Tail(n int) string {
	entries := l.Entries()
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Contains reports whether any captured entry contains the substring.
func (l *ConsoleLog) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}

// stringifyConsoleArgs flattens console call arguments to one line.
// Primitive values render as themselves; objects fall back to the remote
// object description Chrome supplies.
func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if arg.Value.Val() != nil {
			parts = append(parts, fmt.Sprintf("%v", arg.Value.Val()))
			continue
		}
		if arg.Description != "" {
			parts = append(parts, arg.Description)
			continue
		}
		parts = append(parts, string(arg.Type))
	}
	return strings.Join(parts, " ")
}
