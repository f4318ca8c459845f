package log

import (
	"sync"
	"testing"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)
	m.Log(Event{SessionID: "s"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("events: a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestOrNoopAndStamp(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) is not NoopLogger")
	}
	c := &captureLogger{}
	if OrNoop(c) != Logger(c) {
		t.Error("OrNoop replaced a real logger")
	}

	Stamp(c, Event{})
	if c.events[0].Timestamp.IsZero() {
		t.Error("Stamp did not set Timestamp")
	}
}
