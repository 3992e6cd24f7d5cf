// Package observe provides structured console observability for the
// provisioning and bootstrap pipeline.
package observe

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives pipeline events and free-form progress messages.
type Observer interface {
	Printf(format string, v ...interface{})
	Event(event Event)
}

// Event is a structured pipeline event.
type Event struct {
	Type      EventType
	Stage     string
	Host      string
	Resource  string
	Message   string
	Timestamp time.Time
}

// EventType classifies pipeline events.
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageFailed    EventType = "stage.failed"

	EventResourceCreated EventType = "resource.created"
	EventResourceUpdated EventType = "resource.updated"
	EventResourceExists  EventType = "resource.exists"
	EventResourceDrift   EventType = "resource.drift"

	EventHostCompleted EventType = "host.completed"
	EventHostFailed    EventType = "host.failed"
	EventHostSkipped   EventType = "host.skipped"
)

// ConsoleObserver writes events through the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	log.Print(formatEvent(event))
}

func formatEvent(event Event) string {
	parts := []string{string(event.Type)}
	if event.Stage != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Stage))
	}
	if event.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", event.Host))
	}
	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	return strings.Join(parts, " ")
}

// Nop discards everything. Useful in tests.
type Nop struct{}

func (Nop) Printf(string, ...interface{}) {}

func (Nop) Event(Event) {}

// StageStart emits a stage start event.
func StageStart(o Observer, stage string) {
	o.Event(Event{Type: EventStageStarted, Stage: stage, Message: "starting"})
}

// StageComplete emits a stage completion event.
func StageComplete(o Observer, stage string, d time.Duration) {
	o.Event(Event{
		Type:    EventStageCompleted,
		Stage:   stage,
		Message: fmt.Sprintf("completed in %v", d.Round(time.Millisecond)),
	})
}

// StageFailed emits a stage failure event.
func StageFailed(o Observer, stage string, err error) {
	o.Event(Event{Type: EventStageFailed, Stage: stage, Message: fmt.Sprintf("failed: %v", err)})
}
