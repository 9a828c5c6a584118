package session

import (
	"context"
	"fmt"
)

// EventKind identifies an input event.
type EventKind int

// Event kinds.
const (
	EventKeyPress EventKind = iota
	EventBackspace
	EventTick
	EventPause
	EventResume
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventKeyPress:
		return "key"
	case EventBackspace:
		return "backspace"
	case EventTick:
		return "tick"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Event is a single typed input delivered to exactly one engine.
type Event struct {
	Kind EventKind
	Key  rune
}

// KeyEvent returns a key press event.
func KeyEvent(r rune) Event { return Event{Kind: EventKeyPress, Key: r} }

// BackspaceEvent returns a backspace event.
func BackspaceEvent() Event { return Event{Kind: EventBackspace} }

// TickEvent returns a clock tick event.
func TickEvent() Event { return Event{Kind: EventTick} }

// PauseEvent returns a pause event.
func PauseEvent() Event { return Event{Kind: EventPause} }

// ResumeEvent returns a resume event.
func ResumeEvent() Event { return Event{Kind: EventResume} }

// StopEvent returns a stop event.
func StopEvent() Event { return Event{Kind: EventStop} }

// Handle dispatches one event.
func (e *Engine) Handle(ev Event) error {
	switch ev.Kind {
	case EventKeyPress:
		return e.KeyPress(ev.Key)
	case EventBackspace:
		return e.Backspace()
	case EventTick:
		return e.Tick()
	case EventPause:
		return e.Pause()
	case EventResume:
		return e.Resume()
	case EventStop:
		return e.Stop()
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// Run consumes events in arrival order until the exercise completes, the
// channel closes or ctx is done. The first failing event stops the loop and
// its error is returned; engine state is unchanged by that event, so the
// caller may call Run again.
func (e *Engine) Run(ctx context.Context, events <-chan Event) error {
	for {
		if e.state == StateCompleted {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.Handle(ev); err != nil {
				return err
			}
		}
	}
}
