// Package session implements the per-exercise typing state machine.
//
// An Engine is driven by discrete events delivered in arrival order: key
// presses, backspaces, pause/resume and a periodic tick. Elapsed time is the
// number of ticks multiplied by the tick interval, so a replay of the same
// events always yields the same metrics.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/stats"
)

// DefaultTickInterval is the elapsed-time resolution.
const DefaultTickInterval = 100 * time.Millisecond

var (
	// ErrInvalidTransition is returned when an operation is not valid in the
	// current state. The engine state is left unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrEmptyText is returned when starting with no text to type.
	ErrEmptyText = errors.New("session text is empty")
)

// State is the engine lifecycle state.
type State int

// Engine states.
const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval sets the elapsed time added by each tick.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithKeyStats makes the engine record into a shared aggregator. A shared
// aggregator is never reset by the engine.
func WithKeyStats(ks *stats.KeyStats) Option {
	return func(e *Engine) {
		if ks != nil {
			e.keyStats = ks
			e.ownsKeyStats = false
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine is the state machine for a single typed exercise. It is not safe
// for concurrent use; one goroutine delivers events in order.
type Engine struct {
	state        State
	tickInterval time.Duration
	ticks        int64
	timeLimit    time.Duration

	target []rune
	typed  []rune

	characters        int
	errorCount        int
	uncorrectedErrors int
	backspaces        int
	lastKeyAt         time.Duration
	lastMiss          bool

	events       []model.KeystrokeEvent
	metrics      stats.Metrics
	keyStats     *stats.KeyStats
	ownsKeyStats bool

	result    model.ExerciseResult
	hasResult bool

	logger *slog.Logger
}

// New returns an idle engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		tickInterval: DefaultTickInterval,
		keyStats:     stats.NewKeyStats(),
		ownsKeyStats: true,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = stats.Compute(0, 0, 0, 0, 0)
	return e
}

// Start begins typing text with no time limit.
func (e *Engine) Start(text string) error {
	return e.start(text, 0)
}

// StartExercise begins typing an exercise's expanded text, honoring its
// time limit.
func (e *Engine) StartExercise(ex model.Exercise) error {
	return e.start(ex.Text(), ex.TimeLimit)
}

func (e *Engine) start(text string, timeLimit time.Duration) error {
	if e.state != StateIdle && e.state != StateCompleted {
		return e.transitionError("start")
	}
	target := []rune(text)
	if len(target) == 0 {
		return ErrEmptyText
	}
	e.reset()
	e.target = target
	e.timeLimit = timeLimit
	e.state = StateRunning
	e.logger.Debug("session started", "chars", len(target), "time_limit", timeLimit)
	return nil
}

func (e *Engine) reset() {
	e.ticks = 0
	e.timeLimit = 0
	e.target = nil
	e.typed = nil
	e.characters = 0
	e.errorCount = 0
	e.uncorrectedErrors = 0
	e.backspaces = 0
	e.lastKeyAt = 0
	e.lastMiss = false
	e.events = nil
	e.result = model.ExerciseResult{}
	e.hasResult = false
	if e.ownsKeyStats {
		e.keyStats.Reset()
	}
	e.metrics = stats.Compute(0, 0, 0, 0, 0)
}

// KeyPress compares key to the expected character at the cursor. A match
// advances the cursor; a mismatch is counted as an error and the cursor
// stays put until the correct character is typed.
func (e *Engine) KeyPress(key rune) error {
	if e.state != StateRunning {
		return e.transitionError("key press")
	}
	expected := e.target[len(e.typed)]
	now := e.Elapsed()
	reaction := now - e.lastKeyAt
	e.lastKeyAt = now

	correct := key == expected
	e.characters++
	if correct {
		e.typed = append(e.typed, key)
	} else {
		e.errorCount++
		e.uncorrectedErrors++
	}
	e.lastMiss = !correct
	e.keyStats.Record(expected, correct, reaction)
	e.events = append(e.events, model.KeystrokeEvent{
		TypedKey:     key,
		ExpectedKey:  expected,
		Timestamp:    now,
		ReactionTime: reaction,
		IsCorrect:    correct,
	})
	e.recompute()

	if len(e.typed) == len(e.target) {
		e.complete(false)
	}
	return nil
}

// Backspace removes the last typed character. Each effective backspace is
// assumed to correct the most recent error.
func (e *Engine) Backspace() error {
	if e.state != StateRunning {
		return e.transitionError("backspace")
	}
	if len(e.typed) > 0 {
		e.typed = e.typed[:len(e.typed)-1]
		e.backspaces++
		if e.uncorrectedErrors > 0 {
			e.uncorrectedErrors--
		}
	}
	e.lastMiss = false
	e.recompute()
	return nil
}

// Tick advances elapsed time by one interval while running. Ticks in any
// other state are ignored.
func (e *Engine) Tick() error {
	if e.state != StateRunning {
		return nil
	}
	e.ticks++
	e.recompute()
	if e.timeLimit > 0 && e.Elapsed() >= e.timeLimit {
		e.complete(true)
	}
	return nil
}

// Pause stops elapsed-time accumulation.
func (e *Engine) Pause() error {
	if e.state != StateRunning {
		return e.transitionError("pause")
	}
	e.state = StatePaused
	return nil
}

// Resume restarts elapsed-time accumulation.
func (e *Engine) Resume() error {
	if e.state != StatePaused {
		return e.transitionError("resume")
	}
	e.state = StateRunning
	return nil
}

// Stop abandons the current exercise without producing a result.
func (e *Engine) Stop() error {
	if e.state != StateRunning && e.state != StatePaused {
		return e.transitionError("stop")
	}
	e.reset()
	e.state = StateIdle
	e.logger.Debug("session stopped")
	return nil
}

func (e *Engine) complete(timedOut bool) {
	reactions := make([]time.Duration, 0, len(e.events))
	for i, ev := range e.events {
		if i == 0 {
			continue
		}
		reactions = append(reactions, ev.ReactionTime)
	}
	e.result = model.ExerciseResult{
		WPM:               e.metrics.WPM,
		Accuracy:          e.metrics.Accuracy,
		RawAccuracy:       e.metrics.RawAccuracy,
		CorrectedAccuracy: e.metrics.CorrectedAccuracy,
		ErrorCount:        e.errorCount,
		UncorrectedErrors: e.uncorrectedErrors,
		Backspaces:        e.backspaces,
		Characters:        e.characters,
		Consistency:       stats.Consistency(reactions),
		Duration:          e.Elapsed(),
		TimedOut:          timedOut,
	}
	e.hasResult = true
	e.state = StateCompleted
	e.logger.Debug("session completed",
		"wpm", e.result.WPM,
		"accuracy", e.result.Accuracy,
		"errors", e.result.ErrorCount,
		"timed_out", timedOut,
	)
}

func (e *Engine) recompute() {
	e.metrics = stats.Compute(e.characters, e.errorCount, e.uncorrectedErrors, e.backspaces, e.Elapsed())
}

func (e *Engine) transitionError(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, e.state)
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Elapsed returns accumulated running time.
func (e *Engine) Elapsed() time.Duration {
	return time.Duration(e.ticks) * e.tickInterval
}

// Metrics returns the running metrics as of the last event.
func (e *Engine) Metrics() stats.Metrics {
	return e.metrics
}

// Cursor is the index of the next expected character.
func (e *Engine) Cursor() int {
	return len(e.typed)
}

// Target returns the text being typed.
func (e *Engine) Target() []rune {
	return append([]rune(nil), e.target...)
}

// Typed returns the correctly typed prefix.
func (e *Engine) Typed() []rune {
	return append([]rune(nil), e.typed...)
}

// LastMiss reports whether the most recent key was a mismatch.
func (e *Engine) LastMiss() bool {
	return e.lastMiss
}

// Keystrokes returns the number of key presses in the current exercise.
func (e *Engine) Keystrokes() int {
	return len(e.events)
}

// ErrorCount returns the total mismatched keystrokes.
func (e *Engine) ErrorCount() int {
	return e.errorCount
}

// UncorrectedErrors returns errors not yet reverted by a backspace.
func (e *Engine) UncorrectedErrors() int {
	return e.uncorrectedErrors
}

// Events returns the keystroke log of the current exercise.
func (e *Engine) Events() []model.KeystrokeEvent {
	return append([]model.KeystrokeEvent(nil), e.events...)
}

// KeyStats returns the aggregator the engine records into.
func (e *Engine) KeyStats() *stats.KeyStats {
	return e.keyStats
}

// Result returns the exercise result once completed.
func (e *Engine) Result() (model.ExerciseResult, bool) {
	return e.result, e.hasResult
}
