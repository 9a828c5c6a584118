// Package notify implements sinks for lesson progression events.
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/verte-zerg/typedrill/internal/model"
)

// Logger writes each notification as a structured log record.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a Logger sink; a nil logger uses slog.Default.
func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

// LessonCompleted logs that lessonID was passed.
func (l *Logger) LessonCompleted(ctx context.Context, lessonID string) {
	l.log.InfoContext(ctx, "lesson completed", "lesson", lessonID)
}

// LevelUp logs the newly reached level.
func (l *Logger) LevelUp(ctx context.Context, level int) {
	l.log.InfoContext(ctx, "level up", "level", level)
}

// StreakUpdated logs the current and longest daily streak.
func (l *Logger) StreakUpdated(ctx context.Context, current, longest int) {
	l.log.InfoContext(ctx, "streak updated", "current", current, "longest", longest)
}

// Channel delivers notifications on a buffered channel. Sends never block;
// when the buffer is full the notification is dropped and counted.
type Channel struct {
	ch      chan model.Notification
	dropped atomic.Int64
}

// NewChannel returns a Channel sink with the given buffer size.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan model.Notification, size)}
}

// C is the receive side.
func (c *Channel) C() <-chan model.Notification {
	return c.ch
}

// Dropped reports how many notifications were discarded.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Channel) send(n model.Notification) {
	select {
	case c.ch <- n:
	default:
		c.dropped.Add(1)
	}
}

// LessonCompleted queues a lesson-completed notification.
func (c *Channel) LessonCompleted(_ context.Context, lessonID string) {
	c.send(model.Notification{Kind: model.NotifyLessonCompleted, LessonID: lessonID})
}

// LevelUp queues a level-up notification.
func (c *Channel) LevelUp(_ context.Context, level int) {
	c.send(model.Notification{Kind: model.NotifyLevelUp, Level: level})
}

// StreakUpdated queues a streak notification.
func (c *Channel) StreakUpdated(_ context.Context, current, longest int) {
	c.send(model.Notification{Kind: model.NotifyStreakUpdated, CurrentStreak: current, LongestStreak: longest})
}

// Sink is the notification contract shared by every implementation here.
type Sink interface {
	LessonCompleted(ctx context.Context, lessonID string)
	LevelUp(ctx context.Context, level int)
	StreakUpdated(ctx context.Context, current, longest int)
}

// Multi fans each notification out to every sink in order.
type Multi []Sink

// LessonCompleted forwards to every sink.
func (m Multi) LessonCompleted(ctx context.Context, lessonID string) {
	for _, s := range m {
		s.LessonCompleted(ctx, lessonID)
	}
}

// LevelUp forwards to every sink.
func (m Multi) LevelUp(ctx context.Context, level int) {
	for _, s := range m {
		s.LevelUp(ctx, level)
	}
}

// StreakUpdated forwards to every sink.
func (m Multi) StreakUpdated(ctx context.Context, current, longest int) {
	for _, s := range m {
		s.StreakUpdated(ctx, current, longest)
	}
}
