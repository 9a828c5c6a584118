// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// ExerciseType classifies the drill a learner is typing.
type ExerciseType string

// Exercise types.
const (
	ExerciseAnchor   ExerciseType = "anchor"
	ExerciseColumn   ExerciseType = "column"
	ExerciseNgram    ExerciseType = "ngram"
	ExerciseWord     ExerciseType = "word"
	ExerciseSentence ExerciseType = "sentence"
	ExerciseSpeed    ExerciseType = "speed"
	ExerciseAccuracy ExerciseType = "accuracy"
)

// Metric names a measurable exercise target.
type Metric string

// Target metrics.
const (
	MetricWPM         Metric = "wpm"
	MetricAccuracy    Metric = "accuracy"
	MetricConsistency Metric = "consistency"
	MetricErrorRate   Metric = "errorRate"
)

// TargetMetric is the per-exercise goal.
type TargetMetric struct {
	Metric    Metric
	Threshold float64
}

// Met reports whether result satisfies the target. Error rate is an upper
// bound, every other metric a lower bound.
func (t TargetMetric) Met(result ExerciseResult) bool {
	switch t.Metric {
	case MetricWPM:
		return result.WPM >= t.Threshold
	case MetricAccuracy:
		return result.Accuracy >= t.Threshold
	case MetricConsistency:
		return result.Consistency >= t.Threshold
	case MetricErrorRate:
		return result.ErrorRate() <= t.Threshold
	default:
		return true
	}
}

// Exercise is one generated drill. Immutable once generated.
type Exercise struct {
	Type        ExerciseType
	Content     string
	Target      TargetMetric
	TimeLimit   time.Duration
	Repetitions int
	Difficulty  float64
	Keys        []rune
	Remedial    bool
	Description string
}

// Text expands Content by Repetitions, joined with single spaces.
func (e Exercise) Text() string {
	reps := e.Repetitions
	if reps < 1 {
		reps = 1
	}
	if reps == 1 {
		return e.Content
	}
	parts := make([]string, reps)
	for i := range parts {
		parts[i] = e.Content
	}
	return strings.Join(parts, " ")
}

// KeystrokeEvent records a single key press inside a session.
type KeystrokeEvent struct {
	TypedKey     rune
	ExpectedKey  rune // 0 when there was no expected character
	Timestamp    time.Duration
	ReactionTime time.Duration
	IsCorrect    bool
}

// ExerciseResult is produced once per exercise completion.
type ExerciseResult struct {
	WPM               float64
	Accuracy          float64
	RawAccuracy       float64
	CorrectedAccuracy float64
	ErrorCount        int
	UncorrectedErrors int
	Backspaces        int
	Characters        int
	Consistency       float64
	Duration          time.Duration
	TimedOut          bool
}

// ErrorRate returns errors per hundred typed characters.
func (r ExerciseResult) ErrorRate() float64 {
	if r.Characters == 0 {
		return 0
	}
	return 100 * float64(r.ErrorCount) / float64(r.Characters)
}

// LessonKind selects how the lesson's content pattern is presented.
type LessonKind string

// Lesson kinds.
const (
	LessonKindWord     LessonKind = "word"
	LessonKindSentence LessonKind = "sentence"
)

// PassingRequirements are the lesson thresholds.
type PassingRequirements struct {
	MinAccuracy float64
	MinWPM      float64
}

// Lesson is read-only content supplied by the content store.
type Lesson struct {
	ID                  string
	Title               string
	Stage               int
	Kind                LessonKind
	RequiredKeys        []rune
	ContentPattern      string
	PassingRequirements PassingRequirements
	Difficulty          float64
	IsGatekeeper        bool
}

// XPMultiplier maps difficulty (1-5 scale) to an XP multiplier of at least 1.
func (l Lesson) XPMultiplier() float64 {
	m := 1 + 0.25*(l.Difficulty-1)
	if m < 1 {
		return 1
	}
	return m
}

// UserContext carries learner state used when generating exercises.
type UserContext struct {
	Lang     string
	Level    int
	WeakKeys []rune
}

// KeyStat holds per-key counters for one session.
type KeyStat struct {
	Key        string
	PressCount int
	ErrorCount int
	LatencySum time.Duration
}

// AvgLatency returns the mean latency, or 0 with no presses.
func (k KeyStat) AvgLatency() time.Duration {
	if k.PressCount <= 0 {
		return 0
	}
	return k.LatencySum / time.Duration(k.PressCount)
}

// Accuracy returns the hit ratio in [0,1]; 1 with no presses.
func (k KeyStat) Accuracy() float64 {
	if k.PressCount <= 0 {
		return 1
	}
	return float64(k.PressCount-k.ErrorCount) / float64(k.PressCount)
}

// LessonVerdict is the outcome of one lesson attempt.
type LessonVerdict struct {
	Passed      bool
	AvgWPM      float64
	AvgAccuracy float64
	EarnedXP    int
	Exercises   int
	Attempt     int
}

// ProgressionState is the cross-session learner progression.
type ProgressionState struct {
	Level         int
	TotalXP       int
	CurrentStreak int
	LongestStreak int
	LastPractice  *time.Time
}

// SessionSummary is persisted once per lesson attempt.
type SessionSummary struct {
	ID          string
	LessonID    string
	Attempt     int
	Lang        string
	StartedAt   time.Time
	EndedAt     time.Time
	Exercises   int
	AvgWPM      float64
	AvgAccuracy float64
	ErrorCount  int
	Duration    time.Duration
	Passed      bool
	EarnedXP    int
}

// NotificationKind identifies a notification event.
type NotificationKind string

// Notification kinds.
const (
	NotifyLessonCompleted NotificationKind = "lesson_completed"
	NotifyLevelUp         NotificationKind = "level_up"
	NotifyStreakUpdated   NotificationKind = "streak_updated"
)

// Notification is a discrete event reported to the notification sink.
type Notification struct {
	Kind          NotificationKind
	LessonID      string
	Level         int
	CurrentStreak int
	LongestStreak int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Lang        string
	LessonID    string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// LessonMastery is the best score recorded for a lesson.
type LessonMastery struct {
	LessonID  string
	Score     float64
	Completed bool
}
