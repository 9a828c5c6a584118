// Package progression holds cross-session learner aggregates and the update
// rules applied after each completed lesson.
package progression

import (
	"math"
	"time"

	"github.com/verte-zerg/typedrill/internal/model"
)

// XPPerLevel is the XP needed to advance one level.
const XPPerLevel = 1000

// LevelFor recomputes the level for a total XP value.
func LevelFor(totalXP int) int {
	if totalXP < 0 {
		return 1
	}
	return totalXP/XPPerLevel + 1
}

// MasteryScore rates one lesson attempt on 0-100: 70% accuracy and 30% speed
// relative to the lesson's WPM requirement.
func MasteryScore(avgWPM, avgAccuracy, minWPM float64) float64 {
	speed := 100.0
	if minWPM > 0 {
		speed = math.Min(100, 100*avgWPM/minWPM)
	}
	acc := math.Max(0, math.Min(100, avgAccuracy))
	return 0.7*acc + 0.3*math.Max(0, speed)
}

// NextStreak applies one practice day to state. It returns the updated state
// and whether the current streak changed.
func NextStreak(state model.ProgressionState, today time.Time) (model.ProgressionState, bool) {
	day := truncateDay(today)
	if state.LastPractice != nil {
		last := truncateDay(state.LastPractice.In(today.Location()))
		switch daysBetween(last, day) {
		case 0:
			return state, false
		case 1:
			state.CurrentStreak++
		default:
			state.CurrentStreak = 1
		}
	} else {
		state.CurrentStreak = 1
	}
	state.LongestStreak = max(state.LongestStreak, state.CurrentStreak)
	state.LastPractice = &day
	return state, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, tolerating DST shifts.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// Ledger owns one learner's progression. It is not safe for concurrent use.
type Ledger struct {
	state   model.ProgressionState
	mastery map[string]model.LessonMastery
	weakest []rune
}

// NewLedger wraps a loaded state. A zero level is raised to the level implied
// by the XP total.
func NewLedger(state model.ProgressionState, mastery map[string]model.LessonMastery) *Ledger {
	state.Level = max(state.Level, LevelFor(state.TotalXP))
	state.LongestStreak = max(state.LongestStreak, state.CurrentStreak)
	m := make(map[string]model.LessonMastery, len(mastery))
	for id, v := range mastery {
		m[id] = v
	}
	return &Ledger{state: state, mastery: m}
}

// State returns a copy of the progression state.
func (l *Ledger) State() model.ProgressionState {
	st := l.state
	if st.LastPractice != nil {
		last := *st.LastPractice
		st.LastPractice = &last
	}
	return st
}

// AddXP adds amount and recomputes the level, which never decreases. It
// reports whether the level went up.
func (l *Ledger) AddXP(amount int) bool {
	l.state.TotalXP += amount
	next := LevelFor(l.state.TotalXP)
	if next > l.state.Level {
		l.state.Level = next
		return true
	}
	return false
}

// UpdateStreak records practice on today's date and reports whether the
// current streak changed.
func (l *Ledger) UpdateStreak(today time.Time) bool {
	next, changed := NextStreak(l.state, today)
	l.state = next
	return changed
}

// RecordMastery keeps the best score for the lesson and marks it completed
// on a pass. The stored entry is returned with whether it changed.
func (l *Ledger) RecordMastery(lessonID string, verdict model.LessonVerdict, minWPM float64) (model.LessonMastery, bool) {
	score := MasteryScore(verdict.AvgWPM, verdict.AvgAccuracy, minWPM)
	cur, ok := l.mastery[lessonID]
	next := cur
	next.LessonID = lessonID
	next.Score = math.Max(cur.Score, score)
	next.Completed = cur.Completed || verdict.Passed
	if ok && next == cur {
		return cur, false
	}
	l.mastery[lessonID] = next
	return next, true
}

// Mastery returns the stored mastery for a lesson.
func (l *Ledger) Mastery(lessonID string) (model.LessonMastery, bool) {
	m, ok := l.mastery[lessonID]
	return m, ok
}

// Completed returns the set of passed lesson ids.
func (l *Ledger) Completed() map[string]bool {
	out := map[string]bool{}
	for id, m := range l.mastery {
		if m.Completed {
			out[id] = true
		}
	}
	return out
}

// SetWeakestKeys replaces the weakest-key ranking, worst first.
func (l *Ledger) SetWeakestKeys(keys []rune) {
	l.weakest = append([]rune(nil), keys...)
}

// WeakestKeys returns the current weakest-key ranking.
func (l *Ledger) WeakestKeys() []rune {
	return append([]rune(nil), l.weakest...)
}
