// Package lesson sequences exercises into lesson attempts, decides pass/fail
// and schedules remediation after a failed attempt.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typedrill/internal/generator"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/progression"
	"github.com/verte-zerg/typedrill/internal/session"
	"github.com/verte-zerg/typedrill/internal/stats"
	"github.com/verte-zerg/typedrill/internal/wordlist"
)

// DefaultAnchorDuration sizes remedial anchor drills.
const DefaultAnchorDuration = 45 * time.Second

// weakKeyTop is how many weakest keys the ledger keeps after each attempt.
const weakKeyTop = 5

var (
	// ErrEmptyContent is returned when a lesson generates no exercises.
	ErrEmptyContent = errors.New("lesson has no exercises")
	// ErrNotRunning is returned for events delivered outside a running lesson.
	ErrNotRunning = errors.New("lesson is not running")
	// ErrAlreadyRunning is returned by Start while a lesson is in progress.
	ErrAlreadyRunning = errors.New("lesson is already running")
	// ErrPersistence matches every PersistenceError.
	ErrPersistence = errors.New("persistence failed")
)

// PersistenceError reports a sink failure. In-memory state is not rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) hold.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// ContentStore supplies lessons and practice corpora.
type ContentStore interface {
	Lesson(id string) (model.Lesson, error)
	GenerateExercises(lesson model.Lesson, user model.UserContext) ([]model.Exercise, error)
	Sentences(lang string) ([]string, error)
}

// Sink durably stores attempt results.
type Sink interface {
	SaveSession(ctx context.Context, summary model.SessionSummary) error
	SaveKeyStats(ctx context.Context, sessionID string, keys []model.KeyStat) error
	SaveProgression(ctx context.Context, state model.ProgressionState) error
	SaveMastery(ctx context.Context, mastery model.LessonMastery) error
}

// Notifier receives progression events.
type Notifier interface {
	LessonCompleted(ctx context.Context, lessonID string)
	LevelUp(ctx context.Context, level int)
	StreakUpdated(ctx context.Context, current, longest int)
}

// State is the runner lifecycle state.
type State int

// Runner states.
const (
	StateIdle State = iota
	StateRunning
	StateFinished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ExerciseOutcome is one completed exercise with its target evaluation.
type ExerciseOutcome struct {
	Exercise  model.Exercise
	Result    model.ExerciseResult
	TargetMet bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger; it is passed on to the session engine.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithTickInterval sets the session tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithMaxAttempts caps failed attempts; 0 means unlimited.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxAttempts = n
		}
	}
}

// WithClock sets the wall clock used for timestamps and streak days.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithGenerator sets the remediation drill generator.
func WithGenerator(g *generator.Generator) Option {
	return func(r *Runner) {
		if g != nil {
			r.gen = g
		}
	}
}

// WithUserContext sets the learner context passed to exercise generation.
func WithUserContext(u model.UserContext) Option {
	return func(r *Runner) {
		r.user = u
	}
}

// WithAnchorDuration sets the duration used to size remedial anchor drills.
func WithAnchorDuration(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.anchorDuration = d
		}
	}
}

// Runner drives a session engine across a lesson's exercise queue. One
// goroutine delivers events in arrival order.
type Runner struct {
	content  ContentStore
	sink     Sink
	notifier Notifier
	ledger   *progression.Ledger
	gen      *generator.Generator
	logger   *slog.Logger

	tickInterval   time.Duration
	maxAttempts    int
	anchorDuration time.Duration
	now            func() time.Time
	user           model.UserContext

	state    State
	lesson   model.Lesson
	original []model.Exercise
	queue    []model.Exercise
	index    int
	engine   *session.Engine
	keyStats *stats.KeyStats

	attempt      int
	attemptID    string
	attemptStart time.Time
	wpms         []float64
	accuracies   []float64
	errorCount   int
	duration     time.Duration
	outcomes     []ExerciseOutcome
	verdicts     []model.LessonVerdict
	lastRemedy   Remedy
}

// New builds a runner. The ledger is shared with the caller and mutated on
// each passing attempt.
func New(content ContentStore, sink Sink, ledger *progression.Ledger, opts ...Option) *Runner {
	r := &Runner{
		content:        content,
		sink:           sink,
		notifier:       nopNotifier{},
		ledger:         ledger,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tickInterval:   session.DefaultTickInterval,
		anchorDuration: DefaultAnchorDuration,
		now:            time.Now,
		keyStats:       stats.NewKeyStats(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = nopSink{}
	}
	if r.ledger == nil {
		r.ledger = progression.NewLedger(model.ProgressionState{}, nil)
	}
	if r.gen == nil {
		r.gen = generator.New()
	}
	r.engine = session.New(
		session.WithTickInterval(r.tickInterval),
		session.WithKeyStats(r.keyStats),
		session.WithLogger(r.logger),
	)
	return r
}

// Start loads the lesson, generates its exercises and starts the first one.
// A lesson without exercises returns ErrEmptyContent and leaves the runner
// idle.
func (r *Runner) Start(ctx context.Context, lessonID string) error {
	if r.state == StateRunning {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, r.lesson.ID)
	}
	l, err := r.content.Lesson(lessonID)
	if err != nil {
		return fmt.Errorf("failed to load lesson: %w", err)
	}
	user := r.user
	if len(user.WeakKeys) == 0 {
		user.WeakKeys = r.ledger.WeakestKeys()
	}
	user.Level = r.ledger.State().Level
	exercises, err := r.content.GenerateExercises(l, user)
	if err != nil {
		return fmt.Errorf("failed to generate exercises: %w", err)
	}
	if len(exercises) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyContent, l.ID)
	}

	r.lesson = l
	r.original = append([]model.Exercise(nil), exercises...)
	r.attempt = 0
	r.verdicts = nil
	r.lastRemedy = 0
	r.logger.InfoContext(ctx, "lesson started", "lesson", l.ID, "exercises", len(exercises))
	return r.beginAttempt(r.original)
}

func (r *Runner) beginAttempt(queue []model.Exercise) error {
	r.attempt++
	r.attemptID = uuid.NewString()
	r.attemptStart = r.now()
	r.queue = queue
	r.index = 0
	r.wpms = nil
	r.accuracies = nil
	r.errorCount = 0
	r.duration = 0
	r.outcomes = nil
	r.keyStats.Reset()
	r.state = StateRunning
	return r.startExercise()
}

func (r *Runner) startExercise() error {
	if err := r.engine.StartExercise(r.queue[r.index]); err != nil {
		r.state = StateAborted
		return fmt.Errorf("failed to start exercise %d: %w", r.index+1, err)
	}
	return nil
}

// Handle delivers one event to the active exercise. Completing the last
// exercise of an attempt evaluates the verdict, persists the attempt and
// either finishes the lesson or starts a remedial attempt.
func (r *Runner) Handle(ctx context.Context, ev session.Event) error {
	if r.state != StateRunning {
		return fmt.Errorf("%w: %s", ErrNotRunning, r.state)
	}
	if ev.Kind == session.EventStop {
		return r.Abort()
	}
	if err := r.engine.Handle(ev); err != nil {
		return err
	}
	res, done := r.engine.Result()
	if !done || r.engine.State() != session.StateCompleted {
		return nil
	}
	r.recordResult(res)
	if r.index+1 < len(r.queue) {
		r.index++
		return r.startExercise()
	}
	return r.finishAttempt(ctx)
}

// Run consumes events until the lesson finishes, the channel closes or ctx is
// done.
func (r *Runner) Run(ctx context.Context, events <-chan session.Event) error {
	for r.state == StateRunning {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Abort abandons the lesson without persisting the current attempt.
func (r *Runner) Abort() error {
	if r.state != StateRunning {
		return fmt.Errorf("%w: %s", ErrNotRunning, r.state)
	}
	if st := r.engine.State(); st == session.StateRunning || st == session.StatePaused {
		if err := r.engine.Stop(); err != nil {
			return err
		}
	}
	r.state = StateAborted
	r.logger.Info("lesson aborted", "lesson", r.lesson.ID, "attempt", r.attempt)
	return nil
}

func (r *Runner) recordResult(res model.ExerciseResult) {
	ex := r.queue[r.index]
	r.wpms = append(r.wpms, res.WPM)
	r.accuracies = append(r.accuracies, res.Accuracy)
	r.errorCount += res.ErrorCount
	r.duration += res.Duration
	r.outcomes = append(r.outcomes, ExerciseOutcome{
		Exercise:  ex,
		Result:    res,
		TargetMet: ex.Target.Met(res),
	})
	r.logger.Debug("exercise completed",
		"lesson", r.lesson.ID,
		"index", r.index,
		"type", ex.Type,
		"wpm", res.WPM,
		"accuracy", res.Accuracy,
	)
}

func (r *Runner) finishAttempt(ctx context.Context) error {
	verdict := Evaluate(r.lesson, r.wpms, r.accuracies)
	verdict.Attempt = r.attempt
	r.verdicts = append(r.verdicts, verdict)
	r.logger.InfoContext(ctx, "lesson attempt finished",
		"lesson", r.lesson.ID,
		"attempt", r.attempt,
		"passed", verdict.Passed,
		"wpm", verdict.AvgWPM,
		"accuracy", verdict.AvgAccuracy,
	)

	var errs []error
	keys := r.keyStats.Snapshot()
	summary := model.SessionSummary{
		ID:          r.attemptID,
		LessonID:    r.lesson.ID,
		Attempt:     r.attempt,
		Lang:        r.user.Lang,
		StartedAt:   r.attemptStart,
		EndedAt:     r.now(),
		Exercises:   verdict.Exercises,
		AvgWPM:      verdict.AvgWPM,
		AvgAccuracy: verdict.AvgAccuracy,
		ErrorCount:  r.errorCount,
		Duration:    r.duration,
		Passed:      verdict.Passed,
		EarnedXP:    verdict.EarnedXP,
	}
	if err := r.sink.SaveSession(ctx, summary); err != nil {
		errs = append(errs, &PersistenceError{Op: "save session", Err: err})
	}
	if err := r.sink.SaveKeyStats(ctx, r.attemptID, keys); err != nil {
		errs = append(errs, &PersistenceError{Op: "save key stats", Err: err})
	}
	r.ledger.SetWeakestKeys(stats.SelectWeakKeys(keys, weakKeyTop))
	r.keyStats.Reset()

	if mastery, changed := r.ledger.RecordMastery(r.lesson.ID, verdict, r.lesson.PassingRequirements.MinWPM); changed {
		if err := r.sink.SaveMastery(ctx, mastery); err != nil {
			errs = append(errs, &PersistenceError{Op: "save mastery", Err: err})
		}
	}

	if verdict.Passed {
		errs = append(errs, r.applyProgression(ctx, verdict)...)
		r.state = StateFinished
		return errors.Join(errs...)
	}

	if r.maxAttempts > 0 && r.attempt >= r.maxAttempts {
		r.state = StateFinished
		r.logger.InfoContext(ctx, "lesson attempts exhausted", "lesson", r.lesson.ID, "attempts", r.attempt)
		return errors.Join(errs...)
	}

	remedy := SelectRemedy(r.lesson, verdict)
	r.lastRemedy = remedy
	queue := BuildRemediation(r.gen, remedy, RemediationInput{
		Lesson:         r.lesson,
		Original:       r.original,
		Corpus:         r.corpus(),
		AnchorDuration: r.anchorDuration,
	})
	r.logger.InfoContext(ctx, "remediation scheduled", "lesson", r.lesson.ID, "remedy", remedy, "exercises", len(queue))
	if err := r.beginAttempt(queue); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) applyProgression(ctx context.Context, verdict model.LessonVerdict) []error {
	leveledUp := r.ledger.AddXP(verdict.EarnedXP)
	streakChanged := r.ledger.UpdateStreak(r.now())
	st := r.ledger.State()

	var errs []error
	if err := r.sink.SaveProgression(ctx, st); err != nil {
		errs = append(errs, &PersistenceError{Op: "save progression", Err: err})
	}

	r.notifier.LessonCompleted(ctx, r.lesson.ID)
	if leveledUp {
		r.notifier.LevelUp(ctx, st.Level)
	}
	if streakChanged {
		r.notifier.StreakUpdated(ctx, st.CurrentStreak, st.LongestStreak)
	}
	return errs
}

func (r *Runner) corpus() []string {
	sentences, err := r.content.Sentences(r.user.Lang)
	if err != nil {
		r.logger.Warn("corpus unavailable for remediation", "lang", r.user.Lang, "err", err)
		return nil
	}
	return wordlist.SplitWords(sentences, wordlist.FilterForLang(r.user.Lang))
}

// State returns the runner state.
func (r *Runner) State() State { return r.state }

// Lesson returns the lesson being run.
func (r *Runner) Lesson() model.Lesson { return r.lesson }

// Engine exposes the active session engine for rendering.
func (r *Runner) Engine() *session.Engine { return r.engine }

// Current returns the active exercise and its queue position.
func (r *Runner) Current() (model.Exercise, int, int) {
	if len(r.queue) == 0 {
		return model.Exercise{}, 0, 0
	}
	return r.queue[r.index], r.index, len(r.queue)
}

// Attempt returns the 1-based attempt number.
func (r *Runner) Attempt() int { return r.attempt }

// Outcomes returns the completed exercises of the current attempt.
func (r *Runner) Outcomes() []ExerciseOutcome {
	return append([]ExerciseOutcome(nil), r.outcomes...)
}

// Verdict returns the most recent attempt verdict.
func (r *Runner) Verdict() (model.LessonVerdict, bool) {
	if len(r.verdicts) == 0 {
		return model.LessonVerdict{}, false
	}
	return r.verdicts[len(r.verdicts)-1], true
}

// Verdicts returns every attempt verdict in order.
func (r *Runner) Verdicts() []model.LessonVerdict {
	return append([]model.LessonVerdict(nil), r.verdicts...)
}

// LastRemedy returns the branch used for the current remedial attempt, or 0.
func (r *Runner) LastRemedy() Remedy { return r.lastRemedy }

// Ledger returns the progression ledger.
func (r *Runner) Ledger() *progression.Ledger { return r.ledger }

type nopNotifier struct{}

func (nopNotifier) LessonCompleted(context.Context, string) {}
func (nopNotifier) LevelUp(context.Context, int)            {}
func (nopNotifier) StreakUpdated(context.Context, int, int) {}

type nopSink struct{}

func (nopSink) SaveSession(context.Context, model.SessionSummary) error       { return nil }
func (nopSink) SaveKeyStats(context.Context, string, []model.KeyStat) error   { return nil }
func (nopSink) SaveProgression(context.Context, model.ProgressionState) error { return nil }
func (nopSink) SaveMastery(context.Context, model.LessonMastery) error        { return nil }
