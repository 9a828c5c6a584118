// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typedrill/internal/lesson"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/session"
)

const maxNotes = 3

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	noteStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E"))
)

type tickMsg time.Time

type keyMap struct {
	Quit      key.Binding
	Pause     key.Binding
	Backspace key.Binding
	Retry     key.Binding
	Close     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
		Pause:     key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "pause")),
		Backspace: key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Close:     key.NewBinding(key.WithKeys("q", "enter", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the model logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifications shows notifications received on ch.
func WithNotifications(ch <-chan model.Notification) Option {
	return func(m *Model) {
		m.notes = ch
	}
}

// WithTickInterval sets how often a tick is delivered to the runner. It
// must match the runner's tick interval for elapsed time to be real time.
func WithTickInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// Model implements the Bubble Tea typing UI on top of a lesson runner. The
// runner must already be started.
type Model struct {
	ctx          context.Context
	runner       *lesson.Runner
	lessonID     string
	notes        <-chan model.Notification
	logger       *slog.Logger
	tickInterval time.Duration

	keys keyMap
	help help.Model
	bar  progress.Model

	width  int
	height int

	messages []string
	err      error
}

// NewModel constructs a typing TUI model.
func NewModel(ctx context.Context, runner *lesson.Runner, opts ...Option) *Model {
	m := &Model{
		ctx:          ctx,
		runner:       runner,
		lessonID:     runner.Lesson().ID,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		tickInterval: session.DefaultTickInterval,
		keys:         defaultKeyMap(),
		help:         help.New(),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer m.drainNotifications()
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.contentWidth()
		return m, nil
	case tickMsg:
		m.handleTick()
		return m, m.tick()
	case tea.KeyMsg:
		if m.runner.State() != lesson.StateRunning {
			return m.updateSummary(msg)
		}
		return m.updateTyping(msg)
	default:
		return m, nil
	}
}

// handleTick advances the exercise clock. The clock starts with the first
// keystroke of each exercise.
func (m *Model) handleTick() {
	if m.runner.State() != lesson.StateRunning {
		return
	}
	e := m.runner.Engine()
	if e.State() != session.StateRunning || e.Keystrokes() == 0 {
		return
	}
	m.deliver(session.TickEvent())
}

func (m *Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.runner.Abort(); err != nil {
			m.logger.Warn("failed to abort lesson", "err", err)
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		if m.runner.Engine().State() == session.StatePaused {
			m.deliver(session.ResumeEvent())
		} else {
			m.deliver(session.PauseEvent())
		}
		return m, nil
	}
	if m.runner.Engine().State() == session.StatePaused {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Backspace):
		m.deliver(session.BackspaceEvent())
	case msg.Type == tea.KeySpace:
		m.deliver(session.KeyEvent(' '))
	case msg.Type == tea.KeyRunes:
		for _, r := range msg.Runes {
			if m.runner.State() != lesson.StateRunning {
				break
			}
			m.deliver(session.KeyEvent(r))
		}
	}
	return m, nil
}

func (m *Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Retry):
		m.err = nil
		m.messages = nil
		if err := m.runner.Start(m.ctx, m.lessonID); err != nil {
			m.err = err
			m.logger.Error("failed to restart lesson", "lesson", m.lessonID, "err", err)
		}
		return m, nil
	case key.Matches(msg, m.keys.Close):
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m *Model) deliver(ev session.Event) {
	err := m.runner.Handle(m.ctx, ev)
	if err == nil {
		return
	}
	if errors.Is(err, lesson.ErrPersistence) {
		m.err = err
		m.logger.Error("failed to persist lesson attempt", "lesson", m.lessonID, "err", err)
		return
	}
	m.logger.Debug("event rejected", "event", ev.Kind, "err", err)
}

func (m *Model) drainNotifications() {
	if m.notes == nil {
		return
	}
	for {
		select {
		case n := <-m.notes:
			m.messages = append(m.messages, formatNotification(n))
			if len(m.messages) > maxNotes {
				m.messages = m.messages[len(m.messages)-maxNotes:]
			}
		default:
			return
		}
	}
}

func formatNotification(n model.Notification) string {
	switch n.Kind {
	case model.NotifyLessonCompleted:
		return fmt.Sprintf("Lesson %s completed", n.LessonID)
	case model.NotifyLevelUp:
		return fmt.Sprintf("Level up! You reached level %d", n.Level)
	case model.NotifyStreakUpdated:
		return fmt.Sprintf("Streak %d days (best %d)", n.CurrentStreak, n.LongestStreak)
	default:
		return string(n.Kind)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	if m.runner.State() == lesson.StateRunning {
		body = m.typingView()
	} else {
		body = m.summaryView()
	}
	if m.width == 0 || m.height == 0 {
		return body
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	bodyHeight := m.height - 1
	content := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return content + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) typingView() string {
	e := m.runner.Engine()
	ex, _, _ := m.runner.Current()
	target := e.Target()

	text := wrapStyledRunes(buildStyledRunes(target, e.Cursor(), e.LastMiss()), m.contentWidth())
	if w := m.contentWidth(); w > 0 {
		text = lipgloss.NewStyle().Width(w).Render(text)
	}
	lines := []string{m.renderHeader(ex)}
	if ex.Description != "" {
		lines = append(lines, footerStyle.Render(ex.Description))
	}
	lines = append(lines, "", text, "", m.bar.ViewAs(progressOf(e.Cursor(), len(target))))
	if e.State() == session.StatePaused {
		lines = append(lines, "", footerStyle.Render("paused, ctrl+p to resume"))
	}
	lines = append(lines, m.renderNotes()...)
	if m.err != nil {
		lines = append(lines, "", incorrectStyle.Render(m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderHeader(ex model.Exercise) string {
	l := m.runner.Lesson()
	parts := []string{fmt.Sprintf("Attempt %d", m.runner.Attempt())}
	if ex.Remedial {
		parts = append(parts, "remedial")
	}
	return titleStyle.Render(l.Title) + "  " + footerStyle.Render(strings.Join(parts, " · "))
}

func (m *Model) summaryView() string {
	l := m.runner.Lesson()
	lines := []string{titleStyle.Render(l.Title)}
	if v, ok := m.runner.Verdict(); ok {
		status := incorrectStyle.Render("Not passed")
		if v.Passed {
			status = correctStyle.Render("Passed")
		}
		req := l.PassingRequirements
		lines = append(lines,
			status,
			fmt.Sprintf("Attempt %d · %.1f WPM · %.1f%% accuracy", v.Attempt, v.AvgWPM, v.AvgAccuracy),
			footerStyle.Render(fmt.Sprintf("Needed %.0f WPM · %.0f%% accuracy", req.MinWPM, req.MinAccuracy)),
		)
		if v.Passed {
			lines = append(lines, noteStyle.Render(fmt.Sprintf("+%d XP", v.EarnedXP)))
		}
	} else {
		lines = append(lines, pendingStyle.Render("Lesson stopped"))
	}
	st := m.runner.Ledger().State()
	lines = append(lines, "", fmt.Sprintf("Level %d · %d XP · streak %d (best %d)",
		st.Level, st.TotalXP, st.CurrentStreak, st.LongestStreak))
	lines = append(lines, m.renderNotes()...)
	if m.err != nil {
		lines = append(lines, "", incorrectStyle.Render(m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderNotes() []string {
	if len(m.messages) == 0 {
		return nil
	}
	out := []string{""}
	for _, msg := range m.messages {
		out = append(out, noteStyle.Render(msg))
	}
	return out
}

func (m *Model) renderFooter() string {
	if m.runner.State() != lesson.StateRunning {
		return m.help.ShortHelpView([]key.Binding{m.keys.Retry, m.keys.Close})
	}
	ex, idx, total := m.runner.Current()
	e := m.runner.Engine()
	metrics := e.Metrics()
	clock := formatElapsed(e.Elapsed())
	if ex.TimeLimit > 0 {
		clock += "/" + formatElapsed(ex.TimeLimit)
	}
	segments := []string{
		fmt.Sprintf("Exercise %d/%d", idx+1, total),
		string(ex.Type),
		fmt.Sprintf("%.1f WPM", metrics.WPM),
		fmt.Sprintf("%.1f%%", metrics.Accuracy),
		clock,
	}
	footer := footerStyle.Render(strings.Join(segments, " · "))
	return footer + "  " + m.help.ShortHelpView([]key.Binding{m.keys.Pause, m.keys.Quit})
}

func progressOf(cursor, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(cursor) / float64(total)
}

func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
