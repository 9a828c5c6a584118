// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typedrill/internal/content"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/progression"
	"github.com/verte-zerg/typedrill/internal/stats"
	"github.com/verte-zerg/typedrill/internal/store"
)

const (
	tabOverview = iota
	tabKeys
	tabLessons
)

const (
	headerHeight = 4
	footerHeight = 1
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI: an overview, the weakest keys
// and the lesson map. Pressing enter on an unlocked lesson selects it.
type Model struct {
	store   *store.Store
	catalog *content.Catalog
	cfg     model.StatsConfig

	report  stats.Report
	ledger  *progression.Ledger
	lessons []model.Lesson
	errMsg  string

	tabs      []string
	activeTab int
	overview  viewport.Model
	keyTable  table.Model
	lessonTbl table.Model
	selected  string

	width  int
	height int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, catalog *content.Catalog, cfg model.StatsConfig) *Model {
	m := &Model{
		store:     st,
		catalog:   catalog,
		cfg:       cfg,
		tabs:      []string{"Overview", "Weak Keys", "Lessons"},
		overview:  viewport.New(0, 0),
		keyTable:  newTable(keyColumns(), nil),
		lessonTbl: newTable(lessonColumns(), nil),
	}
	m.refresh()
	return m
}

// Selected returns the lesson chosen on the lessons tab, if any.
func (m *Model) Selected() string {
	return m.selected
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow++
			m.refresh()
			return m, nil
		case "-":
			if m.cfg.CurveWindow > 1 {
				m.cfg.CurveWindow--
				m.refresh()
			}
			return m, nil
		case "enter":
			if m.activeTab == tabLessons {
				return m.selectLesson()
			}
			return m, nil
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabKeys:
			m.keyTable, cmd = m.keyTable.Update(msg)
		case tabLessons:
			m.lessonTbl, cmd = m.lessonTbl.Update(msg)
		default:
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) selectLesson() (tea.Model, tea.Cmd) {
	idx := m.lessonTbl.Cursor()
	if idx < 0 || idx >= len(m.lessons) {
		return m, nil
	}
	l := m.lessons[idx]
	if !m.catalog.Unlocked(l.ID, m.ledger.Completed()) {
		m.errMsg = fmt.Sprintf("lesson %s is locked", l.ID)
		return m, nil
	}
	m.selected = l.ID
	return m, tea.Quit
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	bodyHeight := m.bodyHeight()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-headerHeight-footerHeight)
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	h := m.bodyHeight()
	m.overview.Width = m.width
	m.overview.Height = h
	m.overview.SetContent(m.renderOverview())
	m.keyTable.SetWidth(m.width)
	m.keyTable.SetHeight(max(1, h-1))
	m.lessonTbl.SetWidth(m.width)
	m.lessonTbl.SetHeight(max(1, h-1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	m.keyTable.Blur()
	m.lessonTbl.Blur()
	switch m.activeTab {
	case tabKeys:
		m.keyTable.Focus()
	case tabLessons:
		m.lessonTbl.Focus()
	}
}

func (m *Model) refresh() {
	ctx := context.Background()
	m.errMsg = ""
	report, err := stats.BuildReport(ctx, m.store, m.cfg)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load stats: %v", err)
	}
	m.report = report
	state, err := m.store.LoadProgression(ctx)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load progression: %v", err)
	}
	mastery, err := m.store.LoadMastery(ctx)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load mastery: %v", err)
	}
	m.ledger = progression.NewLedger(state, mastery)
	m.lessons = m.catalog.Lessons()

	m.keyTable.SetRows(keyRows(m.report.KeysWindow))
	m.lessonTbl.SetRows(m.lessonRows())
	m.updateLayout()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	lang := m.cfg.Lang
	if lang == "" {
		lang = "any"
	}
	lessonID := m.cfg.LessonID
	if lessonID == "" {
		lessonID = "any"
	}
	summary := fmt.Sprintf("Settings: lang=%s  lesson=%s  window=%d", lang, lessonID, m.cfg.CurveWindow)
	return m.renderTabs() + "\n" + headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Scroll: up/down  Window: -/=  Quit: q"
	if m.activeTab == tabLessons {
		help = "Nav: left/right  Move: up/down  Practice: enter  Quit: q"
	}
	if m.errMsg != "" {
		return errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabKeys:
		if len(m.report.KeysWindow) == 0 {
			return "No key stats found."
		}
		return tableMutedStyle.Render(m.keyTable.View())
	case tabLessons:
		return tableMutedStyle.Render(m.lessonTbl.View())
	default:
		return m.overview.View()
	}
}

func (m *Model) renderOverview() string {
	st := m.ledger.State()
	progress := []string{
		metricCard("Level", fmt.Sprintf("%d", st.Level)),
		metricCard("XP", fmt.Sprintf("%d", st.TotalXP)),
		metricCard("Streak", fmt.Sprintf("%d (best %d)", st.CurrentStreak, st.LongestStreak)),
	}
	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, progress...)}
	sessions := m.report.Sessions
	if len(sessions) == 0 {
		return strings.Join(append(lines, "No sessions found."), "\n")
	}

	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	best := 0.0
	passed := 0
	for i, s := range sessions {
		wpms[i] = s.AvgWPM
		accs[i] = s.AvgAccuracy
		best = max(best, s.AvgWPM)
		if s.Passed {
			passed++
		}
	}
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d (%d passed)", len(sessions), passed)),
		metricCard("Avg WPM", fmt.Sprintf("%.1f", stats.Mean(wpms))),
		metricCard("Best WPM", fmt.Sprintf("%.1f", best)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", stats.Mean(accs))),
	}
	if m.width < 80 {
		lines = append(lines, cards...)
	} else {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	width := max(10, m.width-10)
	lines = append(lines,
		"",
		"WPM      "+stats.Sparkline(stats.Resample(stats.MovingAverage(wpms, m.cfg.CurveWindow), width)),
		"Accuracy "+stats.Sparkline(stats.Resample(stats.MovingAverage(accs, m.cfg.CurveWindow), width)),
	)
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func keyColumns() []table.Column {
	return []table.Column{
		{Title: "Key", Width: 7},
		{Title: "Struggle", Width: 9},
		{Title: "Accuracy", Width: 9},
		{Title: "Avg Latency (ms)", Width: 17},
		{Title: "Presses", Width: 8},
		{Title: "Errors", Width: 7},
	}
}

func keyRows(keys []model.KeyStat) []table.Row {
	ranked := stats.RankWeakest(keys, 0)
	rows := make([]table.Row, 0, len(ranked))
	for _, rk := range ranked {
		rows = append(rows, table.Row{
			rk.Key,
			fmt.Sprintf("%.1f", rk.Score),
			fmt.Sprintf("%.2f%%", rk.Accuracy()*100),
			fmt.Sprintf("%d", rk.AvgLatency().Milliseconds()),
			fmt.Sprintf("%d", rk.PressCount),
			fmt.Sprintf("%d", rk.ErrorCount),
		})
	}
	return rows
}

func lessonColumns() []table.Column {
	return []table.Column{
		{Title: "Stage", Width: 14},
		{Title: "Lesson", Width: 18},
		{Title: "Title", Width: 24},
		{Title: "Status", Width: 10},
		{Title: "Mastery", Width: 8},
	}
}

func (m *Model) lessonRows() []table.Row {
	completed := m.ledger.Completed()
	rows := make([]table.Row, 0, len(m.lessons))
	for _, l := range m.lessons {
		status := "locked"
		switch {
		case completed[l.ID]:
			status = "done"
		case m.catalog.Unlocked(l.ID, completed):
			status = "open"
		}
		if l.IsGatekeeper {
			status += " *"
		}
		score := "-"
		if ms, ok := m.ledger.Mastery(l.ID); ok {
			score = fmt.Sprintf("%.0f", ms.Score)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d %s", l.Stage, m.catalog.StageTitle(l.Stage)),
			l.ID,
			l.Title,
			status,
			score,
		})
	}
	return rows
}

func newTable(cols []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
