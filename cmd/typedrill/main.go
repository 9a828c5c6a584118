// Package main provides the CLI entrypoint for typedrill.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typedrill/internal/config"
	"github.com/verte-zerg/typedrill/internal/content"
	"github.com/verte-zerg/typedrill/internal/generator"
	"github.com/verte-zerg/typedrill/internal/lesson"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/notify"
	"github.com/verte-zerg/typedrill/internal/progression"
	"github.com/verte-zerg/typedrill/internal/stats"
	"github.com/verte-zerg/typedrill/internal/statsui"
	"github.com/verte-zerg/typedrill/internal/store"
	"github.com/verte-zerg/typedrill/internal/tui"
)

const (
	defaultLang            = "en"
	defaultTickMS          = 100
	defaultMaxAttempts     = 3
	defaultExerciseSeconds = 45
	defaultWeakTop         = 5
	defaultWeakWindow      = 20
	defaultCurveWindow     = 20
	defaultPlotWidth       = 80
	notificationBuffer     = 16
)

var (
	practiceLang       string
	practiceLesson     string
	practiceSeed       int64
	practiceCorpusDir  string
	practiceWeakTop    int
	practiceWeakWindow int

	engineTickMS          int
	engineMaxAttempts     int
	engineExerciseSeconds int

	logFile    string
	logVerbose bool

	statsLesson      string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typedrill",
		Short:         "Adaptive touch typing lessons in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&practiceLang, "lang", defaultLang, "corpus language code")
	flags.StringVar(&practiceCorpusDir, "corpus-dir", "", "directory of <lang>.txt corpora overriding the built-in ones")
	flags.StringVar(&logFile, "log-file", "", "log file (default: XDG data dir)")
	flags.BoolVar(&logVerbose, "verbose", false, "log debug events")

	rootCmd.Flags().StringVar(&practiceLesson, "lesson", "", "lesson id (default: next unlocked lesson)")
	rootCmd.Flags().Int64Var(&practiceSeed, "seed", 0, "exercise generator seed (0: time seeded)")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak keys to drill")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent sessions to compute weak keys")
	rootCmd.Flags().IntVar(&engineTickMS, "tick-ms", defaultTickMS, "clock resolution in milliseconds")
	rootCmd.Flags().IntVar(&engineMaxAttempts, "max-attempts", defaultMaxAttempts, "failed attempts before giving up (0: unlimited)")
	rootCmd.Flags().IntVar(&engineExerciseSeconds, "exercise-seconds", defaultExerciseSeconds, "target duration of generated drills")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLangsCmd())
	rootCmd.AddCommand(newLessonsCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	if err := applyFileConfig(cmd); err != nil {
		return err
	}
	if err := validatePractice(); err != nil {
		return err
	}
	logger, closeLog, err := openLogger(logFile, logVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return practice(cmd.Context(), st, logger, practiceLesson)
}

func practice(ctx context.Context, st *store.Store, logger *slog.Logger, lessonID string) error {
	gen := generator.New()
	if practiceSeed != 0 {
		gen = generator.NewWithSeed(practiceSeed)
	}
	catalog, err := loadCatalog(gen)
	if err != nil {
		return err
	}
	lang, err := content.NormalizeLang(practiceLang)
	if err != nil {
		return err
	}
	ledger, err := loadLedger(ctx, st, lang, logger)
	if err != nil {
		return err
	}
	lessonID, err = resolveLesson(catalog, ledger, lessonID)
	if err != nil {
		return err
	}

	tick := time.Duration(engineTickMS) * time.Millisecond
	notes := notify.NewChannel(notificationBuffer)
	runner := lesson.New(catalog, st, ledger,
		lesson.WithLogger(logger),
		lesson.WithNotifier(notify.Multi{notify.NewLogger(logger), notes}),
		lesson.WithTickInterval(tick),
		lesson.WithMaxAttempts(engineMaxAttempts),
		lesson.WithGenerator(gen),
		lesson.WithUserContext(model.UserContext{Lang: lang}),
		lesson.WithAnchorDuration(time.Duration(engineExerciseSeconds)*time.Second),
	)
	if err := runner.Start(ctx, lessonID); err != nil {
		return fmt.Errorf("failed to start lesson: %w", err)
	}

	m := tui.NewModel(ctx, runner,
		tui.WithLogger(logger),
		tui.WithNotifications(notes.C()),
		tui.WithTickInterval(tick),
	)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if dropped := notes.Dropped(); dropped > 0 {
		logger.Debug("notifications dropped", "count", dropped)
	}
	return nil
}

func loadCatalog(gen *generator.Generator) (*content.Catalog, error) {
	opts := []content.Option{
		content.WithGenerator(gen),
		content.WithExerciseDuration(time.Duration(engineExerciseSeconds) * time.Second),
	}
	if dir := resolveCorpusDir(practiceCorpusDir); dir != "" {
		opts = append(opts, content.WithCorpusDir(dir))
	}
	catalog, err := content.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}
	return catalog, nil
}

// resolveCorpusDir returns the explicit corpus dir, or the default one when
// it exists.
func resolveCorpusDir(dir string) string {
	if dir != "" {
		return dir
	}
	def := config.DefaultCorpusDir()
	if info, err := os.Stat(def); err == nil && info.IsDir() {
		return def
	}
	return ""
}

func loadLedger(ctx context.Context, st *store.Store, lang string, logger *slog.Logger) (*progression.Ledger, error) {
	state, err := st.LoadProgression(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load progression: %w", err)
	}
	mastery, err := st.LoadMastery(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mastery: %w", err)
	}
	ledger := progression.NewLedger(state, mastery)
	if practiceWeakTop > 0 {
		keys, err := st.RecentKeyStats(ctx, practiceWeakWindow, lang)
		if err != nil {
			logger.Warn("failed to load weak keys", "err", err)
		} else {
			ledger.SetWeakestKeys(stats.SelectWeakKeys(keys, practiceWeakTop))
		}
	}
	return ledger, nil
}

func resolveLesson(catalog *content.Catalog, ledger *progression.Ledger, id string) (string, error) {
	completed := ledger.Completed()
	if id == "" {
		return catalog.Next(completed).ID, nil
	}
	if _, err := catalog.Lesson(id); err != nil {
		return "", fmt.Errorf("%w (run: typedrill lessons)", err)
	}
	if !catalog.Unlocked(id, completed) {
		return "", fmt.Errorf("lesson %s is locked; complete the earlier stage gatekeepers first", id)
	}
	return id, nil
}

func openLogger(path string, verbose bool) (*slog.Logger, func(), error) {
	if path == "" {
		path = config.DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := newLogger(f, verbose)
	closeFn := func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}
	return logger, closeFn, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newLangsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List corpus languages",
		Args:  cobra.NoArgs,
		RunE:  runLangsCmd,
	}
}

func runLangsCmd(cmd *cobra.Command, _ []string) error {
	if err := applyFileConfig(cmd); err != nil {
		return err
	}
	catalog, err := loadCatalog(generator.New())
	if err != nil {
		return err
	}
	for _, lang := range catalog.Languages() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), lang); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newLessonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List lessons with their unlock state and mastery",
		Args:  cobra.NoArgs,
		RunE:  runLessonsCmd,
	}
}

func runLessonsCmd(cmd *cobra.Command, _ []string) error {
	if err := applyFileConfig(cmd); err != nil {
		return err
	}
	catalog, err := loadCatalog(generator.New())
	if err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	ctx := context.Background()
	state, err := st.LoadProgression(ctx)
	if err != nil {
		return fmt.Errorf("failed to load progression: %w", err)
	}
	mastery, err := st.LoadMastery(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mastery: %w", err)
	}
	return renderLessons(cmd.OutOrStdout(), catalog, progression.NewLedger(state, mastery))
}

func renderLessons(w io.Writer, catalog *content.Catalog, ledger *progression.Ledger) error {
	completed := ledger.Completed()
	next := catalog.Next(completed).ID
	stage := 0
	for _, l := range catalog.Lessons() {
		if l.Stage != stage {
			stage = l.Stage
			if _, err := fmt.Fprintf(w, "Stage %d: %s\n", stage, catalog.StageTitle(stage)); err != nil {
				return err
			}
		}
		mark := " "
		switch {
		case completed[l.ID]:
			mark = "x"
		case !catalog.Unlocked(l.ID, completed):
			mark = "-"
		}
		line := fmt.Sprintf("  [%s] %-18s %s", mark, l.ID, l.Title)
		if ms, ok := ledger.Mastery(l.ID); ok {
			line += fmt.Sprintf("  (mastery %.0f)", ms.Score)
		}
		if l.IsGatekeeper {
			line += "  gatekeeper"
		}
		if l.ID == next {
			line += "  <- next"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLesson, "lesson", "", "lesson filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if err := applyFileConfig(cmd); err != nil {
		return err
	}
	lang := ""
	if flagChanged(cmd, "lang") {
		lang = practiceLang
	}
	cfg, err := buildStatsConfig(lang)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain || !isTerminal(os.Stdout) {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		return renderStatsReport(cmd.OutOrStdout(), report, cfg.CurveWindow, terminalWidth())
	}

	catalog, err := loadCatalog(generator.New())
	if err != nil {
		return err
	}
	m := statsui.NewModel(st, catalog, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	if m.Selected() == "" {
		return nil
	}
	if err := validatePractice(); err != nil {
		return err
	}
	logger, closeLog, err := openLogger(logFile, logVerbose)
	if err != nil {
		return err
	}
	defer closeLog()
	return practice(cmd.Context(), st, logger, m.Selected())
}

// buildStatsConfig validates the stats flags; an empty lang matches every
// language.
func buildStatsConfig(lang string) (model.StatsConfig, error) {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	if lang != "" {
		code, err := content.NormalizeLang(lang)
		if err != nil {
			return model.StatsConfig{}, err
		}
		lang = code
	}
	return model.StatsConfig{
		Lang:        lang,
		LessonID:    statsLesson,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}, nil
}

func renderStatsReport(w io.Writer, report stats.Report, window, width int) error {
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if err := stats.RenderTrend(w, report.Sessions, window, max(10, width-9)); err != nil {
		return err
	}
	return stats.RenderKeyTable(w, report.KeysWindow, 10)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultPlotWidth
	}
	return width
}

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

// applyFileConfig overlays the TOML config on every flag the user did not
// set explicitly.
func applyFileConfig(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lang", &practiceLang, fileCfg.Practice.Lang)
	applyStringConfig(cmd, "lesson", &practiceLesson, fileCfg.Practice.Lesson)
	applyInt64Config(cmd, "seed", &practiceSeed, fileCfg.Practice.Seed)
	applyStringConfig(cmd, "corpus-dir", &practiceCorpusDir, fileCfg.Practice.CorpusDir)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)
	applyIntConfig(cmd, "tick-ms", &engineTickMS, fileCfg.Engine.TickMS)
	applyIntConfig(cmd, "max-attempts", &engineMaxAttempts, fileCfg.Engine.MaxAttempts)
	applyIntConfig(cmd, "exercise-seconds", &engineExerciseSeconds, fileCfg.Engine.ExerciseSeconds)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	applyBoolConfig(cmd, "verbose", &logVerbose, fileCfg.Log.Verbose)
	return nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typedrill configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# lang = %q              # Corpus language code
# lesson = "home-fj"      # Lesson to practice (default: next unlocked)
# seed = 0                # Exercise generator seed (0: time seeded)
# corpus-dir = ""         # Directory of <lang>.txt corpora
# weak-top = %d            # Number of weak keys to drill
# weak-window = %d        # Number of recent sessions to compute weak keys

[engine]
# tick-ms = %d           # Clock resolution in milliseconds
# max-attempts = %d        # Failed attempts before giving up (0: unlimited)
# exercise-seconds = %d   # Target duration of generated drills

[log]
# file = ""               # Log file (default: XDG data dir)
# verbose = false         # Log debug events
`,
		defaultLang,
		defaultWeakTop,
		defaultWeakWindow,
		defaultTickMS,
		defaultMaxAttempts,
		defaultExerciseSeconds,
	)
}

func validatePractice() error {
	if engineTickMS <= 0 {
		return fmt.Errorf("--tick-ms must be > 0")
	}
	if engineMaxAttempts < 0 {
		return fmt.Errorf("--max-attempts must be >= 0")
	}
	if engineExerciseSeconds <= 0 {
		return fmt.Errorf("--exercise-seconds must be > 0")
	}
	if practiceWeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if practiceWeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if strings.TrimSpace(practiceLang) == "" {
		return fmt.Errorf("--lang must not be empty")
	}
	if _, err := content.NormalizeLang(practiceLang); err != nil {
		return fmt.Errorf("invalid --lang value: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
