// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/typedrill/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for lesson sessions, key stats and progression.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// connPragmas run on every connection the pool opens, not just the first.
var connPragmas = []string{"busy_timeout(5000)", "foreign_keys(1)"}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			lesson_id TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			lang TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			exercises INTEGER NOT NULL,
			avg_wpm REAL NOT NULL,
			avg_accuracy REAL NOT NULL,
			error_count INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			earned_xp INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_key_stats (
			session_id TEXT NOT NULL,
			key TEXT NOT NULL,
			press_count INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			latency_sum_ms INTEGER NOT NULL,
			PRIMARY KEY (session_id, key)
		);`,
		`CREATE TABLE IF NOT EXISTS progression (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			level INTEGER NOT NULL,
			total_xp INTEGER NOT NULL,
			current_streak INTEGER NOT NULL,
			longest_streak INTEGER NOT NULL,
			last_practice TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_mastery (
			lesson_id TEXT PRIMARY KEY,
			score REAL NOT NULL,
			completed INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_key_stats_key ON session_key_stats(key);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession stores a completed lesson attempt.
func (s *Store) SaveSession(ctx context.Context, summary model.SessionSummary) error {
	if summary.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, lesson_id, attempt, lang, started_at, ended_at, exercises, avg_wpm, avg_accuracy, error_count, duration_ms, passed, earned_xp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID,
		summary.LessonID,
		summary.Attempt,
		summary.Lang,
		summary.StartedAt.Format(time.RFC3339Nano),
		summary.EndedAt.Format(time.RFC3339Nano),
		summary.Exercises,
		summary.AvgWPM,
		summary.AvgAccuracy,
		summary.ErrorCount,
		summary.Duration.Milliseconds(),
		boolToInt(summary.Passed),
		summary.EarnedXP,
	)
	return err
}

// SaveKeyStats stores the per-key stats of a session in one transaction.
func (s *Store) SaveKeyStats(ctx context.Context, sessionID string, keys []model.KeyStat) (err error) {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_key_stats (session_id, key, press_count, error_count, latency_sum_ms)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET
			press_count = press_count + excluded.press_count,
			error_count = error_count + excluded.error_count,
			latency_sum_ms = latency_sum_ms + excluded.latency_sum_ms`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, ks := range keys {
		if _, err = stmt.ExecContext(ctx, sessionID, ks.Key, ks.PressCount, ks.ErrorCount, ks.LatencySum.Milliseconds()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveProgression upserts the single progression row.
func (s *Store) SaveProgression(ctx context.Context, state model.ProgressionState) error {
	var last any
	if state.LastPractice != nil {
		last = state.LastPractice.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progression (id, level, total_xp, current_streak, longest_streak, last_practice)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			level = excluded.level,
			total_xp = excluded.total_xp,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_practice = excluded.last_practice`,
		state.Level, state.TotalXP, state.CurrentStreak, state.LongestStreak, last)
	return err
}

// LoadProgression returns the stored progression, or a level-1 state when
// nothing has been saved yet.
func (s *Store) LoadProgression(ctx context.Context) (model.ProgressionState, error) {
	var state model.ProgressionState
	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT level, total_xp, current_streak, longest_streak, last_practice FROM progression WHERE id = 1`,
	).Scan(&state.Level, &state.TotalXP, &state.CurrentStreak, &state.LongestStreak, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProgressionState{Level: 1}, nil
	}
	if err != nil {
		return model.ProgressionState{}, err
	}
	if last.Valid && last.String != "" {
		parsed, err := time.Parse(time.RFC3339, last.String)
		if err != nil {
			return model.ProgressionState{}, fmt.Errorf("failed to parse last practice: %w", err)
		}
		state.LastPractice = &parsed
	}
	return state, nil
}

// SaveMastery upserts a lesson mastery record.
func (s *Store) SaveMastery(ctx context.Context, m model.LessonMastery) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lesson_mastery (lesson_id, score, completed) VALUES (?, ?, ?)
		 ON CONFLICT(lesson_id) DO UPDATE SET score = excluded.score, completed = excluded.completed`,
		m.LessonID, m.Score, boolToInt(m.Completed))
	return err
}

// LoadMastery returns every lesson mastery record keyed by lesson id.
func (s *Store) LoadMastery(ctx context.Context) (map[string]model.LessonMastery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT lesson_id, score, completed FROM lesson_mastery`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[string]model.LessonMastery{}
	for rows.Next() {
		var m model.LessonMastery
		var completed int
		if err := rows.Scan(&m.LessonID, &m.Score, &completed); err != nil {
			return nil, err
		}
		m.Completed = completed != 0
		result[m.LessonID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecentKeyStats aggregates key stats over the most recent sessions.
func (s *Store) RecentKeyStats(ctx context.Context, window int, lang string) ([]model.KeyStat, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		WHERE (? = '' OR lang = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT ks.key, SUM(ks.press_count), SUM(ks.error_count), SUM(ks.latency_sum_ms)
	FROM session_key_stats ks
	JOIN recent_sessions r ON r.id = ks.session_id
	GROUP BY ks.key`
	return s.queryKeyStats(ctx, query, lang, lang, window)
}

// KeyStatsForSessions aggregates key stats across the given sessions.
func (s *Store) KeyStatsForSessions(ctx context.Context, sessionIDs []string) ([]model.KeyStat, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT key, SUM(press_count), SUM(error_count), SUM(latency_sum_ms)
		FROM session_key_stats
		WHERE session_id IN (%s)
		GROUP BY key`, strings.Join(placeholders, ","))
	return s.queryKeyStats(ctx, query, args...)
}

func (s *Store) queryKeyStats(ctx context.Context, query string, args ...any) ([]model.KeyStat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.KeyStat
	for rows.Next() {
		var ks model.KeyStat
		var latencyMs int64
		if err := rows.Scan(&ks.Key, &ks.PressCount, &ks.ErrorCount, &latencyMs); err != nil {
			return nil, err
		}
		ks.LatencySum = time.Duration(latencyMs) * time.Millisecond
		result = append(result, ks)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessions returns session summaries filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Lang != "" {
		clauses = append(clauses, "lang = ?")
		args = append(args, cfg.Lang)
	}
	if cfg.LessonID != "" {
		clauses = append(clauses, "lesson_id = ?")
		args = append(args, cfg.LessonID)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, lesson_id, attempt, lang, started_at, ended_at, exercises,
		avg_wpm, avg_accuracy, error_count, duration_ms, passed, earned_xp
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var startedAt, endedAt string
		var durationMs int64
		var passed int
		if err := rows.Scan(&sum.ID, &sum.LessonID, &sum.Attempt, &sum.Lang, &startedAt, &endedAt,
			&sum.Exercises, &sum.AvgWPM, &sum.AvgAccuracy, &sum.ErrorCount, &durationMs, &passed, &sum.EarnedXP); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if sum.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		sum.Duration = time.Duration(durationMs) * time.Millisecond
		sum.Passed = passed != 0
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
