package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) RecordFocusSession(ctx context.Context, fs FocusSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions (id, activity_id, started_at, ended_at, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		fs.ID, fs.ActivityID,
		fs.StartedAt.UTC().Format(time.RFC3339), fs.EndedAt.UTC().Format(time.RFC3339),
		fs.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record focus session: %w", err)
	}
	s.changed()
	return nil
}

func (s *Store) ListFocusSessions(ctx context.Context, activityID int64) ([]FocusSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, activity_id, started_at, ended_at, duration_ms
		 FROM focus_sessions WHERE activity_id = ? ORDER BY started_at DESC`, activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []FocusSession
	for rows.Next() {
		var fs FocusSession
		var startedAt, endedAt string
		var ms int64
		if err := rows.Scan(&fs.ID, &fs.ActivityID, &startedAt, &endedAt, &ms); err != nil {
			return nil, err
		}
		fs.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		fs.EndedAt, _ = time.Parse(time.RFC3339, endedAt)
		fs.Duration = time.Duration(ms) * time.Millisecond
		sessions = append(sessions, fs)
	}
	return sessions, rows.Err()
}

// GetDailyFocus aggregates session time per UTC day in [from, to).
func (s *Store) GetDailyFocus(ctx context.Context, from, to time.Time) ([]DailyFocus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(started_at) AS day, COALESCE(SUM(duration_ms), 0), COUNT(*)
		FROM focus_sessions
		WHERE started_at >= ? AND started_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily focus: %w", err)
	}
	defer rows.Close()

	var days []DailyFocus
	for rows.Next() {
		var d DailyFocus
		var ms int64
		if err := rows.Scan(&d.Date, &ms, &d.Sessions); err != nil {
			return nil, err
		}
		d.Total = time.Duration(ms) * time.Millisecond
		days = append(days, d)
	}
	return days, rows.Err()
}

// GetTodayFocus is the total focus time recorded today (UTC).
func (s *Store) GetTodayFocus(ctx context.Context) (time.Duration, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_ms), 0)
		FROM focus_sessions
		WHERE date(started_at) = ?`, today,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return time.Duration(total.Int64) * time.Millisecond, nil
}
