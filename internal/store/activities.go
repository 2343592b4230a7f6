package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const activityColumns = `id, title, description, due_at, has_reminder, priority, category, completed, created_at, accumulated_ms, in_progress`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(r rowScanner) (Activity, error) {
	var a Activity
	var dueAt, createdAt, accumulated int64
	var priority int
	var category string
	var hasReminder, completed, inProgress int
	err := r.Scan(&a.ID, &a.Title, &a.Description, &dueAt, &hasReminder, &priority, &category,
		&completed, &createdAt, &accumulated, &inProgress)
	if err != nil {
		return a, err
	}
	a.DueAt = time.UnixMilli(dueAt)
	a.HasReminder = hasReminder == 1
	a.Priority = PriorityFromRank(priority)
	a.Category = CategoryFromString(category)
	a.Completed = completed == 1
	a.CreatedAt = time.UnixMilli(createdAt)
	a.Accumulated = time.Duration(accumulated) * time.Millisecond
	a.InProgress = inProgress == 1
	return a, nil
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CreateActivity inserts a and returns the stored row. CreatedAt defaults to
// now; ID, Completed, Accumulated and InProgress are ignored.
func (s *Store) CreateActivity(ctx context.Context, a Activity) (*Activity, error) {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (title, description, due_at, has_reminder, priority, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Description, a.DueAt.UnixMilli(), boolInt(a.HasReminder),
		int(a.Priority), string(a.Category), created.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, _ := res.LastInsertId()
	s.changed()
	return s.GetActivity(ctx, id)
}

func (s *Store) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	a, err := scanActivity(s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get activity %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get activity %d: %w", id, err)
	}
	return &a, nil
}

// UpdateActivity writes every editable field of a. CreatedAt, Accumulated and
// InProgress are owned by the store and the focus timer and are not touched,
// except that completing an activity clears its in-progress flag.
func (s *Store) UpdateActivity(ctx context.Context, a Activity) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities
		 SET title = ?, description = ?, due_at = ?, has_reminder = ?, priority = ?, category = ?,
		     completed = ?, in_progress = CASE WHEN ? = 1 THEN 0 ELSE in_progress END
		 WHERE id = ?`,
		a.Title, a.Description, a.DueAt.UnixMilli(), boolInt(a.HasReminder),
		int(a.Priority), string(a.Category), boolInt(a.Completed), boolInt(a.Completed), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update activity %d: %w", a.ID, err)
	}
	return s.afterWrite(res, "update activity", a.ID)
}

// SetCompleted flips the completed column. Completing also clears in-progress.
func (s *Store) SetCompleted(ctx context.Context, id int64, completed bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities
		 SET completed = ?, in_progress = CASE WHEN ? = 1 THEN 0 ELSE in_progress END
		 WHERE id = ?`,
		boolInt(completed), boolInt(completed), id,
	)
	if err != nil {
		return fmt.Errorf("set completed %d: %w", id, err)
	}
	return s.afterWrite(res, "set completed", id)
}

func (s *Store) SetInProgress(ctx context.Context, id int64, inProgress bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET in_progress = ? WHERE id = ?`, boolInt(inProgress), id,
	)
	if err != nil {
		return fmt.Errorf("set in progress %d: %w", id, err)
	}
	return s.afterWrite(res, "set in progress", id)
}

// SetAccumulated records total focus time. The stored value never decreases.
func (s *Store) SetAccumulated(ctx context.Context, id int64, total time.Duration) error {
	if total < 0 {
		total = 0
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET accumulated_ms = MAX(accumulated_ms, ?) WHERE id = ?`,
		total.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("set accumulated %d: %w", id, err)
	}
	return s.afterWrite(res, "set accumulated", id)
}

// ResetAccumulated is the only way accumulated time goes back to zero.
func (s *Store) ResetAccumulated(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET accumulated_ms = 0 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("reset accumulated %d: %w", id, err)
	}
	return s.afterWrite(res, "reset accumulated", id)
}

// GetInProgress returns the activity currently flagged in-progress, or nil.
func (s *Store) GetInProgress(ctx context.Context) (*Activity, error) {
	a, err := scanActivity(s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE in_progress = 1 ORDER BY id LIMIT 1`,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get in-progress activity: %w", err)
	}
	return &a, nil
}

// ClearInProgress resets every in-progress flag and reports how many were set.
func (s *Store) ClearInProgress(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET in_progress = 0 WHERE in_progress = 1`)
	if err != nil {
		return 0, fmt.Errorf("clear in progress: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.changed()
	}
	return n, nil
}

func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity %d: %w", id, err)
	}
	return s.afterWrite(res, "delete activity", id)
}

// DeleteCompleted removes every completed activity and returns their ids.
func (s *Store) DeleteCompleted(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM activities WHERE completed = 1 RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("delete completed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete completed: %w", err)
	}
	if len(ids) > 0 {
		s.changed()
	}
	return ids, nil
}

// ListPending returns non-completed activities matching q, ordered by q.Sort.
func (s *Store) ListPending(ctx context.Context, q PendingQuery) ([]Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE completed = 0`
	var args []any

	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		query += ` AND (unicode_lower(title) LIKE ? ESCAPE '\' OR unicode_lower(description) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	if q.RemindersOnly {
		query += ` AND has_reminder = 1`
	}
	if q.Category != nil {
		query += ` AND category = ?`
		args = append(args, string(*q.Category))
	}

	switch q.Sort {
	case SortByDate:
		query += ` ORDER BY due_at ASC, id ASC`
	default:
		query += ` ORDER BY priority ASC, due_at ASC, id ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return scanActivities(rows)
}

// ListCompleted returns completed activities by ascending due time.
func (s *Store) ListCompleted(ctx context.Context) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE completed = 1 ORDER BY due_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list completed: %w", err)
	}
	return scanActivities(rows)
}

// ListActivities returns every activity in creation order.
func (s *Store) ListActivities(ctx context.Context) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return scanActivities(rows)
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities WHERE completed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// CountPendingByCategory has an entry for every category, zero included.
func (s *Store) CountPendingByCategory(ctx context.Context) (map[Category]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM activities WHERE completed = 0 GROUP BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[CategoryFromString(cat)] += n
	}
	return counts, rows.Err()
}

func (s *Store) afterWrite(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, ErrNotFound)
	}
	s.changed()
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
