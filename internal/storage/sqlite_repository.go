package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens the database at path and brings its schema up to date.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// foreign_keys is per connection
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const taskColumns = `owner, id, title, memo, priority, priority_locked, deadline, desired_at, desired_at_locked,
	estimated_minutes, estimated_minutes_locked, created_at, updated_at`

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	return insertTask(ctx, r.db, in)
}

func insertTask(ctx context.Context, ex execer, in Task) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Owner, in.ID, in.Title, in.Memo, in.Priority, boolInt(in.PriorityLocked),
		nullTime(in.Deadline), nullTime(in.DesiredAt), boolInt(in.DesiredAtLocked),
		nullInt(in.EstimatedMinutes), boolInt(in.EstimatedMinutesLocked),
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, owner, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, memo = ?, priority = ?, priority_locked = ?, deadline = ?, desired_at = ?, desired_at_locked = ?,
			estimated_minutes = ?, estimated_minutes_locked = ?, updated_at = ?
		WHERE owner = ? AND id = ?`,
		in.Title, in.Memo, in.Priority, boolInt(in.PriorityLocked), nullTime(in.Deadline), nullTime(in.DesiredAt),
		boolInt(in.DesiredAtLocked), nullInt(in.EstimatedMinutes), boolInt(in.EstimatedMinutesLocked), mustTime(in.UpdatedAt),
		in.Owner, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = ? ORDER BY created_at ASC, id ASC`
	args := []any{filter.Owner}
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateEvent(ctx context.Context, in Event) error {
	return insertEvent(ctx, r.db, in)
}

func insertEvent(ctx context.Context, ex execer, in Event) error {
	if !in.EndAt.After(in.StartAt) {
		return fmt.Errorf("storage: event %q ends before it starts", in.ID)
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO events (id, owner, title, start_at, end_at, task_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Owner, in.Title, mustTime(in.StartAt), mustTime(in.EndAt), nullString(in.TaskID), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]Event, error) {
	// range filtering happens after parsing; RFC3339Nano strings do not sort by instant
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, title, start_at, end_at, task_id, created_at
		FROM events WHERE owner = ? ORDER BY start_at ASC, id ASC`, filter.Owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if filter.From != nil && !ev.EndAt.After(*filter.From) {
			continue
		}
		if filter.To != nil && !ev.StartAt.Before(*filter.To) {
			continue
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *SQLiteRepository) SaveAvailability(ctx context.Context, in Availability) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := writeAvailability(ctx, tx, in); err != nil {
		return err
	}
	return tx.Commit()
}

func writeAvailability(ctx context.Context, tx *sql.Tx, in Availability) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM availability WHERE owner = ?`, in.Owner); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO availability (owner, timezone, slot_minutes, window_start, window_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.Owner, in.Timezone, in.SlotMinutes, mustTime(in.WindowStart), mustTime(in.WindowEnd), mustTime(in.UpdatedAt),
	); err != nil {
		return err
	}
	for ci, c := range in.Classes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO availability_classes (owner, position, name, weekdays) VALUES (?, ?, ?, ?)`,
			in.Owner, ci, c.Name, formatWeekdays(c.Weekdays),
		); err != nil {
			return err
		}
		for ri, rg := range c.Ranges {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO availability_ranges (owner, class_position, position, start_minute, end_minute)
				VALUES (?, ?, ?, ?, ?)`,
				in.Owner, ci, ri, rg.StartMinute, rg.EndMinute,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAvailability(ctx context.Context, owner string) (Availability, error) {
	var out Availability
	var start, end, updated string
	err := r.db.QueryRowContext(ctx, `
		SELECT owner, timezone, slot_minutes, window_start, window_end, updated_at
		FROM availability WHERE owner = ?`, owner,
	).Scan(&out.Owner, &out.Timezone, &out.SlotMinutes, &start, &end, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Availability{}, ErrNotFound
		}
		return Availability{}, err
	}
	if out.WindowStart, err = parseRequiredTime(start); err != nil {
		return Availability{}, err
	}
	if out.WindowEnd, err = parseRequiredTime(end); err != nil {
		return Availability{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return Availability{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.position, c.name, c.weekdays, r.start_minute, r.end_minute
		FROM availability_classes c
		LEFT JOIN availability_ranges r ON r.owner = c.owner AND r.class_position = c.position
		WHERE c.owner = ?
		ORDER BY c.position ASC, r.position ASC`, owner)
	if err != nil {
		return Availability{}, err
	}
	defer rows.Close()

	last := -1
	for rows.Next() {
		var pos int
		var name, days string
		var rs, re sql.NullInt64
		if err := rows.Scan(&pos, &name, &days, &rs, &re); err != nil {
			return Availability{}, err
		}
		if pos != last {
			weekdays, err := parseWeekdays(days)
			if err != nil {
				return Availability{}, err
			}
			out.Classes = append(out.Classes, DayClass{Name: name, Weekdays: weekdays})
			last = pos
		}
		if rs.Valid && re.Valid {
			c := &out.Classes[len(out.Classes)-1]
			c.Ranges = append(c.Ranges, ClockRange{StartMinute: int(rs.Int64), EndMinute: int(re.Int64)})
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, owner string, tasks []Task, events []Event, avail Availability) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM scheduled_blocks WHERE owner = ?`,
		`DELETE FROM tasks WHERE owner = ?`,
		`DELETE FROM events WHERE owner = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, owner); err != nil {
			return err
		}
	}
	for _, t := range tasks {
		t.Owner = owner
		if err := insertTask(ctx, tx, t); err != nil {
			return fmt.Errorf("storage: insert task %q: %w", t.ID, err)
		}
	}
	for _, e := range events {
		e.Owner = owner
		if err := insertEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	avail.Owner = owner
	if err := writeAvailability(ctx, tx, avail); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ReplacePlan(ctx context.Context, run PlanRun, blocks []Block) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_blocks WHERE owner = ?`, run.Owner); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plan_runs (id, owner, path, oracle_model, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Owner, run.Path, run.OracleModel, strings.Join(run.Notes, "\n"), mustTime(run.CreatedAt),
	); err != nil {
		return err
	}
	for _, f := range run.Failures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO plan_failures (run_id, task_id, reason) VALUES (?, ?, ?)`,
			run.ID, f.TaskID, f.Reason,
		); err != nil {
			return err
		}
	}
	for _, b := range blocks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scheduled_blocks (owner, run_id, task_id, sort_order, start_at, end_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.Owner, run.ID, b.TaskID, b.Order, mustTime(b.StartAt), mustTime(b.EndAt),
		); err != nil {
			return fmt.Errorf("storage: insert block %q: %w", b.TaskID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListBlocks(ctx context.Context, owner string) ([]Block, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner, run_id, task_id, sort_order, start_at, end_at
		FROM scheduled_blocks WHERE owner = ? ORDER BY sort_order ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Block, 0)
	for rows.Next() {
		b, scanErr := scanBlock(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) LatestRun(ctx context.Context, owner string) (PlanRun, error) {
	var out PlanRun
	var notes, created string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner, path, oracle_model, notes, created_at
		FROM plan_runs WHERE owner = ? ORDER BY rowid DESC LIMIT 1`, owner,
	).Scan(&out.ID, &out.Owner, &out.Path, &out.OracleModel, &notes, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PlanRun{}, ErrNotFound
		}
		return PlanRun{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return PlanRun{}, err
	}
	if notes != "" {
		out.Notes = strings.Split(notes, "\n")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT task_id, reason FROM plan_failures WHERE run_id = ? ORDER BY rowid ASC`, out.ID)
	if err != nil {
		return PlanRun{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var f PlanFailure
		if err := rows.Scan(&f.TaskID, &f.Reason); err != nil {
			return PlanRun{}, err
		}
		out.Failures = append(out.Failures, f)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CommitBlocks(ctx context.Context, owner string, events []Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range events {
		e.Owner = owner
		if err := insertEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_blocks WHERE owner = ?`, owner); err != nil {
		return err
	}
	return tx.Commit()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return mustTime(*v)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatWeekdays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func parseWeekdays(v string) ([]time.Weekday, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("storage: bad weekday %q", p)
		}
		out = append(out, time.Weekday(n))
	}
	return out, nil
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var priorityLocked, desiredLocked, estimateLocked int
	var deadline, desired sql.NullString
	var estimate sql.NullInt64
	var created, updated string
	if err := s.Scan(&out.Owner, &out.ID, &out.Title, &out.Memo, &out.Priority, &priorityLocked, &deadline, &desired,
		&desiredLocked, &estimate, &estimateLocked, &created, &updated); err != nil {
		return Task{}, err
	}
	var err error
	if out.Deadline, err = parseNullableTime(deadline); err != nil {
		return Task{}, err
	}
	if out.DesiredAt, err = parseNullableTime(desired); err != nil {
		return Task{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return Task{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return Task{}, err
	}
	if estimate.Valid {
		v := int(estimate.Int64)
		out.EstimatedMinutes = &v
	}
	out.PriorityLocked = priorityLocked == 1
	out.DesiredAtLocked = desiredLocked == 1
	out.EstimatedMinutesLocked = estimateLocked == 1
	return out, nil
}

func scanEvent(s scanner) (Event, error) {
	var out Event
	var start, end, created string
	var taskID sql.NullString
	if err := s.Scan(&out.ID, &out.Owner, &out.Title, &start, &end, &taskID, &created); err != nil {
		return Event{}, err
	}
	var err error
	if out.StartAt, err = parseRequiredTime(start); err != nil {
		return Event{}, err
	}
	if out.EndAt, err = parseRequiredTime(end); err != nil {
		return Event{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return Event{}, err
	}
	out.TaskID = taskID.String
	return out, nil
}

func scanBlock(s scanner) (Block, error) {
	var out Block
	var start, end string
	if err := s.Scan(&out.Owner, &out.RunID, &out.TaskID, &out.Order, &start, &end); err != nil {
		return Block{}, err
	}
	var err error
	if out.StartAt, err = parseRequiredTime(start); err != nil {
		return Block{}, err
	}
	if out.EndAt, err = parseRequiredTime(end); err != nil {
		return Block{}, err
	}
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
