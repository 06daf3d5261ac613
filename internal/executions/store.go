package executions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/watzon/autoimport/internal/database"
)

// timeFormat keeps timestamps fixed-width so they sort as text.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// ErrNotFound is returned when an execution log does not exist.
var ErrNotFound = errors.New("execution log not found")

// Store handles database operations for executions.
type Store struct {
	db *database.DB
}

// NewStore creates a new execution store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT id, run_id, configuration, time_id, action_order, kind,
	       status, started_at, completed_at, duration_ms, error
	FROM action_executions
`

// Create inserts a new execution log.
func (s *Store) Create(ctx context.Context, log *ExecutionLog) error {
	query := `
		INSERT INTO action_executions (
			id, run_id, configuration, time_id, action_order, kind,
			status, started_at, completed_at, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var completedAt sql.NullString
	if log.CompletedAt != nil {
		completedAt = sql.NullString{
			String: log.CompletedAt.UTC().Format(timeFormat),
			Valid:  true,
		}
	}

	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.RunID,
		log.Configuration,
		log.TimeID,
		log.Order,
		log.Kind,
		log.Status,
		log.StartedAt.UTC().Format(timeFormat),
		completedAt,
		log.DurationMs,
		log.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting execution log: %w", err)
	}

	return nil
}

// Get retrieves an execution log by ID.
func (s *Store) Get(ctx context.Context, id string) (*ExecutionLog, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)

	log, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return log, nil
}

// List retrieves execution logs matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*ExecutionLog, error) {
	query := selectColumns + " WHERE 1=1"
	args := []any{}

	if f.Configuration != "" {
		query += " AND configuration = ?"
		args = append(args, f.Configuration)
	}
	if f.TimeID != nil {
		query += " AND time_id = ?"
		args = append(args, *f.TimeID)
	}
	if f.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if !f.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, f.Since.UTC().Format(timeFormat))
	}

	query += " ORDER BY started_at DESC, action_order DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying execution logs: %w", err)
	}
	defer rows.Close()

	var logs []*ExecutionLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating execution logs: %w", err)
	}

	return logs, nil
}

// DeleteOlderThan deletes logs that started more than age ago and returns
// how many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(timeFormat)

	result, err := s.db.ExecContext(ctx, `DELETE FROM action_executions WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old execution logs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner) (*ExecutionLog, error) {
	var log ExecutionLog
	var startedAtStr string
	var completedAt sql.NullString

	if err := row.Scan(
		&log.ID,
		&log.RunID,
		&log.Configuration,
		&log.TimeID,
		&log.Order,
		&log.Kind,
		&log.Status,
		&startedAtStr,
		&completedAt,
		&log.DurationMs,
		&log.Error,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning execution log: %w", err)
	}

	startedAt, err := time.Parse(timeFormat, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	log.StartedAt = startedAt

	if completedAt.Valid {
		t, err := time.Parse(timeFormat, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		log.CompletedAt = &t
	}

	return &log, nil
}
