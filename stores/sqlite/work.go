// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mdhender/texdigest/model"
)

// workColumns is the column list every work query returns, in the order
// scanWork reads them.
const workColumns = `id, source_id, stage, status, attempt, available_at,
	locked_by, locked_at, started_at, finished_at, error_code, error_message`

// InsertWork queues a job and returns its ID.
func (s *SQLiteStore) InsertWork(ctx context.Context, work *model.Work) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO work (source_id, stage, status, attempt, available_at) VALUES (?, ?, ?, ?, ?)`,
		work.SourceID, work.Stage, work.Status, work.Attempt, formatTime(work.AvailableAt))
	if err != nil {
		return 0, fmt.Errorf("insert work: source %d: %w", work.SourceID, err)
	}
	return result.LastInsertId()
}

// ClaimWork moves the oldest available queued job of a stage to running
// and returns it. Select and update happen in one statement, so two
// workers never claim the same job. It returns nil when the queue is empty.
func (s *SQLiteStore) ClaimWork(ctx context.Context, stage, workerID string) (*model.Work, error) {
	now := formatTime(time.Now())
	row := s.db.QueryRowContext(ctx, `
		UPDATE work
		SET status     = 'running',
		    attempt    = attempt + 1,
		    locked_by  = ?1,
		    locked_at  = ?2,
		    started_at = COALESCE(started_at, ?2)
		WHERE id = (SELECT id
		            FROM work
		            WHERE stage = ?3 AND status = 'queued' AND available_at <= ?2
		            ORDER BY available_at, id
		            LIMIT 1)
		RETURNING `+workColumns, workerID, now, stage)
	work, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("claim %s work: %w", stage, err)
	}
	return work, nil
}

// FinishWork records the outcome of a running job and releases its lock.
// The error columns are cleared when errorCode and errorMsg are empty.
func (s *SQLiteStore) FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE work
		SET status = ?, finished_at = ?, error_code = ?, error_message = ?,
		    locked_by = NULL, locked_at = NULL
		WHERE id = ?`,
		status, formatTime(time.Now()), nullString(errorCode), nullString(errorMsg), id)
	if err != nil {
		return fmt.Errorf("finish work %d: %w", id, err)
	}
	return nil
}

// ResetFailedWork puts the failed jobs of a stage back on the queue,
// available now, and returns how many were reset. The attempt counter
// is kept.
func (s *SQLiteStore) ResetFailedWork(ctx context.Context, stage string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE work
		SET status = 'queued', available_at = ?,
		    locked_by = NULL, locked_at = NULL, finished_at = NULL,
		    error_code = NULL, error_message = NULL
		WHERE stage = ? AND status = 'failed'`,
		formatTime(time.Now()), stage)
	if err != nil {
		return 0, fmt.Errorf("reset %s work: %w", stage, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset %s work: %w", stage, err)
	}
	return int(n), nil
}

// GetFailedWork returns the failed jobs of a stage in the order they were queued.
func (s *SQLiteStore) GetFailedWork(ctx context.Context, stage string) ([]model.Work, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workColumns+` FROM work WHERE stage = ? AND status = 'failed' ORDER BY id`, stage)
	if err != nil {
		return nil, fmt.Errorf("get failed %s work: %w", stage, err)
	}
	defer rows.Close()

	var list []model.Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("get failed %s work: %w", stage, err)
		}
		list = append(list, *work)
	}
	return list, rows.Err()
}

// GetWorkSummary counts jobs by stage, then by status.
func (s *SQLiteStore) GetWorkSummary(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, status, COUNT(*) FROM work GROUP BY stage, status`)
	if err != nil {
		return nil, fmt.Errorf("work summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]map[string]int)
	for rows.Next() {
		var stage, status string
		var n int
		if err := rows.Scan(&stage, &status, &n); err != nil {
			return nil, fmt.Errorf("work summary: %w", err)
		}
		if summary[stage] == nil {
			summary[stage] = make(map[string]int)
		}
		summary[stage][status] = n
	}
	return summary, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWork(row rowScanner) (*model.Work, error) {
	var w model.Work
	var availableAt string
	var lockedBy, lockedAt, startedAt, finishedAt, errorCode, errorMessage sql.NullString
	err := row.Scan(&w.ID, &w.SourceID, &w.Stage, &w.Status, &w.Attempt, &availableAt,
		&lockedBy, &lockedAt, &startedAt, &finishedAt, &errorCode, &errorMessage)
	if err != nil {
		return nil, err
	}
	w.AvailableAt = parseTime(availableAt)
	w.LockedAt = optionalTime(lockedAt)
	w.StartedAt = optionalTime(startedAt)
	w.FinishedAt = optionalTime(finishedAt)
	w.LockedBy = optionalString(lockedBy)
	w.ErrorCode = optionalString(errorCode)
	w.ErrorMessage = optionalString(errorMessage)
	return &w, nil
}

// Timestamps are stored as RFC 3339 text in UTC so that they sort.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func optionalTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func optionalString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
