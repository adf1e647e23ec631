package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"school-admin-core/internal/model"
)

var ErrBatchRunNotFound = errors.New("batch run not found")

type Repository interface {
	RecordProgression(ctx context.Context, event model.ProgressionEvent) error
	ListProgression(ctx context.Context, limit int) ([]model.ProgressionEvent, error)
	CreateBatchRun(ctx context.Context, run model.BatchRun) error
	UpdateBatchRunStatus(ctx context.Context, id string, status model.BatchRunStatus, message string) error
	CompleteBatchRun(ctx context.Context, run model.BatchRun) error
	GetBatchRun(ctx context.Context, id string) (*model.BatchRun, error)
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) RecordProgression(ctx context.Context, event model.ProgressionEvent) error {
	query := `INSERT INTO progression_events (id, kind, session_id, from_label, from_term, to_label, to_term, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, event.ID, event.Kind, event.SessionID,
		event.FromLabel, event.FromTerm, event.ToLabel, event.ToTerm, event.CreatedAt)
	return err
}

func (r *repository) ListProgression(ctx context.Context, limit int) ([]model.ProgressionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, kind, session_id, from_label, from_term, to_label, to_term, created_at
			  FROM progression_events ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ProgressionEvent
	for rows.Next() {
		var e model.ProgressionEvent
		err := rows.Scan(&e.ID, &e.Kind, &e.SessionID, &e.FromLabel, &e.FromTerm,
			&e.ToLabel, &e.ToTerm, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (r *repository) CreateBatchRun(ctx context.Context, run model.BatchRun) error {
	now := r.now().UTC()
	query := `INSERT INTO batch_runs (id, subject_code, term, session, source, status, message, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.SubjectCode, run.Term, run.Session,
		run.Source, run.Status, run.Message, now, now)
	return err
}

func (r *repository) UpdateBatchRunStatus(ctx context.Context, id string, status model.BatchRunStatus, message string) error {
	query := `UPDATE batch_runs SET status = ?, message = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, query, status, message, r.now().UTC(), id)
}

func (r *repository) CompleteBatchRun(ctx context.Context, run model.BatchRun) error {
	query := `UPDATE batch_runs
			  SET status = ?, attempted = ?, succeeded = ?, failed = ?, skipped = ?, message = ?, updated_at = ?
			  WHERE id = ?`
	return r.execOne(ctx, query, run.Status, run.Attempted, run.Succeeded, run.Failed,
		run.Skipped, run.Message, r.now().UTC(), run.ID)
}

func (r *repository) GetBatchRun(ctx context.Context, id string) (*model.BatchRun, error) {
	query := `SELECT id, subject_code, term, session, source, status, attempted, succeeded, failed, skipped,
			  message, created_at, updated_at FROM batch_runs WHERE id = ?`

	var run model.BatchRun
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.SubjectCode, &run.Term, &run.Session, &run.Source, &run.Status,
		&run.Attempted, &run.Succeeded, &run.Failed, &run.Skipped,
		&run.Message, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchRunNotFound
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *repository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBatchRunNotFound
	}
	return nil
}
