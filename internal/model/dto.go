package model

import "time"

type BatchRunStatus string

const (
	BatchRunQueued    BatchRunStatus = "QUEUED"
	BatchRunRunning   BatchRunStatus = "RUNNING"
	BatchRunCompleted BatchRunStatus = "COMPLETED"
	BatchRunPartial   BatchRunStatus = "PARTIAL"
	BatchRunFailed    BatchRunStatus = "FAILED"
)

type BatchRunSource string

const (
	BatchSourceInline BatchRunSource = "INLINE"
	BatchSourceSheet  BatchRunSource = "SHEET"
)

// BatchRun is the persisted outcome of one batch submission.
type BatchRun struct {
	ID          string         `json:"id" db:"id"`
	SubjectCode string         `json:"subject_code" db:"subject_code"`
	Term        Term           `json:"term" db:"term"`
	Session     string         `json:"session" db:"session"`
	Source      BatchRunSource `json:"source" db:"source"`
	Status      BatchRunStatus `json:"status" db:"status"`
	Attempted   int            `json:"attempted" db:"attempted"`
	Succeeded   int            `json:"succeeded" db:"succeeded"`
	Failed      int            `json:"failed" db:"failed"`
	Skipped     int            `json:"skipped" db:"skipped"`
	Message     string         `json:"message" db:"message"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

type ProgressionKind string

const (
	ProgressionTermAdvanced    ProgressionKind = "TERM_ADVANCED"
	ProgressionSessionMigrated ProgressionKind = "SESSION_MIGRATED"
	ProgressionSessionUpdated  ProgressionKind = "SESSION_UPDATED"
)

// ProgressionEvent is an audit entry for a confirmed session/term change.
type ProgressionEvent struct {
	ID        string          `json:"id" db:"id"`
	Kind      ProgressionKind `json:"kind" db:"kind"`
	SessionID int64           `json:"session_id" db:"session_id"`
	FromLabel string          `json:"from_label" db:"from_label"`
	FromTerm  Term            `json:"from_term" db:"from_term"`
	ToLabel   string          `json:"to_label" db:"to_label"`
	ToTerm    Term            `json:"to_term" db:"to_term"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// SheetJob is queued when a score sheet has been uploaded to storage.
type SheetJob struct {
	RunID       string `json:"run_id"`
	S3Path      string `json:"s3_path"`
	SubjectCode string `json:"subject_code"`
	Term        Term   `json:"term"`
	Session     string `json:"session"`
}

type AuthTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
