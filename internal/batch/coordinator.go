// Package batch submits a grid of student scores one result at a time,
// counting successes and failures without letting one failure stop the rest.
package batch

import (
	"context"
	"fmt"
	"sync"

	"school-admin-core/internal/model"
	"school-admin-core/internal/observability"
	"school-admin-core/pkg/errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type RosterSource interface {
	StudentsByClass(ctx context.Context, className string) ([]model.Student, error)
	StudentsBySubject(ctx context.Context, subjectID string) ([]model.Student, error)
}

type Submitter interface {
	Submit(ctx context.Context, sub model.ResultSubmission) (model.ResultRecord, error)
}

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ProgressFunc is called after every attempt. Calls are serialised and
// Current strictly increases.
type ProgressFunc func(Progress)

type Summary struct {
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
}

func (s Summary) Status() model.BatchRunStatus {
	switch {
	case s.Succeeded == 0:
		return model.BatchRunFailed
	case s.Failed > 0:
		return model.BatchRunPartial
	default:
		return model.BatchRunCompleted
	}
}

// tally is the fold accumulator over per-item outcomes.
type tally struct {
	attempted int
	succeeded int
	failed    int
}

func (t tally) add(err error) tally {
	t.attempted++
	if err != nil {
		t.failed++
	} else {
		t.succeeded++
	}
	return t
}

type Coordinator struct {
	roster      RosterSource
	submitter   Submitter
	concurrency int
	log         zerolog.Logger
}

// NewCoordinator builds a coordinator. concurrency 1 dispatches strictly in
// roster order, one request at a time.
func NewCoordinator(roster RosterSource, submitter Submitter, concurrency int, log zerolog.Logger) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		roster:      roster,
		submitter:   submitter,
		concurrency: concurrency,
		log:         log.With().Str("component", "batch").Logger(),
	}
}

func (c *Coordinator) LoadByClass(ctx context.Context, className string, target model.ResultTarget) (*Job, error) {
	if className == "" {
		return nil, errors.ValidationError{Field: "class_name", Value: className, Message: "is required"}
	}
	students, err := c.roster.StudentsByClass(ctx, className)
	if err != nil {
		return nil, fmt.Errorf("load roster for class %s: %w", className, err)
	}
	return c.newJob(target, students, "class", className), nil
}

func (c *Coordinator) LoadBySubject(ctx context.Context, subjectID string, target model.ResultTarget) (*Job, error) {
	if subjectID == "" {
		return nil, errors.ValidationError{Field: "subject_id", Value: subjectID, Message: "is required"}
	}
	students, err := c.roster.StudentsBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load roster for subject %s: %w", subjectID, err)
	}
	return c.newJob(target, students, "subject", subjectID), nil
}

func (c *Coordinator) newJob(target model.ResultTarget, students []model.Student, kind, key string) *Job {
	job := NewJob(target, students)
	if dups := job.Duplicates(); len(dups) > 0 {
		c.log.Warn().Str("roster", kind).Str("key", key).Strs("uins", dups).Msg("Roster lists a student more than once, keeping the first row")
	}
	return job
}

// Submit sends every filled-in row of job. Each attempt counts toward
// progress whatever its outcome. If ctx ends, rows not yet started are left
// unattempted and ctx.Err() is returned with the partial summary.
func (c *Coordinator) Submit(ctx context.Context, job *Job, onProgress ProgressFunc) (Summary, error) {
	target := job.Target()
	if err := validateTarget(target); err != nil {
		return Summary{}, err
	}

	entries, skipped := job.pending()
	total := len(entries)

	log := c.log.With().
		Str("subject", target.SubjectCode).
		Str("term", string(target.Term)).
		Str("session", target.Session).
		Logger()

	if total == 0 {
		log.Info().Int("skipped", skipped).Msg("Nothing to upload")
		return Summary{Skipped: skipped, Message: "No scores entered"}, errors.ErrNothingToSubmit
	}

	log.Info().Int("total", total).Int("skipped", skipped).Int("concurrency", c.concurrency).Msg("Starting batch upload")

	var (
		mu  sync.Mutex
		acc tally
	)
	record := func(entry Entry, err error) {
		mu.Lock()
		defer mu.Unlock()
		acc = acc.add(err)
		if err != nil {
			log.Warn().
				Str("student_uin", entry.Student.UIN).
				Str("reason", errors.UserMessage(err)).
				Msg("Result upload failed")
		}
		if onProgress != nil {
			onProgress(Progress{Current: acc.attempted, Total: total})
		}
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		entry := entry
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := c.submitter.Submit(ctx, model.ResultSubmission{
				StudentID:   entry.Student.ID,
				StudentUIN:  entry.Student.UIN,
				SubjectCode: target.SubjectCode,
				Term:        target.Term,
				Session:     target.Session,
				Scores:      entry.Scores,
			})
			record(entry, err)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Attempted: acc.attempted,
		Succeeded: acc.succeeded,
		Failed:    acc.failed,
		Skipped:   skipped,
	}
	summary.Message = message(summary)

	log.Info().
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg(summary.Message)

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	observability.BatchRuns().WithLabelValues(string(summary.Status())).Inc()

	if summary.Succeeded == 0 {
		return summary, fmt.Errorf("%w (%d failed)", errors.ErrBatchFailed, summary.Failed)
	}
	return summary, nil
}

func message(s Summary) string {
	if s.Succeeded == 0 {
		return fmt.Sprintf("Upload failed: %d succeeded, %d failed", s.Succeeded, s.Failed)
	}
	return fmt.Sprintf("Upload complete: %d succeeded, %d failed", s.Succeeded, s.Failed)
}

func validateTarget(t model.ResultTarget) error {
	switch {
	case t.SubjectCode == "":
		return errors.ErrMissingSubject
	case t.Session == "":
		return errors.ErrMissingSession
	case t.Term == "":
		return errors.ErrMissingTerm
	case !t.Term.Valid():
		return errors.ValidationError{Field: "term", Value: t.Term, Message: "must be First, Second or Third"}
	}
	return nil
}
