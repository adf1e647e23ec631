package batch

import (
	"fmt"

	"school-admin-core/internal/model"
	"school-admin-core/internal/scoring"
	"school-admin-core/pkg/errors"
)

// Entry is one roster row and the scores typed against it.
type Entry struct {
	Student model.Student `json:"student"`
	Scores  model.Scores  `json:"scores"`
}

// Job is an in-memory score grid for a single subject, term and session.
// It is never persisted and is owned by one caller at a time.
type Job struct {
	target     model.ResultTarget
	entries    []Entry
	byUIN      map[string]int
	duplicates []string
}

// NewJob starts every student at all-zero scores. A UIN seen twice keeps
// its first row; later rows are left out and reported by Duplicates.
func NewJob(target model.ResultTarget, students []model.Student) *Job {
	j := &Job{
		target:  target,
		entries: make([]Entry, 0, len(students)),
		byUIN:   make(map[string]int, len(students)),
	}
	for _, s := range students {
		if _, dup := j.byUIN[s.UIN]; dup {
			j.duplicates = append(j.duplicates, s.UIN)
			continue
		}
		j.byUIN[s.UIN] = len(j.entries)
		j.entries = append(j.entries, Entry{Student: s})
	}
	return j
}

// JobFromRows builds a job whose scores are already filled in, as from an
// uploaded score sheet.
func JobFromRows(target model.ResultTarget, rows []model.SheetRow) *Job {
	students := make([]model.Student, len(rows))
	for i, r := range rows {
		students[i] = model.Student{ID: r.StudentID, UIN: r.UIN}
	}
	j := NewJob(target, students)
	for _, r := range rows {
		if i, ok := j.byUIN[r.UIN]; ok && j.entries[i].Scores.IsZero() {
			j.entries[i].Scores = scoring.Clamp(r.Scores)
		}
	}
	return j
}

// Duplicates lists the UINs whose repeated rows were left out of the grid.
func (j *Job) Duplicates() []string {
	return append([]string(nil), j.duplicates...)
}

func (j *Job) Target() model.ResultTarget {
	return j.target
}

func (j *Job) Len() int {
	return len(j.entries)
}

// Entries returns a copy of the grid in roster order.
func (j *Job) Entries() []Entry {
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// SetScores replaces a student's scores, clamping each component.
func (j *Job) SetScores(uin string, scores model.Scores) error {
	i, ok := j.byUIN[uin]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownStudent, uin)
	}
	j.entries[i].Scores = scoring.Clamp(scores)
	return nil
}

func (j *Job) SetScoresAt(index int, scores model.Scores) error {
	if index < 0 || index >= len(j.entries) {
		return fmt.Errorf("%w: row %d", errors.ErrUnknownStudent, index)
	}
	j.entries[index].Scores = scoring.Clamp(scores)
	return nil
}

// pending drops rows whose four scores are all zero: such a row is treated
// as never filled in.
func (j *Job) pending() ([]Entry, int) {
	out := make([]Entry, 0, len(j.entries))
	for _, e := range j.entries {
		if e.Scores.IsZero() {
			continue
		}
		out = append(out, e)
	}
	return out, len(j.entries) - len(out)
}
