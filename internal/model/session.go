package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

type Term string

const (
	TermFirst  Term = "First"
	TermSecond Term = "Second"
	TermThird  Term = "Third"
)

// TermFromOrdinal decodes the school API's numeric term. Ordinals outside
// 1..3 decode to TermFirst with ok=false; callers must log the fallback.
func TermFromOrdinal(n int) (Term, bool) {
	switch n {
	case 1:
		return TermFirst, true
	case 2:
		return TermSecond, true
	case 3:
		return TermThird, true
	default:
		return TermFirst, false
	}
}

// Ordinal returns 1, 2 or 3, or 0 for an invalid term.
func (t Term) Ordinal() int {
	switch t {
	case TermFirst:
		return 1
	case TermSecond:
		return 2
	case TermThird:
		return 3
	default:
		return 0
	}
}

func (t Term) Valid() bool {
	return t.Ordinal() != 0
}

// Next returns the following term within the same session. It reports false
// for TermThird: progressing from there is a session migration.
func (t Term) Next() (Term, bool) {
	switch t {
	case TermFirst:
		return TermSecond, true
	case TermSecond:
		return TermThird, true
	default:
		return "", false
	}
}

func ParseTerm(s string) (Term, error) {
	switch Term(s) {
	case TermFirst, TermSecond, TermThird:
		return Term(s), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if t, ok := TermFromOrdinal(n); ok {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown term %q", s)
}

type AcademicSession struct {
	ID               int64      `json:"id"`
	Label            string     `json:"label"`
	Term             Term       `json:"term"`
	TermEndsOn       *time.Time `json:"term_ends_on,omitempty"`
	NextTermBeginsOn *time.Time `json:"next_term_begins_on,omitempty"`
	Active           bool       `json:"active"`
	SchoolName       string     `json:"school_name,omitempty"`
	SchoolLogoPath   string     `json:"school_logo_path,omitempty"`
}

// SessionUpdate is a correction of label, term or dates on an existing session.
type SessionUpdate struct {
	Label            string
	Term             Term
	TermEndsOn       *time.Time
	NextTermBeginsOn *time.Time
}

type MigrationRequest struct {
	Confirmed   bool
	TargetLabel string
}

type DatesUpdate struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var sessionLabelRegex = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

// ParseSessionLabel returns the start and end years of a YYYY/YYYY label.
// The end year must follow the start year.
func ParseSessionLabel(label string) (int, int, error) {
	m := sessionLabelRegex.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, fmt.Errorf("session label %q is not in YYYY/YYYY format", label)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return 0, 0, fmt.Errorf("session label %q must span consecutive years", label)
	}
	return start, end, nil
}

// NextSessionLabel returns the label of the session after label, e.g.
// 2024/2025 -> 2025/2026.
func NextSessionLabel(label string) (string, error) {
	_, end, err := ParseSessionLabel(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%d", end, end+1), nil
}
