// Package progression owns the school's current academic session and term.
//
// A Manager is built once at start-up and handed to whatever needs session
// context. Its cached session is always the last value confirmed by the
// school API: every mutation is followed by a re-read, and a failed call
// leaves the cache untouched.
package progression

import (
	"context"
	"fmt"
	"sync"
	"time"

	"school-admin-core/internal/model"
	"school-admin-core/internal/observability"
	"school-admin-core/internal/schoolapi"
	"school-admin-core/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionAPI is the subset of the school API the manager drives.
type SessionAPI interface {
	GetCurrentSession(ctx context.Context) (*schoolapi.Session, error)
	UpdateSession(ctx context.Context, req schoolapi.SessionUpdateRequest) error
	UpdateSessionDates(ctx context.Context, req schoolapi.SessionDatesRequest) (string, error)
	NextSession(ctx context.Context) error
	NextTerm(ctx context.Context) error
}

// Journal records confirmed progression changes for audit.
type Journal interface {
	RecordProgression(ctx context.Context, event model.ProgressionEvent) error
}

type Manager struct {
	api     SessionAPI
	journal Journal
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current *model.AcademicSession
}

// NewManager wires the manager. journal may be nil.
func NewManager(api SessionAPI, journal Journal, log zerolog.Logger) *Manager {
	return &Manager{
		api:     api,
		journal: journal,
		log:     log.With().Str("component", "progression").Logger(),
		now:     time.Now,
	}
}

// Current returns the cached session, fetching it on first use.
// errors.ErrNotProvisioned means no session has ever been configured.
func (m *Manager) Current(ctx context.Context) (model.AcademicSession, error) {
	if cached, ok := m.Cached(); ok {
		return cached, nil
	}
	return m.Refresh(ctx)
}

// Cached returns the last confirmed session without calling the API.
func (m *Manager) Cached() (model.AcademicSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return model.AcademicSession{}, false
	}
	return *m.current, true
}

// Refresh re-reads the current session and replaces the cache on success.
func (m *Manager) Refresh(ctx context.Context) (model.AcademicSession, error) {
	payload, err := m.api.GetCurrentSession(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotProvisioned) {
			m.log.Warn().Msg("No academic session configured; an administrator must create one")
		}
		return model.AcademicSession{}, err
	}

	session := m.decode(payload)

	m.mu.Lock()
	m.current = &session
	m.mu.Unlock()

	return session, nil
}

func (m *Manager) decode(p *schoolapi.Session) model.AcademicSession {
	term, ok := model.TermFromOrdinal(p.CurrentTerm)
	if !ok {
		// Unknown ordinals are shown as First. Keep this loud: it hides drift
		// between this client and the API's term encoding.
		observability.TermOrdinalFallbacks().Inc()
		m.log.Warn().
			Str("marker", "term_ordinal_fallback").
			Int("ordinal", p.CurrentTerm).
			Int64("session_id", p.ID).
			Str("session", p.CurrentSession).
			Msg("Term ordinal outside 1..3, treating as First")
	}

	session := model.AcademicSession{
		ID:         p.ID,
		Label:      p.CurrentSession,
		Term:       term,
		Active:     p.IsActive == nil || *p.IsActive,
		SchoolName: p.SchoolName,
	}
	if p.SchoolLogoFilePath != nil {
		session.SchoolLogoPath = *p.SchoolLogoFilePath
	}

	var err error
	if session.TermEndsOn, err = schoolapi.ParseDate(p.CurrentTermEndsOn); err != nil {
		m.log.Warn().Err(err).Msg("Ignoring unreadable term end date")
	}
	if session.NextTermBeginsOn, err = schoolapi.ParseDate(p.NextTermBeginsOn); err != nil {
		m.log.Warn().Err(err).Msg("Ignoring unreadable next term start date")
	}

	return session
}

// AdvanceTerm moves First to Second or Second to Third on the current
// session. From Third it fails with errors.ErrMigrationRequired.
func (m *Manager) AdvanceTerm(ctx context.Context) (model.AcademicSession, error) {
	before, err := m.Refresh(ctx)
	if err != nil {
		return model.AcademicSession{}, err
	}

	want, ok := before.Term.Next()
	if !ok {
		return model.AcademicSession{}, errors.ErrMigrationRequired
	}

	log := m.log.With().Str("session", before.Label).Str("from", string(before.Term)).Str("to", string(want)).Logger()
	log.Info().Msg("Advancing term")

	if err := m.api.NextTerm(ctx); err != nil {
		log.Error().Err(err).Msg("Term advance rejected")
		return model.AcademicSession{}, fmt.Errorf("advance term: %w", err)
	}

	after, err := m.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not confirm term advance")
		return model.AcademicSession{}, fmt.Errorf("confirm term advance: %w", err)
	}

	if after.Term != want || after.Label != before.Label {
		log.Error().
			Str("confirmed_session", after.Label).
			Str("confirmed_term", string(after.Term)).
			Msg("Term advance not reflected by school API")
		return after, fmt.Errorf("%w: now %s %s", errors.ErrTermAdvanceUnconfirmed, after.Label, after.Term)
	}

	m.record(ctx, model.ProgressionTermAdvanced, before, after)
	return after, nil
}

// MigrateToNextSession starts the session after the current one with term
// First. It cannot be undone, so the request must be confirmed and must name
// the target label. A call whose target is already current does nothing, so
// retries are safe.
func (m *Manager) MigrateToNextSession(ctx context.Context, req model.MigrationRequest) (model.AcademicSession, error) {
	if !req.Confirmed {
		return model.AcademicSession{}, errors.ErrConfirmationRequired
	}
	if req.TargetLabel == "" {
		return model.AcademicSession{}, errors.ValidationError{Field: "target_label", Value: "", Message: "is required"}
	}

	before, err := m.Refresh(ctx)
	if err != nil {
		return model.AcademicSession{}, err
	}

	target := req.TargetLabel
	if target == before.Label {
		m.log.Info().Str("session", target).Msg("Session already migrated, nothing to do")
		return before, nil
	}

	expected, err := model.NextSessionLabel(before.Label)
	if err != nil {
		return model.AcademicSession{}, errors.ValidationError{Field: "current_session", Value: before.Label, Message: err.Error()}
	}
	if _, _, err := model.ParseSessionLabel(target); err != nil {
		return model.AcademicSession{}, errors.ValidationError{Field: "target_label", Value: target, Message: err.Error()}
	}
	if target != expected {
		return model.AcademicSession{}, fmt.Errorf("%w: current %s, expected %s, got %s",
			errors.ErrInvalidMigrationTarget, before.Label, expected, target)
	}

	log := m.log.With().Str("from", before.Label).Str("to", target).Logger()
	if before.Term != model.TermThird {
		log.Warn().Str("term", string(before.Term)).Msg("Migrating before the third term has been reached")
	}
	log.Info().Msg("Migrating to next session")

	if err := m.api.NextSession(ctx); err != nil {
		log.Error().Err(err).Msg("Session migration rejected")
		return model.AcademicSession{}, fmt.Errorf("migrate session: %w", err)
	}

	after, err := m.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not confirm session migration")
		return model.AcademicSession{}, fmt.Errorf("confirm session migration: %w", err)
	}

	if after.Label != target || after.Term != model.TermFirst {
		log.Error().
			Str("confirmed_session", after.Label).
			Str("confirmed_term", string(after.Term)).
			Msg("Session migration not reflected by school API")
		return after, fmt.Errorf("%w: now %s %s", errors.ErrMigrationUnconfirmed, after.Label, after.Term)
	}

	m.record(ctx, model.ProgressionSessionMigrated, before, after)
	return after, nil
}

// UpdateSessionIdentity corrects label, term or dates of a session. It is
// not a progression step and does not check term order.
func (m *Manager) UpdateSessionIdentity(ctx context.Context, sessionID int64, upd model.SessionUpdate) (model.AcademicSession, error) {
	if _, _, err := model.ParseSessionLabel(upd.Label); err != nil {
		return model.AcademicSession{}, errors.ValidationError{Field: "label", Value: upd.Label, Message: err.Error()}
	}
	if !upd.Term.Valid() {
		return model.AcademicSession{}, errors.ValidationError{Field: "term", Value: upd.Term, Message: "must be First, Second or Third"}
	}

	before, _ := m.Cached()

	err := m.api.UpdateSession(ctx, schoolapi.SessionUpdateRequest{
		ID:                sessionID,
		CurrentSession:    upd.Label,
		CurrentTerm:       upd.Term.Ordinal(),
		CurrentTermEndsOn: schoolapi.FormatDate(upd.TermEndsOn),
		NextTermBeginsOn:  schoolapi.FormatDate(upd.NextTermBeginsOn),
	})
	if err != nil {
		m.log.Error().Err(err).Int64("session_id", sessionID).Msg("Session update rejected")
		return model.AcademicSession{}, fmt.Errorf("update session: %w", err)
	}

	after, err := m.Refresh(ctx)
	if err != nil {
		return model.AcademicSession{}, fmt.Errorf("confirm session update: %w", err)
	}

	m.record(ctx, model.ProgressionSessionUpdated, before, after)
	return after, nil
}

// UpdateSessionDates sets either or both term dates. Omitted dates are left
// unchanged by the API.
func (m *Manager) UpdateSessionDates(ctx context.Context, sessionID int64, termEndsOn, nextTermBeginsOn *time.Time) (model.DatesUpdate, error) {
	if termEndsOn == nil && nextTermBeginsOn == nil {
		err := errors.ValidationError{Field: "dates", Value: nil, Message: "at least one date is required"}
		return model.DatesUpdate{Success: false, Message: err.Error()}, err
	}

	message, err := m.api.UpdateSessionDates(ctx, schoolapi.SessionDatesRequest{
		ID:                sessionID,
		CurrentTermEndsOn: schoolapi.FormatDate(termEndsOn),
		NextTermBeginsOn:  schoolapi.FormatDate(nextTermBeginsOn),
	})
	if err != nil {
		m.log.Error().Err(err).Int64("session_id", sessionID).Msg("Session dates update rejected")
		return model.DatesUpdate{Success: false, Message: errors.UserMessage(err)}, err
	}
	if message == "" {
		message = "Session dates updated"
	}

	if _, err := m.Refresh(ctx); err != nil {
		m.log.Warn().Err(err).Msg("Dates updated but session could not be re-read")
	}

	return model.DatesUpdate{Success: true, Message: message}, nil
}

func (m *Manager) record(ctx context.Context, kind model.ProgressionKind, before, after model.AcademicSession) {
	observability.ProgressionEvents().WithLabelValues(string(kind)).Inc()

	if m.journal == nil {
		return
	}

	event := model.ProgressionEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		SessionID: after.ID,
		FromLabel: before.Label,
		FromTerm:  before.Term,
		ToLabel:   after.Label,
		ToTerm:    after.Term,
		CreatedAt: m.now().UTC(),
	}
	if err := m.journal.RecordProgression(ctx, event); err != nil {
		m.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to journal progression event")
	}
}
