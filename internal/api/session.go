package api

import (
	"net/http"
	"strconv"
	"time"

	"school-admin-core/internal/model"
	"school-admin-core/internal/schoolapi"
	"school-admin-core/pkg/errors"

	"github.com/gin-gonic/gin"
)

type migrateRequest struct {
	Confirm     bool   `json:"confirm"`
	TargetLabel string `json:"target_label"`
}

type sessionUpdateRequest struct {
	Label            string  `json:"label"`
	Term             string  `json:"term"`
	TermEndsOn       *string `json:"term_ends_on"`
	NextTermBeginsOn *string `json:"next_term_begins_on"`
}

type datesRequest struct {
	TermEndsOn       *string `json:"term_ends_on"`
	NextTermBeginsOn *string `json:"next_term_begins_on"`
}

func (h *Handler) GetCurrentSession(c *gin.Context) {
	session, err := h.sessions.Current(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) AdvanceTerm(c *gin.Context) {
	session, err := h.sessions.AdvanceTerm(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Info().Str("session", session.Label).Str("term", string(session.Term)).Msg("Term advanced")
	c.JSON(http.StatusOK, session)
}

func (h *Handler) MigrateSession(c *gin.Context) {
	var req migrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.sessions.MigrateToNextSession(c.Request.Context(), model.MigrationRequest{
		Confirmed:   req.Confirm,
		TargetLabel: req.TargetLabel,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Info().Str("session", session.Label).Msg("Session migrated")
	c.JSON(http.StatusOK, session)
}

func (h *Handler) UpdateSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req sessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	upd := model.SessionUpdate{Label: req.Label}
	if req.Term != "" {
		term, err := model.ParseTerm(req.Term)
		if err != nil {
			h.writeError(c, errors.ValidationError{Field: "term", Value: req.Term, Message: "must be First, Second or Third"})
			return
		}
		upd.Term = term
	}

	var err error
	if upd.TermEndsOn, err = parseDateField("term_ends_on", req.TermEndsOn); err != nil {
		h.writeError(c, err)
		return
	}
	if upd.NextTermBeginsOn, err = parseDateField("next_term_begins_on", req.NextTermBeginsOn); err != nil {
		h.writeError(c, err)
		return
	}

	session, err := h.sessions.UpdateSessionIdentity(c.Request.Context(), id, upd)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) UpdateSessionDates(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req datesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	termEndsOn, err := parseDateField("term_ends_on", req.TermEndsOn)
	if err != nil {
		h.writeError(c, err)
		return
	}
	nextTermBeginsOn, err := parseDateField("next_term_begins_on", req.NextTermBeginsOn)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.sessions.UpdateSessionDates(c.Request.Context(), id, termEndsOn, nextTermBeginsOn)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListSessionEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.runs.ListProgression(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if events == nil {
		events = []model.ProgressionEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return 0, false
	}
	return id, true
}

func parseDateField(field string, value *string) (*time.Time, error) {
	t, err := schoolapi.ParseDate(value)
	if err != nil {
		return nil, errors.ValidationError{Field: field, Value: *value, Message: "must be a YYYY-MM-DD date"}
	}
	return t, nil
}
