package api

import (
	"net/http"

	"school-admin-core/internal/db"
	"school-admin-core/pkg/errors"

	"github.com/gin-gonic/gin"
)

const setupInstruction = "Create the first academic session in the school system, then retry."

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	var (
		verr   errors.ValidationError
		remote errors.RemoteError
		retry  errors.RetryableError
	)
	switch {
	case errors.Is(err, errors.ErrNotProvisioned),
		errors.Is(err, errors.ErrMigrationRequired):
		return http.StatusConflict
	case errors.As(err, &verr),
		errors.Is(err, errors.ErrMissingSubject),
		errors.Is(err, errors.ErrMissingSession),
		errors.Is(err, errors.ErrMissingTerm),
		errors.Is(err, errors.ErrConfirmationRequired),
		errors.Is(err, errors.ErrInvalidMigrationTarget),
		errors.Is(err, errors.ErrUnknownStudent),
		errors.Is(err, errors.ErrNothingToSubmit),
		errors.Is(err, errors.ErrInvalidFileFormat),
		errors.Is(err, errors.ErrSchemaValidation):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrBatchRunNotFound):
		return http.StatusNotFound
	case errors.As(err, &retry):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		if remote.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, errors.ErrMigrationUnconfirmed),
		errors.Is(err, errors.ErrTermAdvanceUnconfirmed),
		errors.Is(err, errors.ErrBatchFailed),
		errors.Is(err, errors.ErrAuthenticationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": errors.UserMessage(err)}
	if errors.Is(err, errors.ErrNotProvisioned) {
		body["action"] = setupInstruction
	}
	c.JSON(status, body)
}
