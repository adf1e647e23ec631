package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotProvisioned         = errors.New("no academic session has been configured yet")
	ErrMissingSubject         = errors.New("subject must be selected")
	ErrMissingSession         = errors.New("session must be selected")
	ErrMissingTerm            = errors.New("term must be selected")
	ErrMigrationRequired      = errors.New("current term is Third; migrate to the next session instead")
	ErrConfirmationRequired   = errors.New("session migration must be confirmed")
	ErrInvalidMigrationTarget = errors.New("target label is not the successor of the current session")
	ErrMigrationUnconfirmed   = errors.New("session migration was not reflected by the school API")
	ErrTermAdvanceUnconfirmed = errors.New("term advance was not reflected by the school API")
	ErrBatchFailed            = errors.New("batch upload failed: no result was saved")
	ErrNothingToSubmit        = errors.New("no scores entered")
	ErrUnknownStudent         = errors.New("student is not on the roster")
	ErrInvalidFileFormat      = errors.New("invalid file format")
	ErrSchemaValidation       = errors.New("schema validation failed")
	ErrAuthenticationFailed   = errors.New("authentication failed")
)

// Is and As are re-exported so callers need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// RemoteError is a rejection returned by the school API. Message is the
// server's own text and is shown to users unchanged.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e RemoteError) Error() string {
	return e.Message
}

func NewRemoteError(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("school API returned status %d", status)
	}
	return RemoteError{StatusCode: status, Message: message}
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

// UserMessage returns the text to show for err: the server's message for
// remote rejections, a generic fallback for transport failures.
func UserMessage(err error) string {
	var remote RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return "request to school API failed"
	}
	return err.Error()
}
