package store

import "errors"

// Postgres SQLSTATE codes surfaced by both store implementations.
const (
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeUnavailable         = "unavailable"
	CodeInvalidQuery        = "invalid_query"
	CodeNoRows              = "no_rows"
)

// Error is the structured error every Remote implementation returns.
// Message is human readable and is shown to the user as is.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Message extracts the user-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Message != "" {
			return se.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// IsCode reports whether err is a store Error with the given code.
func IsCode(err error, code string) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}
