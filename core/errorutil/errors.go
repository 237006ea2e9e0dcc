package errorutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// ValidationError marks request payloads which cannot be accepted.
// It is always detected before any write happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidation returns a ValidationError with the provided message.
func NewValidation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// UpstreamError carries a message returned by an external provider API.
type UpstreamError struct {
	Provider string
	Msg      string
	Code     int
}

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", e.Provider, e.Msg, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
}

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation. The string fallback covers errors which lost their type on
// the way through gorm.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "duplicate key value")
}
