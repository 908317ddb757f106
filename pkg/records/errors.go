package records

import (
	"errors"
	"fmt"
)

// MalformedDocumentError is returned when a document does not have the
// required top-level structure of its format, or a mandatory field of a
// recognized element is missing or not numeric. No model is produced.
type MalformedDocumentError struct {
	Format   Format
	Location string
	Message  string
	Err      error
}

// Malformed builds a MalformedDocumentError.
func Malformed(format Format, location, msg string, args ...any) *MalformedDocumentError {
	return &MalformedDocumentError{Format: format, Location: location, Message: fmt.Sprintf(msg, args...)}
}

func (e *MalformedDocumentError) Error() string {
	s := fmt.Sprintf("malformed %s document", e.Format)
	if e.Location != "" {
		s += " at " + e.Location
	}
	s += ": " + e.Message
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// Wrap attaches a cause.
func (e *MalformedDocumentError) Wrap(err error) *MalformedDocumentError {
	e.Err = err
	return e
}

// IsMalformed reports whether err is or wraps a MalformedDocumentError.
func IsMalformed(err error) bool {
	var m *MalformedDocumentError
	return errors.As(err, &m)
}
