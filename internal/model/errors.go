package model

import (
	"errors"
	"fmt"
)

// Validation failure reasons.
const (
	ReasonMissing    = "missing"
	ReasonNotNumeric = "not_numeric"
	ReasonNull       = "null"
	ReasonInvalid    = "invalid"
)

// ErrEmptyBatch is returned when a batch request carries no records.
var ErrEmptyBatch = errors.New("batch contains no records")

// ValidationError reports a missing or malformed input field.
// Index is the position in a batch, or -1 for single-record calls.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonMissing:
		msg = fmt.Sprintf("Missing required field: %s", e.Field)
	case ReasonNotNumeric:
		msg = fmt.Sprintf("Field %s must be numeric", e.Field)
	case ReasonNull:
		msg = fmt.Sprintf("Field %s must not be null", e.Field)
	default:
		msg = fmt.Sprintf("Invalid field: %s", e.Field)
	}
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %s", e.Index, msg)
	}
	return msg
}

// AtIndex returns a copy of the error tagged with a batch position.
func (e *ValidationError) AtIndex(i int) *ValidationError {
	out := *e
	out.Index = i
	return &out
}
