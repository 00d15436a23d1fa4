package compose

import (
	"errors"
	"fmt"
)

// Fatal composition failures. Anything else the composer can degrade around.
var (
	// ErrSchemaNotFound is returned when the trigger event definition is
	// absent. Missing segment schemas are not fatal; see composeSegment.
	ErrSchemaNotFound = errors.New("trigger event definition not found")

	// ErrRequiredInputMissing is returned when the message type needs a
	// domain entity the context does not carry.
	ErrRequiredInputMissing = errors.New("required domain entity missing")
)

// Error is a typed compose failure.
type Error struct {
	TriggerEvent string
	Detail       string
	Cause        error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("compose %s: %s: %v", e.TriggerEvent, e.Detail, e.Cause)
	}
	return fmt.Sprintf("compose %s: %v", e.TriggerEvent, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func fatal(triggerEvent, detail string, cause error) *Error {
	return &Error{TriggerEvent: triggerEvent, Detail: detail, Cause: cause}
}
