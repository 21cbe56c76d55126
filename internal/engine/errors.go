package engine

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when an operation is invoked without a
// resolved tenant context. Checked before any store access.
var ErrUnauthenticated = errors.New("authentication required - organization/project context missing")

// ErrNotFound is returned when an event identity is absent or belongs
// to another tenant. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("event not found")

// ValidationError reports a malformed or missing input field. Index is
// the position of the offending record within the batch, or -1 when the
// error concerns the request as a whole.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("event[%d]: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// CapacityError reports a request exceeding a hard admission-control
// bound (batch size, page size).
type CapacityError struct {
	Limit  int
	Reason string
}

func (e *CapacityError) Error() string {
	return e.Reason
}
