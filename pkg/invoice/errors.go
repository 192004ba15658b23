package invoice

import (
	"errors"
	"fmt"
)

// Sentinel errors for the invoice domain. Use errors.Is() to check these.
var (
	// ErrRender indicates the rendering backend failed. No record was
	// persisted and no partial artifact remains on disk.
	ErrRender = errors.New("document rendering failed")

	// ErrPersistence indicates the record could not be stored after the
	// document was rendered. The artifact may already exist on disk with no
	// record referencing it; it is deliberately left in place.
	ErrPersistence = errors.New("record persistence failed")

	// ErrDuplicateIdentifier indicates a record with the same order number
	// already exists. The store's uniqueness constraint is the authoritative
	// backstop behind the advisory sequence allocator.
	ErrDuplicateIdentifier = errors.New("duplicate order number")

	// ErrProfileNotFound indicates no company profile has been saved yet
	// (first run).
	ErrProfileNotFound = errors.New("company profile not found")

	// ErrRecordNotFound indicates no invoice exists for the requested order
	// number.
	ErrRecordNotFound = errors.New("invoice record not found")
)

// ValidationError reports the first malformed or missing input encountered.
// Validation is fail-fast: one violation per attempt, surfaced before any
// side effect occurs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
