package engine

import (
	"errors"
	"fmt"
)

// ConflictError reports a requested change to an immutable field of an
// existing resource. The engine never recreates resources to satisfy such a
// change; the operator has to resolve the conflict manually.
type ConflictError struct {
	Node    string
	Field   string
	Current string
	Desired string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("immutable field %q of %s cannot be changed in place (current %q, desired %q)",
		e.Field, e.Node, e.Current, e.Desired)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
