// errors.go
package internal

import (
	"errors"
	"fmt"
)

// InputError marks malformed caller input (mismatched vector lengths,
// non-finite values, invalid parameters). It is always surfaced, never
// repaired, because it indicates a caller bug.
type InputError struct {
	msg string
}

func (e *InputError) Error() string {
	return e.msg
}

func InputErrorf(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
