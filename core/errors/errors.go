package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrProvider covers transport, decoding and missing-config failures.
	ErrProvider = stderrors.New("provider error")
	// ErrNotFound reports that the queried account or key is absent on chain.
	ErrNotFound = stderrors.New("not found")
	// ErrArithmetic reports malformed amounts or an inconsistent snapshot.
	ErrArithmetic = stderrors.New("arithmetic error")

	ErrProtocolConfig = fmt.Errorf("%w: Protocol Config Error", ErrProvider)
)

// Provider wraps a failure as ErrProvider.
func Provider(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProvider, fmt.Sprintf(format, args...))
}

// NotFound wraps a failure as ErrNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Arithmetic wraps a failure as ErrArithmetic.
func Arithmetic(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrArithmetic, fmt.Sprintf(format, args...))
}
