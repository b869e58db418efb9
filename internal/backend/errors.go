package backend

import (
	"errors"
	"fmt"
)

// FormatError reports binary input that does not match the expected layout.
type FormatError struct {
	// Offset is the byte offset in the input where decoding failed.
	Offset int

	// Message is a human-readable description.
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("offset %#x: %s", e.Offset, e.Message)
}

// Errorf creates a FormatError at offset.
func Errorf(offset int, format string, args ...any) *FormatError {
	return &FormatError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// IsFormatError returns true if err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
