package driver

import (
	"errors"
	"fmt"
)

// Error is a failure of one invocation. Every Error is fatal to the
// invocation; there is no partial output.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes invocation errors.
type ErrorCode string

const (
	// ErrCodeVersionRequired indicates an operation was requested without a version.
	ErrCodeVersionRequired ErrorCode = "VERSION_REQUIRED"

	// ErrCodeVersionUnsupported indicates the version maps to no backend family.
	ErrCodeVersionUnsupported ErrorCode = "VERSION_UNSUPPORTED"

	// ErrCodeModeConflict indicates more than one mode was requested.
	ErrCodeModeConflict ErrorCode = "MODE_CONFLICT"

	// ErrCodeRawWhileCompiling indicates raw output was requested while compiling.
	ErrCodeRawWhileCompiling ErrorCode = "RAW_WHILE_COMPILING"

	// ErrCodeIRWhileCompiling indicates an IR dump was requested while compiling.
	ErrCodeIRWhileCompiling ErrorCode = "IR_WHILE_COMPILING"

	// ErrCodeNoMode indicates neither compile nor decompile was requested.
	ErrCodeNoMode ErrorCode = "NO_MODE"

	// ErrCodeFormat indicates the input could not be parsed or decoded.
	ErrCodeFormat ErrorCode = "FORMAT"

	// ErrCodeResource indicates a file could not be opened, read or written.
	ErrCodeResource ErrorCode = "RESOURCE"

	// ErrCodeConfig indicates an unreadable or invalid map or config file.
	ErrCodeConfig ErrorCode = "CONFIG"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, codes ...ErrorCode) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	for _, c := range codes {
		if de.Code == c {
			return true
		}
	}
	return false
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsVersionError returns true for a missing or unsupported version.
func IsVersionError(err error) bool {
	return hasCode(err, ErrCodeVersionRequired, ErrCodeVersionUnsupported)
}

// IsModeError returns true for conflicting, missing or invalid mode flags.
func IsModeError(err error) bool {
	return hasCode(err, ErrCodeModeConflict, ErrCodeRawWhileCompiling, ErrCodeIRWhileCompiling, ErrCodeNoMode)
}

// IsFormatError returns true if the input was rejected by a backend.
func IsFormatError(err error) bool {
	return hasCode(err, ErrCodeFormat)
}

// IsResourceError returns true if a file could not be accessed.
func IsResourceError(err error) bool {
	return hasCode(err, ErrCodeResource)
}

// IsConfigError returns true for map or config file problems.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfig)
}

// NewVersionRequiredError creates an Error for a missing version.
func NewVersionRequiredError() *Error {
	return &Error{Code: ErrCodeVersionRequired, Message: "version must be specified"}
}

// NewVersionUnsupportedError creates an Error for an unknown version.
func NewVersionUnsupportedError(version uint) *Error {
	return &Error{Code: ErrCodeVersionUnsupported, Message: fmt.Sprintf("version %d is unsupported", version)}
}

// NewModeConflictError creates an Error for more than one mode.
func NewModeConflictError() *Error {
	return &Error{Code: ErrCodeModeConflict, Message: "more than one mode specified"}
}

// NewRawWhileCompilingError creates an Error for raw output while compiling.
func NewRawWhileCompilingError() *Error {
	return &Error{Code: ErrCodeRawWhileCompiling, Message: "'r' option cannot be used while compiling"}
}

// NewIRWhileCompilingError creates an Error for --ir while compiling.
func NewIRWhileCompilingError() *Error {
	return &Error{Code: ErrCodeIRWhileCompiling, Message: "--ir can only be used while decompiling"}
}

// NewNoModeError creates an Error for an invocation with nothing to do.
func NewNoModeError() *Error {
	return &Error{Code: ErrCodeNoMode, Message: "no mode specified"}
}

// NewFormatError wraps a backend failure on the named input.
func NewFormatError(input, stage string, err error) *Error {
	return &Error{Code: ErrCodeFormat, Message: fmt.Sprintf("%s: %s failed", input, stage), Err: err}
}

// NewResourceError wraps a file access failure.
func NewResourceError(message string, err error) *Error {
	return &Error{Code: ErrCodeResource, Message: message, Err: err}
}

// NewConfigError wraps a map or config file failure.
func NewConfigError(message string, err error) *Error {
	return &Error{Code: ErrCodeConfig, Message: message, Err: err}
}
