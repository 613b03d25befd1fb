package drawpipe

import (
	"errors"
	"fmt"
)

// Error is a pipeline error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes.
const (
	CodeConfig = "CONFIG_ERROR"
	CodeInput  = "INPUT_ERROR"
	CodeOutput = "OUTPUT_ERROR"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnreadablePDF = errors.New("unreadable pdf")
	ErrOutput        = errors.New("output failure")
)

func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func configError(format string, args ...any) error {
	return NewError(CodeConfig, fmt.Sprintf(format, args...), ErrInvalidConfig)
}
