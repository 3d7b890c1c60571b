package task

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration = errors.New("invalid duration value")
	ErrZeroInterval    = errors.New("interval must be greater than zero")
	ErrNegativeValue   = errors.New("value must not be negative")
	ErrInvalidSuffix   = errors.New("invalid duration suffix")
	ErrInvalidBool     = errors.New("enabled must be \"true\" or \"false\"")
	ErrEmptyCron       = errors.New("cron expression required")
	ErrUnknownKind     = errors.New("unknown schedule kind")
	ErrNoWork          = errors.New("task has no work")
	ErrRegistryFrozen  = errors.New("task registry is frozen")
)

// SuffixError reports a shorthand duration whose suffix is not one of ms|s|m|h|d.
type SuffixError struct {
	Value  string
	Suffix string
	Hint   string
}

func (e *SuffixError) Error() string {
	msg := fmt.Sprintf("invalid duration suffix %q in %q (valid: ms, s, m, h, d; lowercase only)", e.Suffix, e.Value)
	if e.Hint != "" {
		msg += fmt.Sprintf("; did you mean '%s'?", e.Hint)
	}
	return msg
}

func (e *SuffixError) Is(target error) bool { return target == ErrInvalidSuffix }

// FieldError attaches the descriptor name and field to a validation error.
type FieldError struct {
	Task  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Task, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
