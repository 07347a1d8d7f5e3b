package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies pipeline failures
type ErrorType string

const (
	// ErrorTypeFetch represents listing or product page fetch failures
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParse represents price or markup parsing failures
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeRateLimit represents rate limiting by the catalog site
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStorage represents seen-set, cache or table storage failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeNotify represents notification delivery failures
	ErrorTypeNotify ErrorType = "notify"
	// ErrorTypeValidation represents invalid records or rejected user input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents startup configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError is the error carried through the deal pipeline
type PipelineError struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failed operation is worth retrying
// on a later cycle
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch:
		return true
	case ErrorTypeNotify:
		return true
	case ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, op, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Op:      op,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(op, message string, err error) *PipelineError {
	return New(ErrorTypeFetch, op, message, err)
}

// NewParse creates a new parse error
func NewParse(op, message string, err error) *PipelineError {
	return New(ErrorTypeParse, op, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(op string, duration time.Duration) *PipelineError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, op, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(op, message string, err error) *PipelineError {
	return New(ErrorTypeStorage, op, message, err)
}

// NewNotify creates a new notification delivery error
func NewNotify(op, message string, err error) *PipelineError {
	return New(ErrorTypeNotify, op, message, err)
}

// NewValidation creates a new validation error
func NewValidation(op, message string) *PipelineError {
	return New(ErrorTypeValidation, op, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a PipelineError of the given type
func IsType(err error, errType ErrorType) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type == errType
	}
	return false
}
