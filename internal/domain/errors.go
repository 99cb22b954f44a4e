// Package domain defines core types, interfaces, and errors for the telemetry
// query runtime.
package domain

import (
	"errors"
	"fmt"
)

// ProfileNotFoundError indicates the requested profile does not exist or is
// not directly selectable.
type ProfileNotFoundError struct {
	Message string
}

func (e *ProfileNotFoundError) Error() string { return e.Message }

// CyclicInheritanceError indicates a profile extends chain revisits a name.
type CyclicInheritanceError struct {
	Message string
}

func (e *CyclicInheritanceError) Error() string { return e.Message }

// MissingRequiredFieldError indicates a configuration document is missing a
// field an operation requires.
type MissingRequiredFieldError struct {
	Message string
}

func (e *MissingRequiredFieldError) Error() string { return e.Message }

// NoSessionError indicates no credential session is obtainable without
// prompting the user.
type NoSessionError struct {
	Message string
}

func (e *NoSessionError) Error() string { return e.Message }

// FlowFailedError indicates an authentication flow failed with an underlying
// credential or network error.
type FlowFailedError struct {
	Message string
}

func (e *FlowFailedError) Error() string { return e.Message }

// AuthCancelledError indicates the user cancelled an interactive prompt.
type AuthCancelledError struct {
	Message string
}

func (e *AuthCancelledError) Error() string { return e.Message }

// QueryRejectedError indicates the backend rejected the query itself.
type QueryRejectedError struct {
	Message string
}

func (e *QueryRejectedError) Error() string { return e.Message }

// NetworkFailureError indicates the backend was unreachable.
type NetworkFailureError struct {
	Message string
}

func (e *NetworkFailureError) Error() string { return e.Message }

// TimeoutError indicates the backend call exceeded its deadline.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }

// CorruptEntryError indicates a persisted cache entry could not be decoded.
type CorruptEntryError struct {
	Message string
}

func (e *CorruptEntryError) Error() string { return e.Message }

// CacheWriteError indicates a cache entry could not be persisted.
type CacheWriteError struct {
	Message string
}

func (e *CacheWriteError) Error() string { return e.Message }

// ErrProfileNotFound creates a ProfileNotFoundError with a formatted message.
func ErrProfileNotFound(format string, args ...interface{}) *ProfileNotFoundError {
	return &ProfileNotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrCyclicInheritance creates a CyclicInheritanceError with a formatted message.
func ErrCyclicInheritance(format string, args ...interface{}) *CyclicInheritanceError {
	return &CyclicInheritanceError{Message: fmt.Sprintf(format, args...)}
}

// ErrMissingRequiredField creates a MissingRequiredFieldError with a formatted message.
func ErrMissingRequiredField(format string, args ...interface{}) *MissingRequiredFieldError {
	return &MissingRequiredFieldError{Message: fmt.Sprintf(format, args...)}
}

// ErrNoSession creates a NoSessionError with a formatted message.
func ErrNoSession(format string, args ...interface{}) *NoSessionError {
	return &NoSessionError{Message: fmt.Sprintf(format, args...)}
}

// ErrFlowFailed creates a FlowFailedError with a formatted message.
func ErrFlowFailed(format string, args ...interface{}) *FlowFailedError {
	return &FlowFailedError{Message: fmt.Sprintf(format, args...)}
}

// ErrAuthCancelled creates an AuthCancelledError with a formatted message.
func ErrAuthCancelled(format string, args ...interface{}) *AuthCancelledError {
	return &AuthCancelledError{Message: fmt.Sprintf(format, args...)}
}

// ErrQueryRejected creates a QueryRejectedError with a formatted message.
func ErrQueryRejected(format string, args ...interface{}) *QueryRejectedError {
	return &QueryRejectedError{Message: fmt.Sprintf(format, args...)}
}

// ErrNetworkFailure creates a NetworkFailureError with a formatted message.
func ErrNetworkFailure(format string, args ...interface{}) *NetworkFailureError {
	return &NetworkFailureError{Message: fmt.Sprintf(format, args...)}
}

// ErrTimeout creates a TimeoutError with a formatted message.
func ErrTimeout(format string, args ...interface{}) *TimeoutError {
	return &TimeoutError{Message: fmt.Sprintf(format, args...)}
}

// ErrCorruptEntry creates a CorruptEntryError with a formatted message.
func ErrCorruptEntry(format string, args ...interface{}) *CorruptEntryError {
	return &CorruptEntryError{Message: fmt.Sprintf(format, args...)}
}

// ErrCacheWrite creates a CacheWriteError with a formatted message.
func ErrCacheWrite(format string, args ...interface{}) *CacheWriteError {
	return &CacheWriteError{Message: fmt.Sprintf(format, args...)}
}

// Error categories, used to pick remediation guidance for a failed query:
// a configuration problem ("open setup"), an authentication problem
// ("sign in"), a backend problem ("check query syntax or connectivity").
const (
	CategoryConfig  = "config"
	CategoryAuth    = "auth"
	CategoryBackend = "backend"
	CategoryCache   = "cache"
)

// ErrorCategory classifies err into one of the Category* constants, or ""
// when err is not part of the runtime taxonomy.
func ErrorCategory(err error) string {
	var (
		profileNotFound *ProfileNotFoundError
		cyclic          *CyclicInheritanceError
		missingField    *MissingRequiredFieldError
		noSession       *NoSessionError
		flowFailed      *FlowFailedError
		cancelled       *AuthCancelledError
		rejected        *QueryRejectedError
		network         *NetworkFailureError
		timeout         *TimeoutError
		corrupt         *CorruptEntryError
		cacheWrite      *CacheWriteError
	)
	switch {
	case errors.As(err, &profileNotFound), errors.As(err, &cyclic), errors.As(err, &missingField):
		return CategoryConfig
	case errors.As(err, &noSession), errors.As(err, &flowFailed), errors.As(err, &cancelled):
		return CategoryAuth
	case errors.As(err, &rejected), errors.As(err, &network), errors.As(err, &timeout):
		return CategoryBackend
	case errors.As(err, &corrupt), errors.As(err, &cacheWrite):
		return CategoryCache
	default:
		return ""
	}
}
