// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrHubClosed        = errors.New("hub is shut down")
	ErrNoFetchFunc      = errors.New("channel has no fetch function")
	ErrFeedClosed       = errors.New("push feed closed")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrDatabaseError    = errors.New("database error")
)

// FetchError represents a transient failure of a channel's cold pull.
// It is retried with backoff and never surfaced to consumers as fatal.
type FetchError struct {
	Channel string
	Source  string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("fetch error [%s] %s: %v", e.Channel, e.Source, e.Err)
	}
	return fmt.Sprintf("fetch error [%s]: %v", e.Channel, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(channel, source string, err error) *FetchError {
	return &FetchError{
		Channel: channel,
		Source:  source,
		Err:     err,
	}
}

// HardFailure represents a programming error inside a fetch function,
// as opposed to a network failure. It is logged and isolated to its
// channel; other channels are unaffected.
type HardFailure struct {
	Channel string
	Panic   interface{}
}

func (e *HardFailure) Error() string {
	return fmt.Sprintf("hard failure [%s]: fetch panicked: %v", e.Channel, e.Panic)
}

// NewHardFailure creates a new HardFailure.
func NewHardFailure(channel string, panicValue interface{}) *HardFailure {
	return &HardFailure{
		Channel: channel,
		Panic:   panicValue,
	}
}

// PushError represents a failure of a long-lived push subscription.
type PushError struct {
	Channel string
	Attempt int
	Err     error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push error [%s] attempt %d: %v", e.Channel, e.Attempt, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// NewPushError creates a new PushError.
func NewPushError(channel string, attempt int, err error) *PushError {
	return &PushError{
		Channel: channel,
		Attempt: attempt,
		Err:     err,
	}
}

// MergeError represents a delta that could not be merged into a snapshot.
type MergeError struct {
	Channel string
	Reason  string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge error [%s]: %s", e.Channel, e.Reason)
}

// NewMergeError creates a new MergeError.
func NewMergeError(channel, reason string) *MergeError {
	return &MergeError{
		Channel: channel,
		Reason:  reason,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
