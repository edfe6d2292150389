package errs

import (
	"errors"
	"fmt"
)

var (
	ErrStaleConnection     = errors.New("stale connection")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrMalformedCachedData = errors.New("malformed cached data")
	ErrJudgeClientNotFound = errors.New("judge client not found")
	ErrInvalidTask         = errors.New("invalid task")
	ErrDuplicateTask       = errors.New("task already known")
	ErrQueueClosed         = errors.New("judge queue closed")
	ErrDeadLetterNotFound  = errors.New("dead letter not found")
)

// StaleConnectionError is returned when a connection lost its authority mid-operation,
// either because it closed or because a newer session replaced it.
type StaleConnectionError struct {
	ConnectionID string
	Reason       string
}

func (e *StaleConnectionError) Error() string {
	return fmt.Sprintf("connection %s is stale: %s", e.ConnectionID, e.Reason)
}

func (e *StaleConnectionError) Unwrap() error {
	return ErrStaleConnection
}

// UnknownConnectionError is returned for events from a connection the dispatcher has no record of
type UnknownConnectionError struct {
	ConnectionID string
	Event        string
}

func (e *UnknownConnectionError) Error() string {
	return fmt.Sprintf("event %q from unknown connection %s", e.Event, e.ConnectionID)
}

func (e *UnknownConnectionError) Unwrap() error {
	return ErrUnknownConnection
}
