package service

import (
	"errors"
	"fmt"
)

var (
	ErrIssuanceNotConfirmed = errors.New("issuance not confirmed by operator")
	ErrBatchNotFound        = errors.New("issuance batch not found")
	ErrDocumentUnavailable  = errors.New("batch document is not available")
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrSessionNotFound      = errors.New("verification session not found")
	ErrSessionLimitReached  = errors.New("verification session limit reached")
)

// InvalidCountError rejects a requested batch size before anything else runs.
type InvalidCountError struct {
	Input  string
	Reason string
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("invalid count %q: %s", e.Input, e.Reason)
}

type GenerationExhaustedError struct {
	Slot     int
	Attempts int
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("could not generate a distinct identifier for slot %d after %d attempts", e.Slot, e.Attempts)
}

// PersistenceError is one credential that could not be stored.
type PersistenceError struct {
	UniqueID string
	Index    int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist credential %d (%s): %v", e.Index, e.UniqueID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AggregatePersistenceError is returned when every credential in a batch
// failed to persist.
type AggregatePersistenceError struct {
	Attempted int
	Failures  []PersistenceError
}

func (e *AggregatePersistenceError) Error() string {
	return fmt.Sprintf("all %d credentials failed to persist", e.Attempted)
}

func (e *AggregatePersistenceError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for i := range e.Failures {
		out = append(out, &e.Failures[i])
	}
	return out
}

type EmptyInputError struct {
	Channel Channel
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s input is empty", e.Channel)
}

const (
	ReasonUnreadable  = "unreadable code"
	ReasonNotFound    = "credential not found"
	ReasonUnavailable = "verification unavailable"
)

// RejectedError is the user-facing reason a validation did not succeed.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *RejectedError) Unwrap() error { return e.Err }
