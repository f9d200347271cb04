package scheduler

import (
	"errors"
	"fmt"
)

// ErrStepNotFound is returned when a wait period is requested for a
// follow-up number the plan does not cover.
var ErrStepNotFound = errors.New("no wait period configured for follow-up step")

// ErrRecipientNotFound is returned by history providers for unknown recipients.
var ErrRecipientNotFound = errors.New("recipient not found")

// ValidationError means the recipient's own data is incomplete, e.g. no
// initial contact date set. The batch runner skips the recipient.
type ValidationError struct {
	RecipientID uint
	Reason      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recipient %d: %s", e.RecipientID, e.Reason)
}

// LookupFailure means a collaborator (history store, interval plan) could
// not answer for this recipient.
type LookupFailure struct {
	RecipientID uint
	Op          string
	Err         error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("recipient %d: %s: %v", e.RecipientID, e.Op, e.Err)
}

func (e *LookupFailure) Unwrap() error { return e.Err }

// InvariantError indicates the classifier or engine reached a combination
// that the precedence rules should have made impossible.
type InvariantError struct {
	RecipientID uint
	Detail      string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("recipient %d: scheduling invariant violated: %s", e.RecipientID, e.Detail)
}
