package services

import (
	"errors"
	"fmt"
)

// Local validation failures. No I/O has happened and no state has changed
// when one of these is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CompatibilityError explains why a template may not be applied to an order.
// The condition is knowable in advance, so callers surface it as a disabled
// action with this reason rather than a failed request.
type CompatibilityError struct {
	OrderKind    string
	TemplateKind string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("template for %s use cannot be applied to a %s order", e.TemplateKind, e.OrderKind)
}

// ErrStaleContext marks a save sequence whose result was discarded because
// the governing session context changed while the sequence was in flight.
// The draft is intact; the caller should retry.
var ErrStaleContext = errors.New("operation aborted: session context changed, please retry")

var (
	ErrOrderLocked   = errors.New("order is locked for editing")
	ErrOrderNotSaved = errors.New("order has no persisted identity yet")
	ErrNotSettleable = errors.New("order cannot be settled in its current status")
	ErrKindFrozen    = errors.New("order kind cannot change after leaving draft")
	ErrHeaderFrozen  = errors.New("header is frozen after operations were generated")
	ErrUnknownChild  = errors.New("no such child record")
)

// DeliveryResult is the per-child outcome of a draft reconciliation batch.
type DeliveryResult struct {
	Key         string // provisional "draft:<n>" key
	PersistedID uint   // set on success
	Err         error  // set on failure; the delivery stays in draft form
}

// ReconcileError reports a partially failed reconciliation batch. Successful
// siblings are not rolled back; the failed entries remain drafts so the
// caller can retry just those.
type ReconcileError struct {
	Results []DeliveryResult
}

func (e *ReconcileError) Error() string {
	failed := 0
	for _, r := range e.Results {
		if r.Err != nil {
			failed++
		}
	}
	return fmt.Sprintf("%d of %d draft deliveries failed to persist", failed, len(e.Results))
}
