package services

import (
	"fmt"

	"github.com/fabricaware/workorder-app/models"
)

// Order statuses, in lifecycle order. Cancelled is reachable from any
// non-terminal status; completed and cancelled are terminal.
const (
	StatusDraft              = "draft"
	StatusPlanned            = "planned"
	StatusInScheduling       = "in_scheduling"
	StatusInProgress         = "in_progress"
	StatusInInspection       = "in_inspection"
	StatusPartiallyFulfilled = "partially_fulfilled"
	StatusCompleted          = "completed"
	StatusCancelled          = "cancelled"
)

var statusRank = map[string]int{
	StatusDraft:              0,
	StatusPlanned:            1,
	StatusInScheduling:       2,
	StatusInProgress:         3,
	StatusInInspection:       4,
	StatusPartiallyFulfilled: 5,
	StatusCompleted:          6,
}

// KnownStatus reports whether s belongs to the closed status set.
func KnownStatus(s string) bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transitions or mutations are allowed.
func IsTerminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition validates a status change. Forward movement along the
// lifecycle is allowed, including skipping intermediate statuses; moving
// backwards is not. Cancellation is allowed from any non-terminal status.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	if IsTerminal(from) {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// KindFrozen reports whether the order kind may no longer change. Only a
// draft order may still switch between production and processing.
func KindFrozen(status string) bool {
	return status != StatusDraft
}

// HeaderEditable reports whether header scalar fields and component lines may
// still be mutated.
func HeaderEditable(o *models.Order) bool {
	return !IsTerminal(o.Status)
}

// HeaderFrozen is stricter than HeaderEditable: once operations have been
// generated the header and routing reference are locked even though children
// may still change.
func HeaderFrozen(o *models.Order) bool {
	return !HeaderEditable(o) || o.OperationsGenerated
}

// ValidateRelease checks the preconditions for moving an order to
// in_progress. Production orders must carry a routing reference because
// operations are generated from it; processing orders have no such
// requirement.
func ValidateRelease(o *models.Order) error {
	if IsTerminal(o.Status) {
		return ErrOrderLocked
	}
	if !o.PlannedQty.IsPositive() {
		return validationErr("planned_qty", "must be greater than zero")
	}
	if o.ItemID == nil {
		return validationErr("item_id", "an item is required before release")
	}
	if o.Kind == models.OrderKindProduction && o.AppliedRoutingID == nil {
		return validationErr("applied_routing_id", "a routing must be applied before a production order can be released")
	}
	if !CanTransition(o.Status, StatusInProgress) {
		return validationErr("status", fmt.Sprintf("cannot release from status %q", o.Status))
	}
	return nil
}

// CanSettle reports whether the early-close (settlement/backflush) action may
// be offered. Settlement itself is delegated to the store.
func CanSettle(status string) bool {
	return status == StatusInProgress || status == StatusPartiallyFulfilled
}

// ValidateHeader runs the local header checks shared by create and update.
func ValidateHeader(o *models.Order) error {
	if o.Kind != models.OrderKindProduction && o.Kind != models.OrderKindProcessing {
		return validationErr("kind", fmt.Sprintf("unknown order kind %q", o.Kind))
	}
	if !KnownStatus(o.Status) {
		return validationErr("status", fmt.Sprintf("unknown status %q", o.Status))
	}
	if o.ItemID == nil {
		return validationErr("item_id", "an item is required")
	}
	if !o.PlannedQty.IsPositive() {
		return validationErr("planned_qty", "must be greater than zero")
	}
	if o.Kind == models.OrderKindProcessing {
		if o.ClientID == nil {
			return validationErr("client_id", "processing orders require a client")
		}
		if o.UseClientMaterial && o.ClientMaterialID == nil && o.Status != StatusDraft {
			return validationErr("client_material_id", "select the client material before advancing the status")
		}
	}
	return nil
}
