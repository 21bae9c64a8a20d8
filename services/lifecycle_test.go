package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
)

func TestCanTransition(t *testing.T) {
	// Forward movement, including skips.
	assert.True(t, services.CanTransition(services.StatusDraft, services.StatusPlanned))
	assert.True(t, services.CanTransition(services.StatusDraft, services.StatusInProgress))
	assert.True(t, services.CanTransition(services.StatusPlanned, services.StatusCompleted))
	assert.True(t, services.CanTransition(services.StatusInProgress, services.StatusInInspection))

	// Same status is a no-op, always allowed.
	assert.True(t, services.CanTransition(services.StatusPlanned, services.StatusPlanned))

	// Backwards is not allowed.
	assert.False(t, services.CanTransition(services.StatusInProgress, services.StatusDraft))
	assert.False(t, services.CanTransition(services.StatusCompleted, services.StatusInProgress))

	// Cancellation from any non-terminal status; never out of a terminal one.
	assert.True(t, services.CanTransition(services.StatusDraft, services.StatusCancelled))
	assert.True(t, services.CanTransition(services.StatusPartiallyFulfilled, services.StatusCancelled))
	assert.False(t, services.CanTransition(services.StatusCompleted, services.StatusCancelled))
	assert.False(t, services.CanTransition(services.StatusCancelled, services.StatusDraft))
}

func TestKindFrozenOutsideDraft(t *testing.T) {
	assert.False(t, services.KindFrozen(services.StatusDraft))
	assert.True(t, services.KindFrozen(services.StatusPlanned))
	assert.True(t, services.KindFrozen(services.StatusCompleted))
}

func TestHeaderFrozenAfterOperationsGenerated(t *testing.T) {
	o := &models.Order{Status: services.StatusInProgress}
	assert.True(t, services.HeaderEditable(o))
	assert.False(t, services.HeaderFrozen(o))

	o.OperationsGenerated = true
	assert.True(t, services.HeaderEditable(o))
	assert.True(t, services.HeaderFrozen(o))

	o = &models.Order{Status: services.StatusCancelled}
	assert.False(t, services.HeaderEditable(o))
	assert.True(t, services.HeaderFrozen(o))
}

func TestValidateRelease(t *testing.T) {
	itemID := uint(3)
	routingID := uint(9)

	order := &models.Order{
		Kind:             models.OrderKindProduction,
		Status:           services.StatusDraft,
		ItemID:           &itemID,
		PlannedQty:       qty("10"),
		AppliedRoutingID: &routingID,
	}
	assert.NoError(t, services.ValidateRelease(order))

	// Production without a routing reference cannot be released.
	order.AppliedRoutingID = nil
	assert.Error(t, services.ValidateRelease(order))

	// Processing has no routing requirement.
	order.Kind = models.OrderKindProcessing
	assert.NoError(t, services.ValidateRelease(order))

	order.PlannedQty = qty("0")
	err := services.ValidateRelease(order)
	assert.True(t, services.IsValidation(err))

	order.PlannedQty = qty("10")
	order.Status = services.StatusCompleted
	assert.ErrorIs(t, services.ValidateRelease(order), services.ErrOrderLocked)
}

func TestValidateHeader(t *testing.T) {
	itemID := uint(3)
	clientID := uint(5)

	order := &models.Order{
		Kind:       models.OrderKindProduction,
		Status:     services.StatusDraft,
		ItemID:     &itemID,
		PlannedQty: qty("2"),
	}
	assert.NoError(t, services.ValidateHeader(order))

	order.Kind = "assembly"
	assert.True(t, services.IsValidation(services.ValidateHeader(order)))

	// Processing requires a client.
	order.Kind = models.OrderKindProcessing
	assert.True(t, services.IsValidation(services.ValidateHeader(order)))
	order.ClientID = &clientID
	assert.NoError(t, services.ValidateHeader(order))

	// Client material must be chosen before the order leaves draft.
	order.UseClientMaterial = true
	assert.NoError(t, services.ValidateHeader(order))
	order.Status = services.StatusPlanned
	assert.True(t, services.IsValidation(services.ValidateHeader(order)))
}

func TestCanSettle(t *testing.T) {
	assert.True(t, services.CanSettle(services.StatusInProgress))
	assert.True(t, services.CanSettle(services.StatusPartiallyFulfilled))
	assert.False(t, services.CanSettle(services.StatusDraft))
	assert.False(t, services.CanSettle(services.StatusCompleted))
	assert.False(t, services.CanSettle(services.StatusInInspection))
}
