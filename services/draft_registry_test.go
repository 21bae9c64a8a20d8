package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
)

func TestDraftRegistryAssignsSequentialKeys(t *testing.T) {
	r := services.NewDraftRegistry()

	first := r.Add(models.OrderDelivery{Quantity: qty("10")})
	second := r.Add(models.OrderDelivery{Quantity: qty("20")})

	assert.Equal(t, "draft:1", first.ClientKey)
	assert.Equal(t, "draft:2", second.ClientKey)
	assert.Equal(t, "draft:1", first.Key())
	assert.True(t, first.Draft())
	assert.Equal(t, 2, r.Len())
}

func TestDraftRegistryKeysNotReusedAfterRemoval(t *testing.T) {
	r := services.NewDraftRegistry()

	r.Add(models.OrderDelivery{Quantity: qty("10")})
	assert.True(t, r.Remove("draft:1"))
	assert.False(t, r.Remove("draft:1"))

	next := r.Add(models.OrderDelivery{Quantity: qty("20")})
	assert.Equal(t, "draft:2", next.ClientKey)
}

func TestReconcilePersistsAllDrafts(t *testing.T) {
	r := services.NewDraftRegistry()
	r.Add(models.OrderDelivery{Quantity: qty("10")})
	r.Add(models.OrderDelivery{Quantity: qty("20")})
	r.Add(models.OrderDelivery{Quantity: qty("30")})

	// The callback runs on one goroutine per draft.
	var nextID atomic.Uint32
	results := r.Reconcile(context.Background(), 7, func(ctx context.Context, orderID uint, d models.OrderDelivery) (*models.OrderDelivery, error) {
		assert.Equal(t, uint(7), orderID)
		d.ID = uint(nextID.Add(1))
		d.OrderID = orderID
		return &d, nil
	})

	assert.Len(t, results, 3)
	for i, res := range results {
		assert.NoError(t, res.Err)
		assert.NotZero(t, res.PersistedID)
		assert.Equalf(t, res.Key, results[i].Key, "results keep insertion order")
	}
	assert.Equal(t, "draft:1", results[0].Key)
	assert.Equal(t, "draft:3", results[2].Key)
	assert.Zero(t, r.Len())
}

func TestReconcileKeepsFailedEntriesAsDrafts(t *testing.T) {
	r := services.NewDraftRegistry()
	r.Add(models.OrderDelivery{Quantity: qty("10")})
	r.Add(models.OrderDelivery{Quantity: qty("20")})

	boom := errors.New("insert failed")
	results := r.Reconcile(context.Background(), 7, func(ctx context.Context, orderID uint, d models.OrderDelivery) (*models.OrderDelivery, error) {
		if d.Quantity.Equal(qty("20")) {
			return nil, boom
		}
		d.ID = 1
		return &d, nil
	})

	assert.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)

	// The failed entry stays a draft under its original key, ready for retry.
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "draft:2", r.Drafts()[0].ClientKey)
}
