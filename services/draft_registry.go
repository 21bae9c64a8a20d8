package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/fabricaware/workorder-app/models"
)

// DraftRegistry holds delivery records that have not been confirmed by the
// backing store yet. Each draft receives a provisional "draft:<n>" key,
// unique within the registry instance, and keeps insertion order. Once the
// parent order has a persisted identity the drafts are submitted in a single
// concurrent batch; already-persisted entries are never resubmitted.
//
// The registry is part of a single-session editing flow and is not safe for
// concurrent mutation.
type DraftRegistry struct {
	seq     int
	entries []*models.OrderDelivery
}

func NewDraftRegistry() *DraftRegistry {
	return &DraftRegistry{}
}

// Add registers a new draft delivery and assigns its provisional key.
func (r *DraftRegistry) Add(d models.OrderDelivery) *models.OrderDelivery {
	r.seq++
	d.ID = 0
	d.ClientKey = fmt.Sprintf("draft:%d", r.seq)
	entry := &d
	r.entries = append(r.entries, entry)
	return entry
}

// Remove drops a draft by its provisional key. Removal of a draft is a pure
// local mutation; persisted deliveries are deleted through the collaborator
// instead and never pass through here.
func (r *DraftRegistry) Remove(key string) bool {
	for i, e := range r.entries {
		if e.ClientKey == key {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Drafts returns the still-unpersisted entries in insertion order.
func (r *DraftRegistry) Drafts() []*models.OrderDelivery {
	out := make([]*models.OrderDelivery, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *DraftRegistry) Len() int {
	return len(r.entries)
}

// Reconcile submits every draft to the create collaborator against the
// persisted order identity. Submissions are independent of each other and run
// concurrently; all results are collected before the batch is declared done.
// Successful entries leave the registry and gain their persisted identity;
// failed entries stay in draft form so the caller can retry without
// re-entering data. The returned slice has one result per draft, in
// insertion order.
func (r *DraftRegistry) Reconcile(ctx context.Context, orderID uint, create func(ctx context.Context, orderID uint, d models.OrderDelivery) (*models.OrderDelivery, error)) []DeliveryResult {
	drafts := r.Drafts()
	results := make([]DeliveryResult, len(drafts))

	var wg sync.WaitGroup
	for i, d := range drafts {
		wg.Add(1)
		go func(i int, d *models.OrderDelivery) {
			defer wg.Done()
			persisted, err := create(ctx, orderID, *d)
			if err != nil {
				results[i] = DeliveryResult{Key: d.ClientKey, Err: err}
				return
			}
			results[i] = DeliveryResult{Key: d.ClientKey, PersistedID: persisted.ID}
		}(i, d)
	}
	wg.Wait()

	// Drop the entries that made it through; keep failures, still drafts.
	kept := r.entries[:0]
	for i, e := range r.entries {
		if results[i].Err != nil {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return results
}
