package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/utils"
)

// Collaborator is the set of external operations the order session depends
// on. Production code wires in the gorm-backed OrderStore; tests substitute
// a fake.
type Collaborator interface {
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	CreateComponent(ctx context.Context, orderID uint, c models.OrderComponent) (*models.OrderComponent, error)
	UpdateComponent(ctx context.Context, c models.OrderComponent) error
	DeleteComponent(ctx context.Context, orderID, componentID uint) error
	CreateDelivery(ctx context.Context, orderID uint, d models.OrderDelivery) (*models.OrderDelivery, error)
	DeleteDelivery(ctx context.Context, orderID, deliveryID uint) error
	ApplyBom(ctx context.Context, orderID, bomID uint, mode string) error
	EnsureMaterialLink(ctx context.Context, clientID, itemID uint) (*models.ClientMaterial, error)
	GenerateOperations(ctx context.Context, orderID uint) error
	SettleOrder(ctx context.Context, orderID uint) error
	ReloadOrder(ctx context.Context, orderID uint) (*models.Order, error)
}

// SaveReport summarizes one save sequence: whether the header was created on
// this pass, and the per-draft reconciliation outcomes.
type SaveReport struct {
	Created    bool             `json:"created"`
	Deliveries []DeliveryResult `json:"-"`
}

// Session is one interactive editing pass over a single order. It keeps the
// local working copy, the draft delivery registry and the at-most-once
// creation state, and it runs the composite save sequence. A session belongs
// to one request flow and is not safe for concurrent use; the save token
// exists to detect context changes across the I/O gaps inside one save.
type Session struct {
	store  Collaborator
	order  models.Order
	drafts *DraftRegistry

	// Status the store last reported for this order. The save gate checks
	// this, not the working copy: a local transition into a terminal status
	// is a change Save must still persist.
	persistedStatus string

	// Governing context captured at session start. If currentCompany
	// reports a different value after a save sequence's I/O, the result is
	// discarded.
	companyID      uint
	currentCompany func() uint

	saveSeq uint64
}

// NewSession starts a fresh draft of the given kind.
func NewSession(store Collaborator, companyID uint, currentCompany func() uint, kind string) *Session {
	return &Session{
		store:  store,
		drafts: NewDraftRegistry(),
		order: models.Order{
			Kind:   kind,
			Status: StatusDraft,
			Unit:   "un",
		},
		persistedStatus: StatusDraft,
		companyID:       companyID,
		currentCompany:  currentCompany,
	}
}

// ResumeSession opens an editing pass over an already-persisted order.
func ResumeSession(store Collaborator, companyID uint, currentCompany func() uint, order *models.Order) *Session {
	return &Session{
		store:           store,
		drafts:          NewDraftRegistry(),
		order:           *order,
		persistedStatus: order.Status,
		companyID:       companyID,
		currentCompany:  currentCompany,
	}
}

// Draft returns a snapshot of the working copy, with the still-unpersisted
// draft deliveries appended after the persisted ones.
func (s *Session) Draft() models.Order {
	snapshot := s.order
	snapshot.Deliveries = append([]models.OrderDelivery(nil), s.order.Deliveries...)
	for _, d := range s.drafts.Drafts() {
		snapshot.Deliveries = append(snapshot.Deliveries, *d)
	}
	return snapshot
}

// RemainingBalance is the open delivery balance of the working copy,
// persisted and draft deliveries both counted.
func (s *Session) RemainingBalance() decimal.Decimal {
	snapshot := s.Draft()
	return DeliveryRemaining(snapshot.PlannedQty, snapshot.Deliveries)
}

// UpdateHeader applies a local header mutation under the lifecycle rules:
// terminal orders reject every change, the kind is frozen outside draft, and
// once operations exist the item, quantity and routing reference are locked.
// Nothing is persisted until Save.
func (s *Session) UpdateHeader(apply func(o *models.Order)) error {
	if IsTerminal(s.order.Status) {
		return ErrOrderLocked
	}
	next := s.order
	apply(&next)

	if next.Kind != s.order.Kind && KindFrozen(s.order.Status) {
		return ErrKindFrozen
	}
	if HeaderFrozen(&s.order) && headerCoreChanged(&s.order, &next) {
		return ErrHeaderFrozen
	}
	if next.Status != s.order.Status && !CanTransition(s.order.Status, next.Status) {
		return validationErr("status", fmt.Sprintf("cannot move from %q to %q", s.order.Status, next.Status))
	}

	// Child collections are managed through their own operations.
	next.Components = s.order.Components
	next.Deliveries = s.order.Deliveries
	next.Operations = s.order.Operations
	s.order = next
	return nil
}

func headerCoreChanged(old, next *models.Order) bool {
	if !uintPtrEqual(old.ItemID, next.ItemID) {
		return true
	}
	if !old.PlannedQty.Equal(next.PlannedQty) {
		return true
	}
	return !uintPtrEqual(old.AppliedRoutingID, next.AppliedRoutingID)
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ensureSaved gives the order a persisted identity, creating the header
// through the collaborator at most once. Children added before the first
// save trigger this on demand.
func (s *Session) ensureSaved(ctx context.Context) error {
	if s.order.Persisted() {
		return nil
	}
	if err := s.provisionMaterialLink(ctx); err != nil {
		return err
	}
	if err := ValidateHeader(&s.order); err != nil {
		return err
	}
	created, err := s.store.CreateOrder(ctx, &s.order)
	if err != nil {
		return err
	}
	s.order.ID = created.ID
	s.order.Number = created.Number
	return nil
}

// provisionMaterialLink finds or creates the client-material link when a
// processing order works on client stock and no link was chosen yet.
func (s *Session) provisionMaterialLink(ctx context.Context) error {
	o := &s.order
	if o.Kind != models.OrderKindProcessing || !o.UseClientMaterial || o.ClientMaterialID != nil {
		return nil
	}
	if o.ClientID == nil || o.ItemID == nil {
		// ValidateHeader reports the missing fields; nothing to provision.
		return nil
	}
	link, err := s.store.EnsureMaterialLink(ctx, *o.ClientID, *o.ItemID)
	if err != nil {
		return fmt.Errorf("client material link could not be provisioned: %w", err)
	}
	o.ClientMaterialID = &link.ID
	return nil
}

// AddComponent appends a requirement line. The order is persisted first if it
// still lives only in memory, so the line always targets a durable parent.
func (s *Session) AddComponent(ctx context.Context, c models.OrderComponent) error {
	if !HeaderEditable(&s.order) {
		return ErrOrderLocked
	}
	if c.ItemID == 0 {
		return validationErr("item_id", "an item is required")
	}
	if !c.RequiredQty.IsPositive() {
		return validationErr("required_qty", "must be greater than zero")
	}
	if err := s.ensureSaved(ctx); err != nil {
		return err
	}
	if _, err := s.store.CreateComponent(ctx, s.order.ID, c); err != nil {
		return err
	}
	return s.reload(ctx)
}

// UpdateComponentQuantity rewrites the required quantity of one line.
func (s *Session) UpdateComponentQuantity(ctx context.Context, componentID uint, qty decimal.Decimal) error {
	if !HeaderEditable(&s.order) {
		return ErrOrderLocked
	}
	if !qty.IsPositive() {
		return validationErr("required_qty", "must be greater than zero")
	}
	for _, c := range s.order.Components {
		if c.ID == componentID {
			c.RequiredQty = qty
			if err := s.store.UpdateComponent(ctx, c); err != nil {
				return err
			}
			return s.reload(ctx)
		}
	}
	return ErrUnknownChild
}

// RemoveComponent deletes one requirement line.
func (s *Session) RemoveComponent(ctx context.Context, componentID uint) error {
	if !HeaderEditable(&s.order) {
		return ErrOrderLocked
	}
	if err := s.store.DeleteComponent(ctx, s.order.ID, componentID); err != nil {
		return err
	}
	return s.reload(ctx)
}

// AddDelivery registers a delivery against the working copy. The record stays
// local, under a provisional key, until the next save; the quantity is
// validated against the remaining balance including earlier drafts, so a
// sequence of additions cannot overshoot the plan.
func (s *Session) AddDelivery(d models.OrderDelivery) (*models.OrderDelivery, error) {
	if IsTerminal(s.order.Status) {
		return nil, ErrOrderLocked
	}
	if !d.Quantity.IsPositive() {
		return nil, validationErr("quantity", "must be greater than zero")
	}
	remaining := s.RemainingBalance()
	if d.Quantity.GreaterThan(remaining) {
		return nil, validationErr("quantity", fmt.Sprintf("exceeds remaining balance of %s", remaining.String()))
	}
	if d.BillingStatus == "" {
		d.BillingStatus = models.BillingNotBilled
	}
	return s.drafts.Add(d), nil
}

// RemoveDelivery removes a delivery by its key. A draft key is dropped
// locally with no I/O; a numeric key deletes the persisted record through
// the collaborator. Callers confirm with the user before invoking this on a
// persisted record.
func (s *Session) RemoveDelivery(ctx context.Context, key string) error {
	if strings.HasPrefix(key, "draft:") {
		if !s.drafts.Remove(key) {
			return ErrUnknownChild
		}
		return nil
	}
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return ErrUnknownChild
	}
	if !s.order.Persisted() {
		return ErrUnknownChild
	}
	if err := s.store.DeleteDelivery(ctx, s.order.ID, uint(id)); err != nil {
		return err
	}
	return s.reload(ctx)
}

// ApplyBomTemplate expands a BOM into requirement lines after the
// compatibility gate. The order is persisted first if needed because the
// expansion happens store-side.
func (s *Session) ApplyBomTemplate(ctx context.Context, bom *models.Bom, mode string) error {
	if !HeaderEditable(&s.order) {
		return ErrOrderLocked
	}
	if err := CheckTemplateApply(s.order.Kind, bom.UsageKind); err != nil {
		return err
	}
	if err := s.ensureSaved(ctx); err != nil {
		return err
	}
	if err := s.store.ApplyBom(ctx, s.order.ID, bom.ID, mode); err != nil {
		return err
	}
	return s.reload(ctx)
}

// ApplyRouting stores the routing reference and its display snapshot on the
// working copy. A purely local header mutation, persisted by the next save.
func (s *Session) ApplyRouting(routing *models.Routing) error {
	if err := CheckTemplateApply(s.order.Kind, routing.UsageKind); err != nil {
		return err
	}
	return s.UpdateHeader(func(o *models.Order) {
		o.AppliedRoutingID = &routing.ID
		o.AppliedRoutingDesc = routing.Label()
	})
}

// Save runs the composite save sequence: validate, provision the material
// link if needed, create or update the header, reconcile the draft
// deliveries in one concurrent batch, then reload the authoritative state.
// If the governing context changed while the sequence was in flight the
// result is discarded and ErrStaleContext is returned; the local draft is
// untouched and the caller may retry.
//
// A partially failed reconciliation is not an aborted save: the header and
// the successful deliveries are persisted, the failed entries stay drafts,
// and the returned ReconcileError carries the per-entry outcomes.
func (s *Session) Save(ctx context.Context) (*models.Order, *SaveReport, error) {
	s.saveSeq++
	token := s.saveSeq
	report := &SaveReport{}

	if IsTerminal(s.persistedStatus) {
		return nil, nil, ErrOrderLocked
	}
	if err := s.provisionMaterialLink(ctx); err != nil {
		return nil, nil, err
	}
	if err := ValidateHeader(&s.order); err != nil {
		return nil, nil, err
	}

	if !s.order.Persisted() {
		created, err := s.store.CreateOrder(ctx, &s.order)
		if err != nil {
			return nil, nil, err
		}
		s.order.ID = created.ID
		s.order.Number = created.Number
		report.Created = true
	} else {
		if err := s.store.UpdateOrder(ctx, &s.order); err != nil {
			return nil, nil, err
		}
	}

	results := s.drafts.Reconcile(ctx, s.order.ID, s.store.CreateDelivery)
	report.Deliveries = results

	reloaded, err := s.store.ReloadOrder(ctx, s.order.ID)
	if err != nil {
		return nil, nil, err
	}

	if s.stale(token) {
		utils.InfoLogger.Printf("Save result for order %d discarded: session context changed", s.order.ID)
		return nil, nil, ErrStaleContext
	}
	s.order = *reloaded
	s.persistedStatus = reloaded.Status

	for _, r := range results {
		if r.Err != nil {
			return reloaded, report, &ReconcileError{Results: results}
		}
	}
	return reloaded, report, nil
}

// stale reports whether the session context changed since this save started.
func (s *Session) stale(token uint64) bool {
	if token != s.saveSeq {
		return true
	}
	if s.currentCompany != nil && s.currentCompany() != s.companyID {
		return true
	}
	return false
}

// Release moves the order to in_progress. Production orders get their
// operation rows generated from the applied routing on the same pass; the
// generation is idempotent, so re-releasing after a partial failure is safe.
func (s *Session) Release(ctx context.Context) error {
	if err := s.ensureSaved(ctx); err != nil {
		return err
	}
	if err := ValidateRelease(&s.order); err != nil {
		return err
	}
	next := s.order
	next.Status = StatusInProgress
	if err := s.store.UpdateOrder(ctx, &next); err != nil {
		return err
	}
	s.order.Status = StatusInProgress
	if s.order.Kind == models.OrderKindProduction {
		if err := s.store.GenerateOperations(ctx, s.order.ID); err != nil {
			return err
		}
	}
	return s.reload(ctx)
}

// Settle closes the order early, consuming remaining reservations and
// finishing pending operations.
func (s *Session) Settle(ctx context.Context) error {
	if !s.order.Persisted() {
		return ErrOrderNotSaved
	}
	if !CanSettle(s.order.Status) {
		return ErrNotSettleable
	}
	if err := s.store.SettleOrder(ctx, s.order.ID); err != nil {
		return err
	}
	return s.reload(ctx)
}

func (s *Session) reload(ctx context.Context) error {
	reloaded, err := s.store.ReloadOrder(ctx, s.order.ID)
	if err != nil {
		return err
	}
	s.order = *reloaded
	s.persistedStatus = reloaded.Status
	return nil
}
