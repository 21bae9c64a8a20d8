package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
	"github.com/fabricaware/workorder-app/utils"
)

func init() {
	utils.InitLogger()
}

// fakeStore is an in-memory Collaborator for session tests.
type fakeStore struct {
	mu          sync.Mutex
	nextOrderID uint
	nextChildID uint

	orders     map[uint]*models.Order
	components map[uint][]models.OrderComponent
	deliveries map[uint][]models.OrderDelivery
	operations map[uint][]models.OrderOperation
	materials  map[string]*models.ClientMaterial
	boms       map[uint]*models.Bom

	createOrderCalls    int
	createDeliveryCalls int

	// failDeliveryQty makes CreateDelivery fail for that exact quantity.
	failDeliveryQty *decimal.Decimal
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:     make(map[uint]*models.Order),
		components: make(map[uint][]models.OrderComponent),
		deliveries: make(map[uint][]models.OrderDelivery),
		operations: make(map[uint][]models.OrderOperation),
		materials:  make(map[string]*models.ClientMaterial),
		boms:       make(map[uint]*models.Bom),
	}
}

func (f *fakeStore) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createOrderCalls++
	f.nextOrderID++
	header := *o
	header.ID = f.nextOrderID
	header.Number = int(f.nextOrderID) + 1000
	header.Components = nil
	header.Deliveries = nil
	header.Operations = nil
	f.orders[header.ID] = &header
	return &header, nil
}

func (f *fakeStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.ID]; !ok {
		return services.ErrOrderNotSaved
	}
	header := *o
	header.Components = nil
	header.Deliveries = nil
	header.Operations = nil
	f.orders[o.ID] = &header
	return nil
}

func (f *fakeStore) CreateComponent(ctx context.Context, orderID uint, c models.OrderComponent) (*models.OrderComponent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[orderID]; !ok {
		return nil, services.ErrOrderNotSaved
	}
	f.nextChildID++
	c.ID = f.nextChildID
	c.OrderID = orderID
	f.components[orderID] = append(f.components[orderID], c)
	return &c, nil
}

func (f *fakeStore) UpdateComponent(ctx context.Context, c models.OrderComponent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.components[c.OrderID]
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = c
			return nil
		}
	}
	return services.ErrUnknownChild
}

func (f *fakeStore) DeleteComponent(ctx context.Context, orderID, componentID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.components[orderID]
	for i := range list {
		if list[i].ID == componentID {
			f.components[orderID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return services.ErrUnknownChild
}

func (f *fakeStore) CreateDelivery(ctx context.Context, orderID uint, d models.OrderDelivery) (*models.OrderDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDeliveryCalls++
	if f.failDeliveryQty != nil && d.Quantity.Equal(*f.failDeliveryQty) {
		return nil, errors.New("delivery insert failed")
	}
	f.nextChildID++
	d.ID = f.nextChildID
	d.OrderID = orderID
	d.ClientKey = ""
	f.deliveries[orderID] = append(f.deliveries[orderID], d)
	return &d, nil
}

func (f *fakeStore) DeleteDelivery(ctx context.Context, orderID, deliveryID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.deliveries[orderID]
	for i := range list {
		if list[i].ID == deliveryID {
			f.deliveries[orderID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return services.ErrUnknownChild
}

func (f *fakeStore) ApplyBom(ctx context.Context, orderID, bomID uint, mode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return services.ErrOrderNotSaved
	}
	bom, ok := f.boms[bomID]
	if !ok {
		return services.ErrUnknownChild
	}
	if mode == services.ApplyModeReplace {
		f.components[orderID] = nil
	}
	for _, line := range bom.Items {
		f.nextChildID++
		f.components[orderID] = append(f.components[orderID], models.OrderComponent{
			ID:          f.nextChildID,
			OrderID:     orderID,
			ItemID:      line.ItemID,
			RequiredQty: line.QtyPerUnit.Mul(order.PlannedQty),
			Unit:        line.Unit,
		})
	}
	order.AppliedBomID = &bom.ID
	order.AppliedBomDesc = bom.Label()
	return nil
}

func (f *fakeStore) EnsureMaterialLink(ctx context.Context, clientID, itemID uint) (*models.ClientMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d/%d", clientID, itemID)
	if link, ok := f.materials[key]; ok {
		return link, nil
	}
	f.nextChildID++
	link := &models.ClientMaterial{ID: f.nextChildID, ClientID: clientID, ItemID: itemID, Active: true}
	f.materials[key] = link
	return link, nil
}

func (f *fakeStore) GenerateOperations(ctx context.Context, orderID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return services.ErrOrderNotSaved
	}
	if order.OperationsGenerated {
		return nil
	}
	for i, name := range []string{"Cut", "Assemble"} {
		f.nextChildID++
		f.operations[orderID] = append(f.operations[orderID], models.OrderOperation{
			ID: f.nextChildID, OrderID: orderID, Sequence: i + 1, Name: name, Status: models.OperationPending,
		})
	}
	order.OperationsGenerated = true
	return nil
}

func (f *fakeStore) SettleOrder(ctx context.Context, orderID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return services.ErrOrderNotSaved
	}
	if !services.CanSettle(order.Status) {
		return services.ErrNotSettleable
	}
	comps := f.components[orderID]
	for i := range comps {
		comps[i].ConsumedQty = comps[i].ReservedQty
	}
	ops := f.operations[orderID]
	for i := range ops {
		if ops[i].Status == models.OperationPending {
			ops[i].Status = models.OperationDone
		}
	}
	order.Status = services.StatusCompleted
	return nil
}

func (f *fakeStore) ReloadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, services.ErrOrderNotSaved
	}
	out := *order
	out.Components = append([]models.OrderComponent(nil), f.components[orderID]...)
	out.Deliveries = append([]models.OrderDelivery(nil), f.deliveries[orderID]...)
	out.Operations = append([]models.OrderOperation(nil), f.operations[orderID]...)
	return &out, nil
}

func productionSession(store services.Collaborator) *services.Session {
	s := services.NewSession(store, 1, nil, models.OrderKindProduction)
	itemID := uint(42)
	_ = s.UpdateHeader(func(o *models.Order) {
		o.ItemID = &itemID
		o.ItemName = "Steel bracket"
		o.PlannedQty = qty("100")
	})
	return s
}

func TestAddComponentPersistsHeaderFirst(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	err := s.AddComponent(context.Background(), models.OrderComponent{
		ItemID:      7,
		RequiredQty: qty("4"),
		Unit:        "un",
	})
	assert.NoError(t, err)

	// The header was created on demand, exactly once, before the child.
	assert.Equal(t, 1, store.createOrderCalls)
	draft := s.Draft()
	assert.True(t, draft.Persisted())
	assert.NotZero(t, draft.Number)
	assert.Len(t, draft.Components, 1)
	assert.NotZero(t, draft.Components[0].ID)
}

func TestSaveCreatesHeaderAtMostOnce(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	_, report, err := s.Save(context.Background())
	assert.NoError(t, err)
	assert.True(t, report.Created)

	_, report, err = s.Save(context.Background())
	assert.NoError(t, err)
	assert.False(t, report.Created)
	assert.Equal(t, 1, store.createOrderCalls)
	assert.Len(t, store.orders, 1)
}

func TestAddDeliveryValidatesBalance(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	_, err := s.AddDelivery(models.OrderDelivery{Quantity: qty("60")})
	assert.NoError(t, err)

	// 60 of 100 spoken for; 50 exceeds the remaining 40.
	_, err = s.AddDelivery(models.OrderDelivery{Quantity: qty("50")})
	assert.True(t, services.IsValidation(err))
	assert.Contains(t, err.Error(), "remaining balance of 40")

	_, err = s.AddDelivery(models.OrderDelivery{Quantity: qty("40")})
	assert.NoError(t, err)
	assert.True(t, s.RemainingBalance().IsZero())

	_, err = s.AddDelivery(models.OrderDelivery{Quantity: qty("0")})
	assert.True(t, services.IsValidation(err))
}

func TestSaveReconcilesDraftDeliveries(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	_, err := s.AddDelivery(models.OrderDelivery{Quantity: qty("30")})
	assert.NoError(t, err)
	_, err = s.AddDelivery(models.OrderDelivery{Quantity: qty("20")})
	assert.NoError(t, err)

	order, report, err := s.Save(context.Background())
	assert.NoError(t, err)
	assert.Len(t, report.Deliveries, 2)
	for _, res := range report.Deliveries {
		assert.NoError(t, res.Err)
		assert.True(t, strings.HasPrefix(res.Key, "draft:"))
		assert.NotZero(t, res.PersistedID)
	}
	assert.Len(t, order.Deliveries, 2)
	for _, d := range order.Deliveries {
		assert.False(t, d.Draft())
	}
}

func TestSavePartialReconcileKeepsFailuresAsDrafts(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	bad := qty("20")
	store.failDeliveryQty = &bad

	_, err := s.AddDelivery(models.OrderDelivery{Quantity: qty("30")})
	assert.NoError(t, err)
	_, err = s.AddDelivery(models.OrderDelivery{Quantity: qty("20")})
	assert.NoError(t, err)

	order, report, err := s.Save(context.Background())
	var recErr *services.ReconcileError
	assert.True(t, errors.As(err, &recErr))
	assert.NotNil(t, order)
	assert.Len(t, order.Deliveries, 1)

	// The failed entry survived as a draft and still counts against the
	// balance.
	draft := s.Draft()
	assert.Len(t, draft.Deliveries, 2)
	assert.True(t, qty("50").Equal(s.RemainingBalance()))

	// Retrying persists only the failed entry; the successful sibling is
	// not resubmitted.
	store.failDeliveryQty = nil
	calls := store.createDeliveryCalls
	order, report, err = s.Save(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, calls+1, store.createDeliveryCalls)
	assert.Len(t, report.Deliveries, 1)
	assert.Len(t, order.Deliveries, 2)
}

func TestSaveDiscardsResultWhenContextChanges(t *testing.T) {
	store := newFakeStore()
	company := uint(1)
	s := services.NewSession(store, 1, func() uint { return company }, models.OrderKindProduction)
	itemID := uint(42)
	_ = s.UpdateHeader(func(o *models.Order) {
		o.ItemID = &itemID
		o.PlannedQty = qty("10")
	})

	// The governing company changes while the save is in flight.
	company = 2
	_, _, err := s.Save(context.Background())
	assert.ErrorIs(t, err, services.ErrStaleContext)
}

func TestSaveProvisionsClientMaterialLink(t *testing.T) {
	store := newFakeStore()
	s := services.NewSession(store, 1, nil, models.OrderKindProcessing)
	itemID := uint(42)
	clientID := uint(8)
	err := s.UpdateHeader(func(o *models.Order) {
		o.ItemID = &itemID
		o.ClientID = &clientID
		o.PlannedQty = qty("10")
		o.UseClientMaterial = true
	})
	assert.NoError(t, err)

	order, _, err := s.Save(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, order.ClientMaterialID)
	assert.Len(t, store.materials, 1)

	// A second save reuses the existing link.
	_, _, err = s.Save(context.Background())
	assert.NoError(t, err)
	assert.Len(t, store.materials, 1)
}

func TestUpdateHeaderFreezesKindOutsideDraft(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)
	_, _, err := s.Save(context.Background())
	assert.NoError(t, err)

	err = s.UpdateHeader(func(o *models.Order) { o.Status = services.StatusPlanned })
	assert.NoError(t, err)

	err = s.UpdateHeader(func(o *models.Order) { o.Kind = models.OrderKindProcessing })
	assert.ErrorIs(t, err, services.ErrKindFrozen)
}

func TestUpdateHeaderRejectsBackwardStatus(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	err := s.UpdateHeader(func(o *models.Order) { o.Status = services.StatusInProgress })
	assert.NoError(t, err)

	err = s.UpdateHeader(func(o *models.Order) { o.Status = services.StatusDraft })
	assert.True(t, services.IsValidation(err))
}

func TestSavePersistsCancellation(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)
	_, _, err := s.Save(context.Background())
	assert.NoError(t, err)

	err = s.UpdateHeader(func(o *models.Order) { o.Status = services.StatusCancelled })
	assert.NoError(t, err)

	// The save gate checks the stored status, so a local transition into a
	// terminal status is still persisted.
	order, _, err := s.Save(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, services.StatusCancelled, order.Status)
	assert.Equal(t, services.StatusCancelled, store.orders[order.ID].Status)

	// Once the store holds the terminal status, further saves are rejected.
	_, _, err = s.Save(context.Background())
	assert.ErrorIs(t, err, services.ErrOrderLocked)
}

func TestReleaseGeneratesOperationsOnce(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	// Routing must be applied before a production order can be released.
	err := s.Release(context.Background())
	assert.True(t, services.IsValidation(err))

	routing := &models.Routing{ID: 5, Code: "RT-01", Version: 1, UsageKind: models.TemplateUsageProduction}
	assert.NoError(t, s.ApplyRouting(routing))

	assert.NoError(t, s.Release(context.Background()))
	draft := s.Draft()
	assert.Equal(t, services.StatusInProgress, draft.Status)
	assert.True(t, draft.OperationsGenerated)
	assert.Len(t, draft.Operations, 2)

	// Header core fields are frozen once operations exist.
	err = s.UpdateHeader(func(o *models.Order) { o.PlannedQty = qty("200") })
	assert.ErrorIs(t, err, services.ErrHeaderFrozen)
}

func TestApplyRoutingRejectsIncompatibleKind(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	routing := &models.Routing{ID: 5, UsageKind: models.TemplateUsageProcessing}
	err := s.ApplyRouting(routing)

	var compat *services.CompatibilityError
	assert.True(t, errors.As(err, &compat))
}

func TestApplyBomTemplateExpandsComponents(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	bom := &models.Bom{
		ID:        3,
		Code:      "BOM-01",
		Version:   2,
		UsageKind: models.TemplateUsageProduction,
		Items: []models.BomItem{
			{ItemID: 7, QtyPerUnit: qty("0.5"), Unit: "kg"},
			{ItemID: 8, QtyPerUnit: qty("2"), Unit: "un"},
		},
	}
	store.boms[bom.ID] = bom

	assert.NoError(t, s.ApplyBomTemplate(context.Background(), bom, services.ApplyModeReplace))

	draft := s.Draft()
	assert.Equal(t, "BOM-01 (v2)", draft.AppliedBomDesc)
	assert.Len(t, draft.Components, 2)
	// 100 planned units at 0.5 per unit.
	assert.True(t, qty("50").Equal(draft.Components[0].RequiredQty))
	assert.True(t, qty("200").Equal(draft.Components[1].RequiredQty))
}

func TestSettleRequiresActiveOrder(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	assert.ErrorIs(t, s.Settle(context.Background()), services.ErrOrderNotSaved)

	_, _, err := s.Save(context.Background())
	assert.NoError(t, err)
	assert.ErrorIs(t, s.Settle(context.Background()), services.ErrNotSettleable)

	routing := &models.Routing{ID: 5, UsageKind: models.TemplateUsageBoth}
	assert.NoError(t, s.ApplyRouting(routing))
	assert.NoError(t, s.Release(context.Background()))

	assert.NoError(t, s.Settle(context.Background()))
	draft := s.Draft()
	assert.Equal(t, services.StatusCompleted, draft.Status)
	for _, op := range draft.Operations {
		assert.Equal(t, models.OperationDone, op.Status)
	}
}

func TestRemoveDeliveryDraftVersusPersisted(t *testing.T) {
	store := newFakeStore()
	s := productionSession(store)

	d, err := s.AddDelivery(models.OrderDelivery{Quantity: qty("30")})
	assert.NoError(t, err)

	// Draft removal is purely local.
	assert.NoError(t, s.RemoveDelivery(context.Background(), d.Key()))
	assert.Zero(t, store.createDeliveryCalls)
	assert.True(t, qty("100").Equal(s.RemainingBalance()))

	_, err = s.AddDelivery(models.OrderDelivery{Quantity: qty("30")})
	assert.NoError(t, err)
	order, _, err := s.Save(context.Background())
	assert.NoError(t, err)
	assert.Len(t, order.Deliveries, 1)

	persisted := order.Deliveries[0]
	assert.NoError(t, s.RemoveDelivery(context.Background(), persisted.Key()))
	assert.Empty(t, store.deliveries[order.ID])

	assert.ErrorIs(t, s.RemoveDelivery(context.Background(), "draft:99"), services.ErrUnknownChild)
}
