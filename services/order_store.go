package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/utils"
)

// OrderStore is the gorm-backed implementation of the external operations the
// order session depends on. Every mutation writes a synchronous audit row in
// the same transaction as the change it describes.
type OrderStore struct {
	DB *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{DB: db}
}

func (s *OrderStore) audit(tx *gorm.DB, ctx context.Context, orderID uint, table string, recordID uint, action, summary string) error {
	entry := models.AuditLog{
		OrderID:   orderID,
		TableName: table,
		RecordID:  recordID,
		Action:    action,
		UserID:    UserIDFrom(ctx),
		Summary:   summary,
	}
	return tx.Create(&entry).Error
}

// nextNumber allocates the next sequential order number inside tx.
func (s *OrderStore) nextNumber(tx *gorm.DB) (int, error) {
	var max int
	err := tx.Model(&models.Order{}).Select("COALESCE(MAX(number), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CreateOrder persists a new order header and assigns its sequential number.
// Child collections on o are ignored; children are created through their own
// operations.
func (s *OrderStore) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	header := *o
	header.ID = 0
	header.Components = nil
	header.Deliveries = nil
	header.Operations = nil

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	number, err := s.nextNumber(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	header.Number = number

	if err := tx.Create(&header).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Failed to create order: %v", err)
		return nil, err
	}
	if err := s.audit(tx, ctx, header.ID, "orders", header.ID, "create", fmt.Sprintf("order #%d created", header.Number)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order #%d created (id=%d)", header.Number, header.ID)
	return &header, nil
}

// UpdateOrder persists the header fields of an existing order. Children are
// untouched.
func (s *OrderStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	if o.ID == 0 {
		return ErrOrderNotSaved
	}
	header := *o
	header.Components = nil
	header.Deliveries = nil
	header.Operations = nil

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Save(&header).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Failed to update order %d: %v", o.ID, err)
		return err
	}
	if err := s.audit(tx, ctx, o.ID, "orders", o.ID, "update", fmt.Sprintf("order #%d updated", o.Number)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// CreateComponent appends a requirement line to a persisted order.
func (s *OrderStore) CreateComponent(ctx context.Context, orderID uint, c models.OrderComponent) (*models.OrderComponent, error) {
	c.ID = 0
	c.OrderID = orderID

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	if err := tx.Create(&c).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.audit(tx, ctx, orderID, "order_components", c.ID, "create", fmt.Sprintf("component item %d added, required %s", c.ItemID, c.RequiredQty.String())); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComponent rewrites an existing requirement line.
func (s *OrderStore) UpdateComponent(ctx context.Context, c models.OrderComponent) error {
	if c.ID == 0 {
		return ErrUnknownChild
	}
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Save(&c).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := s.audit(tx, ctx, c.OrderID, "order_components", c.ID, "update", fmt.Sprintf("component %d required quantity set to %s", c.ID, c.RequiredQty.String())); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// DeleteComponent removes a requirement line.
func (s *OrderStore) DeleteComponent(ctx context.Context, orderID, componentID uint) error {
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	res := tx.Where("id = ? AND order_id = ?", componentID, orderID).Delete(&models.OrderComponent{})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrUnknownChild
	}
	if err := s.audit(tx, ctx, orderID, "order_components", componentID, "delete", fmt.Sprintf("component %d removed", componentID)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// CreateDelivery persists one delivery record. This is the reconciliation
// target for draft deliveries; it is also called directly for deliveries
// added to an already-saved order.
func (s *OrderStore) CreateDelivery(ctx context.Context, orderID uint, d models.OrderDelivery) (*models.OrderDelivery, error) {
	d.ID = 0
	d.OrderID = orderID
	if d.BillingStatus == "" {
		d.BillingStatus = models.BillingNotBilled
	}

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	if err := tx.Create(&d).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.audit(tx, ctx, orderID, "order_deliveries", d.ID, "create", fmt.Sprintf("delivery of %s registered", d.Quantity.String())); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDelivery removes a persisted delivery record.
func (s *OrderStore) DeleteDelivery(ctx context.Context, orderID, deliveryID uint) error {
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	res := tx.Where("id = ? AND order_id = ?", deliveryID, orderID).Delete(&models.OrderDelivery{})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrUnknownChild
	}
	if err := s.audit(tx, ctx, orderID, "order_deliveries", deliveryID, "delete", fmt.Sprintf("delivery %d removed", deliveryID)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// BOM apply modes.
const (
	ApplyModeReplace = "replace"
	ApplyModeAppend  = "append"
)

// ApplyBom expands a BOM template into requirement lines on the order, scaled
// by the planned quantity. Replace mode wipes the existing lines first;
// append mode adds to them. The order keeps the template reference and a
// display snapshot.
func (s *OrderStore) ApplyBom(ctx context.Context, orderID, bomID uint, mode string) error {
	if mode != ApplyModeReplace && mode != ApplyModeAppend {
		return validationErr("mode", fmt.Sprintf("unknown apply mode %q", mode))
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return err
	}
	var bom models.Bom
	if err := s.DB.WithContext(ctx).Preload("Items").Preload("Items.Item").First(&bom, bomID).Error; err != nil {
		return err
	}
	if err := CheckTemplateApply(order.Kind, bom.UsageKind); err != nil {
		return err
	}

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if mode == ApplyModeReplace {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderComponent{}).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, line := range bom.Items {
		component := models.OrderComponent{
			OrderID:     orderID,
			ItemID:      line.ItemID,
			RequiredQty: line.QtyPerUnit.Mul(order.PlannedQty),
			Unit:        line.Unit,
		}
		if err := tx.Create(&component).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	updates := map[string]interface{}{
		"applied_bom_id":   bom.ID,
		"applied_bom_desc": bom.Label(),
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := s.audit(tx, ctx, orderID, "orders", orderID, "update", fmt.Sprintf("BOM %s applied (%s), %d lines", bom.Label(), mode, len(bom.Items))); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	utils.InfoLogger.Printf("BOM %d applied to order %d in %s mode", bomID, orderID, mode)
	return nil
}

// EnsureMaterialLink finds or creates the client-material link for the given
// client and item. Called during the save sequence when a processing order
// works on client stock but no link exists yet.
func (s *OrderStore) EnsureMaterialLink(ctx context.Context, clientID, itemID uint) (*models.ClientMaterial, error) {
	var link models.ClientMaterial
	err := s.DB.WithContext(ctx).
		Where("client_id = ? AND item_id = ?", clientID, itemID).
		First(&link).Error
	if err == nil {
		return &link, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var item models.Item
	if err := s.DB.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	link = models.ClientMaterial{
		ClientID:   clientID,
		ItemID:     itemID,
		ClientName: item.Name,
		Unit:       item.Unit,
		Active:     true,
	}
	if err := s.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Client material link created for client %d, item %d", clientID, itemID)
	return &link, nil
}

// GenerateOperations materializes the production report rows from the order's
// applied routing and locks the header. Idempotent: an order whose operations
// were already generated is left untouched.
func (s *OrderStore) GenerateOperations(ctx context.Context, orderID uint) error {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return err
	}
	if order.OperationsGenerated {
		return nil
	}
	if order.AppliedRoutingID == nil {
		return validationErr("applied_routing_id", "a routing must be applied before operations can be generated")
	}

	var routing models.Routing
	if err := s.DB.WithContext(ctx).First(&routing, *order.AppliedRoutingID).Error; err != nil {
		return err
	}

	names := splitOperationNames(routing.OperationNames, routing.OperationCount)

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	for i, name := range names {
		op := models.OrderOperation{
			OrderID:  orderID,
			Sequence: i + 1,
			Name:     name,
			Status:   models.OperationPending,
		}
		if err := tx.Create(&op).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("operations_generated", true).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := s.audit(tx, ctx, orderID, "orders", orderID, "update", fmt.Sprintf("%d operations generated from %s", len(names), routing.Label())); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	utils.InfoLogger.Printf("Generated %d operations for order %d", len(names), orderID)
	return nil
}

// splitOperationNames resolves the routing's step names, padding with generic
// names when the declared count exceeds the named steps.
func splitOperationNames(raw string, count int) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	for len(names) < count {
		names = append(names, fmt.Sprintf("Operation %d", len(names)+1))
	}
	return names
}

// SettleOrder closes an order early: remaining reservations are consumed,
// pending operations are marked done and the order moves to completed.
func (s *OrderStore) SettleOrder(ctx context.Context, orderID uint) error {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return err
	}
	if !CanSettle(order.Status) {
		return ErrNotSettleable
	}

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&models.OrderComponent{}).
		Where("order_id = ?", orderID).
		Update("consumed_qty", gorm.Expr("reserved_qty")).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Model(&models.OrderOperation{}).
		Where("order_id = ? AND status = ?", orderID, models.OperationPending).
		Update("status", models.OperationDone).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("status", StatusCompleted).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := s.audit(tx, ctx, orderID, "orders", orderID, "update", fmt.Sprintf("order #%d settled and completed", order.Number)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	utils.InfoLogger.Printf("Order %d settled", orderID)
	return nil
}

// ReloadOrder fetches the authoritative state of the order with all children.
func (s *OrderStore) ReloadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Item").
		Preload("Client").
		Preload("ClientMaterial").
		Preload("Components").
		Preload("Components.Item").
		Preload("Deliveries").
		Preload("Operations").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CloneOrder creates a fresh draft copy of an order: header and requirement
// lines carry over, deliveries and operations do not. Used to revise an
// order whose header is already locked.
func (s *OrderStore) CloneOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	source, err := s.ReloadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	clone := *source
	clone.ID = 0
	clone.Status = StatusDraft
	clone.OperationsGenerated = false
	clone.Deliveries = nil
	clone.Operations = nil
	clone.Components = nil
	clone.Item = nil
	clone.Client = nil
	clone.ClientMaterial = nil
	clone.Notes = strings.TrimSpace(fmt.Sprintf("Cloned from order #%d. %s", source.Number, source.Notes))
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	number, err := s.nextNumber(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	clone.Number = number

	if err := tx.Create(&clone).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, c := range source.Components {
		line := models.OrderComponent{
			OrderID:     clone.ID,
			ItemID:      c.ItemID,
			RequiredQty: c.RequiredQty,
			Unit:        c.Unit,
		}
		if err := tx.Create(&line).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := s.audit(tx, ctx, clone.ID, "orders", clone.ID, "create", fmt.Sprintf("order #%d cloned from #%d", clone.Number, source.Number)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order %d cloned into order %d", orderID, clone.ID)
	return s.ReloadOrder(ctx, clone.ID)
}

// AuditTrail lists the audit rows of an order, newest first.
func (s *OrderStore) AuditTrail(ctx context.Context, orderID uint) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := s.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}
