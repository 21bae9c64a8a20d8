package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
	"github.com/fabricaware/workorder-app/utils"
)

type OrderController struct {
	DB    *gorm.DB
	Store *services.OrderStore
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db, Store: services.NewOrderStore(db)}
}

// reqCtx carries the acting user and company into the service layer for
// audit attribution.
func reqCtx(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if userID, ok := c.Get("userID"); ok {
		ctx = context.WithValue(ctx, services.CtxUserID, userID)
	}
	if companyID, ok := c.Get("companyID"); ok {
		ctx = context.WithValue(ctx, services.CtxCompanyID, companyID)
	}
	return ctx
}

func companyOf(c *gin.Context) uint {
	if v, ok := c.Get("companyID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// respondServiceError maps service-layer failures onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var compat *services.CompatibilityError
	switch {
	case services.IsValidation(err), errors.As(err, &compat):
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, services.ErrOrderLocked),
		errors.Is(err, services.ErrKindFrozen),
		errors.Is(err, services.ErrHeaderFrozen),
		errors.Is(err, services.ErrNotSettleable),
		errors.Is(err, services.ErrStaleContext):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrUnknownChild),
		errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	default:
		utils.ErrorLogger.Printf("Order operation failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s parameter", name))
		return 0, false
	}
	return uint(v), true
}

// resumeSession opens an editing session over the order in the :id param.
func (oc *OrderController) resumeSession(c *gin.Context) (*services.Session, error) {
	var order models.Order
	if err := oc.DB.First(&order, c.Param("id")).Error; err != nil {
		return nil, err
	}
	loaded, err := oc.Store.ReloadOrder(reqCtx(c), order.ID)
	if err != nil {
		return nil, err
	}
	companyID := companyOf(c)
	return services.ResumeSession(oc.Store, companyID, func() uint { return companyID }, loaded), nil
}

type orderHeaderInput struct {
	Kind              *string          `json:"kind"`
	Status            *string          `json:"status"`
	ItemID            *uint            `json:"item_id"`
	ItemName          *string          `json:"item_name"`
	ClientID          *uint            `json:"client_id"`
	PlannedQty        *decimal.Decimal `json:"planned_qty"`
	Unit              *string          `json:"unit"`
	Priority          *int             `json:"priority"`
	UseClientMaterial *bool            `json:"use_client_material"`
	ClientMaterialID  *uint            `json:"client_material_id"`
	PlannedStart      *time.Time       `json:"planned_start"`
	PlannedEnd        *time.Time       `json:"planned_end"`
	PlannedDelivery   *time.Time       `json:"planned_delivery"`
	DocumentRef       *string          `json:"document_ref"`
	ClientOrderRef    *string          `json:"client_order_ref"`
	ClientBatch       *string          `json:"client_batch"`
	Notes             *string          `json:"notes"`
}

func (in *orderHeaderInput) apply(o *models.Order) {
	if in.Kind != nil {
		o.Kind = *in.Kind
	}
	if in.Status != nil {
		o.Status = *in.Status
	}
	if in.ItemID != nil {
		o.ItemID = in.ItemID
	}
	if in.ItemName != nil {
		o.ItemName = *in.ItemName
	}
	if in.ClientID != nil {
		o.ClientID = in.ClientID
	}
	if in.PlannedQty != nil {
		o.PlannedQty = *in.PlannedQty
	}
	if in.Unit != nil {
		o.Unit = *in.Unit
	}
	if in.Priority != nil {
		o.Priority = *in.Priority
	}
	if in.UseClientMaterial != nil {
		o.UseClientMaterial = *in.UseClientMaterial
	}
	if in.ClientMaterialID != nil {
		o.ClientMaterialID = in.ClientMaterialID
	}
	if in.PlannedStart != nil {
		o.PlannedStart = in.PlannedStart
	}
	if in.PlannedEnd != nil {
		o.PlannedEnd = in.PlannedEnd
	}
	if in.PlannedDelivery != nil {
		o.PlannedDelivery = in.PlannedDelivery
	}
	if in.DocumentRef != nil {
		o.DocumentRef = *in.DocumentRef
	}
	if in.ClientOrderRef != nil {
		o.ClientOrderRef = *in.ClientOrderRef
	}
	if in.ClientBatch != nil {
		o.ClientBatch = *in.ClientBatch
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
}

type draftDeliveryInput struct {
	Quantity      decimal.Decimal `json:"quantity"`
	DeliveryDate  *time.Time      `json:"delivery_date"`
	BillingStatus string          `json:"billing_status"`
	DocumentRef   string          `json:"document_ref"`
	Notes         string          `json:"notes"`
}

func (in *draftDeliveryInput) model() models.OrderDelivery {
	d := models.OrderDelivery{
		Quantity:      in.Quantity,
		BillingStatus: in.BillingStatus,
		DocumentRef:   in.DocumentRef,
		Notes:         in.Notes,
	}
	if in.DeliveryDate != nil {
		d.DeliveryDate = *in.DeliveryDate
	} else {
		d.DeliveryDate = time.Now()
	}
	return d
}

type deliveryReport struct {
	Key         string `json:"key"`
	PersistedID uint   `json:"persisted_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

func reportDeliveries(results []services.DeliveryResult) []deliveryReport {
	out := make([]deliveryReport, 0, len(results))
	for _, r := range results {
		entry := deliveryReport{Key: r.Key, PersistedID: r.PersistedID}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

// SaveSession runs one composite save: header create-or-update plus the
// reconciliation of every draft delivery sent along. A partial reconciliation
// failure answers 207 with the per-delivery outcomes; the header and the
// successful deliveries are persisted either way.
func (oc *OrderController) SaveSession(c *gin.Context) {
	var input struct {
		OrderID *uint `json:"order_id"`
		orderHeaderInput
		Deliveries []draftDeliveryInput `json:"deliveries"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := reqCtx(c)
	companyID := companyOf(c)

	var session *services.Session
	if input.OrderID != nil {
		loaded, err := oc.Store.ReloadOrder(ctx, *input.OrderID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		session = services.ResumeSession(oc.Store, companyID, func() uint { return companyID }, loaded)
	} else {
		kind := models.OrderKindProduction
		if input.Kind != nil {
			kind = *input.Kind
		}
		session = services.NewSession(oc.Store, companyID, func() uint { return companyID }, kind)
	}

	if err := session.UpdateHeader(input.orderHeaderInput.apply); err != nil {
		respondServiceError(c, err)
		return
	}

	for _, d := range input.Deliveries {
		if _, err := session.AddDelivery(d.model()); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	order, report, err := session.Save(ctx)
	var recErr *services.ReconcileError
	switch {
	case err == nil:
		utils.RespondJSON(c, http.StatusOK, "Order saved", gin.H{
			"order":      order,
			"created":    report.Created,
			"deliveries": reportDeliveries(report.Deliveries),
		})
	case errors.As(err, &recErr):
		c.JSON(http.StatusMultiStatus, utils.JSONResponse{
			Status:  false,
			Message: err.Error(),
			Data: gin.H{
				"order":      order,
				"created":    report.Created,
				"deliveries": reportDeliveries(report.Deliveries),
			},
		})
	default:
		respondServiceError(c, err)
	}
}

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	query := oc.DB.Preload("Item").Preload("Client")
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	var orders []models.Order
	if err := query.Order("number DESC").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders retrieved", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	var order models.Order
	if err := oc.DB.First(&order, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	loaded, err := oc.Store.ReloadOrder(reqCtx(c), order.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	remaining := services.DeliveryRemaining(loaded.PlannedQty, loaded.Deliveries)
	utils.RespondJSON(c, http.StatusOK, "Order retrieved", gin.H{
		"order":             loaded,
		"delivered_total":   loaded.DeliveredTotal(),
		"remaining_balance": remaining,
		"overrun":           services.DeliveryOverrun(loaded.PlannedQty, loaded.Deliveries),
	})
}

func (oc *OrderController) UpdateOrderHeader(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input orderHeaderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := session.UpdateHeader(input.apply); err != nil {
		respondServiceError(c, err)
		return
	}

	order, _, err := session.Save(reqCtx(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := session.UpdateHeader(func(o *models.Order) {
		o.Status = services.StatusCancelled
	}); err != nil {
		respondServiceError(c, err)
		return
	}
	order, _, err := session.Save(reqCtx(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Order %d cancelled", order.ID)
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func (oc *OrderController) AddComponent(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input struct {
		ItemID      uint            `json:"item_id" binding:"required"`
		RequiredQty decimal.Decimal `json:"required_qty"`
		Unit        string          `json:"unit"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if input.Unit == "" {
		input.Unit = "un"
	}

	component := models.OrderComponent{
		ItemID:      input.ItemID,
		RequiredQty: input.RequiredQty,
		Unit:        input.Unit,
	}
	if err := session.AddComponent(reqCtx(c), component); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Component added", session.Draft())
}

func (oc *OrderController) UpdateComponent(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input struct {
		ComponentID uint            `json:"component_id" binding:"required"`
		RequiredQty decimal.Decimal `json:"required_qty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := session.UpdateComponentQuantity(reqCtx(c), input.ComponentID, input.RequiredQty); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Component updated", session.Draft())
}

func (oc *OrderController) DeleteComponent(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	componentID, ok := parseUintParam(c, "componentId")
	if !ok {
		return
	}
	if err := session.RemoveComponent(reqCtx(c), componentID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Component removed", session.Draft())
}

// AddDelivery registers and immediately reconciles one delivery against a
// persisted order. The balance check runs before any I/O.
func (oc *OrderController) AddDelivery(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input draftDeliveryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := session.AddDelivery(input.model()); err != nil {
		respondServiceError(c, err)
		return
	}
	order, report, err := session.Save(reqCtx(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Delivery registered", gin.H{
		"order":      order,
		"deliveries": reportDeliveries(report.Deliveries),
	})
}

func (oc *OrderController) DeleteDelivery(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := session.RemoveDelivery(reqCtx(c), c.Param("deliveryKey")); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery removed", session.Draft())
}

func (oc *OrderController) ApplyBom(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input struct {
		BomID uint   `json:"bom_id" binding:"required"`
		Mode  string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if input.Mode == "" {
		input.Mode = services.ApplyModeReplace
	}

	var bom models.Bom
	if err := oc.DB.First(&bom, input.BomID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := session.ApplyBomTemplate(reqCtx(c), &bom, input.Mode); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "BOM applied", session.Draft())
}

func (oc *OrderController) ApplyRouting(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input struct {
		RoutingID uint `json:"routing_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var routing models.Routing
	if err := oc.DB.First(&routing, input.RoutingID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := session.ApplyRouting(&routing); err != nil {
		respondServiceError(c, err)
		return
	}
	order, _, err := session.Save(reqCtx(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Routing applied", order)
}

func (oc *OrderController) ReleaseOrder(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := session.Release(reqCtx(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order released", session.Draft())
}

func (oc *OrderController) SettleOrder(c *gin.Context) {
	session, err := oc.resumeSession(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := session.Settle(reqCtx(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order settled", session.Draft())
}

// DeleteOrder hard-deletes an order that never left draft. Anything further
// along keeps its history and is cancelled instead.
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	var order models.Order
	if err := oc.DB.First(&order, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if order.Status != services.StatusDraft {
		utils.RespondError(c, http.StatusConflict, errors.New("only draft orders can be deleted, cancel instead"))
		return
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.OrderComponent{}, &models.OrderDelivery{}, &models.OrderOperation{}, &models.AuditLog{},
		} {
			if err := tx.Where("order_id = ?", order.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Draft order %d deleted", order.ID)
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

func (oc *OrderController) CloneOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	clone, err := oc.Store.CloneOrder(reqCtx(c), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order cloned", clone)
}

func (oc *OrderController) GetOrderAudit(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	entries, err := oc.Store.AuditTrail(reqCtx(c), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Audit trail retrieved", entries)
}
