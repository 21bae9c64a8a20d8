package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
	"github.com/fabricaware/workorder-app/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// GetDashboardStats summarizes the order book for the planning dashboard.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	var byStatus []statusCount
	if err := ac.DB.Model(&models.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var active int64
	if err := ac.DB.Model(&models.Order{}).
		Where("status NOT IN ?", []string{services.StatusCompleted, services.StatusCancelled}).
		Count(&active).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var overdue int64
	if err := ac.DB.Model(&models.Order{}).
		Where("planned_delivery < ? AND status NOT IN ?", time.Now(),
			[]string{services.StatusCompleted, services.StatusCancelled}).
		Count(&overdue).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"by_status":      byStatus,
		"active_orders":  active,
		"overdue_orders": overdue,
	})
}

// GetOrderStats reports the fulfillment position of the active orders:
// planned versus delivered with the open balance per order.
func (ac *AdminController) GetOrderStats(c *gin.Context) {
	var orders []models.Order
	query := ac.DB.Preload("Deliveries").
		Where("status NOT IN ?", []string{services.StatusCompleted, services.StatusCancelled})
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Order("number").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	type orderStat struct {
		OrderID   uint            `json:"order_id"`
		Number    int             `json:"number"`
		Kind      string          `json:"kind"`
		Status    string          `json:"status"`
		Planned   decimal.Decimal `json:"planned"`
		Delivered decimal.Decimal `json:"delivered"`
		Remaining decimal.Decimal `json:"remaining"`
	}

	stats := make([]orderStat, 0, len(orders))
	totalPlanned := decimal.Zero
	totalDelivered := decimal.Zero
	for i := range orders {
		o := &orders[i]
		delivered := o.DeliveredTotal()
		stats = append(stats, orderStat{
			OrderID:   o.ID,
			Number:    o.Number,
			Kind:      o.Kind,
			Status:    o.Status,
			Planned:   o.PlannedQty,
			Delivered: delivered,
			Remaining: services.DeliveryRemaining(o.PlannedQty, o.Deliveries),
		})
		totalPlanned = totalPlanned.Add(o.PlannedQty)
		totalDelivered = totalDelivered.Add(delivered)
	}

	utils.RespondJSON(c, http.StatusOK, "Order stats", gin.H{
		"orders":          stats,
		"total_planned":   totalPlanned,
		"total_delivered": totalDelivered,
	})
}
