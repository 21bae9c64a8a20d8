package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
	"github.com/fabricaware/workorder-app/utils"
)

type RoutingController struct {
	DB *gorm.DB
}

func NewRoutingController(db *gorm.DB) *RoutingController {
	return &RoutingController{DB: db}
}

func (rc *RoutingController) CreateRouting(c *gin.Context) {
	var input struct {
		ItemID               uint   `json:"item_id" binding:"required"`
		Code                 string `json:"code"`
		Description          string `json:"description"`
		Version              int    `json:"version"`
		UsageKind            string `json:"usage_kind"`
		DefaultForProduction bool   `json:"default_for_production"`
		DefaultForProcessing bool   `json:"default_for_processing"`
		OperationCount       int    `json:"operation_count"`
		OperationNames       string `json:"operation_names"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if input.UsageKind == "" {
		input.UsageKind = models.TemplateUsageProduction
	}
	if input.Version == 0 {
		input.Version = 1
	}
	if input.OperationCount == 0 {
		input.OperationCount = 1
	}

	routing := models.Routing{
		ItemID:               input.ItemID,
		Code:                 input.Code,
		Description:          input.Description,
		Version:              input.Version,
		UsageKind:            input.UsageKind,
		DefaultForProduction: input.DefaultForProduction,
		DefaultForProcessing: input.DefaultForProcessing,
		OperationCount:       input.OperationCount,
		OperationNames:       input.OperationNames,
		Active:               true,
	}

	if err := rc.DB.Create(&routing).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Routing created: %s", routing.Label())
	utils.RespondJSON(c, http.StatusCreated, "Routing created", routing)
}

type routingView struct {
	models.Routing
	Compatible         bool   `json:"compatible"`
	IsDefault          bool   `json:"is_default"`
	IncompatibleReason string `json:"incompatible_reason,omitempty"`
}

func (rc *RoutingController) GetAllRoutings(c *gin.Context) {
	orderKind := c.Query("order_kind")

	query := rc.DB.Session(&gorm.Session{})
	if itemID := c.Query("item_id"); itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}
	if c.Query("active") != "false" {
		query = query.Where("active = ?", true)
	}

	var routings []models.Routing
	if err := query.Order("code, version DESC").Find(&routings).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	views := make([]routingView, 0, len(routings))
	for _, r := range routings {
		view := routingView{
			Routing:    r,
			Compatible: true,
			IsDefault:  services.DefaultTemplate(orderKind, r.DefaultForProduction, r.DefaultForProcessing),
		}
		if orderKind != "" {
			if err := services.CheckTemplateApply(orderKind, r.UsageKind); err != nil {
				view.Compatible = false
				view.IncompatibleReason = err.Error()
			}
		}
		views = append(views, view)
	}

	utils.RespondJSON(c, http.StatusOK, "Routings retrieved", views)
}

func (rc *RoutingController) GetRoutingByID(c *gin.Context) {
	var routing models.Routing
	if err := rc.DB.First(&routing, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Routing retrieved", routing)
}

func (rc *RoutingController) UpdateRouting(c *gin.Context) {
	var routing models.Routing
	if err := rc.DB.First(&routing, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var input struct {
		Description          *string `json:"description"`
		UsageKind            *string `json:"usage_kind"`
		DefaultForProduction *bool   `json:"default_for_production"`
		DefaultForProcessing *bool   `json:"default_for_processing"`
		OperationCount       *int    `json:"operation_count"`
		OperationNames       *string `json:"operation_names"`
		Active               *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if input.Description != nil {
		routing.Description = *input.Description
	}
	if input.UsageKind != nil {
		routing.UsageKind = *input.UsageKind
	}
	if input.DefaultForProduction != nil {
		routing.DefaultForProduction = *input.DefaultForProduction
	}
	if input.DefaultForProcessing != nil {
		routing.DefaultForProcessing = *input.DefaultForProcessing
	}
	if input.OperationCount != nil {
		routing.OperationCount = *input.OperationCount
	}
	if input.OperationNames != nil {
		routing.OperationNames = *input.OperationNames
	}
	if input.Active != nil {
		routing.Active = *input.Active
	}

	if err := rc.DB.Save(&routing).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Routing updated", routing)
}
