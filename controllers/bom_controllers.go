package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
	"github.com/fabricaware/workorder-app/utils"
)

type BomController struct {
	DB *gorm.DB
}

func NewBomController(db *gorm.DB) *BomController {
	return &BomController{DB: db}
}

func (bc *BomController) CreateBom(c *gin.Context) {
	var input struct {
		ItemID               uint   `json:"item_id" binding:"required"`
		Code                 string `json:"code"`
		Description          string `json:"description"`
		Version              int    `json:"version"`
		UsageKind            string `json:"usage_kind"`
		DefaultForProduction bool   `json:"default_for_production"`
		DefaultForProcessing bool   `json:"default_for_processing"`
		Items                []struct {
			ItemID     uint   `json:"item_id" binding:"required"`
			QtyPerUnit string `json:"qty_per_unit" binding:"required"`
			Unit       string `json:"unit"`
		} `json:"items"`
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

	bom := models.Bom{
		ItemID:               input.ItemID,
		Code:                 input.Code,
		Description:          input.Description,
		Version:              input.Version,
		UsageKind:            input.UsageKind,
		DefaultForProduction: input.DefaultForProduction,
		DefaultForProcessing: input.DefaultForProcessing,
		Active:               true,
	}
	for _, line := range input.Items {
		qty, err := decimal.NewFromString(line.QtyPerUnit)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		unit := line.Unit
		if unit == "" {
			unit = "un"
		}
		bom.Items = append(bom.Items, models.BomItem{
			ItemID:     line.ItemID,
			QtyPerUnit: qty,
			Unit:       unit,
		})
	}

	if err := bc.DB.Create(&bom).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("BOM created: %s", bom.Label())
	utils.RespondJSON(c, http.StatusCreated, "BOM created", bom)
}

// bomView annotates a template with the compatibility verdict against an
// order kind, so the picker can list incompatible templates disabled instead
// of hiding them.
type bomView struct {
	models.Bom
	Compatible         bool   `json:"compatible"`
	IsDefault          bool   `json:"is_default"`
	IncompatibleReason string `json:"incompatible_reason,omitempty"`
}

func (bc *BomController) GetAllBoms(c *gin.Context) {
	orderKind := c.Query("order_kind")

	query := bc.DB.Preload("Items").Preload("Items.Item")
	if itemID := c.Query("item_id"); itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}
	if c.Query("active") != "false" {
		query = query.Where("active = ?", true)
	}

	var boms []models.Bom
	if err := query.Order("code, version DESC").Find(&boms).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	views := make([]bomView, 0, len(boms))
	for _, b := range boms {
		view := bomView{
			Bom:        b,
			Compatible: true,
			IsDefault:  services.DefaultTemplate(orderKind, b.DefaultForProduction, b.DefaultForProcessing),
		}
		if orderKind != "" {
			if err := services.CheckTemplateApply(orderKind, b.UsageKind); err != nil {
				view.Compatible = false
				view.IncompatibleReason = err.Error()
			}
		}
		views = append(views, view)
	}

	utils.RespondJSON(c, http.StatusOK, "BOMs retrieved", views)
}

func (bc *BomController) GetBomByID(c *gin.Context) {
	var bom models.Bom
	if err := bc.DB.Preload("Items").Preload("Items.Item").First(&bom, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "BOM retrieved", bom)
}

func (bc *BomController) UpdateBom(c *gin.Context) {
	var bom models.Bom
	if err := bc.DB.First(&bom, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var input struct {
		Description          *string `json:"description"`
		UsageKind            *string `json:"usage_kind"`
		DefaultForProduction *bool   `json:"default_for_production"`
		DefaultForProcessing *bool   `json:"default_for_processing"`
		Active               *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if input.Description != nil {
		bom.Description = *input.Description
	}
	if input.UsageKind != nil {
		bom.UsageKind = *input.UsageKind
	}
	if input.DefaultForProduction != nil {
		bom.DefaultForProduction = *input.DefaultForProduction
	}
	if input.DefaultForProcessing != nil {
		bom.DefaultForProcessing = *input.DefaultForProcessing
	}
	if input.Active != nil {
		bom.Active = *input.Active
	}

	if err := bc.DB.Save(&bom).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "BOM updated", bom)
}
