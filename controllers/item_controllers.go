package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/utils"
)

type ItemController struct {
	DB *gorm.DB
}

func NewItemController(db *gorm.DB) *ItemController {
	return &ItemController{DB: db}
}

func (ic *ItemController) CreateItem(c *gin.Context) {
	var input struct {
		Code string `json:"code" binding:"required"`
		Name string `json:"name" binding:"required"`
		Unit string `json:"unit"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item := models.Item{
		Code:   input.Code,
		Name:   input.Name,
		Unit:   input.Unit,
		Active: true,
	}
	if item.Unit == "" {
		item.Unit = "un"
	}

	if err := ic.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Item created: %s (%s)", item.Code, item.Name)
	utils.RespondJSON(c, http.StatusCreated, "Item created", item)
}

func (ic *ItemController) GetAllItems(c *gin.Context) {
	var items []models.Item
	query := ic.DB
	if c.Query("active") == "true" {
		query = query.Where("active = ?", true)
	}
	if err := query.Order("code").Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Items retrieved", items)
}

func (ic *ItemController) GetItemByID(c *gin.Context) {
	var item models.Item
	if err := ic.DB.First(&item, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item retrieved", item)
}

func (ic *ItemController) UpdateItem(c *gin.Context) {
	var item models.Item
	if err := ic.DB.First(&item, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var input struct {
		Name   *string `json:"name"`
		Unit   *string `json:"unit"`
		Active *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.Active != nil {
		item.Active = *input.Active
	}

	if err := ic.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", item)
}
