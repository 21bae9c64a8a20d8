package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/utils"
)

type ClientController struct {
	DB *gorm.DB
}

func NewClientController(db *gorm.DB) *ClientController {
	return &ClientController{DB: db}
}

func (cc *ClientController) CreateClient(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Document string `json:"document"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	client := models.Client{
		Name:     input.Name,
		Document: input.Document,
		Active:   true,
	}
	if err := cc.DB.Create(&client).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Client created: %s", client.Name)
	utils.RespondJSON(c, http.StatusCreated, "Client created", client)
}

func (cc *ClientController) GetAllClients(c *gin.Context) {
	var clients []models.Client
	query := cc.DB
	if c.Query("active") == "true" {
		query = query.Where("active = ?", true)
	}
	if err := query.Order("name").Find(&clients).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Clients retrieved", clients)
}

func (cc *ClientController) GetClientByID(c *gin.Context) {
	var client models.Client
	if err := cc.DB.First(&client, c.Param("id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Client retrieved", client)
}

// GetClientMaterials lists the material links of one client, for the
// client-material picker on processing orders.
func (cc *ClientController) GetClientMaterials(c *gin.Context) {
	var materials []models.ClientMaterial
	if err := cc.DB.Where("client_id = ? AND active = ?", c.Param("id"), true).Find(&materials).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Client materials retrieved", materials)
}

func (cc *ClientController) CreateClientMaterial(c *gin.Context) {
	var input struct {
		ClientID   uint   `json:"client_id" binding:"required"`
		ItemID     uint   `json:"item_id" binding:"required"`
		ClientCode string `json:"client_code"`
		ClientName string `json:"client_name"`
		Unit       string `json:"unit"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	material := models.ClientMaterial{
		ClientID:   input.ClientID,
		ItemID:     input.ItemID,
		ClientCode: input.ClientCode,
		ClientName: input.ClientName,
		Unit:       input.Unit,
		Active:     true,
	}
	if err := cc.DB.Create(&material).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Client material created", material)
}
