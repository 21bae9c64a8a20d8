package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/controllers"
	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/utils"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Client{},
		&models.ClientMaterial{},
		&models.Bom{},
		&models.BomItem{},
		&models.Routing{},
		&models.Order{},
		&models.OrderComponent{},
		&models.OrderDelivery{},
		&models.OrderOperation{},
		&models.AuditLog{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

func setupUserRouterForTest(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	userCtrl := controllers.NewUserController(db)
	router.POST("/register", userCtrl.Register)
	router.POST("/login", userCtrl.Login)

	return router
}

func TestRegisterAndLogin(t *testing.T) {
	utils.InitLogger()

	db := setupTestDB()
	router := setupUserRouterForTest(db)

	registerPayload := map[string]interface{}{
		"name":       "Test User",
		"email":      "planner@example.com",
		"password":   "password123",
		"role":       "member",
		"company_id": 1,
	}
	payloadBytes, err := json.Marshal(registerPayload)
	assert.NoError(t, err)

	req, err := http.NewRequest("POST", "/register", bytes.NewBuffer(payloadBytes))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	loginPayload := map[string]string{
		"email":    "planner@example.com",
		"password": "password123",
	}
	payloadBytes, err = json.Marshal(loginPayload)
	assert.NoError(t, err)

	req, err = http.NewRequest("POST", "/login", bytes.NewBuffer(payloadBytes))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.JSONResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "member", data["user_role"])

	claims, err := utils.ParseToken(data["token"].(string))
	assert.NoError(t, err)
	assert.Equal(t, "member", claims.Role)
	assert.Equal(t, uint(1), claims.CompanyID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	utils.InitLogger()

	db := setupTestDB()
	router := setupUserRouterForTest(db)

	registerPayload := map[string]interface{}{
		"name":       "Other User",
		"email":      "viewer@example.com",
		"password":   "password123",
		"role":       "viewer",
		"company_id": 1,
	}
	payloadBytes, _ := json.Marshal(registerPayload)
	req, _ := http.NewRequest("POST", "/register", bytes.NewBuffer(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	loginPayload := map[string]string{
		"email":    "viewer@example.com",
		"password": "wrong",
	}
	payloadBytes, _ = json.Marshal(loginPayload)
	req, _ = http.NewRequest("POST", "/login", bytes.NewBuffer(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
