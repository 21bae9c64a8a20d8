package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fabricaware/workorder-app/controllers"
	"github.com/fabricaware/workorder-app/middlewares"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	itemCtrl := controllers.NewItemController(db)
	clientCtrl := controllers.NewClientController(db)
	bomCtrl := controllers.NewBomController(db)
	routingCtrl := controllers.NewRoutingController(db)
	orderCtrl := controllers.NewOrderController(db)
	adminCtrl := controllers.NewAdminController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())

	api.GET("/profile", userCtrl.GetProfile)
	api.GET("/users", userCtrl.GetAllUsers)
	api.POST("/logout", userCtrl.Logout)

	// Catalog reads, open to every authenticated role.
	api.GET("/items", itemCtrl.GetAllItems)
	api.GET("/items/:id", itemCtrl.GetItemByID)
	api.GET("/clients", clientCtrl.GetAllClients)
	api.GET("/clients/:id", clientCtrl.GetClientByID)
	api.GET("/clients/:id/materials", clientCtrl.GetClientMaterials)
	api.GET("/boms", bomCtrl.GetAllBoms)
	api.GET("/boms/:id", bomCtrl.GetBomByID)
	api.GET("/routings", routingCtrl.GetAllRoutings)
	api.GET("/routings/:id", routingCtrl.GetRoutingByID)

	// Order reads.
	api.GET("/orders", orderCtrl.GetAllOrders)
	api.GET("/orders/:id", orderCtrl.GetOrderByID)
	api.GET("/orders/:id/audit", orderCtrl.GetOrderAudit)

	// Reporting.
	api.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
	api.GET("/orders-stats", adminCtrl.GetOrderStats)

	// Mutations require the member role; admins pass everywhere.
	member := api.Group("/")
	member.Use(middlewares.RequireRole("member"))
	{
		member.POST("/items", itemCtrl.CreateItem)
		member.PATCH("/items/:id", itemCtrl.UpdateItem)
		member.POST("/clients", clientCtrl.CreateClient)
		member.POST("/client-materials", clientCtrl.CreateClientMaterial)
		member.POST("/boms", bomCtrl.CreateBom)
		member.PATCH("/boms/:id", bomCtrl.UpdateBom)
		member.POST("/routings", routingCtrl.CreateRouting)
		member.PATCH("/routings/:id", routingCtrl.UpdateRouting)

		// Composite save: header create-or-update plus draft delivery
		// reconciliation in one request.
		member.POST("/orders/save", orderCtrl.SaveSession)
		member.PATCH("/orders/:id", orderCtrl.UpdateOrderHeader)
		member.DELETE("/orders/:id", orderCtrl.DeleteOrder)
		member.POST("/orders/:id/cancel", orderCtrl.CancelOrder)

		member.POST("/orders/:id/components", orderCtrl.AddComponent)
		member.PATCH("/orders/:id/components", orderCtrl.UpdateComponent)
		member.DELETE("/orders/:id/components/:componentId", orderCtrl.DeleteComponent)

		member.POST("/orders/:id/deliveries", orderCtrl.AddDelivery)
		member.DELETE("/orders/:id/deliveries/:deliveryKey", orderCtrl.DeleteDelivery)

		member.POST("/orders/:id/apply-bom", orderCtrl.ApplyBom)
		member.POST("/orders/:id/apply-routing", orderCtrl.ApplyRouting)

		member.POST("/orders/:id/release", orderCtrl.ReleaseOrder)
		member.POST("/orders/:id/settle", orderCtrl.SettleOrder)
		member.POST("/orders/:id/clone", orderCtrl.CloneOrder)
	}

	return r
}
