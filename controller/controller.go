package controller

import (
	"context"
	"net/http"

	"roadrescue-backend/dal"
	"roadrescue-backend/middelware"
	"roadrescue-backend/models"
	"roadrescue-backend/repository"
	"roadrescue-backend/services"
	"roadrescue-backend/socket"
	"roadrescue-backend/utils/logger"
	"roadrescue-backend/utils/swagger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	User      *UserController
	Request   *RequestController
	WebSocket *WebSocketController

	jwtManager *middelware.JWTManager
}

func NewController(ctx context.Context, cfg *models.Config, log logger.Logger) *Controller {
	dbclient, err := dal.NewDynamoDBClient(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize DynamoDB client: %v", err)
	}

	userRepo := repository.NewUserRepository(dbclient, cfg, log)
	requestRepo := repository.NewRequestRepository(dbclient, cfg, log)
	jwtManager := middelware.NewJWTManager(cfg, log, userRepo)

	hub := socket.NewHub(log)
	lifecycle := services.NewLifecycleService(requestRepo, userRepo, hub, log)

	return &Controller{
		User:       NewUserController(userRepo, lifecycle, log, jwtManager),
		Request:    NewRequestController(lifecycle, log),
		WebSocket:  NewWebSocketController(hub, jwtManager, log),
		jwtManager: jwtManager,
	}
}

func (c *Controller) RegisterRoutes(ctx context.Context, config *models.Config, r *gin.Engine, basePath string) error {
	log := logger.NewLogger(config.LogLevel, config.LogFormat)

	r.Use(middelware.Recovery(log))
	r.Use(middelware.RequestLogger(log))
	r.Use(middelware.CORS(config))

	v1 := r.Group(basePath)

	// Health check endpoint (no auth required)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": config.AppVersion,
			"service": config.AppName,
		})
	})

	// Swagger UI with authentication form
	swaggerConfig := swagger.SwaggerConfig{
		Title:         "RoadRescue Backend API",
		SwaggerDocURL: "/swagger/doc.json",
		AuthURL:       basePath + "/user/login",
	}
	r.GET("/swagger", swagger.ServeCleanSwagger(swaggerConfig))
	r.GET("/swagger/", swagger.ServeCleanSwagger(swaggerConfig))
	r.GET("/swagger/index.html", swagger.ServeCleanSwagger(swaggerConfig))

	// Swagger JSON spec
	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.File("./docs/swagger.json")
	})

	auth := c.jwtManager.AuthMiddleware()

	// User routes
	user := v1.Group("/user")
	user.POST("/register", c.User.Register)
	user.POST("/login", c.User.Login)
	user.POST("/logout", auth, c.User.Logout)
	user.GET("/me", auth, c.User.Me)
	user.PATCH("/equipment", auth, c.jwtManager.RequireRole(models.UserRoleTechnician), c.User.UpdateEquipment)

	// Service request lifecycle routes
	requests := v1.Group("/requests", auth)
	requests.POST("", c.jwtManager.RequireRole(models.UserRoleCustomer), c.Request.Create)
	requests.GET("/pending", c.jwtManager.RequireRole(models.UserRoleTechnician), c.Request.ListPending)
	requests.GET("/my-requests", c.Request.ListMyRequests)
	requests.GET("/my-jobs", c.jwtManager.RequireRole(models.UserRoleTechnician), c.Request.ListMyJobs)
	requests.GET("/unread-count", c.Request.UnreadCount)
	requests.GET("/:id", c.Request.Get)
	requests.POST("/:id/claim", c.jwtManager.RequireRole(models.UserRoleTechnician), c.Request.Claim)
	requests.PATCH("/:id/status", c.Request.UpdateStatus)
	requests.POST("/:id/confirm-arrival", c.Request.ConfirmArrival)
	requests.POST("/:id/confirm-completion", c.Request.ConfirmCompletion)
	requests.POST("/:id/location", c.jwtManager.RequireRole(models.UserRoleTechnician), c.Request.RecordLocation)
	requests.POST("/:id/messages", c.Request.SendMessage)
	requests.POST("/:id/shop", c.jwtManager.RequireRole(models.UserRoleCustomer), c.Request.SelectShop)
	requests.POST("/:id/review", c.Request.SubmitReview)

	// WebSocket endpoint (token passed as query parameter)
	r.GET("/ws", c.WebSocket.ServeWs)

	// Create HTTP server
	srv := &http.Server{
		Addr:    config.AppHost + ":" + config.AppPort,
		Handler: r,
	}
	// Start server
	log.Infof("Starting server on %s:%s", config.AppHost, config.AppPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
