package main

import (
	"context"
	"log"

	"roadrescue-backend/controller"
	"roadrescue-backend/dal"
	_ "roadrescue-backend/docs"
	"roadrescue-backend/models"
	"roadrescue-backend/utils"
	"roadrescue-backend/utils/logger"
	"roadrescue-backend/worker"

	"github.com/gin-gonic/gin"
)

var config *models.Config

func Init() {
	var err error
	config, err = utils.GetConfig()
	if err != nil {
		log.Fatal(err)
	}
}

// @title RoadRescue Backend API
// @version 1.0
// @description Roadside assistance service request API. Customers create
// @description service requests (towing, jumpstarts, lockouts, fuel delivery
// @description and more), technicians claim and work them, and both sides
// @description track progress over REST and WebSocket.
// @description
// @description ## Authentication
// @description Register via **POST /user/register**, then log in with
// @description **POST /user/login** to receive a bearer token. Use the
// @description Authorize button (top right) to log in directly from this page.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Enter 'Bearer' [space] and then your token.
func main() {
	Init()

	ctx := context.Background()
	appLogger := logger.NewLogger(config.LogLevel, config.LogFormat)
	appLogger.Infof("Starting %s (%s)", config.AppName, config.AppEnv)

	dbclient, err := dal.NewDynamoDBClient(config, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to initialize DynamoDB client: %v", err)
	}

	// Table bootstrap runs in the background; the API comes up immediately
	// and requests against missing tables fail until setup finishes.
	infraWorker, err := worker.NewService(ctx, config, dbclient, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create infrastructure worker: %v", err)
	}
	if err := infraWorker.StartInBackground(); err != nil {
		appLogger.Fatalf("Failed to start infrastructure worker: %v", err)
	}

	r := gin.New()
	c := controller.NewController(ctx, config, appLogger)
	if err := c.RegisterRoutes(ctx, config, r, config.BasePath); err != nil {
		appLogger.Fatalf("Server exited: %v", err)
	}
}
