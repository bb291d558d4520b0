package api

import (
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/prabhupmb/option-trading-sub000/internal/brokers"
	"github.com/prabhupmb/option-trading-sub000/internal/config"
	"github.com/prabhupmb/option-trading-sub000/internal/handlers"
	"github.com/prabhupmb/option-trading-sub000/internal/middleware"
	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/scan"
	"github.com/prabhupmb/option-trading-sub000/internal/services"
	"github.com/prabhupmb/option-trading-sub000/internal/websocket"
	"github.com/prabhupmb/option-trading-sub000/internal/workflow"
)

// SetupRouter configures all routes and returns the router
func SetupRouter(
	db *gorm.DB,
	redisClient *redis.Client,
	wsHub *websocket.Hub,
	cfg *config.Config,
) *mux.Router {
	// Create a new router
	router := mux.NewRouter()

	// Add health check endpoint
	router.HandleFunc("/api/health", HealthHandler).Methods("GET")

	// WebSocket route
	router.HandleFunc("/ws", wsHub.HandleWebSocket)

	// Create services
	authService := services.NewAuthService(db)
	userService := services.NewUserService(db)
	signalService := services.NewSignalService(db)
	tradeService := services.NewTradeService(db)
	brokerService := brokers.NewService(db)

	// The explicit broker selection survives restarts when Redis is
	// available; otherwise it lives in memory for the process lifetime.
	var selectionStore brokers.SelectionStore
	if redisClient != nil {
		selectionStore = brokers.NewRedisSelectionStore(redisClient)
	} else {
		selectionStore = brokers.NewMemorySelectionStore()
	}
	resolver := brokers.NewResolver(brokerService, selectionStore)

	// External workflow service client
	workflowClient := workflow.NewHTTPClient(cfg.Workflow.BaseURL, cfg.Workflow.Timeout)

	// Scan tracker: progress frames go out over the hub, and completion asks
	// clients to reload their displayed data.
	tracker := scan.NewTracker(signalService, workflowClient, scan.Options{
		PollInterval: cfg.Scan.PollInterval,
		Timeout:      cfg.Scan.Timeout,
		ResetDelay:   cfg.Scan.ResetDelay,
		OnReload: func() {
			wsHub.Broadcast(models.Message{Type: models.MessageReloadData, Content: "signals"})
		},
		Notify: func(p scan.Progress) {
			wsHub.Broadcast(models.Message{Type: models.MessageScanProgress, Content: p})
		},
	})

	// Create handlers using services
	authHandler := handlers.NewAuthHandler(authService, cfg.JWT.SecretKey)
	brokerHandler := handlers.NewBrokerHandler(brokerService, resolver, userService)
	orderHandler := handlers.NewOrderHandler(workflowClient, resolver, tradeService, userService, wsHub, cfg.Orders.ContractFee)
	scanHandler := handlers.NewScanHandler(tracker)
	signalHandler := handlers.NewSignalHandler(signalService)

	// Add public endpoints directly to the root router (no authentication required)
	router.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	// Create the API router for authenticated endpoints
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Create a subrouter for authenticated endpoints
	authRouter := apiRouter.PathPrefix("").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg.JWT.SecretKey))

	// Register routes
	brokerHandler.RegisterRoutes(authRouter)
	orderHandler.RegisterRoutes(authRouter)
	scanHandler.RegisterRoutes(authRouter)
	signalHandler.RegisterRoutes(authRouter)

	if cfg.Server.DebugRoutes {
		PrintRoutes(router)
	}

	return router
}
