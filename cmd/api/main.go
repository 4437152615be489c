package main

import (
	"context"
	"log"
	"os"
	"time"

	_ "riverwatch/api/swagger" // swagger docs
	"riverwatch/internal/authority"
	"riverwatch/internal/database"
	"riverwatch/internal/handler"
	"riverwatch/internal/middleware"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"
	"riverwatch/internal/service"
	"riverwatch/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           River Patrol Monitoring API
// @version         1.0
// @description     Backend for the river patrol monitoring system: role-scoped access control, alarm and work order lifecycles, devices and notifications.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "riverwatch"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Authorization core: identity verification plus role and transition tables
	verifier := authority.NewVerifier(middleware.GetJWTSecret())
	auth := authority.NewDefault()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	areaRepo := repository.NewAreaRepository(db)
	alarmRepo := repository.NewAlarmRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	seedRoles(roleRepo, auth)

	authService := service.NewAuthService(userRepo, auditRepo, txManager, verifier, auth)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, txManager, auth)
	alarmService := service.NewAlarmService(alarmRepo, workOrderRepo, areaRepo, auditRepo, txManager, auth, wsHub)
	workOrderService := service.NewWorkOrderService(workOrderRepo, alarmRepo, userRepo, areaRepo, notificationRepo, auditRepo, txManager, auth, wsHub)
	deviceService := service.NewDeviceService(deviceRepo, auditRepo, txManager, wsHub)
	notificationService := service.NewNotificationService(notificationRepo)
	auditService := service.NewAuditService(auditRepo)
	areaService := service.NewAreaService(areaRepo, userRepo, auditRepo, txManager)
	roleService := service.NewRoleService(roleRepo, auth)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	alarmHandler := handler.NewAlarmHandler(alarmService)
	workOrderHandler := handler.NewWorkOrderHandler(workOrderService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)
	areaHandler := handler.NewAreaHandler(areaService)
	roleHandler := handler.NewRoleHandler(roleService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"} // Frontend URL
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = []string{origins}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Metrics
	middleware.InitMetrics()
	router.Use(middleware.Instrument())
	router.GET("/metrics", middleware.MetricsHandler())

	// Per-IP rate limit on the credential endpoints only; authenticated
	// traffic is already gated by tokens and the account lockout
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, verifier)
	})

	// Register API Routes
	api := router.Group("/api")
	authHandler.RegisterRoutes(api, verifier, loginLimiter.Middleware())
	userHandler.RegisterRoutes(api, verifier)
	alarmHandler.RegisterRoutes(api, verifier)
	workOrderHandler.RegisterRoutes(api, verifier)
	deviceHandler.RegisterRoutes(api, verifier)
	notificationHandler.RegisterRoutes(api, verifier)
	auditHandler.RegisterRoutes(api, verifier)
	areaHandler.RegisterRoutes(api, verifier)
	roleHandler.RegisterRoutes(api, verifier)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// seedRoles makes sure the six built-in role rows exist so users can
// reference them by FK
func seedRoles(roles repository.RoleRepository, auth *authority.Authority) {
	rows := make([]model.Role, 0, 6)
	for _, r := range auth.Roles().All() {
		rows = append(rows, model.Role{
			Code: string(r.Code),
			Name: r.Name,
		})
	}
	if err := roles.Seed(context.Background(), rows); err != nil {
		log.Println("WARNING: Failed to seed roles:", err)
	}
}
