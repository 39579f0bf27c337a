package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "tourdesk/api/swagger" // swagger docs
	"tourdesk/internal/config"
	"tourdesk/internal/database"
	"tourdesk/internal/handler"
	"tourdesk/internal/logger"
	"tourdesk/internal/middleware"
	"tourdesk/internal/model"
	"tourdesk/internal/notify"
	"tourdesk/internal/obs"
	"tourdesk/internal/repository"
	"tourdesk/internal/service"
	"tourdesk/internal/storage"
	"tourdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Tour Desk Admin API
// @version         1.0
// @description     Backend for the tour operator admin and user dashboards.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "tourdesk-api")
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN(), zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL")

	obs.Init()

	store, err := storage.NewLocalStore(cfg.UploadRoot, cfg.PublicBaseURL)
	if err != nil {
		zlog.Fatal("upload storage init failed", zap.Error(err))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zlog)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	visitorRepo := repository.NewVisitorRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	contractRepo := repository.NewContractRepository(db)
	complianceRepo := repository.NewComplianceRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Notifications
	outbox := notify.NewOutbox(outboxRepo)
	var mailer notify.Mailer
	if cfg.MailRelayURL != "" {
		mailer = notify.NewRelayMailer(cfg.MailRelayURL, cfg.MailRelayAPIKey, cfg.MailFrom, zlog)
	} else {
		zlog.Warn("MAIL_RELAY_URL not set; emails are only logged")
		mailer = notify.NewLogMailer(zlog)
	}

	var transport notify.Transport
	var consumer *notify.Consumer
	if cfg.RabbitMQURL != "" {
		amqpTransport := notify.NewAMQPTransport(cfg.RabbitMQURL)
		defer amqpTransport.Close()
		transport = amqpTransport
		consumer = notify.NewConsumer(cfg.RabbitMQURL, outboxRepo, mailer, cfg.OutboxMaxAttempts, zlog)
	} else {
		zlog.Info("RABBITMQ_URL not set; delivering notifications in-process")
		transport = notify.NewDirectTransport(mailer)
	}
	relay := notify.NewRelay(outboxRepo, txManager, transport, notify.RelayConfig{
		Interval:    cfg.OutboxPollInterval,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}, zlog)

	// Reset-code limiter: redis when configured, in-process otherwise
	var limiter service.ResetLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zlog.Warn("redis unreachable at startup; limiter will fail open until it recovers", zap.Error(err))
		}
		cancel()
		limiter = middleware.NewRedisLimiter(rdb, cfg.ResetWindow, cfg.ResetMaxInWin, cfg.ResetCooldown)
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.ResetWindow, cfg.ResetMaxInWin, cfg.ResetCooldown)
	}

	// Services
	jwtManager := middleware.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	userService := service.NewUserService(userRepo, auditRepo, txManager, outbox, store, wsHub, zlog)
	archiveService := service.NewArchiveService(userRepo, archiveRepo, auditRepo, txManager, outbox, store, wsHub, zlog)
	authService := service.NewAuthService(userRepo, adminRepo, jwtManager, store, zlog)
	resetService := service.NewPasswordResetService(userRepo, auditRepo, txManager, outbox, limiter, service.ResetConfig{
		CodeTTL:     cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
	}, zlog)
	facilityService := service.NewFacilityService(facilityRepo, userRepo, auditRepo, txManager, store, wsHub, zlog)
	visitorService := service.NewVisitorService(visitorRepo, auditRepo, txManager, wsHub, zlog)
	legalDeps := service.NewLegalDeps(auditRepo, txManager, store, wsHub, zlog)
	caseService := service.NewCaseService(caseRepo, legalDeps)
	contractService := service.NewContractService(contractRepo, legalDeps)
	complianceService := service.NewComplianceService(complianceRepo, legalDeps)
	notificationService := service.NewNotificationService(outboxRepo, wsHub, zlog)
	auditService := service.NewAuditService(auditRepo)

	if err := authService.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		zlog.Error("bootstrap admin not created", zap.Error(err))
	}

	// Initialize Handlers
	authenticator := middleware.NewAuthenticator(jwtManager, authService, zlog)
	authHandler := handler.NewAuthHandler(authService, userService, resetService, handler.CookieConfig{
		TTL:    cfg.AccessTokenTTL,
		Secure: cfg.CookieSecure,
	}, zlog)
	userHandler := handler.NewUserHandler(userService, zlog)
	archiveHandler := handler.NewArchiveHandler(archiveService, zlog)
	facilityHandler := handler.NewFacilityHandler(facilityService, zlog)
	visitorHandler := handler.NewVisitorHandler(visitorService, zlog)
	caseHandler := handler.NewCaseHandler(caseService, zlog)
	contractHandler := handler.NewContractHandler(contractService, zlog)
	complianceHandler := handler.NewComplianceHandler(complianceService, zlog)
	wizardHandler := handler.NewWizardHandler(service.Wizards())
	notificationHandler := handler.NewNotificationHandler(notificationService, zlog)
	auditHandler := handler.NewAuditHandler(auditService, zlog)

	// Set up Gin Router
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = storage.MaxUploadSize
	router.Use(gin.Recovery(), middleware.RequestLogger(zlog), obs.Instrument())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader, middleware.CSRFHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "Retry-After", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})
	router.GET("/metrics", gin.WrapH(obs.Handler()))

	// Uploaded files
	router.Static("/files", store.Root())

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtManager.Secret(), model.RoleAdmin, model.RoleSuperAdmin)
	})

	// API Routing
	api := router.Group("")
	authHandler.RegisterRoutes(api, authenticator)
	userHandler.RegisterRoutes(api, authenticator)
	archiveHandler.RegisterRoutes(api, authenticator)
	facilityHandler.RegisterRoutes(api, authenticator)
	visitorHandler.RegisterRoutes(api, authenticator)
	caseHandler.RegisterRoutes(api, authenticator)
	contractHandler.RegisterRoutes(api, authenticator)
	complianceHandler.RegisterRoutes(api, authenticator)
	wizardHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api, authenticator)
	auditHandler.RegisterRoutes(api, authenticator)

	// Background workers stop with ctx
	var workers sync.WaitGroup
	workers.Add(2)
	go func() { defer workers.Done(); wsHub.Run(ctx) }()
	go func() { defer workers.Done(); relay.Run(ctx) }()
	if consumer != nil {
		workers.Add(1)
		go func() { defer workers.Done(); consumer.Run(ctx) }()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	workers.Wait()
}
