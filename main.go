// Package main provides the main entry point for the Boitata posting and content sales platform
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boitata/app/handlers"
	"boitata/app/router"
	"boitata/app/scheduler"
	"boitata/app/services"
	businessflow "boitata/business_flow"
	"boitata/config"
	"boitata/models"
	"boitata/queue"
	"boitata/repository"
	"boitata/telegram"
	"boitata/workers"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	log.Println("Starting Boitata application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers. Queue servers drain in-flight jobs before
	// returning, so posts and deliveries are never cut mid-send.
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.Creative{},
		&models.RotationState{},
		&models.PostRecord{},
		&models.TelegramGroup{},
		&models.ModelProfile{},
		&models.ModelProduct{},
		&models.Buyer{},
		&models.Purchase{},
		&models.Transaction{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeRedis initializes the Redis client and verifies connectivity
func initializeRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.Addr, cfg.DB)
	return rc, nil
}

// startRedisHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startRedisHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// deliveryMessages builds the buyer-facing copy, falling back to the built-in
// defaults for any field left unconfigured
func deliveryMessages(cfg config.DeliveryConfig) businessflow.DeliveryMessages {
	messages := businessflow.DefaultDeliveryMessages()
	if cfg.IntroMessage != "" {
		messages.Intro = cfg.IntroMessage
	}
	if cfg.ConfirmationMessage != "" {
		messages.Confirmation = cfg.ConfirmationMessage
	}
	if cfg.FollowUpLabel != "" {
		messages.FollowUpLabel = cfg.FollowUpLabel
	}
	if cfg.FollowUpURL != "" {
		messages.FollowUpURL = cfg.FollowUpURL
	}
	return messages
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeRedis(cfg.Redis)
	if err != nil {
		return nil, err
	}

	cancel := startRedisHealthMonitor(context.Background(), rc, 30*time.Second)
	stopFuncs = append(stopFuncs, cancel)

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(db)
	creativeRepo := repository.NewCreativeRepository(db)
	rotationRepo := repository.NewRotationStateRepository(db)
	groupRepo := repository.NewTelegramGroupRepository(db)
	postRecordRepo := repository.NewPostRecordRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	buyerRepo := repository.NewBuyerRepository(db)
	modelRepo := repository.NewModelProfileRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize telegram layer
	botAPI, err := telegram.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	flags := telegram.NewFlagStore(rc, cfg.Redis.Prefix)
	dispatcher := telegram.NewDispatcher(botAPI, flags, cfg.Telegram.SendTimeout)
	discovery := telegram.NewDiscovery(botAPI, groupRepo, cfg.Telegram.SyncDelay)

	// Initialize payment gateway client
	gateway := services.NewArkamaClient(cfg.Arkama.BaseURL, cfg.Arkama.APIKey, cfg.Arkama.Timeout)

	// Initialize queue layer. The registry is bound to the enqueuer after the
	// post handler exists; until then nothing enqueues post jobs.
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	policy := queue.DefaultPolicy()
	policy.MaxRetry = cfg.Queue.MaxRetry
	policy.Concurrency = cfg.Queue.Concurrency
	policy.CompletedRetention = cfg.Queue.CompletedRetention
	policy.FailedRetention = cfg.Queue.FailedRetention

	client := asynq.NewClient(redisOpt)
	stopFuncs = append(stopFuncs, func() { _ = client.Close() })

	enqueuer := queue.NewEnqueuer(client, policy, nil)

	// Initialize flows
	postingFlow := businessflow.NewPostingFlow(
		campaignRepo,
		creativeRepo,
		groupRepo,
		postRecordRepo,
		dispatcher,
		enqueuer,
	)

	registry := queue.NewRegistry(redisOpt, policy, workers.HandlePostToGroup(postingFlow))
	enqueuer.BindRegistry(registry)

	// Resume the consumer of every known group's post queue so backlog
	// persisted before a restart drains without waiting for the next
	// rotation enqueue
	resumeCtx, resumeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if groups, err := groupRepo.ListActive(resumeCtx); err != nil {
		log.Printf("Failed to list groups for post worker resume: %v", err)
	} else {
		chatIDs := make([]int64, 0, len(groups))
		for _, g := range groups {
			chatIDs = append(chatIDs, g.ChatID)
		}
		if err := registry.EnsureWorkers(chatIDs); err != nil {
			log.Printf("Failed to resume post workers: %v", err)
		}
	}
	resumeCancel()

	rotationFlow := businessflow.NewRotationFlow(
		campaignRepo,
		creativeRepo,
		rotationRepo,
		groupRepo,
		enqueuer,
		enqueuer,
		cfg.Rotation.DefaultGroupCooldown,
	)

	deliveryFlow := businessflow.NewDeliveryFlow(
		purchaseRepo,
		modelRepo,
		dispatcher,
		enqueuer,
		deliveryMessages(cfg.Delivery),
	)

	purchaseFlow := businessflow.NewPurchaseFlow(
		purchaseRepo,
		transactionRepo,
		buyerRepo,
		modelRepo,
		gateway,
		enqueuer,
		enqueuer,
	)

	subscriptionFlow := businessflow.NewSubscriptionFlow(
		purchaseRepo,
		dispatcher,
		enqueuer,
		0,
	)

	analyticsFlow := businessflow.NewAnalyticsFlow(postRecordRepo, campaignRepo, 0)

	// Start the singleton-queue server
	srv := queue.NewServer(redisOpt, policy)
	srv.HandleFunc(queue.TypeDeliverContent, workers.HandleDeliverContent(deliveryFlow))
	srv.HandleFunc(queue.TypeBotTask, workers.HandleBotTask(discovery))
	srv.HandleFunc(queue.TypeCampaignCheck, workers.HandleCampaignCheck(rotationFlow, campaignRepo, enqueuer))
	srv.HandleFunc(queue.TypeSubscriptionCheck, workers.HandleSubscriptionCheck(subscriptionFlow))
	srv.HandleFunc(queue.TypeAuditWrite, workers.HandleAuditWrite(auditRepo))
	srv.HandleFunc(queue.TypeAnalyticsRollup, workers.HandleAnalyticsRollup(analyticsFlow))

	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start queue server: %w", err)
	}
	stopFuncs = append(stopFuncs, registry.Shutdown, srv.Shutdown)

	// Start the recurring job scheduler
	rotationScheduler := scheduler.NewRotationScheduler(
		enqueuer,
		cfg.Scheduler.TickInterval,
		cfg.Scheduler.SubscriptionInterval,
		cfg.Scheduler.AnalyticsInterval,
	)
	stopScheduler := rotationScheduler.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	// Re-sync every known group on startup; permissions may have changed
	// while the process was down
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startupCancel()
	if err := enqueuer.EnqueueBotTask(startupCtx, queue.BotTaskPayload{Kind: queue.BotTaskDiscoverAll}); err != nil {
		log.Printf("Failed to enqueue startup group discovery: %v", err)
	}

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(purchaseFlow, cfg.Arkama.WebhookSecret, cfg.Arkama.StrictWebhook)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseFlow)
	groupHandler := handlers.NewGroupHandler(enqueuer)

	// Initialize router
	appRouter := router.NewFiberRouter(
		webhookHandler,
		purchaseHandler,
		groupHandler,
		cfg.Metrics.Enabled,
	)

	return &Application{
		router:    appRouter,
		config:    cfg,
		stopFuncs: stopFuncs,
	}, nil
}
