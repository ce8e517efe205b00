package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"trustbit/application"
	"trustbit/config"
	"trustbit/database"
	"trustbit/domain/interfaces"
	"trustbit/gateway"
	"trustbit/infrastructure"
	"trustbit/infrastructure/observability"
	"trustbit/repository"
	"trustbit/supervisor"
)

var lifecycle *application.BotService

// Lifecycle returns the bot lifecycle coordinator wired by Run. The
// routing layer's handlers resolve the coordinator through this.
func Lifecycle() *application.BotService {
	return lifecycle
}

// buildLifecycle constructs the payment gateway client and the lifecycle
// coordinator from config.
func buildLifecycle(cfg *config.Config, uowFactory interfaces.UnitOfWorkFactory, sup interfaces.ProcessSupervisor, metrics *observability.MetricsProvider) *application.BotService {
	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey)
	return application.NewBotService(uowFactory, sup, gatewayClient, cfg.SupervisorTimeout, metrics)
}

// Run initializes and starts the service
func Run(ctx context.Context) error {
	log.Info("Starting trustbit...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize event publisher
	log.Infof("Connecting to NATS at %s...", cfg.NATSServers)
	eventPublisher, err := infrastructure.NewNATSEventPublisher(cfg.NATSServers)
	if err != nil {
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}

	// Initialize unit of work factory; each unit of work buffers its events
	// until commit
	uowFactory := repository.NewUnitOfWorkFactory(db, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(eventPublisher)
	})

	// Initialize process supervisor client
	supervisorClient, err := supervisor.NewNATSClient(cfg.NATSServers, cfg.SupervisorTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect supervisor client: %w", err)
	}
	log.Info("Supervisor client connected successfully")

	// Wire the lifecycle coordinator for the routing layer
	lifecycle = buildLifecycle(cfg, uowFactory, supervisorClient, metrics)

	// Start expiry worker
	expiryWorker := application.NewExpiryWorker(uowFactory, supervisorClient, cfg.SweepInterval, cfg.SupervisorTimeout, metrics)
	stopWorker := expiryWorker.Start(ctx)

	// Wait for context cancellation
	log.Infof("Service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down...")
	stopWorker()

	supervisorClient.Close()
	eventPublisher.Close()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics")
	}

	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
