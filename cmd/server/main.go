package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"

	httpapi "affiliate-ledger-backend/internal/api/http"
	"affiliate-ledger-backend/internal/config"
	"affiliate-ledger-backend/internal/jobs"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/provider"
	"affiliate-ledger-backend/internal/repository/postgres"
	"affiliate-ledger-backend/internal/security"
	"affiliate-ledger-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Affiliate Ledger Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Commission configuration", "hold_days", cfg.Commission.HoldDays, "rate_basis_points", cfg.Commission.RateBasisPoints)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize Provider Client
	providerClient := provider.NewMockClient()

	// Initialize Services
	commissionSvc := service.NewCommissionService(
		store.LedgerRepository,
		store.AccountRepository,
		store.AuditRepository,
		cfg.Commission.HoldDays,
		cfg.Commission.RateBasisPoints,
	)
	refundSvc := service.NewRefundService(
		store.LedgerRepository,
		commissionSvc,
		!cfg.Commission.FullRefundsOnly,
	)
	subscriptionSvc := service.NewSubscriptionService(store.AccountRepository, providerClient)
	webhookSvc := service.NewWebhookService(
		store.AccountRepository,
		commissionSvc,
		refundSvc,
		subscriptionSvc,
	)
	alertSvc := service.NewAlertService(
		cfg.Alert.SendGridAPIKey,
		cfg.Alert.FromEmail,
		cfg.Alert.OperatorEmail,
	)

	// Job runner backs the admin migrate endpoint
	jobRunner := jobs.NewJobRunner(
		store.LedgerRepository,
		store.IdempotencyRepository,
		&jobs.Services{Commission: commissionSvc, Alert: alertSvc},
		cfg,
	)

	// Initialize HTTP handlers
	webhookHandler := httpapi.NewWebhookHandler(webhookSvc, cfg.Webhook.SigningSecret)
	adminHandler := httpapi.NewAdminHandler(store.AccountRepository, store.AuditRepository, commissionSvc, subscriptionSvc, jobRunner)
	router := httpapi.NewRouter(webhookHandler, adminHandler, tokenManager)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("HTTP server error", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
