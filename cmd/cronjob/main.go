package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"affiliate-ledger-backend/internal/config"
	"affiliate-ledger-backend/internal/jobs"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/repository/postgres"
	"affiliate-ledger-backend/internal/scheduler"
	"affiliate-ledger-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'promote-pending', 'recompute-balances', 'migrate:normalize,backfill,recompute')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Affiliate Ledger Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Services
	commissionService := service.NewCommissionService(
		store.LedgerRepository,
		store.AccountRepository,
		store.AuditRepository,
		cfg.Commission.HoldDays,
		cfg.Commission.RateBasisPoints,
	)

	alertService := service.NewAlertService(
		cfg.Alert.SendGridAPIKey,
		cfg.Alert.FromEmail,
		cfg.Alert.OperatorEmail,
	)

	jobServices := &jobs.Services{
		Commission: commissionService,
		Alert:      alertService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.LedgerRepository, store.IdempotencyRepository, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch {
	case jobName == "promote-pending":
		jobRunner.PromotePendingCommissions()
	case jobName == "recompute-balances":
		jobRunner.RecomputeBalances()
	case strings.HasPrefix(jobName, "migrate:"):
		steps := strings.Split(strings.TrimPrefix(jobName, "migrate:"), ",")
		if err := jobRunner.RunMigration(steps); err != nil {
			logger.Error("Migration failed", "steps", steps, "error", err)
			os.Exit(1)
		}
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - promote-pending\n")
		fmt.Printf("  - recompute-balances\n")
		fmt.Printf("  - migrate:<step,...> (steps: normalize, backfill, recompute)\n")
		os.Exit(1)
	}
}
