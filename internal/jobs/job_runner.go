package jobs

import (
	"affiliate-ledger-backend/internal/config"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/repository"
	"affiliate-ledger-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	ledgerRepo      repository.LedgerRepository
	idempotencyRepo repository.IdempotencyRepository
	services        *Services
	config          *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Commission service.CommissionService
	Alert      service.AlertService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(
	ledgerRepo repository.LedgerRepository,
	idempotencyRepo repository.IdempotencyRepository,
	services *Services,
	cfg *config.Config,
) *JobRunner {
	return &JobRunner{
		ledgerRepo:      ledgerRepo,
		idempotencyRepo: idempotencyRepo,
		services:        services,
		config:          cfg,
	}
}

// Config exposes the loaded configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
