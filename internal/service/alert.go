package service

import (
	"context"
	"fmt"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type alertService struct {
	apiKey        string
	fromEmail     string
	operatorEmail string
}

// NewAlertService creates the operator alert channel for balance drift.
// With no API key configured it degrades to logging only.
func NewAlertService(apiKey, fromEmail, operatorEmail string) AlertService {
	return &alertService{
		apiKey:        apiKey,
		fromEmail:     fromEmail,
		operatorEmail: operatorEmail,
	}
}

func (s *alertService) SendDriftAlert(ctx context.Context, audit *domain.RecomputeAudit) error {
	if s.apiKey == "" || s.operatorEmail == "" {
		logger.Warn("Drift alert not sent, sendgrid not configured",
			"account_id", audit.AccountID, "run_id", audit.RunID)
		return nil
	}

	subject := fmt.Sprintf("Balance drift on account %d", audit.AccountID)
	body := fmt.Sprintf(
		"Recompute run %s (step %s) found drift on account %d.\n\n"+
			"Balance deltas: %v\nDebt deltas: %v\nWarnings: %v\n\n"+
			"The snapshot has been repaired; audit record %s has the full before/after.",
		audit.RunID, audit.Step, audit.AccountID,
		audit.BalanceDeltas, audit.DebtDeltas, audit.Warnings, audit.ID)

	from := mail.NewEmail("Ledger Recompute", s.fromEmail)
	to := mail.NewEmail("Operator", s.operatorEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send drift alert: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
