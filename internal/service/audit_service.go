package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
)

// AuditService records auth events in the log and the outcome ledger.
type AuditService struct {
	dispatcher events.Dispatcher
	outcomes   repository.OutcomeRepository
	logger     *zap.Logger
}

// NewAuditService creates the service. outcomes may be nil when no ledger
// is configured; events are then only logged.
func NewAuditService(dispatcher events.Dispatcher, outcomes repository.OutcomeRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		outcomes:   outcomes,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventRegistrationOutcome, a.handleRegistrationOutcome)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleUserLoggedIn)
}

func (a *AuditService) handleRegistrationOutcome(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RegistrationOutcomePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	outcome := payload.Outcome
	a.logger.Info("RegistrationOutcome",
		zap.String("event_id", event.ID),
		zap.String("email", event.Email),
		zap.String("status", string(outcome.Status)),
		zap.String("failed_step", outcome.FailedStep))

	// Failed attempts wrote nothing, so there is nothing to reconcile.
	if a.outcomes == nil || outcome.Status == domain.OutcomeFailure {
		return nil
	}
	return a.outcomes.Record(ctx, outcome)
}

func (a *AuditService) handleUserLoggedIn(_ context.Context, event events.Event) error {
	a.logger.Info("UserLoggedIn", zap.String("event_id", event.ID), zap.String("email", event.Email), zap.Any("payload", event.Payload))
	return nil
}
