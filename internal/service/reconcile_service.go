package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/identity"
	"github.com/spec-kit/identity-service/internal/repository"
)

const defaultSweepBatch = 100

// ReconcileReport summarises one sweep over pending registrations.
type ReconcileReport struct {
	Checked   int
	Resolved  int
	Confirmed int
	Relinked  int
	Orphaned  int
	Waiting   int
	Failed    int
}

// ReconcileService repairs provider state for partial registrations. It
// never deletes local rows or provider identities.
type ReconcileService struct {
	outcomes repository.OutcomeRepository
	provider identity.Provider
	logger   *zap.Logger
	batch    int64
}

// NewReconcileService builds the service.
func NewReconcileService(outcomes repository.OutcomeRepository, provider identity.Provider, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{
		outcomes: outcomes,
		provider: provider,
		logger:   logger,
		batch:    defaultSweepBatch,
	}
}

// Sweep inspects up to one batch of pending registrations.
func (r *ReconcileService) Sweep(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	pending, err := r.outcomes.Pending(ctx, r.batch)
	if err != nil {
		return report, err
	}

	for _, outcome := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		r.reconcile(ctx, outcome, &report)
	}
	return report, nil
}

func (r *ReconcileService) reconcile(ctx context.Context, outcome domain.RegistrationOutcome, report *ReconcileReport) {
	log := r.logger.With(zap.String("email", outcome.Email), zap.Int64("user_id", outcome.UserID))

	user, err := r.provider.AdminGetUser(ctx, outcome.Email)
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			report.Orphaned++
			log.Warn("local user has no provider identity", zap.String("failed_step", outcome.FailedStep))
			return
		}
		report.Failed++
		log.Error("provider lookup failed", zap.Error(err))
		return
	}

	switch user.UserStatus {
	case types.UserStatusTypeForceChangePassword:
		report.Waiting++
		log.Warn("provider identity still requires a permanent password")
		return
	case types.UserStatusTypeUnconfirmed:
		if _, err := r.provider.AdminConfirmSignUp(ctx, outcome.Email); err != nil {
			report.Failed++
			log.Error("confirm sign-up failed", zap.Error(err))
			return
		}
		report.Confirmed++
	}

	want := strconv.FormatInt(outcome.UserID, 10)
	if got, _ := identity.Attribute(user.UserAttributes, identity.AttrUserID); outcome.UserID != 0 && got != want {
		if _, err := r.provider.UpdateUserAttributes(ctx, outcome.Email, map[string]string{identity.AttrUserID: want}); err != nil {
			report.Failed++
			log.Error("relinking provider identity failed", zap.Error(err))
			return
		}
		report.Relinked++
	}

	resolved := domain.RegistrationOutcome{
		UserID: outcome.UserID,
		Email:  outcome.Email,
		Status: domain.OutcomeSuccess,
	}
	if err := r.outcomes.Record(ctx, resolved); err != nil {
		report.Failed++
		log.Error("recording resolved outcome failed", zap.Error(err))
		return
	}
	report.Resolved++
	log.Info("registration reconciled")
}
