package service

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/identity"
)

func recordPartial(t *testing.T, f *authFixture, email string, userID int64, step string) {
	t.Helper()
	require.NoError(t, f.outcomes.Record(context.Background(), domain.RegistrationOutcome{
		UserID:     userID,
		Email:      email,
		Status:     domain.OutcomePartial,
		FailedStep: step,
	}))
}

func TestReconcileService_OrphanStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	recordPartial(t, f, "orphan@example.com", 3, domain.StepProviderCreate)

	report, err := NewReconcileService(f.outcomes, f.provider, zap.NewNop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Checked: 1, Orphaned: 1}, report)

	pending, err := f.outcomes.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReconcileService_ForceChangePasswordWaits(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.provider.setPasswordErr = &smithy.GenericAPIError{Code: "InternalErrorException"}
	_, err := f.svc.Register(ctx, johnName, johnEmail, johnPassword)
	require.Error(t, err)

	report, err := NewReconcileService(f.outcomes, f.provider, zap.NewNop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Waiting)
	assert.Zero(t, report.Resolved)
}

func TestReconcileService_RelinksAndResolves(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.provider.MemoryProvider.AdminCreateUser(ctx, johnEmail, johnPassword, 99)
	require.NoError(t, err)
	_, err = f.provider.MemoryProvider.AdminSetPermanentPassword(ctx, johnEmail, johnPassword)
	require.NoError(t, err)
	recordPartial(t, f, johnEmail, 1, domain.StepProviderCreate)

	report, err := NewReconcileService(f.outcomes, f.provider, zap.NewNop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Checked: 1, Relinked: 1, Resolved: 1}, report)

	user, err := f.provider.MemoryProvider.AdminGetUser(ctx, johnEmail)
	require.NoError(t, err)
	id, _ := identity.Attribute(user.UserAttributes, identity.AttrUserID)
	assert.Equal(t, "1", id)

	pending, err := f.outcomes.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	outcome, err := f.outcomes.Get(ctx, johnEmail)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
}

func TestReconcileService_ConfirmsUnconfirmedIdentity(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	_, err := f.provider.MemoryProvider.AdminCreateUser(ctx, johnEmail, johnPassword, 1)
	require.NoError(t, err)
	f.provider.getUser = func(context.Context, string) (*cip.AdminGetUserOutput, error) {
		return &cip.AdminGetUserOutput{
			Username:   aws.String(johnEmail),
			UserStatus: types.UserStatusTypeUnconfirmed,
			UserAttributes: []types.AttributeType{
				{Name: aws.String(identity.AttrUserID), Value: aws.String("1")},
			},
		}, nil
	}
	recordPartial(t, f, johnEmail, 1, domain.StepProviderPasswd)

	report, err := NewReconcileService(f.outcomes, f.provider, zap.NewNop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Checked: 1, Confirmed: 1, Resolved: 1}, report)
	assert.Equal(t, 1, f.provider.Calls("AdminConfirmSignUp"))
	assert.Zero(t, f.provider.Calls("UpdateUserAttributes"))

	pending, err := f.outcomes.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconcileService_ProviderErrorCountsAsFailed(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.provider.getUser = func(context.Context, string) (*cip.AdminGetUserOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "TooManyRequestsException"}
	}
	recordPartial(t, f, johnEmail, 1, domain.StepProviderCreate)

	report, err := NewReconcileService(f.outcomes, f.provider, zap.NewNop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Checked: 1, Failed: 1}, report)
}
