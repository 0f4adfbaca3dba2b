package service

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/identity"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// AuthResult is returned by login and token validation.
type AuthResult struct {
	User  domain.Profile
	Token string
}

// AuthService coordinates registration, login and token validation across
// the local user store and the identity provider.
type AuthService struct {
	users      repository.UserRepository
	provider   identity.Provider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Provider   identity.Provider
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		provider:   deps.Provider,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Register stores the user locally, then creates the matching identity in
// the provider. A provider failure leaves the local row in place and is
// recorded as a partial outcome.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Profile, error) {
	details := map[string]any{}
	if name == "" {
		details["name"] = "name is required"
	}
	if email == "" {
		details["email"] = "email is required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("Validation failed", details)
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, apperrors.NewValidationError("Validation failed", map[string]any{"password": err.Error()})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.NewUnexpected("error hashing password", err)
	}

	user, err := s.users.Create(ctx, name, email, hash)
	if err != nil {
		err = storeError(err, "error inserting record")
		s.publishOutcome(ctx, domain.RegistrationOutcome{
			Email:      email,
			Status:     domain.OutcomeFailure,
			FailedStep: domain.StepStoreCreate,
			Reason:     err.Error(),
		})
		return nil, err
	}

	created, err := s.provider.AdminCreateUser(ctx, email, password, user.ID)
	if err != nil {
		return nil, s.partialRegistration(ctx, user, domain.StepProviderCreate, err)
	}
	if created.User != nil {
		if _, err := s.provider.AdminSetPermanentPassword(ctx, email, password); err != nil {
			return nil, s.partialRegistration(ctx, user, domain.StepProviderPasswd, err)
		}
	}

	s.publishOutcome(ctx, domain.RegistrationOutcome{
		UserID: user.ID,
		Email:  user.Email,
		Status: domain.OutcomeSuccess,
	})
	profile := user.Profile()
	return &profile, nil
}

// Login checks the local hash before asking the provider for an ID token,
// so a wrong password never reaches provider sign-in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email, true)
	if err != nil {
		return nil, storeError(err, "error fetching record")
	}

	if _, err := s.provider.AdminGetUser(ctx, email); err != nil {
		s.logger.Debug("provider identity lookup failed", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewUserNotFound()
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}

	out, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, s.providerError(err)
	}
	if out.AuthenticationResult == nil || aws.ToString(out.AuthenticationResult.IdToken) == "" {
		s.logger.Warn("sign-in returned a challenge",
			zap.String("email", email),
			zap.String("challenge", string(out.ChallengeName)))
		return nil, apperrors.NewUnexpected("sign-in did not complete", nil)
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.Email, events.UserLoggedInPayload{UserID: user.ID}))
	return &AuthResult{
		User:  user.Profile(),
		Token: aws.ToString(out.AuthenticationResult.IdToken),
	}, nil
}

// ValidateToken verifies the ID token and resolves the active local profile
// for its email claim. The token is returned unchanged.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*AuthResult, error) {
	claims, err := s.provider.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewTokenExpired()
		}
		return nil, apperrors.NewInvalidToken(err)
	}

	session := claims.Session()
	if session.ExpiresAt.IsZero() || session.Expired(s.now()) {
		return nil, apperrors.NewTokenExpired()
	}

	user, err := s.users.FindBy(ctx, repository.Predicate{"email": session.Email, "is_active": true})
	if err != nil {
		return nil, storeError(err, "error fetching record")
	}
	return &AuthResult{User: user.Profile(), Token: token}, nil
}

func (s *AuthService) partialRegistration(ctx context.Context, user *domain.User, step string, cause error) error {
	s.logger.Warn("registration left local user without provider identity",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("step", step),
		zap.Error(cause))
	s.publishOutcome(ctx, domain.RegistrationOutcome{
		UserID:     user.ID,
		Email:      user.Email,
		Status:     domain.OutcomePartial,
		FailedStep: step,
		Reason:     cause.Error(),
	})
	return s.providerError(cause)
}

// providerError classifies native identity provider errors.
func (s *AuthService) providerError(err error) error {
	var (
		notFound      *types.UserNotFoundException
		notAuthorized *types.NotAuthorizedException
		exists        *types.UsernameExistsException
		domainErr     *apperrors.DomainError
		apiErr        smithy.APIError
	)
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &notFound):
		return apperrors.NewUserNotFound()
	case errors.As(err, &notAuthorized):
		return apperrors.NewInvalidCredentials()
	case errors.As(err, &exists):
		return apperrors.NewUserExists()
	case errors.As(err, &apiErr):
		s.logger.Error("identity provider error",
			zap.String("code", apiErr.ErrorCode()),
			zap.String("fault", apiErr.ErrorFault().String()),
			zap.String("message", apiErr.ErrorMessage()))
		return apperrors.NewUnexpected("identity provider error", err)
	default:
		return apperrors.NewUnexpected("identity provider error", err)
	}
}

// storeError passes classified store errors through and hides the rest.
func storeError(err error, message string) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewUnexpected(message, err)
}

func (s *AuthService) publishOutcome(ctx context.Context, outcome domain.RegistrationOutcome) {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = s.now().UTC()
	}
	s.publish(ctx, events.NewEvent(events.EventRegistrationOutcome, outcome.Email, events.RegistrationOutcomePayload{Outcome: outcome}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
