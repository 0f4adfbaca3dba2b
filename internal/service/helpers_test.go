package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/identity"
	"github.com/spec-kit/identity-service/internal/repository"
)

const (
	testSecret   = "service-test-secret"
	testIssuer   = "https://cognito-idp.local/pool"
	testAudience = "client-123"
)

// stubProvider wraps the in-memory provider with call counters and
// injectable failures.
type stubProvider struct {
	*identity.MemoryProvider

	mu             sync.Mutex
	calls          map[string]int
	createErr      error
	setPasswordErr error
	signInErr      error
	getUser        func(ctx context.Context, email string) (*cip.AdminGetUserOutput, error)
}

func newStubProvider(tokens *identity.TokenManager) *stubProvider {
	return &stubProvider{MemoryProvider: identity.NewMemoryProvider(tokens), calls: make(map[string]int)}
}

func (p *stubProvider) count(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
}

func (p *stubProvider) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *stubProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

func (p *stubProvider) AdminCreateUser(ctx context.Context, email, temporaryPassword string, userID int64) (*cip.AdminCreateUserOutput, error) {
	p.count("AdminCreateUser")
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.MemoryProvider.AdminCreateUser(ctx, email, temporaryPassword, userID)
}

func (p *stubProvider) AdminSetPermanentPassword(ctx context.Context, email, password string) (*cip.AdminSetUserPasswordOutput, error) {
	p.count("AdminSetPermanentPassword")
	if p.setPasswordErr != nil {
		return nil, p.setPasswordErr
	}
	return p.MemoryProvider.AdminSetPermanentPassword(ctx, email, password)
}

func (p *stubProvider) AdminGetUser(ctx context.Context, email string) (*cip.AdminGetUserOutput, error) {
	p.count("AdminGetUser")
	if p.getUser != nil {
		return p.getUser(ctx, email)
	}
	return p.MemoryProvider.AdminGetUser(ctx, email)
}

func (p *stubProvider) AdminConfirmSignUp(ctx context.Context, email string) (*cip.AdminConfirmSignUpOutput, error) {
	p.count("AdminConfirmSignUp")
	return p.MemoryProvider.AdminConfirmSignUp(ctx, email)
}

func (p *stubProvider) UpdateUserAttributes(ctx context.Context, email string, attributes map[string]string) (*cip.AdminUpdateUserAttributesOutput, error) {
	p.count("UpdateUserAttributes")
	return p.MemoryProvider.UpdateUserAttributes(ctx, email, attributes)
}

func (p *stubProvider) SignIn(ctx context.Context, email, password string) (*cip.InitiateAuthOutput, error) {
	p.count("SignIn")
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return p.MemoryProvider.SignIn(ctx, email, password)
}

func (p *stubProvider) VerifyToken(ctx context.Context, token string) (*identity.IDTokenClaims, error) {
	p.count("VerifyToken")
	return p.MemoryProvider.VerifyToken(ctx, token)
}

type authFixture struct {
	svc      *AuthService
	users    *repository.MemoryUserRepository
	provider *stubProvider
	tokens   *identity.TokenManager
	outcomes repository.OutcomeRepository
	redis    *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens := identity.NewTokenManager(testSecret, time.Hour, testIssuer, testAudience)
	provider := newStubProvider(tokens)
	users := repository.NewMemoryUserRepository()
	outcomes := repository.NewOutcomeRepository(client)

	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, outcomes, zap.NewNop()).RegisterHandlers()

	svc := NewAuthService(AuthDependencies{
		UserRepo:   users,
		Provider:   provider,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return &authFixture{svc: svc, users: users, provider: provider, tokens: tokens, outcomes: outcomes, redis: mr}
}
