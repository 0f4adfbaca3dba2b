package identity

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/google/uuid"
)

var _ Provider = (*MemoryProvider)(nil)

type memoryIdentity struct {
	sub        string
	password   string
	status     types.UserStatusType
	attributes map[string]string
	created    time.Time
}

// MemoryProvider is an in-process stand-in for a user pool. It mirrors the
// pool's status transitions and error types and signs HS256 ID tokens.
type MemoryProvider struct {
	mu     sync.Mutex
	users  map[string]*memoryIdentity
	tokens *TokenManager
}

// NewMemoryProvider returns an empty provider that mints tokens with tokens.
func NewMemoryProvider(tokens *TokenManager) *MemoryProvider {
	return &MemoryProvider{users: make(map[string]*memoryIdentity), tokens: tokens}
}

func userNotFound() error {
	return &types.UserNotFoundException{Message: aws.String("User does not exist.")}
}

func notAuthorized() error {
	return &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
}

func (p *MemoryProvider) AdminCreateUser(_ context.Context, email, temporaryPassword string, userID int64) (*cip.AdminCreateUserOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.users[email]; exists {
		return nil, &types.UsernameExistsException{Message: aws.String("An account with the given email already exists.")}
	}
	attrs := make(map[string]string)
	for _, attr := range shadowAttributes(email, userID) {
		attrs[aws.ToString(attr.Name)] = aws.ToString(attr.Value)
	}
	ident := &memoryIdentity{
		sub:        uuid.NewString(),
		password:   temporaryPassword,
		status:     types.UserStatusTypeForceChangePassword,
		attributes: attrs,
		created:    time.Now(),
	}
	p.users[email] = ident
	return &cip.AdminCreateUserOutput{User: ident.userType(email)}, nil
}

func (p *MemoryProvider) AdminConfirmSignUp(_ context.Context, email string) (*cip.AdminConfirmSignUpOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.users[email]
	if !ok {
		return nil, userNotFound()
	}
	if ident.status == types.UserStatusTypeUnconfirmed {
		ident.status = types.UserStatusTypeConfirmed
	}
	return &cip.AdminConfirmSignUpOutput{}, nil
}

func (p *MemoryProvider) AdminSetPermanentPassword(_ context.Context, email, password string) (*cip.AdminSetUserPasswordOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.users[email]
	if !ok {
		return nil, userNotFound()
	}
	ident.password = password
	ident.status = types.UserStatusTypeConfirmed
	return &cip.AdminSetUserPasswordOutput{}, nil
}

func (p *MemoryProvider) AdminGetUser(_ context.Context, email string) (*cip.AdminGetUserOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.users[email]
	if !ok {
		return nil, userNotFound()
	}
	user := ident.userType(email)
	return &cip.AdminGetUserOutput{
		Username:             user.Username,
		UserAttributes:       user.Attributes,
		UserStatus:           user.UserStatus,
		Enabled:              true,
		UserCreateDate:       user.UserCreateDate,
		UserLastModifiedDate: user.UserLastModifiedDate,
	}, nil
}

func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (*cip.InitiateAuthOutput, error) {
	p.mu.Lock()
	ident, ok := p.users[email]
	if !ok {
		p.mu.Unlock()
		return nil, userNotFound()
	}
	if ident.password != password {
		p.mu.Unlock()
		return nil, notAuthorized()
	}
	if ident.status == types.UserStatusTypeForceChangePassword {
		p.mu.Unlock()
		return &cip.InitiateAuthOutput{
			ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
			Session:       aws.String(uuid.NewString()),
		}, nil
	}
	sub, userID := ident.sub, ident.attributes[AttrUserID]
	p.mu.Unlock()

	idToken, expiresAt, err := p.tokens.GenerateToken(sub, email, userID)
	if err != nil {
		return nil, err
	}
	return &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:   aws.String(idToken),
			TokenType: aws.String("Bearer"),
			ExpiresIn: int32(time.Until(expiresAt).Seconds()),
		},
	}, nil
}

func (p *MemoryProvider) UpdateUserAttributes(_ context.Context, email string, attributes map[string]string) (*cip.AdminUpdateUserAttributesOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.users[email]
	if !ok {
		return nil, userNotFound()
	}
	for name, value := range attributes {
		ident.attributes[name] = value
	}
	return &cip.AdminUpdateUserAttributesOutput{}, nil
}

func (p *MemoryProvider) VerifyToken(_ context.Context, token string) (*IDTokenClaims, error) {
	return p.tokens.Verifier().Verify(token)
}

func (m *memoryIdentity) userType(email string) *types.UserType {
	attrs := make([]types.AttributeType, 0, len(m.attributes)+1)
	attrs = append(attrs, types.AttributeType{Name: aws.String("sub"), Value: aws.String(m.sub)})
	attrs = append(attrs, toAttributeList(m.attributes)...)
	created := m.created
	return &types.UserType{
		Username:             aws.String(email),
		Attributes:           attrs,
		UserStatus:           m.status,
		Enabled:              true,
		UserCreateDate:       &created,
		UserLastModifiedDate: &created,
	}
}
