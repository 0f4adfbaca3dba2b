package identity

import (
	"context"
	"sync"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
)

// cognitoAPI is the subset of the Cognito client used by CognitoClient.
type cognitoAPI interface {
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminConfirmSignUp(ctx context.Context, params *cip.AdminConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.AdminConfirmSignUpOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig
	newCognitoClient     = func(cfg aws.Config, optFns ...func(*cip.Options)) cognitoAPI {
		return cip.NewFromConfig(cfg, optFns...)
	}
	newJWKSVerifier = NewJWKSVerifier
)

var _ Provider = (*CognitoClient)(nil)

// CognitoClient talks to a Cognito user pool. A fresh service client is built for every call.
type CognitoClient struct {
	cfg    config.CognitoConfig
	logger *zap.Logger

	mu       sync.Mutex
	verifier *TokenVerifier
	jwks     *keyfunc.JWKS
}

// NewCognitoClient returns a provider bound to the configured user pool.
func NewCognitoClient(cfg config.CognitoConfig, logger *zap.Logger) *CognitoClient {
	return &CognitoClient{cfg: cfg, logger: logger}
}

func (c *CognitoClient) service(ctx context.Context) (cognitoAPI, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.cfg.Region)}
	if c.cfg.AccessKeyID != "" && c.cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.cfg.AccessKeyID, c.cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newCognitoClient(awsCfg, func(o *cip.Options) {
		if c.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.cfg.Endpoint)
		}
	}), nil
}

// AdminCreateUser creates the shadow identity with a temporary password and no welcome message.
func (c *CognitoClient) AdminCreateUser(ctx context.Context, email, temporaryPassword string, userID int64) (*cip.AdminCreateUserOutput, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId:        aws.String(c.cfg.UserPoolID),
		Username:          aws.String(email),
		TemporaryPassword: aws.String(temporaryPassword),
		MessageAction:     types.MessageActionTypeSuppress,
		UserAttributes:    shadowAttributes(email, userID),
	})
}

// AdminConfirmSignUp confirms an unconfirmed identity.
func (c *CognitoClient) AdminConfirmSignUp(ctx context.Context, email string) (*cip.AdminConfirmSignUpOutput, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.AdminConfirmSignUp(ctx, &cip.AdminConfirmSignUpInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(email),
	})
}

// AdminSetPermanentPassword sets the password as permanent, clearing FORCE_CHANGE_PASSWORD.
func (c *CognitoClient) AdminSetPermanentPassword(ctx context.Context, email, password string) (*cip.AdminSetUserPasswordOutput, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		Permanent:  true,
	})
}

// AdminGetUser fetches the identity for email.
func (c *CognitoClient) AdminGetUser(ctx context.Context, email string) (*cip.AdminGetUserOutput, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(email),
	})
}

// SignIn exchanges the credential pair for tokens via USER_PASSWORD_AUTH.
func (c *CognitoClient) SignIn(ctx context.Context, email, password string) (*cip.InitiateAuthOutput, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId: aws.String(c.cfg.ClientID),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
}

// UpdateUserAttributes overwrites the given attributes on the identity.
func (c *CognitoClient) UpdateUserAttributes(ctx context.Context, email string, attributes map[string]string) (*cip.AdminUpdateUserAttributesOutput, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(c.cfg.UserPoolID),
		Username:       aws.String(email),
		UserAttributes: toAttributeList(attributes),
	})
}

// VerifyToken checks an ID token against the pool's published signing keys.
func (c *CognitoClient) VerifyToken(_ context.Context, token string) (*IDTokenClaims, error) {
	verifier, err := c.tokenVerifier()
	if err != nil {
		return nil, err
	}
	return verifier.Verify(token)
}

// tokenVerifier lazily fetches the JWKS; a failed fetch is retried on the next call.
func (c *CognitoClient) tokenVerifier() (*TokenVerifier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verifier != nil {
		return c.verifier, nil
	}
	verifier, jwks, err := newJWKSVerifier(c.cfg.JWKSURL(), c.cfg.Issuer(), c.cfg.ClientID)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("jwks verifier unavailable", zap.Error(err))
		}
		return nil, err
	}
	c.verifier = verifier
	c.jwks = jwks
	return verifier, nil
}

// Close stops the JWKS background refresh. A later VerifyToken fetches
// the keys again.
func (c *CognitoClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jwks != nil {
		c.jwks.EndBackground()
	}
	c.jwks = nil
	c.verifier = nil
}
