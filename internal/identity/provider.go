// Package identity wraps the managed identity provider (AWS Cognito user pools)
// that owns credentials, password sign-in and ID token issuance.
//
// Adapters return the provider's own response envelopes and native errors;
// classifying them is left to the caller.
package identity

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/identity-service/internal/domain"
)

// Attribute names used on shadow identities.
const (
	AttrUserID        = "custom:user_id"
	AttrEmail         = "email"
	AttrEmailVerified = "email_verified"
)

// TokenUseID is the token_use claim carried by ID tokens.
const TokenUseID = "id"

// ErrTokenUse is returned when a token is not an ID token.
var ErrTokenUse = errors.New("token_use is not id")

// Provider is the set of identity provider operations the service relies on.
type Provider interface {
	AdminCreateUser(ctx context.Context, email, temporaryPassword string, userID int64) (*cip.AdminCreateUserOutput, error)
	AdminConfirmSignUp(ctx context.Context, email string) (*cip.AdminConfirmSignUpOutput, error)
	AdminSetPermanentPassword(ctx context.Context, email, password string) (*cip.AdminSetUserPasswordOutput, error)
	AdminGetUser(ctx context.Context, email string) (*cip.AdminGetUserOutput, error)
	SignIn(ctx context.Context, email, password string) (*cip.InitiateAuthOutput, error)
	UpdateUserAttributes(ctx context.Context, email string, attributes map[string]string) (*cip.AdminUpdateUserAttributesOutput, error)
	VerifyToken(ctx context.Context, token string) (*IDTokenClaims, error)
}

// IDTokenClaims is the payload of a user pool ID token.
type IDTokenClaims struct {
	Email           string `json:"email"`
	EmailVerified   bool   `json:"email_verified,omitempty"`
	CognitoUsername string `json:"cognito:username"`
	UserID          string `json:"custom:user_id,omitempty"`
	TokenUse        string `json:"token_use"`
	jwt.RegisteredClaims
}

// Session maps verified claims to the domain session.
func (c *IDTokenClaims) Session() domain.Session {
	s := domain.Session{
		Subject: c.Subject,
		UserID:  c.UserID,
		Email:   c.Email,
	}
	if s.Email == "" {
		s.Email = c.CognitoUsername
	}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// Attribute returns the value of the named attribute, if present.
func Attribute(attrs []types.AttributeType, name string) (string, bool) {
	for _, attr := range attrs {
		if aws.ToString(attr.Name) == name {
			return aws.ToString(attr.Value), true
		}
	}
	return "", false
}

func shadowAttributes(email string, userID int64) []types.AttributeType {
	return []types.AttributeType{
		{Name: aws.String(AttrUserID), Value: aws.String(strconv.FormatInt(userID, 10))},
		{Name: aws.String(AttrEmail), Value: aws.String(email)},
		{Name: aws.String(AttrEmailVerified), Value: aws.String("true")},
	}
}

func toAttributeList(attributes map[string]string) []types.AttributeType {
	list := make([]types.AttributeType, 0, len(attributes))
	for name, value := range attributes {
		list = append(list, types.AttributeType{Name: aws.String(name), Value: aws.String(value)})
	}
	return list
}
