package identity

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager issues HS256 ID tokens shaped like user pool tokens.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, issuer, audience string) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// GenerateToken builds and signs an ID token for the subject.
func (tm *TokenManager) GenerateToken(subject, email, userID string) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &IDTokenClaims{
		Email:           email,
		EmailVerified:   true,
		CognitoUsername: email,
		UserID:          userID,
		TokenUse:        TokenUseID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Keyfunc resolves the signing secret for tokens minted by this manager.
func (tm *TokenManager) Keyfunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return tm.secret, nil
}

// Verifier returns a TokenVerifier bound to this manager's secret and claims.
func (tm *TokenManager) Verifier() *TokenVerifier {
	return NewTokenVerifier(tm.Keyfunc, tm.issuer, tm.audience, jwt.SigningMethodHS256.Alg())
}
