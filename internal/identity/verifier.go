package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenVerifier checks ID token signatures and the issuer, audience and token_use claims.
type TokenVerifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
	methods  []string
	now      func() time.Time
}

// NewTokenVerifier builds a verifier over keyfunc accepting the given signing methods.
func NewTokenVerifier(keyfunc jwt.Keyfunc, issuer, audience string, methods ...string) *TokenVerifier {
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodRS256.Alg()}
	}
	return &TokenVerifier{
		keyfunc:  keyfunc,
		issuer:   issuer,
		audience: audience,
		methods:  methods,
		now:      time.Now,
	}
}

// NewJWKSVerifier fetches the pool's JWKS and keeps it refreshed in the background.
func NewJWKSVerifier(jwksURL, issuer, audience string) (*TokenVerifier, *keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch jwks: %w", err)
	}
	return NewTokenVerifier(jwks.Keyfunc, issuer, audience), jwks, nil
}

// Verify parses the token and returns its claims when every check passes.
// An expired but otherwise valid token yields an error matching jwt.ErrTokenExpired.
func (v *TokenVerifier) Verify(token string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.TokenUse != TokenUseID {
		return nil, ErrTokenUse
	}
	return claims, nil
}
