// Package oauthstate signs and verifies the OAuth "state" parameter so the
// callback only accepts flows this server started.
package oauthstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "intake-edge"

// DefaultTTL is how long a consent round trip may take.
const DefaultTTL = 10 * time.Minute

// ErrInvalid is returned for any state that fails verification.
var ErrInvalid = errors.New("invalid oauth state")

// Claims carried in the state token.
type Claims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 state tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New returns a Signer. ttl <= 0 uses DefaultTTL.
func New(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed state for provider.
func (s *Signer) Issue(provider string) (string, error) {
	now := s.now()
	claims := Claims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, issuer, expiry and provider.
func (s *Signer) Verify(state, provider string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(state, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Provider != provider {
		return nil, fmt.Errorf("%w: provider %q", ErrInvalid, claims.Provider)
	}
	return claims, nil
}
