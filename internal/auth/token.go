// internal/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/whoopclone/backend/config"
)

// Claims is the decoded payload of a token. Numeric claims, including exp,
// come back as float64, so integers round-trip exactly only up to 2^53.
// Larger identifiers should be issued as strings.
type Claims = jwt.MapClaims

// ClaimExpiration is the claim name holding the expiry as Unix seconds.
const ClaimExpiration = "exp"

var supportedMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Result is the outcome of Validate. Err is nil exactly when the token is valid.
type Result struct {
	Claims Claims
	Err    error
}

// Valid reports whether the token passed every check.
func (r Result) Valid() bool {
	return r.Err == nil && r.Claims != nil
}

// Expired reports whether the token failed only because its lifetime ended.
func (r Result) Expired() bool {
	return errors.Is(r.Err, ErrTokenExpired)
}

// TokenService issues and validates HMAC-signed access tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	defaultTTL time.Duration
	now        func() time.Time
}

// Option customises a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now, for tests and deterministic issuance.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService builds a service for one secret/algorithm pair.
func NewTokenService(secret, algorithm string, defaultTTL time.Duration, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	method, ok := supportedMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	s := &TokenService{
		secret:     []byte(secret),
		method:     method,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewTokenServiceFromSettings wires the service to the loaded settings.
func NewTokenServiceFromSettings(cfg *config.Settings, opts ...Option) (*TokenService, error) {
	return NewTokenService(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL(), opts...)
}

// DefaultTTL is the lifetime used by Issue.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue signs a copy of claims with exp set to now plus the default TTL.
func (s *TokenService) Issue(claims Claims) (string, error) {
	return s.IssueWithTTL(claims, s.defaultTTL)
}

// IssueWithTTL signs a copy of claims with exp set to now plus ttl.
// A negative ttl yields a token that is already expired.
func (s *TokenService) IssueWithTTL(claims Claims, ttl time.Duration) (string, error) {
	toEncode := maps.Clone(claims)
	if toEncode == nil {
		toEncode = Claims{}
	}
	toEncode[ClaimExpiration] = s.now().Add(ttl).Unix()

	token := jwt.NewWithClaims(s.method, toEncode)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		customLog.Warnf("Error signing token: %v", err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm and expiry. It never panics and never
// returns a bare error: failures are reported through Result.Err.
func (s *TokenService) Validate(tokenString string) Result {
	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		customLog.Debugf("Validate: token rejected: %v", err)
		return Result{Err: mapParseError(err)}
	}
	if !token.Valid {
		return Result{Err: ErrTokenInvalid}
	}
	return Result{Claims: claims}
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, ErrUnexpectedSigningMethod):
		return ErrUnexpectedSigningMethod
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrTokenClaimsInvalid
	default:
		return ErrTokenInvalid
	}
}
