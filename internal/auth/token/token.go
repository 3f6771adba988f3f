// Package token issues and validates the bearer tokens used by the staged
// authentication flow. A token carries its subject, a space-separated scope
// list and, for full sessions only, the session id. Signature and expiry are
// verified here and nowhere else; downstream code trusts the decoded claims.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope classes carried in the "scope" claim. A token holds exactly one
// stage class plus optional business scopes such as ClassSuperuser.
const (
	// ClassSession marks a full, authenticated user session.
	ClassSession = "session"
	// ClassPasswordChange restricts the bearer to the password-reset endpoint.
	ClassPasswordChange = "password:change"
	// ClassTwoFAReset restricts the bearer to the 2FA enrollment endpoints.
	ClassTwoFAReset = "2fa:reset"
	// ClassTwoFAVerify restricts the bearer to the 2FA verification endpoint.
	ClassTwoFAVerify = "2fa:verify"
	// ClassSuperuser is granted alongside ClassSession for superusers.
	ClassSuperuser = "superuser"
)

// ErrInvalidToken indicates the token failed validation. Absent, malformed,
// badly signed and expired tokens are deliberately indistinguishable.
var ErrInvalidToken = errors.New("invalid token")

// ErrSecretMissing indicates the signing secret is not configured. This is a
// fatal misconfiguration, not a per-request error.
var ErrSecretMissing = errors.New("token signing secret is not configured")

// Claims represents the JWT claims carried by Incidenta tokens.
type Claims struct {
	// Scope is the space-separated list of scope classes and business scopes.
	Scope string `json:"scope"`
	// SessionID is present only on session-class tokens.
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Scopes returns the individual scope tokens of the scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasAny reports whether any of the token's scopes matches any of the
// requested scopes. Scope checks are a logical OR, never an AND.
func (c *Claims) HasAny(required ...string) bool {
	for _, held := range c.Scopes() {
		for _, want := range required {
			if held == want {
				return true
			}
		}
	}

	return false
}

// Service signs and validates tokens with a shared HS256 secret.
type Service struct {
	secret []byte
	issuer string
}

// NewService creates a token service. An empty secret is a misconfiguration
// and is rejected up front rather than at the first request.
func NewService(secret, issuer string) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretMissing
	}

	return &Service{secret: []byte(secret), issuer: issuer}, nil
}

// Issue signs a token for the subject with the given scopes and TTL.
// sessionID may be empty for staged-security tokens.
func (s *Service) Issue(subject string, scopes []string, ttl time.Duration, sessionID string) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}

	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}

	now := time.Now().UTC()
	claims := Claims{
		Scope:     strings.Join(scopes, " "),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies the token signature and claims and returns the decoded
// claims. Every failure mode maps to ErrInvalidToken.
func (s *Service) Validate(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}

		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if err := s.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *Service) validateClaims(claims *Claims) error {
	if claims.Issuer != s.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}

	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}

	now := time.Now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("token expired")
	}

	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}

	return nil
}
