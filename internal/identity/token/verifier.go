package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/identity/domain"
)

// Claims is the identity-provider token payload.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 identity tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.Identity.JWTSecret),
		issuer:   strings.TrimSpace(cfg.Identity.Issuer),
		audience: strings.TrimSpace(cfg.Identity.Audience),
	}
}

// Verify parses raw and maps its claims to a Principal. Any "Bearer " prefix is ignored.
func (v *Verifier) Verify(raw string) (*domain.Principal, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}
	if len(v.secret) == 0 {
		return nil, errors.New("identity jwt secret is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return &domain.Principal{
		ID:    subject,
		Email: strings.TrimSpace(claims.Email),
		Roles: claims.Roles,
	}, nil
}

// Issue signs a token for p. Used by gatectl and tests to mint local identities.
func (v *Verifier) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("identity jwt secret is not configured")
	}
	now := time.Now().UTC()
	claims := Claims{
		Email: p.Email,
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
