package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/identity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(secret, issuer, audience string) *Verifier {
	return NewVerifier(config.Config{Identity: config.IdentityConfig{
		JWTSecret: secret,
		Issuer:    issuer,
		Audience:  audience,
	}})
}

func TestVerifyRoundTrip(t *testing.T) {
	v := newVerifier("s3cret", "https://id.example", "streamgate")
	raw, err := v.Issue(domain.Principal{ID: "user_1", Email: "a@example.com", Roles: []string{"role:viewer"}}, time.Hour)
	require.NoError(t, err)

	p, err := v.Verify("Bearer " + raw)
	require.NoError(t, err)
	assert.Equal(t, "user_1", p.ID)
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, []string{"role:viewer"}, p.Roles)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier("s3cret", "https://id.example", "streamgate")
	expired, err := v.Issue(domain.Principal{ID: "user_1"}, -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := newVerifier("s3cret", "https://evil.example", "streamgate").Issue(domain.Principal{ID: "user_1"}, time.Hour)
	require.NoError(t, err)
	wrongSecret, err := newVerifier("other", "https://id.example", "streamgate").Issue(domain.Principal{ID: "user_1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := v.Issue(domain.Principal{}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user_1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"expired":    expired,
		"issuer":     otherIssuer,
		"secret":     wrongSecret,
		"no_subject": noSubject,
		"alg_none":   none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(raw)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}
