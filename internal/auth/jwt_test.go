package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	v := NewVerifier(Config{Secret: "s3cret", Issuer: "staydesk"})

	tok, err := v.Issue(Identity{Subject: "user-1", Role: domain.RoleReceptionist}, time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.Subject)
	assert.Equal(t, domain.RoleReceptionist, id.Role)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(Config{Secret: "s3cret"})

	other, err := NewVerifier(Config{Secret: "other"}).Issue(Identity{Subject: "u", Role: domain.RoleAdmin}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Issue(Identity{Subject: "u", Role: domain.RoleAdmin}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole, err := v.Issue(Identity{Subject: "u", Role: domain.Role("owner")}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(badRole)
	assert.ErrorIs(t, err, ErrUnknownRole)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
