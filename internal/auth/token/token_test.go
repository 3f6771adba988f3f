package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceRejectsEmptySecret(t *testing.T) {
	_, err := NewService("", "incidenta")
	assert.ErrorIs(t, err, ErrSecretMissing)

	_, err = NewService("   ", "incidenta")
	assert.ErrorIs(t, err, ErrSecretMissing)
}

func TestIssueAndValidate(t *testing.T) {
	svc, err := NewService("test-secret", "incidenta")
	require.NoError(t, err)

	raw, err := svc.Issue("42", []string{ClassSession, ClassSuperuser}, time.Minute, "sid-1")
	require.NoError(t, err)

	claims, err := svc.Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "incidenta", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.ElementsMatch(t, []string{ClassSession, ClassSuperuser}, claims.Scopes())
}

func TestIssueRejectsBadInput(t *testing.T) {
	svc, err := NewService("test-secret", "incidenta")
	require.NoError(t, err)

	_, err = svc.Issue("", []string{ClassSession}, time.Minute, "")
	assert.Error(t, err)

	_, err = svc.Issue("42", []string{ClassSession}, 0, "")
	assert.Error(t, err)
}

func TestValidateFailureModes(t *testing.T) {
	svc, err := NewService("test-secret", "incidenta")
	require.NoError(t, err)

	raw, err := svc.Issue("42", []string{ClassSession}, time.Minute, "sid-1")
	require.NoError(t, err)

	// empty and garbage input
	_, err = svc.Validate("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// tampered payload
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = svc.Validate(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// signed with a different secret
	other, err := NewService("other-secret", "incidenta")
	require.NoError(t, err)
	_, err = other.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// wrong issuer
	foreign, err := NewService("test-secret", "someone-else")
	require.NoError(t, err)
	foreignToken, err := foreign.Issue("42", []string{ClassSession}, time.Minute, "")
	require.NoError(t, err)
	_, err = svc.Validate(foreignToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// expired: every failure mode looks identical to the caller
	expired, err := svc.Issue("42", []string{ClassSession}, time.Nanosecond, "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHasAnyIsLogicalOr(t *testing.T) {
	claims := &Claims{Scope: ClassSession + " " + ClassSuperuser}

	assert.True(t, claims.HasAny(ClassSession))
	assert.True(t, claims.HasAny(ClassSuperuser))
	assert.True(t, claims.HasAny(ClassPasswordChange, ClassSession))
	assert.False(t, claims.HasAny(ClassPasswordChange))
	assert.False(t, claims.HasAny(ClassPasswordChange, ClassTwoFAVerify))
	assert.False(t, claims.HasAny())

	empty := &Claims{}
	assert.False(t, empty.HasAny(ClassSession))
}
