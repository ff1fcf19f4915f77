package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier("s3cret", "dev")
	require.NoError(t, err)

	token, err := v.Sign(Claims{Sub: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestVerifyRejects(t *testing.T) {
	v, err := NewVerifier("s3cret", "dev")
	require.NoError(t, err)
	other, err := NewVerifier("other", "dev")
	require.NoError(t, err)

	foreign, err := other.Sign(Claims{Sub: "user-1"})
	require.NoError(t, err)

	expired, err := v.Sign(Claims{Sub: "user-1", Exp: time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"malformed": "abc",
		"foreign":   foreign,
		"expired":   expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewVerifierRequiresSecretInProduction(t *testing.T) {
	_, err := NewVerifier("", "production")
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewVerifier("dev-secret", "production")
	assert.ErrorIs(t, err, ErrMissingSecret)

	v, err := NewVerifier("", "dev")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestPrincipal(t *testing.T) {
	g := Guest(" abc ")
	assert.Equal(t, "guest:abc", g.UserID)
	assert.True(t, g.IsGuest)
	assert.True(t, g.Valid())
	assert.False(t, Guest("").Valid())
	assert.False(t, Principal{}.Valid())
	assert.True(t, User("u").Valid())
}
