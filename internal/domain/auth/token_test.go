package auth

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)

	raw, err := tokens.Issue("user-1")
	require.NoError(t, err)

	userID, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokens_WrongSecret(t *testing.T) {
	raw, err := NewTokens([]byte("secret"), time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokens([]byte("other"), time.Hour).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	raw, err := tokens.Issue("user-1")
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Malformed(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestTokens_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		StandardClaims: jwt.StandardClaims{Subject: "user-1"},
	})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens([]byte("secret"), time.Hour).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_MissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokens([]byte("secret"), time.Hour).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}
