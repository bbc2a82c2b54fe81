package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issued := time.Now()
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue(7)
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherSecret(t *testing.T) {
	token, err := NewTokenIssuer("one", time.Hour).Issue(7)
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestTokenSubjectProperty tests that every positive user ID survives a
// sign and verify cycle.
func TestTokenSubjectProperty(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1<<53).Draw(t, "userID")

		token, err := issuer.Issue(userID)
		if err != nil {
			t.Fatal(err)
		}
		got, err := issuer.Verify(token)
		if err != nil {
			t.Fatal(err)
		}
		if got != userID {
			t.Fatalf("subject %d, want %d", got, userID)
		}
	})
}
