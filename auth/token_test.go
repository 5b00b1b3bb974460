package auth

import (
	"listing-chat/errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokens_Roundtrip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("a_strong_and_long_secret", time.Hour)

	token, err := tokens.GenerateToken("alice")
	req.NoError(err)

	userID, err := tokens.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", userID)
}

func TestTokens_Rejections(t *testing.T) {
	tokens := NewTokens("a_strong_and_long_secret", time.Hour)
	expired, err := NewTokens("a_strong_and_long_secret", -time.Minute).GenerateToken("alice")
	require.NoError(t, err)
	foreign, err := NewTokens("another_secret", time.Hour).GenerateToken("alice")
	require.NoError(t, err)
	anonymous, err := tokens.GenerateToken("")
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"signed with another secret", foreign},
		{"no user", anonymous},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := tokens.ValidateToken(tt.token)
			req.ErrorIs(err, errors.ErrUnauthenticated)
		})
	}
}
