package auth

import (
	"testing"
	"time"

	errs "babel-relay/errors"

	"github.com/stretchr/testify/require"
)

func Test_Generate_And_Validate_Token(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("alice", []string{"admin"})
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := manager.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal([]string{"admin"}, claims.Roles)
	req.Equal("babel-relay", claims.Issuer)
}

func Test_Validate_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	token, err := NewTokenManager("secret-a", time.Hour).GenerateToken("alice", nil)
	req.NoError(err)

	_, err = NewTokenManager("secret-b", time.Hour).ValidateToken(token)
	req.ErrorIs(err, errs.ErrUnauthorized)
}

func Test_Validate_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken("alice", nil)
	req.NoError(err)

	_, err = manager.ValidateToken(token)
	req.ErrorIs(err, errs.ErrUnauthorized)
}

func Test_Validate_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	_, err := NewTokenManager("test-secret", time.Hour).ValidateToken("not.a.jwt")
	req.ErrorIs(err, errs.ErrUnauthorized)
}
