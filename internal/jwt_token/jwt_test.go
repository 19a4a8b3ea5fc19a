package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/requestcontext"
)

var userID = id.UserID(uuid.New())

func newService(ttl time.Duration) *JWTService {
	return NewJWTService("test-signing-key", "attest", "attest-admin", ttl)
}

func Test_GenerateActorToken(t *testing.T) {
	svc := newService(time.Hour)
	token, err := svc.GenerateActorToken(context.Background(), userID, []string{"credentials:issue"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, []string{"credentials:issue"}, claims.Scope)
	assert.NotEmpty(t, claims.ID)
}

func Test_GenerateActorToken_RejectsNilUser(t *testing.T) {
	_, err := newService(time.Hour).GenerateActorToken(context.Background(), id.UserID{}, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newService(time.Hour).ValidateToken("invalid-token-string")
	require.ErrorContains(t, err, "invalid token")
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := newService(time.Minute)
	ctx := requestcontext.WithTime(context.Background(), time.Now().Add(-time.Hour))
	token, err := svc.GenerateActorToken(ctx, userID, nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorContains(t, err, "token expired")
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	token, err := NewJWTService("test-signing-key", "attest", "someone-else", time.Hour).
		GenerateActorToken(context.Background(), userID, nil)
	require.NoError(t, err)

	_, err = newService(time.Hour).ValidateToken(token)
	require.Error(t, err)
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := ActorClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Issuer:    "attest",
			Audience:  []string{"attest-admin"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService(time.Hour).ValidateToken(signed)
	require.Error(t, err)
}

func Test_ValidatorMapsClaims(t *testing.T) {
	svc := newService(time.Hour)
	token, err := svc.GenerateActorToken(context.Background(), userID, []string{"credentials:revoke"})
	require.NoError(t, err)

	claims, err := NewValidator(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.NotEmpty(t, claims.JTI)
	assert.Equal(t, []string{"credentials:revoke"}, claims.Scopes)
}
