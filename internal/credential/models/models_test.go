package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attest/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusActive, StatusRevoked, true},
		{StatusActive, StatusSuspended, true},
		{StatusActive, StatusExpired, true},
		{StatusSuspended, StatusRevoked, true},
		{StatusExpired, StatusRevoked, true},
		{StatusSuspended, StatusActive, false},
		{StatusExpired, StatusActive, false},
		{StatusRevoked, StatusActive, false},
		{StatusRevoked, StatusExpired, false},
		{StatusActive, StatusActive, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StatusRevoked.IsTerminal())
	assert.False(t, StatusSuspended.IsTerminal())
}

func TestTemplateExpiresAt(t *testing.T) {
	issued := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	never := &Template{}
	assert.Nil(t, never.ExpiresAt(issued))

	year := &Template{ValidityDays: 365}
	exp := year.ExpiresAt(issued)
	require.NotNil(t, exp)
	assert.Equal(t, time.Date(2027, 1, 31, 10, 0, 0, 0, time.UTC), *exp)
}

func TestTemplateMeetsPassingScore(t *testing.T) {
	threshold := 70.0
	low, high := 69.9, 70.0

	open := &Template{}
	assert.True(t, open.MeetsPassingScore(0))
	assert.True(t, open.MeetsPassingScore(low))

	gated := &Template{PassingScore: &threshold}
	assert.False(t, gated.MeetsPassingScore(low))
	assert.True(t, gated.MeetsPassingScore(high))
}

func TestCredentialIsExpiredAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, (&IssuedCredential{}).IsExpiredAt(now))
	assert.True(t, (&IssuedCredential{ExpiresAt: &past}).IsExpiredAt(now))
	assert.True(t, (&IssuedCredential{ExpiresAt: &now}).IsExpiredAt(now))
	assert.False(t, (&IssuedCredential{ExpiresAt: &future}).IsExpiredAt(now))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Course_Badge ")
	require.NoError(t, err)
	assert.Equal(t, KindCourseBadge, k)

	_, err = ParseKind("trophy")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIssuerProfileOmitsPrivateKey(t *testing.T) {
	iss := &Issuer{Name: "Acme Academy", PublicKey: []byte{1}, EncryptedPrivateKey: []byte{2}}
	assert.True(t, iss.HasKeys())
	p := iss.Profile()
	assert.Equal(t, "Acme Academy", p.Name)
	assert.Equal(t, []byte{1}, p.PublicKey)
}

func TestReasonMessage(t *testing.T) {
	assert.Equal(t, "Credential is valid", ReasonNone.Message())
	assert.Equal(t, "Credential has been revoked", ReasonRevoked.Message())
}
