package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attest/pkg/domain-errors"
)

func TestParseRejectsUnusableIDs(t *testing.T) {
	parsers := map[string]func(string) error{
		"user":       func(s string) error { _, err := ParseUserID(s); return err },
		"issuer":     func(s string) error { _, err := ParseIssuerID(s); return err },
		"template":   func(s string) error { _, err := ParseTemplateID(s); return err },
		"credential": func(s string) error { _, err := ParseCredentialID(s); return err },
		"stack":      func(s string) error { _, err := ParseStackID(s); return err },
	}
	for kind, parse := range parsers {
		for _, raw := range []string{"", "python-101", uuid.Nil.String()} {
			err := parse(raw)
			require.Error(t, err, "%s %q", kind, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "%s %q", kind, raw)
		}
		assert.NoError(t, parse(uuid.NewString()), kind)
	}
}

func TestParseRoundTripsString(t *testing.T) {
	want := NewStackID()
	got, err := ParseStackID(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.IsNil())
	assert.True(t, StackID{}.IsNil())
}

func TestIDsAreJSONStrings(t *testing.T) {
	type doc struct {
		Template TemplateID   `json:"template_id"`
		Holder   UserID       `json:"holder"`
		Cred     CredentialID `json:"credential_id"`
	}
	in := doc{Template: NewTemplateID(), Holder: NewUserID(), Cred: NewCredentialID()}

	payload, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"template_id":"`+in.Template.String()+`","holder":"`+in.Holder.String()+`","credential_id":"`+in.Cred.String()+`"}`,
		string(payload))

	var out doc
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, in, out)
}
