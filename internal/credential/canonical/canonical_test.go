package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_OrderIndependent(t *testing.T) {
	a := map[string]any{
		"type":   []any{"VerifiableCredential", "OpenBadgeCredential"},
		"issuer": map[string]any{"name": "Acme Academy", "id": "https://acme.example/issuers/1"},
		"credentialSubject": map[string]any{
			"name": "Alice",
			"achievement": map[string]any{
				"name":     "Python Fundamentals",
				"criteria": map[string]any{"type": "Criteria", "narrative": "Pass"},
			},
		},
	}
	b := map[string]any{
		"credentialSubject": map[string]any{
			"achievement": map[string]any{
				"criteria": map[string]any{"narrative": "Pass", "type": "Criteria"},
				"name":     "Python Fundamentals",
			},
			"name": "Alice",
		},
		"issuer": map[string]any{"id": "https://acme.example/issuers/1", "name": "Acme Academy"},
		"type":   []any{"VerifiableCredential", "OpenBadgeCredential"},
	}

	ca, err := Marshal(a)
	require.NoError(t, err)
	cb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t,
		`{"credentialSubject":{"achievement":{"criteria":{"narrative":"Pass","type":"Criteria"},"name":"Python Fundamentals"},"name":"Alice"},"issuer":{"id":"https://acme.example/issuers/1","name":"Acme Academy"},"type":["VerifiableCredential","OpenBadgeCredential"]}`,
		string(ca))
}

func TestMarshal_ExcludesTopLevelProofOnly(t *testing.T) {
	doc := map[string]any{
		"id":    "urn:uuid:1",
		"proof": map[string]any{"proofValue": "abc"},
		"evidence": []any{
			map[string]any{"proof": "kept"},
		},
	}

	out, err := Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"evidence":[{"proof":"kept"}],"id":"urn:uuid:1"}`, string(out))
	assert.Contains(t, doc, "proof", "input must not be mutated")
}

func TestMarshal_NoEscaping(t *testing.T) {
	out, err := Marshal(map[string]any{
		"url":  "https://example.org/verify/1?a=1&b=2",
		"name": "Zoë <Ünïcödé>",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Zoë <Ünïcödé>","url":"https://example.org/verify/1?a=1&b=2"}`, string(out))
}

func TestMarshal_LineSeparatorsStayRaw(t *testing.T) {
	out, err := Marshal(map[string]any{"s": "a\u2028b\u2029c"})
	require.NoError(t, err)
	assert.Equal(t, "{\"s\":\"a\u2028b\u2029c\"}", string(out))
	assert.NotContains(t, string(out), `\u2028`)
	assert.NotContains(t, string(out), `\u2029`)
}

func TestMarshal_InvalidUTF8BecomesReplacementChar(t *testing.T) {
	out, err := Marshal(map[string]any{"s": "a\xffb"})
	require.NoError(t, err)
	assert.Equal(t, "{\"s\":\"a\ufffdb\"}", string(out))
}

func TestMarshal_EscapesQuotesAndControls(t *testing.T) {
	in := "q\"b\\n\nr\rt\tbell\x07"
	out, err := Marshal(map[string]any{"s": in})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"q\"b\\n\nr\rt\tbell\u0007"}`, string(out))

	var back map[string]string
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, in, back["s"])
}

func TestMarshal_StructsAndMapsAgree(t *testing.T) {
	type criteria struct {
		Type      string `json:"type"`
		Narrative string `json:"narrative"`
	}
	fromStruct, err := Marshal(struct {
		Score    float64  `json:"score"`
		Criteria criteria `json:"criteria"`
	}{Score: 92.5, Criteria: criteria{Type: "Criteria", Narrative: "n"}})
	require.NoError(t, err)

	fromMap, err := Marshal(map[string]any{
		"criteria": map[string]any{"narrative": "n", "type": "Criteria"},
		"score":    92.5,
	})
	require.NoError(t, err)
	assert.Equal(t, string(fromMap), string(fromStruct))
}

func TestMarshal_StableAcrossDecode(t *testing.T) {
	original := map[string]any{"score": json.Number("1.50"), "n": nil, "ok": true, "list": []any{}}
	first, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Decode(first)
	require.NoError(t, err)
	second, err := Marshal(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, `{"list":[],"n":null,"ok":true,"score":1.50}`, string(first))
}

func TestEncode_KeepsProof(t *testing.T) {
	doc := map[string]any{"proof": map[string]any{"type": "Ed25519Signature2020"}, "id": "x"}

	full, err := Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x","proof":{"type":"Ed25519Signature2020"}}`, string(full))

	decoded, err := Decode(full)
	require.NoError(t, err)
	signing, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x"}`, string(signing))
}

func TestStrip(t *testing.T) {
	doc := map[string]any{"a": 1, "proof": 2}
	out := Strip(doc, "proof")
	assert.Equal(t, map[string]any{"a": 1}, out)
	assert.Len(t, doc, 2)
}

func TestMarshal_RejectsUnsupported(t *testing.T) {
	_, err := Marshal(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}
