// Package canonical produces the deterministic byte form of a credential
// document that is signed at issuance and re-derived at verification.
//
// Object keys are sorted at every level and output is compact. Strings escape
// only quotes, backslashes and control characters; other Unicode, HTML
// characters and slashes are written unescaped. The signing input excludes the
// top-level "proof" member.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ProofKey is the member excluded from the signed bytes.
const ProofKey = "proof"

// Marshal returns the signing input for doc: its canonical form without the
// top-level proof. doc may be a map, a slice, a struct or any value
// encoding/json accepts; it is normalized through a JSON round trip first so
// equal documents produce equal bytes regardless of their Go representation.
func Marshal(doc any) ([]byte, error) {
	return encodeDocument(doc, true)
}

// Encode returns the canonical form of the whole document, proof included.
// This is the stored representation.
func Encode(doc any) ([]byte, error) {
	return encodeDocument(doc, false)
}

func encodeDocument(doc any, stripProof bool) ([]byte, error) {
	normalized, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	if obj, ok := normalized.(map[string]any); ok && stripProof {
		normalized = Strip(obj, ProofKey)
	}

	var buf bytes.Buffer
	if err := encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses stored document bytes, keeping numbers as json.Number so
// they re-encode exactly.
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// Strip returns a shallow copy of doc without key.
func Strip(doc map[string]any, key string) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func normalize(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return out, nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		return encodeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical: unsupported value of type %T", v)
	}
	return nil
}

// encodeString quotes s escaping only what JSON requires: the quote, the
// backslash and control characters. Everything else, U+2028 and U+2029
// included, is written as-is. Invalid UTF-8 becomes U+FFFD.
func encodeString(buf *bytes.Buffer, s string) error {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return nil
}
