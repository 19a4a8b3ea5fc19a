package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attest/pkg/domain-errors"
	"attest/pkg/validation"
)

type revokeBody struct {
	Reason string `json:"reason" validate:"required,oneof=fraud error request policy"`
	Note   string `json:"note"`
}

func (r *revokeBody) Normalize() {
	r.Reason = strings.ToLower(strings.TrimSpace(r.Reason))
}

func (r *revokeBody) Validate() error {
	return validation.Validate(r)
}

type plainBody struct {
	Name string `json:"name"`
}

type domainCheckedBody struct {
	ID string `json:"id"`
}

func (r *domainCheckedBody) Validate() error {
	if r.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	return nil
}

type erroringBody struct{}

func (erroringBody) Validate() error { return errors.New("nope") }

func decode[T any](t *testing.T, body string) (*T, *httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	got, ok := DecodeAndPrepare[T](w, req, logger, context.Background(), "req-1")
	assert.Equal(t, ok, got != nil)

	var resp map[string]string
	if !ok {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return got, w, resp
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		got, _, _ := decode[revokeBody](t, `{"reason":"  FRAUD ","note":"chargeback"}`)
		require.NotNil(t, got)
		assert.Equal(t, "fraud", got.Reason)
		assert.Equal(t, "chargeback", got.Note)
	})

	t.Run("types without hooks decode as-is", func(t *testing.T) {
		got, _, _ := decode[plainBody](t, `{"name":"acme"}`+"\n")
		require.NotNil(t, got)
		assert.Equal(t, "acme", got.Name)
	})

	t.Run("struct tag failures are validation errors", func(t *testing.T) {
		got, w, resp := decode[revokeBody](t, `{"reason":"boredom"}`)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", resp["error"])
		assert.Contains(t, resp["error_description"], "reason must be one of")
	})

	t.Run("plain validate errors become validation errors", func(t *testing.T) {
		_, w, resp := decode[erroringBody](t, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", resp["error"])
		assert.Equal(t, "nope", resp["error_description"])
	})

	t.Run("domain errors from validate keep their code", func(t *testing.T) {
		_, w, resp := decode[domainCheckedBody](t, `{"id":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", resp["error"])
		assert.Equal(t, "id is required", resp["error_description"])
	})
}

func TestDecodeAndPrepareRejectsBadBodies(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":     `{invalid json}`,
		"empty":         ``,
		"trailing data": `{"name":"a"}{"name":"b"}`,
		"oversized":     `{"name":"` + strings.Repeat("a", validation.MaxBodySize) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			got, w, resp := decode[plainBody](t, body)
			assert.Nil(t, got)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", resp["error"])
			assert.Equal(t, "invalid request body", resp["error_description"])
		})
	}
}

func TestWriteError(t *testing.T) {
	for name, tc := range map[string]struct {
		err    error
		status int
		body   string
	}{
		"not found":      {dErrors.New(dErrors.CodeNotFound, "template not found"), http.StatusNotFound, `{"error":"not_found","error_description":"template not found"}`},
		"not configured": {dErrors.New(dErrors.CodeNotConfigured, "no issuer"), http.StatusPreconditionFailed, `{"error":"not_configured","error_description":"no issuer"}`},
		"internal hides": {dErrors.Wrap(errors.New("pq: timeout"), dErrors.CodeInternal, "failed to load"), http.StatusInternalServerError, `{"error":"internal_error"}`},
		"plain error":    {errors.New("boom"), http.StatusInternalServerError, `{"error":"internal_error"}`},
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}
