//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jwttoken "attest/internal/jwt_token"
	id "attest/pkg/domain"
)

// session implements steps.Session against ATTEST_E2E_URL. Tokens are signed
// with JWT_SIGNING_KEY and issued for ATTEST_BASE_URL, which must match the
// server under test.
type session struct {
	baseURL string
	http    *http.Client
	tokens  *jwttoken.JWTService
	token   string

	status int
	body   []byte
	memory map[string]string
}

func newSession() *session {
	baseURL := strings.TrimRight(getenv("ATTEST_E2E_URL", "http://localhost:8080"), "/")
	issuer := strings.TrimRight(getenv("ATTEST_BASE_URL", baseURL), "/")
	return &session{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens: jwttoken.NewJWTService(
			getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			issuer, "attest-admin", 15*time.Minute),
		memory: map[string]string{},
	}
}

func (s *session) SignIn(ctx context.Context, scopes ...string) error {
	token, err := s.tokens.GenerateActorToken(ctx, id.NewUserID(), scopes)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s.token = token
	return nil
}

func (s *session) SignOut() { s.token = "" }

func (s *session) Get(path string) error {
	return s.send(http.MethodGet, path, nil)
}

func (s *session) Post(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body for %s: %w", path, err)
	}
	return s.send(http.MethodPost, path, bytes.NewReader(payload))
}

func (s *session) send(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	if s.body, err = io.ReadAll(resp.Body); err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	return nil
}

func (s *session) Status() int  { return s.status }
func (s *session) Body() []byte { return s.body }

// Field resolves a dotted path such as "progress.status" in the last body.
func (s *session) Field(path string) (any, error) {
	var node any
	if err := json.Unmarshal(s.body, &node); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for key := range strings.SplitSeq(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: cannot descend into %q", path, key)
		}
		if node, ok = obj[key]; !ok {
			return nil, fmt.Errorf("%s: no field %q in %s", path, key, s.body)
		}
	}
	return node, nil
}

func (s *session) Remember(key, value string) { s.memory[key] = value }

func (s *session) Recall(key string) (string, error) {
	if v, ok := s.memory[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("nothing remembered as %q", key)
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
