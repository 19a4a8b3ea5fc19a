// Command tokengen mints operator tokens for the attest admin endpoints. It
// reads the same environment as the server (ATTEST_BASE_URL, JWT_SIGNING_KEY,
// TOKEN_TTL), so a token it prints is accepted by a server started alongside.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jwttoken "attest/internal/jwt_token"
	"attest/internal/platform/config"
	id "attest/pkg/domain"
	"attest/pkg/platform/middleware/auth"
)

const audience = "attest-admin"

type output struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Scopes    []string  `json:"scopes"`
	Issuer    string    `json:"issuer"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	userID := fs.String("user-id", "", "operator user id; a random one when empty")
	scopes := fs.String("scopes", auth.ScopeIssue+","+auth.ScopeRevoke, "comma-separated scopes; empty for a read-only token")
	ttl := fs.Duration("ttl", cfg.Server.TokenTTL, "token lifetime")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	actor := id.NewUserID()
	if *userID != "" {
		if actor, err = id.ParseUserID(*userID); err != nil {
			return fmt.Errorf("-user-id: %w", err)
		}
	}
	granted := splitScopes(*scopes)

	svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.BaseURL, audience, *ttl)
	token, err := svc.GenerateActorToken(ctx, actor, granted)
	if err != nil {
		return err
	}

	out := output{
		Token:     token,
		UserID:    actor.String(),
		Scopes:    granted,
		Issuer:    cfg.Server.BaseURL,
		ExpiresAt: time.Now().Add(*ttl).UTC().Truncate(time.Second),
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintf(stdout, "user:    %s\nscopes:  %s\nexpires: %s\n\n%s\n",
		out.UserID, strings.Join(out.Scopes, " "), out.ExpiresAt.Format(time.RFC3339), out.Token)
	return err
}

func splitScopes(raw string) []string {
	scopes := []string{}
	for s := range strings.SplitSeq(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
