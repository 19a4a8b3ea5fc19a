package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/requestcontext"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError writes err as {"error", "error_description"}. Only domain
// errors carry a description, and never for internal failures.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		domainErr = &dErrors.Error{Code: dErrors.CodeInternal}
	}
	body := map[string]string{"error": domainErr.Code.Label()}
	if domainErr.Message != "" && domainErr.Code != dErrors.CodeInternal {
		body["error_description"] = domainErr.Message
	}
	WriteJSON(w, domainErr.Code.Status(), body)
}

// RequireActor extracts the authenticated actor from context.
// A missing actor behind the auth middleware is a wiring bug, not a client error.
func RequireActor(ctx context.Context, logger *slog.Logger) (id.UserID, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsNil() {
		if logger != nil {
			logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return id.UserID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return actor, nil
}
