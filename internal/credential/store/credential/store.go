// Package credential persists issued credentials.
//
// Error contract:
//   - sentinel.ErrNotFound when the credential does not exist
//   - ErrActiveDuplicate (sentinel.ErrConflict) when the recipient already
//     holds an active credential for the template
//   - ErrInvalidTransition (sentinel.ErrInvalidState) when a status change is
//     not allowed from the current status
package credential

import (
	"fmt"

	"attest/internal/credential/models"
	"attest/pkg/platform/sentinel"
)

var (
	ErrActiveDuplicate   = fmt.Errorf("active credential exists for template and recipient: %w", sentinel.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("status transition not allowed: %w", sentinel.ErrInvalidState)
)

func clone(c *models.IssuedCredential) *models.IssuedCredential {
	out := *c
	out.Document = append([]byte(nil), c.Document...)
	out.Signature = append([]byte(nil), c.Signature...)
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		out.ExpiresAt = &exp
	}
	if c.Evidence != nil {
		out.Evidence = make([]models.Evidence, len(c.Evidence))
		copy(out.Evidence, c.Evidence)
	}
	return &out
}
