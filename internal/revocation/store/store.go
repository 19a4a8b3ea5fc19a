// Package store persists the revocation ledger. Entries are appended and
// read; there is no update or delete.
//
// Error contract:
//   - ErrAlreadyRecorded (sentinel.ErrConflict) when the credential already
//     has a ledger entry
package store

import (
	"fmt"

	"attest/pkg/platform/sentinel"
)

var ErrAlreadyRecorded = fmt.Errorf("credential already has a revocation entry: %w", sentinel.ErrConflict)
