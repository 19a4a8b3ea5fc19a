// Package store persists stack definitions and per-user stack progress.
//
// Error contract:
//   - sentinel.ErrNotFound for a missing stack or progress row
//   - ErrAlreadyClaimed (sentinel.ErrConflict) when completion was already
//     claimed for the (stack, user) pair
//   - ErrProgressCompleted (sentinel.ErrInvalidState) when a completed row
//     would be overwritten
//
// Completion is a claim: ClaimCompletion marks the row completed atomically,
// the caller issues the meta-credential without holding any lock, then either
// RecordResult or ReleaseClaim.
package store

import (
	"fmt"
	"maps"
	"slices"

	"attest/internal/stack/models"
	"attest/pkg/platform/sentinel"
)

var (
	ErrAlreadyClaimed    = fmt.Errorf("stack completion already claimed: %w", sentinel.ErrConflict)
	ErrProgressCompleted = fmt.Errorf("stack progress is completed: %w", sentinel.ErrInvalidState)
)

func cloneStack(s *models.Stack) *models.Stack {
	out := *s
	out.Required = slices.Clone(s.Required)
	out.Optional = slices.Clone(s.Optional)
	out.BonusAttributes = maps.Clone(s.BonusAttributes)
	return &out
}

func cloneProgress(p *models.Progress) *models.Progress {
	out := *p
	out.Matched = slices.Clone(p.Matched)
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		out.CompletedAt = &at
	}
	if p.ResultCredentialID != nil {
		credID := *p.ResultCredentialID
		out.ResultCredentialID = &credID
	}
	return &out
}
