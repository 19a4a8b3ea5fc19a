package service

import (
	"context"
	"errors"

	"attest/internal/stack/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// Tracker keeps the stored progress row in step with what a user holds.
type Tracker struct {
	store ProgressStore
}

func NewTracker(store ProgressStore) *Tracker {
	return &Tracker{store: store}
}

// UpdateProgress recomputes and stores progress. Completed rows are returned
// as they are, and a row that has started never goes back to not_started.
// Completion itself is claimed by the evaluator.
func (t *Tracker) UpdateProgress(ctx context.Context, stack *models.Stack, userID id.UserID, held []id.TemplateID) (*models.Progress, error) {
	existing, err := t.store.FindProgress(ctx, stack.ID, userID)
	switch {
	case err == nil:
		if existing.IsCompleted() {
			return existing, nil
		}
	case errors.Is(err, sentinel.ErrNotFound):
		existing = nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stack progress")
	}

	p := models.Snapshot(stack, userID, held, requestcontext.Now(ctx).UTC())
	if existing != nil && existing.Status == models.ProgressInProgress {
		p.Status = models.ProgressInProgress
	}
	if err := t.store.SaveProgress(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// completed by a concurrent evaluation
			return t.store.FindProgress(ctx, stack.ID, userID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save stack progress")
	}
	return p, nil
}
