// Package service decides when a user's credentials complete a stack and
// mints the resulting meta-credential.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	credmodels "attest/internal/credential/models"
	"attest/internal/events"
	"attest/internal/platform/tracer"
	"attest/internal/stack/metrics"
	"attest/internal/stack/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// Evaluator checks stacks affected by new credentials and issues exactly one
// meta-credential per completed (stack, user).
type Evaluator struct {
	store   Store
	issuer  Issuer
	held    HeldCredentials
	tracker *Tracker
	bonus   BonusAwarder

	logger     *slog.Logger
	auditor    *audit.Logger
	tracer     tracer.Tracer
	metrics    *metrics.Metrics
	dispatcher events.Dispatcher
}

func NewEvaluator(store Store, issuer Issuer, held HeldCredentials, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:      store,
		issuer:     issuer,
		held:       held,
		tracker:    NewTracker(store),
		bonus:      NoopBonusAwarder{},
		tracer:     tracer.NewNoop(),
		dispatcher: events.Noop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckStackCompletion reports whether held satisfies the stack rule.
func (e *Evaluator) CheckStackCompletion(stack *models.Stack, held []id.TemplateID) bool {
	return stack.IsSatisfiedBy(held)
}

// HandleCredentialIssued re-evaluates stacks when a credential is issued.
// Subscribe it to events.CredentialIssued.
func (e *Evaluator) HandleCredentialIssued(ctx context.Context, event events.Event) error {
	if event.Type != events.CredentialIssued {
		return nil
	}
	_, err := e.EvaluateForUser(ctx, event.RecipientID, event.TemplateID)
	return err
}

// EvaluateForUser updates progress on every active stack containing
// templateID and completes those the user now satisfies. A failure on one
// stack does not stop the others; the returned error joins them.
func (e *Evaluator) EvaluateForUser(ctx context.Context, userID id.UserID, templateID id.TemplateID) (issued []*credmodels.IssuedCredential, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanStackEvaluate,
		tracer.String(tracer.AttrTemplateID, templateID.String()),
	)
	defer func() { span.End(err) }()
	e.metrics.IncEvaluation()

	stacks, err := e.store.ListActiveContaining(ctx, templateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stacks")
	}
	if len(stacks) == 0 {
		return nil, nil
	}
	held, err := e.heldTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, stack := range stacks {
		cred, err := e.evaluateStack(ctx, stack, userID, held)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if cred != nil {
			issued = append(issued, cred)
		}
	}
	return issued, errors.Join(errs...)
}

func (e *Evaluator) evaluateStack(ctx context.Context, stack *models.Stack, userID id.UserID, held []id.TemplateID) (*credmodels.IssuedCredential, error) {
	progress, err := e.tracker.UpdateProgress(ctx, stack, userID, held)
	if err != nil {
		return nil, err
	}
	if progress.IsCompleted() || !e.CheckStackCompletion(stack, held) {
		return nil, nil
	}
	return e.complete(ctx, stack, userID, held)
}

// complete claims the (stack, user) row, issues outside any lock, then records
// the result or releases the claim. Issuance re-enters the event bus and may
// evaluate further stacks.
func (e *Evaluator) complete(ctx context.Context, stack *models.Stack, userID id.UserID, held []id.TemplateID) (*credmodels.IssuedCredential, error) {
	now := requestcontext.Now(ctx).UTC()
	matched := stack.Matched(held)

	if _, err := e.store.ClaimCompletion(ctx, stack.ID, userID, matched, stack.Percent(held), now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			e.metrics.IncClaimConflict()
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim stack completion")
	}

	cred, err := e.issuer.IssueCredential(ctx, credmodels.IssueRequest{
		TemplateID:  stack.ResultTemplateID,
		RecipientID: userID,
		Context: map[string]any{
			"stack_id":               stack.ID.String(),
			"component_template_ids": templateStrings(matched),
		},
	})
	if err != nil {
		if errors.Is(err, credmodels.ErrAlreadyIssued) {
			e.logInfo(ctx, "stack result already held, completion kept", "stack_id", stack.ID.String(), "user_id", userID.String())
			return nil, nil
		}
		e.metrics.IncMetaFailure()
		if releaseErr := e.store.ReleaseClaim(ctx, stack.ID, userID, now); releaseErr != nil {
			e.logError(ctx, "failed to release stack claim", releaseErr, "stack_id", stack.ID.String())
		}
		return nil, err
	}

	if err := e.store.RecordResult(ctx, stack.ID, userID, cred.ID); err != nil {
		e.logError(ctx, "failed to record stack result", err, "stack_id", stack.ID.String(), "credential_id", cred.ID.String())
	}
	if err := e.bonus.Award(ctx, stack, userID, cred); err != nil {
		e.logError(ctx, "bonus award failed", err, "stack_id", stack.ID.String())
	}

	e.metrics.IncCompletion()
	e.auditor.Log(ctx, audit.EventStackCompleted,
		"subject", stack.ID.String(),
		"user_id", userID.String(),
		"credential_id", cred.ID.String(),
	)
	stackID := stack.ID
	e.dispatcher.Dispatch(ctx, events.Event{
		Type:         events.StackCompleted,
		CredentialID: cred.ID,
		TemplateID:   stack.ResultTemplateID,
		RecipientID:  userID,
		StackID:      &stackID,
		OccurredAt:   now,
		RequestID:    requestcontext.RequestID(ctx),
	})
	return cred, nil
}

// RecommendedStacks lists active stacks the user has started or partly
// overlaps, highest percent first, then by name. Completed stacks are left out.
func (e *Evaluator) RecommendedStacks(ctx context.Context, userID id.UserID) ([]models.Recommendation, error) {
	stacks, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stacks")
	}
	rows, err := e.store.ListProgressByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stack progress")
	}
	stored := make(map[id.StackID]*models.Progress, len(rows))
	for _, p := range rows {
		stored[p.StackID] = p
	}
	held, err := e.heldTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	out := make([]models.Recommendation, 0, len(stacks))
	for _, stack := range stacks {
		row := stored[stack.ID]
		if row.IsCompleted() {
			continue
		}
		snapshot := models.Snapshot(stack, userID, held, now)
		started := row != nil && row.Status == models.ProgressInProgress
		if len(snapshot.Matched) == 0 && !started {
			continue
		}
		if started {
			snapshot.Status = models.ProgressInProgress
		}
		out = append(out, models.Recommendation{Stack: stack, Progress: snapshot})
	}
	slices.SortStableFunc(out, func(a, b models.Recommendation) int {
		if a.Progress.Percent != b.Progress.Percent {
			return b.Progress.Percent - a.Progress.Percent
		}
		return strings.Compare(a.Stack.Name, b.Stack.Name)
	})
	return out, nil
}

// Progress reports where a user stands on one stack. Completed rows come
// from storage; otherwise progress is computed from current holdings.
func (e *Evaluator) Progress(ctx context.Context, userID id.UserID, stackID id.StackID) (*models.Stack, *models.Progress, error) {
	stack, err := e.store.FindStack(ctx, stackID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.Wrap(models.ErrStackNotFound, dErrors.CodeNotFound, "stack not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stack")
	}

	stored, err := e.store.FindProgress(ctx, stackID, userID)
	switch {
	case err == nil && stored.IsCompleted():
		return stack, stored, nil
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stack progress")
	}

	held, err := e.heldTemplates(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	snapshot := models.Snapshot(stack, userID, held, requestcontext.Now(ctx).UTC())
	if stored != nil && stored.Status == models.ProgressInProgress {
		snapshot.Status = models.ProgressInProgress
	}
	return stack, snapshot, nil
}

// heldTemplates returns the templates of the user's active, unexpired
// credentials.
func (e *Evaluator) heldTemplates(ctx context.Context, userID id.UserID) ([]id.TemplateID, error) {
	creds, err := e.held.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list held credentials")
	}
	now := requestcontext.Now(ctx)
	out := make([]id.TemplateID, 0, len(creds))
	for _, c := range creds {
		if c.Status != credmodels.StatusActive || c.IsExpiredAt(now) {
			continue
		}
		if !slices.Contains(out, c.TemplateID) {
			out = append(out, c.TemplateID)
		}
	}
	return out, nil
}

func templateStrings(ids []id.TemplateID) []any {
	out := make([]any, 0, len(ids))
	for _, t := range ids {
		out = append(out, t.String())
	}
	return out
}

func (e *Evaluator) logError(ctx context.Context, msg string, err error, attrs ...any) {
	if e.logger == nil {
		return
	}
	e.logger.ErrorContext(ctx, msg, append(attrs, "error", err)...)
}

func (e *Evaluator) logInfo(ctx context.Context, msg string, attrs ...any) {
	if e.logger == nil {
		return
	}
	e.logger.InfoContext(ctx, msg, attrs...)
}
