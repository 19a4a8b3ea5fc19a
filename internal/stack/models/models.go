// Package models defines credential stacks and per-user progress toward them.
package models

import (
	"math"
	"slices"
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Stack bundles several templates into one composite requirement. Satisfying
// it earns a credential for ResultTemplateID.
type Stack struct {
	ID               id.StackID
	MachineName      string
	Name             string
	Description      string
	Required         []id.TemplateID
	Optional         []id.TemplateID
	MinRequired      int // 0 means every required template
	ResultTemplateID id.TemplateID
	BonusAttributes  map[string]any
	Active           bool
}

// Validate checks the structural rules of a stack definition.
func (s *Stack) Validate() error {
	if s.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "stack id is required")
	}
	if len(s.Required) == 0 {
		return dErrors.New(dErrors.CodeValidation, "stack needs at least one required template")
	}
	if s.MinRequired < 0 || s.MinRequired > len(s.Required) {
		return dErrors.New(dErrors.CodeValidation, "min_required must be between 0 and the number of required templates")
	}
	if s.ResultTemplateID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "result template is required")
	}
	if s.Contains(s.ResultTemplateID) {
		return dErrors.New(dErrors.CodeValidation, "result template cannot be a component of its own stack")
	}
	return nil
}

// Threshold is how many required templates must be held.
func (s *Stack) Threshold() int {
	if s.MinRequired == 0 {
		return len(s.Required)
	}
	return s.MinRequired
}

// Contains reports whether templateID is a required or optional component.
func (s *Stack) Contains(templateID id.TemplateID) bool {
	return slices.Contains(s.Required, templateID) || slices.Contains(s.Optional, templateID)
}

// Matched returns the components held, required first, in definition order.
func (s *Stack) Matched(held []id.TemplateID) []id.TemplateID {
	out := make([]id.TemplateID, 0, len(s.Required)+len(s.Optional))
	for _, t := range s.Required {
		if slices.Contains(held, t) {
			out = append(out, t)
		}
	}
	for _, t := range s.Optional {
		if slices.Contains(held, t) && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Stack) matchedRequired(held []id.TemplateID) int {
	n := 0
	for _, t := range s.Required {
		if slices.Contains(held, t) {
			n++
		}
	}
	return n
}

// IsSatisfiedBy reports whether held covers enough required templates.
func (s *Stack) IsSatisfiedBy(held []id.TemplateID) bool {
	return s.matchedRequired(held) >= s.Threshold()
}

// Percent is round(100 × |held ∩ required| / |required|).
func (s *Stack) Percent(held []id.TemplateID) int {
	if len(s.Required) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.matchedRequired(held)) / float64(len(s.Required))))
}

// ProgressStatus is where a user stands on a stack.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// Progress is the single row per (stack, user).
type Progress struct {
	StackID            id.StackID       `json:"stack_id"`
	UserID             id.UserID        `json:"user_id"`
	Status             ProgressStatus   `json:"status"`
	Matched            []id.TemplateID  `json:"matched_templates"`
	Percent            int              `json:"percent"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	ResultCredentialID *id.CredentialID `json:"result_credential_id,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (p *Progress) IsCompleted() bool {
	return p != nil && p.Status == ProgressCompleted
}

// Snapshot computes progress for held without touching storage.
func Snapshot(stack *Stack, userID id.UserID, held []id.TemplateID, now time.Time) *Progress {
	matched := stack.Matched(held)
	status := ProgressNotStarted
	if len(matched) > 0 {
		status = ProgressInProgress
	}
	return &Progress{
		StackID:   stack.ID,
		UserID:    userID,
		Status:    status,
		Matched:   matched,
		Percent:   stack.Percent(held),
		UpdatedAt: now,
	}
}

// Recommendation is a stack worth pursuing, with where the user stands.
type Recommendation struct {
	Stack    *Stack
	Progress *Progress
}
