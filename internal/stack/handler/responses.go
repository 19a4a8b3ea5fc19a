package handler

import (
	"attest/internal/stack/models"
)

type StackResponse struct {
	ID                string   `json:"id"`
	MachineName       string   `json:"machine_name"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	RequiredTemplates []string `json:"required_templates"`
	OptionalTemplates []string `json:"optional_templates,omitempty"`
	MinRequired       int      `json:"min_required"`
	ResultTemplateID  string   `json:"result_template_id"`
}

type StackProgressResponse struct {
	Stack    *StackResponse   `json:"stack"`
	Progress *models.Progress `json:"progress"`
}

type RecommendationsResponse struct {
	Stacks []*StackProgressResponse `json:"stacks"`
}

func toStackResponse(stack *models.Stack) *StackResponse {
	resp := &StackResponse{
		ID:                stack.ID.String(),
		MachineName:       stack.MachineName,
		Name:              stack.Name,
		Description:       stack.Description,
		RequiredTemplates: make([]string, 0, len(stack.Required)),
		MinRequired:       stack.Threshold(),
		ResultTemplateID:  stack.ResultTemplateID.String(),
	}
	for _, t := range stack.Required {
		resp.RequiredTemplates = append(resp.RequiredTemplates, t.String())
	}
	for _, t := range stack.Optional {
		resp.OptionalTemplates = append(resp.OptionalTemplates, t.String())
	}
	return resp
}

func toStackProgressResponse(stack *models.Stack, progress *models.Progress) *StackProgressResponse {
	return &StackProgressResponse{Stack: toStackResponse(stack), Progress: progress}
}
