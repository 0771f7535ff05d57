package ai

import (
	"context"

	"resumetex/internal/types"
)

// GenerateCall is one prompt sent to one model
type GenerateCall struct {
	APIKey string
	Model  string
	Prompt string
}

// TextGenerator turns a prompt into free-form text using a named model.
// Errors should carry the upstream HTTP status where one exists.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, call GenerateCall) (string, error)
}

// ModelLister lists the generative models available to an API key
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) ([]types.ModelInfo, error)
}

// TemplateSource supplies the bundled default resume
type TemplateSource interface {
	Default() (string, error)
}
