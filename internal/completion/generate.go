package completion

import (
	"context"
	"errors"
)

// GenerateAdapter speaks the Ollama /api/generate protocol in JSON mode.
type GenerateAdapter struct {
	httpClient
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

func (a *GenerateAdapter) Extract(ctx context.Context, prompt string) ([]Recipe, error) {
	var resp generateResponse
	err := a.postJSON(ctx, generateRequest{
		Model:  a.model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Response == nil {
		return nil, &ShapeError{Stage: "read generate response", Err: errors.New("missing response field")}
	}
	return Normalize(*resp.Response)
}
