package completion

import (
	"context"
	"errors"
)

// ChatAdapter speaks the OpenAI chat-completions protocol.
type ChatAdapter struct {
	httpClient
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *ChatAdapter) Extract(ctx context.Context, prompt string) ([]Recipe, error) {
	var resp chatResponse
	err := a.postJSON(ctx, chatRequest{
		Model:    a.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &ShapeError{Stage: "read chat response", Err: errors.New("no choices")}
	}
	content := resp.Choices[0].Message.Content
	if content == nil {
		return nil, &ShapeError{Stage: "read chat response", Err: errors.New("first choice has no message content")}
	}
	return Normalize(*content)
}
