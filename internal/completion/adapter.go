// Package completion turns a prompt into recipes through one of several
// LLM completion protocols.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Protocol string

const (
	ProtocolChat          Protocol = "chat"
	ProtocolGenerate      Protocol = "generate"
	ProtocolChatTools     Protocol = "chat-tools"
	ProtocolGenerateTools Protocol = "generate-tools"
)

// Default endpoints match a local Ollama install.
const (
	DefaultChatURL     = "http://localhost:11434/v1/chat/completions"
	DefaultGenerateURL = "http://localhost:11434/api/generate"
)

const maxErrorBody = 16 * 1024

var ErrUnsupportedProtocol = errors.New("completion: protocol not supported")

// Adapter sends a prompt and returns the recipes the model produced.
type Adapter interface {
	Extract(ctx context.Context, prompt string) ([]Recipe, error)
}

type Options struct {
	Protocol Protocol
	URL      string
	Key      string
	Model    string
	Timeout  time.Duration
}

// New returns the adapter for opts.Protocol. The tool-calling protocols are
// recognised but not implemented and yield ErrUnsupportedProtocol.
func New(opts Options) (Adapter, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	base := httpClient{
		key:   strings.TrimSpace(opts.Key),
		model: opts.Model,
		http:  &http.Client{Timeout: timeout},
	}

	switch opts.Protocol {
	case ProtocolChat, "":
		base.url = withDefault(opts.URL, DefaultChatURL)
		return &ChatAdapter{httpClient: base}, nil
	case ProtocolGenerate:
		base.url = withDefault(opts.URL, DefaultGenerateURL)
		return &GenerateAdapter{httpClient: base}, nil
	case ProtocolChatTools, ProtocolGenerateTools:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, opts.Protocol)
	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrUnsupportedProtocol, opts.Protocol)
	}
}

func withDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// StatusError is a non-2xx answer from the completion service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ShapeError means a 2xx answer could not be read as recipes.
type ShapeError struct {
	Stage string
	Err   error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("completion: %s: %v", e.Stage, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

type httpClient struct {
	url   string
	key   string
	model string
	http  *http.Client
}

// postJSON sends body and decodes a 2xx answer into out.
func (c *httpClient) postJSON(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("completion: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("completion: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ShapeError{Stage: "decode response envelope", Err: err}
	}
	return nil
}
