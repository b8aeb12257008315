// Package whisper talks to an OpenAI-compatible speech-to-text endpoint
// (OpenAI /v1/audio/transcriptions, whisper.cpp /inference).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/reelrecipes/internal/db"
)

const maxErrorBody = 16 * 1024

// ErrTooLarge is returned before upload when the audio exceeds the limit.
var ErrTooLarge = errors.New("whisper: audio exceeds upload limit")

type Options struct {
	URL     string
	Key     string
	Timeout time.Duration
	// MaxUploadBytes rejects larger files up front; zero disables the check.
	MaxUploadBytes int64
}

type Client struct {
	url       string
	key       string
	maxUpload int64
	http      *http.Client
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		url:       strings.TrimSpace(opts.URL),
		key:       strings.TrimSpace(opts.Key),
		maxUpload: opts.MaxUploadBytes,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type Params struct {
	Model     string
	Language  string
	AudioPath string
}

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("whisper: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ShapeError means the service answered 2xx with a body that isn't a
// transcript. Detail says whether it was JSON at all.
type ShapeError struct {
	Detail string
	Err    error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("whisper: unexpected response: %s", e.Detail)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// Transcribe uploads the audio file as a streamed multipart form and decodes
// the verbose_json answer.
func (c *Client) Transcribe(ctx context.Context, p Params) (*db.Transcript, error) {
	if c.url == "" {
		return nil, fmt.Errorf("whisper: url is required")
	}

	f, err := os.Open(p.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("whisper: stat audio: %w", err)
	}
	if c.maxUpload > 0 && st.Size() > c.maxUpload {
		return nil, fmt.Errorf("%w: %s > %s", ErrTooLarge, humanize.Bytes(uint64(st.Size())), humanize.Bytes(uint64(c.maxUpload)))
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, p, f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	slog.Debug("uploading audio for transcription", "url", c.url, "size", humanize.Bytes(uint64(st.Size())), "model", p.Model)

	resp, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("whisper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response: %w", err)
	}
	return decodeTranscript(body)
}

func writeForm(mw *multipart.Writer, p Params, audio io.Reader) error {
	fields := [][2]string{
		{"model", p.Model},
		{"response_format", "verbose_json"},
		{"language", p.Language},
	}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(p.AudioPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	return mw.Close()
}

func decodeTranscript(body []byte) (*db.Transcript, error) {
	var t db.Transcript
	err := json.Unmarshal(body, &t)
	if err == nil {
		if hasTranscriptKeys(body) {
			return &t, nil
		}
		err = errors.New("missing text and segments")
	}
	return nil, &ShapeError{Detail: describeJSON(body, err), Err: err}
}

func hasTranscriptKeys(body []byte) bool {
	var m map[string]json.RawMessage
	if json.Unmarshal(body, &m) != nil {
		return false
	}
	_, text := m["text"]
	_, segs := m["segments"]
	return text || segs
}

// describeJSON explains a body that failed to decode as a transcript. The
// generic parse only feeds the message.
func describeJSON(body []byte, decodeErr error) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Sprintf("malformed JSON (%v): %s", err, snippet(body))
	}

	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if msg, ok := x["error"]; ok {
			return fmt.Sprintf("well-formed JSON without a transcript (%v), error field: %v", decodeErr, msg)
		}
		return fmt.Sprintf("well-formed JSON without a transcript (%v), keys: %s", decodeErr, strings.Join(keys, ", "))
	case []any:
		return fmt.Sprintf("well-formed JSON array of %d items, expected an object", len(x))
	default:
		return fmt.Sprintf("well-formed JSON %T, expected an object", x)
	}
}

func snippet(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > 200 {
		return string(b[:200]) + "…"
	}
	return string(b)
}
