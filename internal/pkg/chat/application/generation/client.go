package generation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrorKind classifies a failed generation. Each kind maps to a distinct
// user-facing message; raw upstream errors are never forwarded to clients.
type ErrorKind string

const (
	ErrKindConnection ErrorKind = "connection_error"
	ErrKindTimeout    ErrorKind = "timeout_error"
	ErrKindEmpty      ErrorKind = "empty_response"
	ErrKindCancelled  ErrorKind = "cancelled"
	ErrKindStorage    ErrorKind = "db_error"
	ErrKindInternal   ErrorKind = "internal_error"
)

// UserMessage returns the short client-visible description for the kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case ErrKindConnection:
		return "The model is temporarily unavailable"
	case ErrKindTimeout:
		return "Timed out waiting for the model to respond"
	case ErrKindEmpty:
		return "The model returned an empty response"
	case ErrKindCancelled:
		return "Generation was cancelled"
	case ErrKindStorage:
		return "Failed to save the generated reply"
	default:
		return "Internal server error"
	}
}

// Error wraps an upstream failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify extracts the ErrorKind from a generation error, defaulting to
// internal for unrecognized failures.
func Classify(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ErrKindInternal
}

// Options override the client defaults for a single generation.
type Options struct {
	Model        string
	SystemPrompt string
}

// Client issues streaming generate requests against an Ollama-style endpoint.
// The response is a line-delimited stream of JSON objects carrying incremental
// "response" text and a terminal "done" flag.
type Client struct {
	url          string
	model        string
	systemPrompt string
	timeout      time.Duration
	httpClient   *http.Client
}

// NewClient builds a client for the given endpoint. timeout bounds the whole
// request including streaming.
func NewClient(url, model, systemPrompt string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		url:          url,
		model:        model,
		systemPrompt: systemPrompt,
		timeout:      timeout,
		// Timeouts are enforced per request via context so a long stream is
		// bounded by the configured total, not a per-read deadline.
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateLine struct {
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration"`
}

// Generate streams a completion for prompt, invoking onFragment for each
// non-empty fragment in upstream order. It returns the concatenated response
// text, or a classified *Error on failure. An empty accumulated response is a
// failure, not an empty success.
//
// onFragment must not block for long: a slow consumer stalls the upstream
// read. Fragment delivery failures are the consumer's concern; the client
// keeps draining the upstream regardless.
func (c *Client) Generate(ctx context.Context, chatID, prompt string, opts Options, onFragment func(chunk string)) (string, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	system := c.systemPrompt
	if opts.SystemPrompt != "" {
		system = opts.SystemPrompt
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, System: system, Stream: true})
	if err != nil {
		return "", &Error{Kind: ErrKindInternal, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: ErrKindInternal, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dreadnought-chatd/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: classifyTransport(ctx, reqCtx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: ErrKindConnection, Err: fmt.Errorf("upstream status %d", resp.StatusCode)}
	}

	var full strings.Builder
	start := time.Now()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var data generateLine
		if err := json.Unmarshal(line, &data); err != nil {
			// A malformed line is skipped, never fatal to the stream.
			slog.Warn("skipping malformed stream line", "chat_id", chatID, "error", err)
			continue
		}

		if data.Response != "" {
			full.WriteString(data.Response)
			fragmentsTotal.Inc()
			if onFragment != nil {
				onFragment(data.Response)
			}
		}

		if data.Done {
			slog.Info("generation stream complete",
				"chat_id", chatID,
				"chars", full.Len(),
				"upstream_duration_ns", data.TotalDuration,
				"elapsed", time.Since(start))
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &Error{Kind: classifyTransport(ctx, reqCtx, err), Err: err}
	}

	if full.Len() == 0 {
		return "", &Error{Kind: ErrKindEmpty, Err: errors.New("no response text before end of stream")}
	}
	return full.String(), nil
}

// classifyTransport distinguishes caller cancellation from the configured
// timeout from plain connection failures.
func classifyTransport(parent, reqCtx context.Context, err error) ErrorKind {
	switch {
	case parent.Err() != nil:
		return ErrKindCancelled
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return ErrKindTimeout
	default:
		return ErrKindConnection
	}
}
