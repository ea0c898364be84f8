// Package llm wraps the text-generation inference endpoint behind a small
// Generate interface with retry, 503 handling, and response-shape
// normalization.
package llm

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

	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/retry"
)

// ErrModelUnavailable is returned once the retry budget is exhausted against
// transport errors or retryable upstream statuses.
var ErrModelUnavailable = errors.New("llm: model unavailable after retries")

// ModelError is a non-retryable upstream failure (4xx other than 429).
type ModelError struct {
	StatusCode int
	Body       string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("llm: inference endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Client is the model-call capability the pipeline consumes.
type Client interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// HFClient calls a Hugging Face style inference endpoint with bearer auth.
type HFClient struct {
	apiURL     string
	model      string
	token      string
	httpClient *http.Client
	logger     *zap.Logger

	// Tunables, overridden in tests.
	maxAttempts   int
	baseDelay     time.Duration
	overloadDelay time.Duration
	// The upstream answers 503 while the model is loading; those waits do
	// not consume retry attempts, but are capped so a permanently
	// overloaded model cannot stall a stage forever.
	maxOverloadWaits int
}

// Option configures an HFClient.
type Option func(*HFClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HFClient) { h.httpClient = c }
}

// WithRetryDelay sets the base backoff delay and the fixed 503 delay.
func WithRetryDelay(base, overload time.Duration) Option {
	return func(h *HFClient) {
		h.baseDelay = base
		h.overloadDelay = overload
	}
}

// NewHFClient builds a client for {apiURL}/models/{model}.
func NewHFClient(apiURL, model, token string, logger *zap.Logger, opts ...Option) *HFClient {
	c := &HFClient{
		apiURL:           strings.TrimRight(apiURL, "/"),
		model:            model,
		token:            token,
		httpClient:       &http.Client{Timeout: 270 * time.Second},
		logger:           logger,
		maxAttempts:      5,
		baseDelay:        time.Second,
		overloadDelay:    5 * time.Second,
		maxOverloadWaits: 12,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateParams struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters generateParams `json:"parameters"`
}

// Generate posts the prompt and returns the normalized generated text.
// Transport errors and retryable statuses back off 2^attempt seconds for up
// to 5 attempts; a 503 sleeps a fixed 5s and does not consume an attempt.
func (c *HFClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Inputs: prompt,
		Parameters: generateParams{
			Temperature:    temperature,
			MaxNewTokens:   maxTokens,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	overloadWaits := 0
	text, err := retry.Do(ctx, retry.Config{
		MaxAttempts: c.maxAttempts,
		BaseDelay:   c.baseDelay,
		OnRetry: func(attempt int, err error) {
			c.logger.Warn("retrying model call",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxAttempts),
				zap.Error(err),
			)
		},
	}, func(ctx context.Context) (string, error) {
		for {
			out, status, err := c.doRequest(ctx, payload)
			if err == nil {
				return out, nil
			}
			if status != http.StatusServiceUnavailable {
				var modelErr *ModelError
				if errors.As(err, &modelErr) {
					return "", retry.Permanent(err)
				}
				return "", err
			}
			// Model loading / overloaded: fixed delay, attempt not consumed.
			overloadWaits++
			if overloadWaits > c.maxOverloadWaits {
				return "", fmt.Errorf("%w: overloaded for %d checks", ErrModelUnavailable, overloadWaits-1)
			}
			c.logger.Warn("model overloaded, waiting", zap.Int("waits", overloadWaits))
			if err := retry.Sleep(ctx, c.overloadDelay); err != nil {
				return "", err
			}
		}
	})
	if err != nil {
		var modelErr *ModelError
		if errors.As(err, &modelErr) || errors.Is(err, ErrModelUnavailable) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return text, nil
}

// doRequest performs one POST. The returned status is 0 on transport errors.
func (c *HFClient) doRequest(ctx context.Context, payload []byte) (string, int, error) {
	url := fmt.Sprintf("%s/models/%s", c.apiURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("llm: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("llm: read body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ExtractGeneratedText(body), resp.StatusCode, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", resp.StatusCode, fmt.Errorf("llm: model overloaded (503)")
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", resp.StatusCode, fmt.Errorf("llm: inference endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	default:
		return "", resp.StatusCode, &ModelError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
}

// ExtractGeneratedText normalizes the varying response shapes of the
// inference API: a list of objects or strings, or a single object, carrying
// either generated_text or text. Anything unrecognized degrades to "".
func ExtractGeneratedText(raw []byte) string {
	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err == nil {
		if len(asList) == 0 {
			return ""
		}
		if s := textFromObject(asList[0]); s != "" {
			return s
		}
		var str string
		if err := json.Unmarshal(asList[0], &str); err == nil {
			return str
		}
		return ""
	}
	return textFromObject(raw)
}

func textFromObject(raw []byte) string {
	var obj struct {
		GeneratedText string `json:"generated_text"`
		Text          string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if obj.GeneratedText != "" {
		return obj.GeneratedText
	}
	return obj.Text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
