package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"intake/internal/services"
)

// EngineVersion identifies the enrichment contract implemented by this
// package; it is recorded in artifact metadata.
const EngineVersion = "engine/v1"

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultRetryAttempts = 3
	retryBaseDelay       = time.Second
	retryMaxDelay        = 8 * time.Second
)

// Config captures the runtime settings required to talk to the engine model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps a chat-completion API and turns intent plus extracted text
// into the structured enrichment result.
type Client struct {
	cfg        Config
	httpClient *http.Client
	attempts   int
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryAttempts overrides the retry count.
func WithRetryAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs an engine client from configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		attempts:   defaultRetryAttempts,
		sleeper:    time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Version reports the enrichment contract version.
func (c *Client) Version() string {
	return EngineVersion
}

// Enrich runs the full enrichment pass for one item.
func (c *Client) Enrich(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "enrich", "api key required", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "enrich", "extracted text required", nil)
	}

	content, err := c.completeWithRetry(ctx, enrichmentSystemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, err
	}

	var parsed enrichmentPayload
	if err := decodeModelJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "enrich", "parse model payload", err)
	}
	result := parsed.toResult(req)
	if err := validateResult(result); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "enrich", "invalid model payload", err)
	}
	return result, nil
}

// enrichmentPayload is the raw JSON document the model is asked to emit.
type enrichmentPayload struct {
	Summary Summary `json:"summary"`
	Score   Score   `json:"score"`
	Todos   []Todo  `json:"todos"`
}

func (p enrichmentPayload) toResult(req Request) *Result {
	score := p.Score
	score.Priority = strings.ToLower(strings.TrimSpace(score.Priority))
	if _, ok := knownPriorities[score.Priority]; !ok {
		score.Priority = PriorityIfTime
	}
	score.MatchScore = math.Max(0, math.Min(100, score.MatchScore))

	return &Result{
		Summary: p.Summary,
		Score:   score,
		Todos:   p.Todos,
		Card: Card{
			Title:      req.Title,
			URL:        req.URL,
			Domain:     req.Domain,
			Intent:     req.IntentText,
			Bullets:    p.Summary.Bullets,
			Insight:    p.Summary.Insight,
			Priority:   score.Priority,
			MatchScore: score.MatchScore,
			Todos:      p.Todos,
		},
	}
}

func validateResult(result *Result) error {
	if len(result.Summary.Bullets) == 0 {
		return errors.New("summary has no bullets")
	}
	if result.Score.Priority == "" {
		return errors.New("score has no priority")
	}
	return nil
}

func (c *Client) completeWithRetry(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	delay := retryBaseDelay
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			c.sleeper(delay)
			if next := delay * 2; next <= retryMaxDelay {
				delay = next
			}
		}
		content, err := c.complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return "", lastErr
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "engine", "complete", "request timed out", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "engine", "complete", "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "engine", "complete", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "engine", "complete", "decode response", err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", services.Wrap(services.ErrExternalTool, "engine", "complete", "empty completion", nil)
	}
	return decoded.Choices[0].Message.Content, nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("engine request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func isRetryable(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return errors.Is(err, services.ErrTimeout)
}

// decodeModelJSON tolerates models that wrap JSON in a markdown fence.
func decodeModelJSON(content string, into any) error {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return json.Unmarshal([]byte(strings.TrimSpace(trimmed)), into)
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
