package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatbot/config"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CompletionClient sends one prompt to the completion API and waits for the
// whole reply. Implementations do not log; timing goes on the trace span.
type CompletionClient interface {
	FetchCompletion(ctx context.Context, prompt string) (string, error)
}

// ExternalServiceError is returned for every failure talking to the
// completion API. StatusCode is zero when no response was received.
type ExternalServiceError struct {
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion API returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion API request failed: %v", e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

var errNoChoices = errors.New("no choices in response")

// NewCompletionClient builds the client selected by cfg.Client.
func NewCompletionClient(cfg config.OpenAIConfig) (CompletionClient, error) {
	switch cfg.Client {
	case config.ClientHTTP, "":
		return NewHTTPCompletionClient(cfg), nil
	case config.ClientSDK:
		return NewSDKCompletionClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown completion client %q", cfg.Client)
	}
}

type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// HTTPCompletionClient posts the prompt as plain JSON, which also works with
// the legacy /engines/{engine}/completions URLs and compatible gateways.
type HTTPCompletionClient struct {
	client *resty.Client
	cfg    config.OpenAIConfig
}

func NewHTTPCompletionClient(cfg config.OpenAIConfig) *HTTPCompletionClient {
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &HTTPCompletionClient{client: client, cfg: cfg}
}

func (c *HTTPCompletionClient) FetchCompletion(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("chatbot/services").Start(ctx, "completion.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("completion.client", config.ClientHTTP))

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:       c.cfg.Model,
			Prompt:      prompt,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
		}).
		Post(c.cfg.CompletionsURL)
	if err != nil {
		return "", fail(span, &ExternalServiceError{Err: err})
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))

	if !resp.IsSuccess() {
		return "", fail(span, &ExternalServiceError{
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		})
	}

	var result completionResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fail(span, &ExternalServiceError{Err: fmt.Errorf("decoding response: %w", err)})
	}
	if len(result.Choices) == 0 {
		return "", fail(span, &ExternalServiceError{Err: errNoChoices})
	}

	span.SetAttributes(
		attribute.Int64("completion.duration_ms", time.Since(start).Milliseconds()),
		attribute.Int("completion.choices", len(result.Choices)),
	)

	return strings.TrimSpace(result.Choices[0].Text), nil
}

// SDKCompletionClient calls the completions endpoint through go-openai.
type SDKCompletionClient struct {
	client *openai.Client
	cfg    config.OpenAIConfig
}

func NewSDKCompletionClient(cfg config.OpenAIConfig) *SDKCompletionClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &SDKCompletionClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

func (c *SDKCompletionClient) FetchCompletion(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("chatbot/services").Start(ctx, "completion.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("completion.client", config.ClientSDK))

	start := time.Now()
	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
	})
	if err != nil {
		return "", fail(span, sdkError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fail(span, &ExternalServiceError{Err: errNoChoices})
	}

	span.SetAttributes(
		attribute.Int64("completion.duration_ms", time.Since(start).Milliseconds()),
		attribute.Int("completion.tokens", resp.Usage.CompletionTokens),
	)

	return strings.TrimSpace(resp.Choices[0].Text), nil
}

func sdkError(err error) *ExternalServiceError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ExternalServiceError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ExternalServiceError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &ExternalServiceError{Err: err}
}

func fail(span trace.Span, err *ExternalServiceError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "completion failed")
	return err
}
