package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rheese/tablescan/internal/errdefs"
	"github.com/rheese/tablescan/internal/prompts/titles"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI vision client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // Optional (tests, OpenAI-compatible gateways)
	Timeout     time.Duration
	MaxAttempts int           // Calls per page; 1 means no retry (default)
	RetryDelay  time.Duration // Base delay for backoff between attempts
	HTTPClient  *http.Client  // Optional (tests)
}

// OpenAIClient implements TitleExtractor using the official OpenAI SDK.
type OpenAIClient struct {
	model       string
	maxAttempts uint
	retryDelay  time.Duration
	client      openai.Client
}

// NewOpenAIClient creates a new OpenAI vision client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// Attempts are managed here, not by the SDK transport.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:       cfg.Model,
		maxAttempts: uint(cfg.MaxAttempts),
		retryDelay:  cfg.RetryDelay,
		client:      openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Model returns the configured model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// ExtractTitles sends one page image with the title prompt through chat
// completions and returns the model's raw text response.
func (c *OpenAIClient) ExtractTitles(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	start := time.Now()

	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Image)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(titles.Prompt()),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI,
				}),
			}),
		},
	}

	var resp *openai.ChatCompletion
	err := retry.Do(
		func() error {
			var callErr error
			resp, callErr = c.client.Chat.Completions.New(ctx, params)
			return mapOpenAIError(callErr)
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.RetryIf(isRetriable),
		retry.DelayType(retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindInference, err, "openai call failed")
	}

	if len(resp.Choices) == 0 {
		return nil, errdefs.New(errdefs.KindInference, "no choices in OpenAI response")
	}

	return &ExtractResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
		RequestID:        resp.ID,
	}, nil
}

func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return &statusError{
				code: apiErr.StatusCode,
				msg:  fmt.Sprintf("OpenAI API error (status %d): %s", apiErr.StatusCode, apiErr.Message),
			}
		}
		return &statusError{
			code: apiErr.StatusCode,
			msg:  fmt.Sprintf("OpenAI API error (status %d)", apiErr.StatusCode),
		}
	}
	return err
}

// Verify interface
var _ TitleExtractor = (*OpenAIClient)(nil)
