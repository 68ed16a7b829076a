package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/rheese/tablescan/internal/errdefs"
	"github.com/rheese/tablescan/internal/prompts/titles"
)

const (
	GeminiName    = "gemini"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	GeminiModel   = "gemini-1.5-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int           // Calls per page; 1 means no retry (default)
	RetryDelay  time.Duration // Base delay for backoff between attempts
}

// GeminiClient implements TitleExtractor using the Gemini generateContent API.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxAttempts uint
	retryDelay  time.Duration
	client      *http.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GeminiModel
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

	return &GeminiClient{
		apiKey: cfg.APIKey,
		// Full resource names like "models/gemini-1.5-flash" work too.
		model:       strings.TrimPrefix(cfg.Model, "models/"),
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		maxAttempts: uint(cfg.MaxAttempts),
		retryDelay:  cfg.RetryDelay,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Model returns the configured model.
func (c *GeminiClient) Model() string {
	return c.model
}

// ExtractTitles sends one page image with the title prompt and returns the
// model's raw text response.
func (c *GeminiClient) ExtractTitles(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	start := time.Now()

	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: &geminiInlineData{
						MIMEType: "image/png",
						Data:     base64.StdEncoding.EncodeToString(req.Image),
					}},
					{Text: titles.Prompt()},
				},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	var resp *geminiGenerateResponse
	err := retry.Do(
		func() error {
			var callErr error
			resp, callErr = c.doRequest(ctx, reqBody)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.RetryIf(isRetriable),
		retry.DelayType(retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindInference, err, "gemini call failed")
	}

	result := &ExtractResult{
		ExecutionTime: time.Since(start),
		RequestID:     resp.ResponseID,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = resp.UsageMetadata.PromptTokenCount
		result.CompletionTokens = resp.UsageMetadata.CandidatesTokenCount
		result.TotalTokens = resp.UsageMetadata.TotalTokenCount
	}

	// A 200 with no candidates means generation was blocked or dropped.
	if len(resp.Candidates) == 0 {
		return nil, errdefs.New(errdefs.KindInference, "no candidates in Gemini response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, errdefs.New(errdefs.KindInference, "no content in Gemini response (finish reason: %s)", candidate.FinishReason)
	}

	// Concatenate text parts; an empty result is the normalizer's problem,
	// not an error here.
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	result.Text = sb.String()

	return result, nil
}

// doRequest makes one generateContent call.
func (c *GeminiClient) doRequest(ctx context.Context, body geminiGenerateRequest) (*geminiGenerateResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Try to extract error message from response
		errMsg := string(respBody)
		var errResp geminiErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			errMsg = errResp.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &RateLimitError{
				Message:    fmt.Sprintf("Gemini rate limited: %s", errMsg),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &statusError{
			code: resp.StatusCode,
			msg:  fmt.Sprintf("Gemini API error (status %d): %s", resp.StatusCode, errMsg),
		}
	}

	var genResp geminiGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &genResp, nil
}

// Gemini generateContent API types

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"response_mime_type,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
	ResponseID    string               `json:"responseId"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Verify interface
var _ TitleExtractor = (*GeminiClient)(nil)
