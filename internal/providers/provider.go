package providers

import (
	"context"
	"time"
)

// TitleExtractor is the interface for vision model clients that read table
// titles off a rendered page image. Implementations own the prompt; callers
// supply the image and the page it came from.
type TitleExtractor interface {
	// ExtractTitles sends one page image to the model and returns its raw
	// text response. Exactly one network call is made per invocation unless
	// retries are configured.
	ExtractTitles(ctx context.Context, req *ExtractRequest) (*ExtractResult, error)

	// Name returns the client identifier (e.g., "gemini").
	Name() string

	// Model returns the model the client is configured with.
	Model() string
}

// ExtractRequest is a single-page extraction request.
type ExtractRequest struct {
	// Image holds the rendered page as PNG bytes.
	Image []byte

	// PageNumber is the 1-based page the image was rendered from. It is
	// carried for logging; the model response is normalized against it later.
	PageNumber int
}

// ExtractResult is the raw model output plus usage accounting.
// The text is NOT parsed here; normalization decides what to make of it.
type ExtractResult struct {
	// Text is the model's response verbatim, fences and all.
	Text string

	// Token usage as reported by the API (zero when the API omits it).
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// ExecutionTime covers the request/response round trip including retries.
	ExecutionTime time.Duration

	// RequestID is the provider-assigned response identifier, when one exists.
	RequestID string
}
