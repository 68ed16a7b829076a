package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rheese/tablescan/internal/errdefs"
)

const MockName = "mock"

// MockExtractor is a TitleExtractor for testing.
type MockExtractor struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	Responses    map[int]string // Per-page responses, override ResponseText

	// State
	requestCount atomic.Int64
}

// NewMockExtractor creates a new mock extractor with sensible defaults.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		ResponseText: `[{"title": "Mock Table", "page_number": 0}]`,
	}
}

// Name returns the client identifier.
func (m *MockExtractor) Name() string {
	return MockName
}

// Model returns a fixed mock model name.
func (m *MockExtractor) Model() string {
	return "mock-model"
}

// ExtractTitles returns the configured response for the requested page.
func (m *MockExtractor) ExtractTitles(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	start := time.Now()
	count := m.requestCount.Add(1)

	if m.ShouldFail {
		return nil, errdefs.New(errdefs.KindInference, "mock extractor configured to fail")
	}
	if m.FailAfter > 0 && int(count) > m.FailAfter {
		return nil, errdefs.New(errdefs.KindInference, "mock extractor failed after %d requests", m.FailAfter)
	}

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	text := m.ResponseText
	if override, ok := m.Responses[req.PageNumber]; ok {
		text = override
	}

	return &ExtractResult{
		Text:             text,
		PromptTokens:     len(req.Image) / 4,
		CompletionTokens: len(text) / 4,
		TotalTokens:      len(req.Image)/4 + len(text)/4,
		ExecutionTime:    time.Since(start),
		RequestID:        fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (m *MockExtractor) RequestCount() int64 {
	return m.requestCount.Load()
}

// Reset resets the request counter.
func (m *MockExtractor) Reset() {
	m.requestCount.Store(0)
}

// Verify interface
var _ TitleExtractor = (*MockExtractor)(nil)
