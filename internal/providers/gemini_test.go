package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rheese/tablescan/internal/errdefs"
	"github.com/rheese/tablescan/internal/prompts/titles"
)

func geminiOKResponse(text string) geminiGenerateResponse {
	return geminiGenerateResponse{
		Candidates: []geminiCandidate{
			{
				Content: &geminiContent{
					Role:  "model",
					Parts: []geminiPart{{Text: text}},
				},
				FinishReason: "STOP",
			},
		},
		UsageMetadata: &geminiUsageMetadata{
			PromptTokenCount:     258,
			CandidatesTokenCount: 24,
			TotalTokenCount:      282,
		},
		ResponseID: "resp-1",
	}
}

func TestGeminiClient_ExtractTitles(t *testing.T) {
	t.Run("successful extraction", func(t *testing.T) {
		image := []byte("fake png bytes")

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Verify request
			if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if key := r.URL.Query().Get("key"); key != "test-key" {
				t.Errorf("unexpected key: %s", key)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content-type: %s", ct)
			}

			var req geminiGenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
				t.Fatalf("unexpected request shape: %+v", req)
			}
			inline := req.Contents[0].Parts[0].InlineData
			if inline == nil || inline.MIMEType != "image/png" {
				t.Errorf("expected inline PNG part, got %+v", inline)
			}
			if inline != nil && inline.Data != base64.StdEncoding.EncodeToString(image) {
				t.Error("inline data does not match image bytes")
			}
			if req.Contents[0].Parts[1].Text != titles.Prompt() {
				t.Error("expected title prompt as text part")
			}
			if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
				t.Errorf("expected JSON response mime type, got %+v", req.GenerationConfig)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(geminiOKResponse(`[{"title": "Revenue by Region", "page_number": 1}]`))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: image, PageNumber: 1})
		if err != nil {
			t.Fatalf("ExtractTitles() error = %v", err)
		}
		if result.Text != `[{"title": "Revenue by Region", "page_number": 1}]` {
			t.Errorf("unexpected text: %q", result.Text)
		}
		if result.PromptTokens != 258 || result.CompletionTokens != 24 || result.TotalTokens != 282 {
			t.Errorf("unexpected usage: %+v", result)
		}
		if result.RequestID != "resp-1" {
			t.Errorf("unexpected request id: %q", result.RequestID)
		}
		if result.ExecutionTime == 0 {
			t.Error("expected non-zero ExecutionTime")
		}
	})

	t.Run("multiple text parts are concatenated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := geminiOKResponse("")
			resp.Candidates[0].Content.Parts = []geminiPart{{Text: `[{"title": "A",`}, {Text: ` "page_number": 1}]`}}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err != nil {
			t.Fatalf("ExtractTitles() error = %v", err)
		}
		if result.Text != `[{"title": "A", "page_number": 1}]` {
			t.Errorf("unexpected text: %q", result.Text)
		}
	})

	t.Run("API error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"code":    400,
					"message": "Invalid image payload",
					"status":  "INVALID_ARGUMENT",
				},
			})
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err == nil {
			t.Fatal("expected error for API error response")
		}
		if !errdefs.IsInference(err) {
			t.Errorf("expected inference kind, got %v", errdefs.KindOf(err))
		}
		if !strings.Contains(err.Error(), "Invalid image payload") {
			t.Errorf("expected API message in error, got %q", err.Error())
		}
	})

	t.Run("rate limit carries Retry-After", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
			})
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err == nil {
			t.Fatal("expected error for 429 response")
		}
		rle, ok := IsRateLimitError(err)
		if !ok {
			t.Fatalf("expected RateLimitError, got %T: %v", err, err)
		}
		if rle.StatusCode != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rle.StatusCode)
		}
		if rle.RetryAfter != 3*time.Second {
			t.Errorf("expected RetryAfter=3s, got %v", rle.RetryAfter)
		}
		if !errdefs.IsInference(err) {
			t.Errorf("expected inference kind, got %v", errdefs.KindOf(err))
		}
	})

	t.Run("single call by default", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("expected exactly 1 call, got %d", got)
		}
	})

	t.Run("retries transient errors when configured", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(geminiOKResponse("[]"))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{
			APIKey:      "test-key",
			BaseURL:     server.URL,
			MaxAttempts: 3,
			RetryDelay:  time.Millisecond,
		})

		result, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err != nil {
			t.Fatalf("ExtractTitles() error = %v", err)
		}
		if result.Text != "[]" {
			t.Errorf("unexpected text: %q", result.Text)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("expected 2 calls, got %d", got)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{
			APIKey:      "test-key",
			BaseURL:     server.URL,
			MaxAttempts: 3,
			RetryDelay:  time.Millisecond,
		})

		_, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err == nil {
			t.Fatal("expected error for 400 response")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("expected exactly 1 call, got %d", got)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(geminiGenerateResponse{})
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.ExtractTitles(context.Background(), &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err == nil {
			t.Fatal("expected error for empty candidates")
		}
		if !errdefs.IsInference(err) {
			t.Errorf("expected inference kind, got %v", errdefs.KindOf(err))
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := client.ExtractTitles(ctx, &ExtractRequest{Image: []byte("img"), PageNumber: 1})
		if err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestNewGeminiClient_Defaults(t *testing.T) {
	client := NewGeminiClient(GeminiConfig{APIKey: "k"})

	if client.baseURL != GeminiBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, GeminiBaseURL)
	}
	if client.Model() != GeminiModel {
		t.Errorf("model = %q, want %q", client.Model(), GeminiModel)
	}
	if client.maxAttempts != 1 {
		t.Errorf("maxAttempts = %d, want 1", client.maxAttempts)
	}
	if client.client.Timeout != 120*time.Second {
		t.Errorf("timeout = %v, want 120s", client.client.Timeout)
	}

	qualified := NewGeminiClient(GeminiConfig{APIKey: "k", Model: "models/gemini-2.0-flash"})
	if qualified.Model() != "gemini-2.0-flash" {
		t.Errorf("model = %q, want resource prefix stripped", qualified.Model())
	}
}
