package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	t.Run("aggregates calls", func(t *testing.T) {
		r := NewRecorder()

		r.RecordCall(CallMetric{
			Provider:         "gemini",
			Model:            "gemini-1.5-flash",
			PromptTokens:     100,
			CompletionTokens: 20,
			TotalTokens:      120,
			Duration:         2 * time.Second,
			Success:          true,
		})
		r.RecordCall(CallMetric{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
			Duration: time.Second,
			Success:  false,
		})

		usage := r.Summary()
		if usage.Calls != 2 {
			t.Errorf("Calls = %d, want 2", usage.Calls)
		}
		if usage.Failed != 1 {
			t.Errorf("Failed = %d, want 1", usage.Failed)
		}
		if usage.PromptTokens != 100 || usage.CompletionTokens != 20 || usage.TotalTokens != 120 {
			t.Errorf("unexpected token totals: %+v", usage)
		}
		if usage.TotalDuration != 3*time.Second {
			t.Errorf("TotalDuration = %v, want 3s", usage.TotalDuration)
		}
	})

	t.Run("groups by provider and model", func(t *testing.T) {
		r := NewRecorder()

		r.RecordCall(CallMetric{Provider: "gemini", Model: "gemini-1.5-flash", TotalTokens: 10, Success: true})
		r.RecordCall(CallMetric{Provider: "openai", Model: "gpt-4o-mini", TotalTokens: 30, Success: true})
		r.RecordCall(CallMetric{Provider: "openai", Model: "gpt-4o-mini", TotalTokens: 5, Success: true})

		byModel := r.ByModel()
		if len(byModel) != 2 {
			t.Fatalf("expected 2 groups, got %d: %v", len(byModel), byModel)
		}
		if got := byModel["openai/gpt-4o-mini"]; got.Calls != 2 || got.TotalTokens != 35 {
			t.Errorf("openai group = %+v", got)
		}
		if got := byModel["gemini/gemini-1.5-flash"]; got.Calls != 1 || got.TotalTokens != 10 {
			t.Errorf("gemini group = %+v", got)
		}
	})

	t.Run("reset clears aggregates", func(t *testing.T) {
		r := NewRecorder()
		r.RecordCall(CallMetric{Provider: "gemini", TotalTokens: 10, Success: true})

		r.Reset()

		if usage := r.Summary(); usage.Calls != 0 || usage.TotalTokens != 0 {
			t.Errorf("expected empty usage after reset, got %+v", usage)
		}
		if len(r.ByModel()) != 0 {
			t.Error("expected empty groups after reset")
		}
	})

	t.Run("concurrent recording", func(t *testing.T) {
		r := NewRecorder()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.RecordCall(CallMetric{Provider: "gemini", TotalTokens: 1, Success: true})
			}()
		}
		wg.Wait()

		if usage := r.Summary(); usage.Calls != 50 || usage.TotalTokens != 50 {
			t.Errorf("unexpected usage: %+v", usage)
		}
	})
}
