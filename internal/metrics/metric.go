// Package metrics provides usage tracking for model calls.
package metrics

import "time"

// CallMetric represents a single recorded inference call.
type CallMetric struct {
	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Tokens
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing
	Duration time.Duration `json:"duration,omitempty"`

	// Status
	Success bool `json:"success"`
}

// Usage is an aggregate view over recorded calls.
type Usage struct {
	Calls            int           `json:"calls" yaml:"calls"`
	Failed           int           `json:"failed" yaml:"failed"`
	PromptTokens     int           `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens" yaml:"total_tokens"`
	TotalDuration    time.Duration `json:"total_duration" yaml:"total_duration"`
}

func (u *Usage) add(m CallMetric) {
	u.Calls++
	if !m.Success {
		u.Failed++
	}
	u.PromptTokens += m.PromptTokens
	u.CompletionTokens += m.CompletionTokens
	u.TotalTokens += m.TotalTokens
	u.TotalDuration += m.Duration
}
