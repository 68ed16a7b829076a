package providers

import (
	"time"

	"github.com/rheese/tablescan/internal/errdefs"
)

// Config describes the extractor to instantiate.
// This mirrors config.ProviderCfg with the API key already resolved.
type Config struct {
	Name        string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
}

// New builds the configured title extractor. Unknown provider names are a
// configuration error.
func New(cfg Config) (TitleExtractor, error) {
	switch cfg.Name {
	case GeminiName, "":
		return NewGeminiClient(GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
		}), nil
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
		}), nil
	case MockName:
		return NewMockExtractor(), nil
	default:
		return nil, errdefs.New(errdefs.KindConfig, "unknown provider: %s", cfg.Name)
	}
}
