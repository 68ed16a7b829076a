package config

import (
	"time"

	"github.com/rheese/tablescan/internal/errdefs"
)

// PlaceholderAPIKey is the sample credential shipped in .env templates.
// Validation rejects it so a copied template never reaches the API.
const PlaceholderAPIKey = "your_api_key_here"

// Config holds tablescan configuration.
// Stored at: ~/.tablescan/config.yaml
type Config struct {
	Provider  ProviderCfg  `mapstructure:"provider" yaml:"provider"`
	Rasterize RasterizeCfg `mapstructure:"rasterize" yaml:"rasterize"`
	Pipeline  PipelineCfg  `mapstructure:"pipeline" yaml:"pipeline"`
	Logging   LoggingCfg   `mapstructure:"logging" yaml:"logging"`
}

// ProviderCfg configures the multimodal model client.
type ProviderCfg struct {
	Name           string `mapstructure:"name" yaml:"name"`                       // "gemini", "openai"
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	Model          string `mapstructure:"model" yaml:"model"`                     // Model name
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`               // Endpoint override (tests, proxies)
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // HTTP timeout
	MaxAttempts    int    `mapstructure:"max_attempts" yaml:"max_attempts"`       // Attempts per page; 1 means a single call
}

// Timeout returns the HTTP timeout as a duration.
func (p ProviderCfg) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RasterizeCfg configures PDF page rendering.
type RasterizeCfg struct {
	DPI          int    `mapstructure:"dpi" yaml:"dpi"`                     // Render resolution
	PdftoppmPath string `mapstructure:"pdftoppm_path" yaml:"pdftoppm_path"` // Poppler binary, resolved via PATH by default
}

// PipelineCfg configures batch processing locations.
type PipelineCfg struct {
	InputDir  string `mapstructure:"input_dir" yaml:"input_dir"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// LoggingCfg configures log output and the call audit log.
type LoggingCfg struct {
	Level   string `mapstructure:"level" yaml:"level"`       // debug, info, warn, error
	CallLog bool   `mapstructure:"call_log" yaml:"call_log"` // Append every model call to <home>/calls.jsonl
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderCfg{
			Name:           "gemini",
			APIKey:         "${GEMINI_API_KEY}",
			Model:          "gemini-1.5-flash",
			TimeoutSeconds: 120,
			MaxAttempts:    1,
		},
		Rasterize: RasterizeCfg{
			DPI:          200,
			PdftoppmPath: "pdftoppm",
		},
		Pipeline: PipelineCfg{
			InputDir:  "input",
			OutputDir: "output",
		},
		Logging: LoggingCfg{
			Level: "info",
		},
	}
}

// ResolveAPIKey returns the provider API key with ${ENV_VAR} references expanded.
func (c *Config) ResolveAPIKey() string {
	return ResolveEnvVars(c.Provider.APIKey)
}

// Validate checks the configuration before any processing starts.
// All failures are config-kind errors.
func (c *Config) Validate() error {
	key := c.ResolveAPIKey()
	if key == "" {
		return errdefs.New(errdefs.KindConfig,
			"provider api key not set; export GEMINI_API_KEY or set provider.api_key")
	}
	if key == PlaceholderAPIKey {
		return errdefs.New(errdefs.KindConfig,
			"provider api key is still the placeholder %q; set a real key", PlaceholderAPIKey)
	}
	if c.Rasterize.DPI <= 0 {
		return errdefs.New(errdefs.KindConfig,
			"rasterize dpi must be a positive integer, got %d", c.Rasterize.DPI)
	}
	if c.Provider.MaxAttempts < 1 {
		return errdefs.New(errdefs.KindConfig,
			"provider max_attempts must be at least 1, got %d", c.Provider.MaxAttempts)
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return errdefs.New(errdefs.KindConfig,
			"provider timeout_seconds must be positive, got %d", c.Provider.TimeoutSeconds)
	}
	if c.Pipeline.InputDir == "" {
		return errdefs.New(errdefs.KindConfig, "pipeline input_dir must not be empty")
	}
	if c.Pipeline.OutputDir == "" {
		return errdefs.New(errdefs.KindConfig, "pipeline output_dir must not be empty")
	}
	return nil
}
