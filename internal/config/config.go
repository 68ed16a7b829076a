package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/rheese/tablescan/internal/errdefs"
)

// Manager handles loading and hot-reloading configuration.
// Each Manager owns its own viper instance so concurrent managers
// (and tests) never share state.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// cfgFile may be empty, in which case config.yaml is searched in the
// current directory and homeDir.
func NewManager(cfgFile, homeDir string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile, homeDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults, env bindings and the config file.
func (cm *Manager) initViper(cfgFile, homeDir string) error {
	cm.setDefaults()

	// Environment variables with TABLESCAN_ prefix.
	cm.v.SetEnvPrefix("TABLESCAN")
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	// The original environment contract keeps working alongside the prefix.
	_ = cm.v.BindEnv("provider.api_key", "TABLESCAN_PROVIDER_API_KEY", "GEMINI_API_KEY")
	_ = cm.v.BindEnv("rasterize.dpi", "TABLESCAN_RASTERIZE_DPI", "PDF_DPI")

	// Config file
	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		if homeDir != "" {
			cm.v.AddConfigPath(homeDir)
		} else {
			cm.v.AddConfigPath("$HOME/.tablescan")
		}
	}

	// Try to read config file (not required)
	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return errdefs.Wrap(errdefs.KindConfig, err, "error reading config file")
		}
	}

	return nil
}

// setDefaults seeds leaf keys so env overrides merge cleanly on unmarshal.
func (cm *Manager) setDefaults() {
	d := DefaultConfig()
	cm.v.SetDefault("provider.name", d.Provider.Name)
	cm.v.SetDefault("provider.api_key", d.Provider.APIKey)
	cm.v.SetDefault("provider.model", d.Provider.Model)
	cm.v.SetDefault("provider.base_url", d.Provider.BaseURL)
	cm.v.SetDefault("provider.timeout_seconds", d.Provider.TimeoutSeconds)
	cm.v.SetDefault("provider.max_attempts", d.Provider.MaxAttempts)
	cm.v.SetDefault("rasterize.dpi", d.Rasterize.DPI)
	cm.v.SetDefault("rasterize.pdftoppm_path", d.Rasterize.PdftoppmPath)
	cm.v.SetDefault("pipeline.input_dir", d.Pipeline.InputDir)
	cm.v.SetDefault("pipeline.output_dir", d.Pipeline.OutputDir)
	cm.v.SetDefault("logging.level", d.Logging.Level)
	cm.v.SetDefault("logging.call_log", d.Logging.CallLog)
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, errdefs.Wrap(errdefs.KindConfig, err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# tablescan configuration
# The api_key uses ${ENV_VAR} syntax to reference environment variables
# Set it in your shell: export GEMINI_API_KEY=xxx
# PDF_DPI overrides rasterize.dpi the same way the original env contract did

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
