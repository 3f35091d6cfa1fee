package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a barpos deployment.
// It follows three-layer priority:
//  1. Default values (lowest priority)
//  2. YAML config file, when present (medium priority)
//  3. Environment variables (highest priority)
type Config struct {
	// Storage selects the persistence backend: "memory", "file" or "redis".
	Storage StorageConfig `yaml:"storage"`

	// Broadcast selects the cross-context sync backend: "loopback" or "redis".
	Broadcast BroadcastConfig `yaml:"broadcast"`

	// AI configures the enrichment adapter (optional; never touches the store).
	AI AIConfig `yaml:"ai"`

	// LogLevel is DEBUG, INFO, WARN or ERROR.
	LogLevel string `yaml:"log_level"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	FilePath string `yaml:"file_path"`
	RedisURL string `yaml:"redis_url"`
	// Key addresses the snapshot in the key-value backend. All contexts of
	// one venue must share it.
	Key string `yaml:"key"`
}

// BroadcastConfig contains change propagation configuration.
type BroadcastConfig struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
	// Channel names the shared topic. All contexts of one venue must share it.
	Channel string `yaml:"channel"`
}

// AIConfig contains enrichment adapter configuration.
type AIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
}

// DefaultConfig returns the built-in defaults: file storage next to the
// binary, loopback broadcast, and the venue's historical key and channel
// names.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:  "file",
			FilePath: "barpos_state.json",
			RedisURL: "redis://localhost:6379",
			Key:      "amorim_country_bar_state",
		},
		Broadcast: BroadcastConfig{
			Backend:  "loopback",
			RedisURL: "redis://localhost:6379",
			Channel:  "amorim_bar_sync",
		},
		AI: AIConfig{
			Model:      "gemini-1.5-flash",
			ImageModel: "gemini-1.5-flash",
		},
		LogLevel: "INFO",
	}
}

// LoadConfig builds a Config from defaults, the YAML file at path (when
// path is non-empty and the file exists), and environment variables, in
// that order of increasing priority.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Missing file is fine; defaults plus env apply.
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Storage.Backend, "BARPOS_STORAGE_BACKEND")
	setFromEnv(&c.Storage.FilePath, "BARPOS_STORAGE_FILE")
	setFromEnv(&c.Storage.RedisURL, "BARPOS_STORAGE_REDIS_URL", "REDIS_URL")
	setFromEnv(&c.Storage.Key, "BARPOS_STORAGE_KEY")
	setFromEnv(&c.Broadcast.Backend, "BARPOS_BROADCAST_BACKEND")
	setFromEnv(&c.Broadcast.RedisURL, "BARPOS_BROADCAST_REDIS_URL", "REDIS_URL")
	setFromEnv(&c.Broadcast.Channel, "BARPOS_BROADCAST_CHANNEL")
	setFromEnv(&c.AI.APIKey, "BARPOS_AI_API_KEY", "GEMINI_API_KEY")
	setFromEnv(&c.AI.BaseURL, "BARPOS_AI_BASE_URL")
	setFromEnv(&c.AI.Model, "BARPOS_AI_MODEL")
	setFromEnv(&c.AI.ImageModel, "BARPOS_AI_IMAGE_MODEL")
	setFromEnv(&c.LogLevel, "BARPOS_LOG_LEVEL", "LOG_LEVEL")
}

// setFromEnv assigns the first non-empty environment variable to dst.
func setFromEnv(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

// Validate checks backend names and required fields.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidInput, c.Storage.Backend)
	}
	if strings.EqualFold(c.Storage.Backend, "file") && c.Storage.FilePath == "" {
		return fmt.Errorf("%w: file storage requires a file path", ErrInvalidInput)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("%w: storage key must not be empty", ErrInvalidInput)
	}
	switch strings.ToLower(c.Broadcast.Backend) {
	case "loopback", "redis":
	default:
		return fmt.Errorf("%w: unknown broadcast backend %q", ErrInvalidInput, c.Broadcast.Backend)
	}
	if c.Broadcast.Channel == "" {
		return fmt.Errorf("%w: broadcast channel must not be empty", ErrInvalidInput)
	}
	return nil
}
