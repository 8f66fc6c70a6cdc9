package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/bangers/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server ServerConfig `yaml:"server" json:"server" jsonschema:"description=Server configuration"`
	Feed   FeedConfig   `yaml:"feed" json:"feed" jsonschema:"description=Podcast feed configuration"`
	Model  ModelConfig  `yaml:"model" json:"model" jsonschema:"description=Scoring model configuration"`
}

// ServerConfig holds http server settings
type ServerConfig struct {
	Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"default=http://localhost:8080,description=Base URL for RSS self links"`
}

// FeedConfig holds podcast feed settings
type FeedConfig struct {
	URL       string        `yaml:"url" json:"url" jsonschema:"required,description=Podcast RSS feed URL (can use environment variable)"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Feed request timeout per attempt"`
	Attempts  int           `yaml:"attempts" json:"attempts" jsonschema:"default=2,minimum=1,maximum=4,description=Feed request attempts on transient failures"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent for feed requests (browser agent by default)"`
}

// ModelConfig holds scoring model settings
type ModelConfig struct {
	Backend       string       `yaml:"backend" json:"backend" jsonschema:"default=artifact,enum=artifact,enum=kserve,description=Scoring backend"`
	Path          string       `yaml:"path" json:"path" jsonschema:"default=episode_banger_model.json,description=Model artifact file for artifact backend"`
	PositiveClass string       `yaml:"positive_class" json:"positive_class" jsonschema:"default=yes,description=Class label of banger episodes"`
	KServe        KServeConfig `yaml:"kserve" json:"kserve" jsonschema:"description=Remote model served with KServe V2 protocol"`
}

// KServeConfig holds remote inference settings
type KServeConfig struct {
	Endpoint string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=Inference server root URL"`
	Name     string        `yaml:"name" json:"name" jsonschema:"description=Model name on the inference server"`
	Input    string        `yaml:"input" json:"input" jsonschema:"default=float_input,description=Input tensor name"`
	Output   string        `yaml:"output" json:"output" jsonschema:"default=probabilities,description=Probabilities tensor name"`
	Classes  []string      `yaml:"classes" json:"classes" jsonschema:"description=Class labels of probability columns (default no and yes)"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=5s,description=Inference request timeout"`
}

// Default returns configuration with defaults only
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from a YAML file and sets defaults. It doesn't validate,
// call Validate after command line overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		log.Printf("[WARN] schema validation failed: %v", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}

	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 10 * time.Second
	}
	if c.Feed.Attempts == 0 {
		c.Feed.Attempts = 2
	}

	if c.Model.Backend == "" {
		c.Model.Backend = "artifact"
	}
	if c.Model.Path == "" && c.Model.Backend == "artifact" {
		c.Model.Path = "episode_banger_model.json"
	}
	if c.Model.PositiveClass == "" {
		c.Model.PositiveClass = "yes"
	}
	if c.Model.KServe.Input == "" {
		c.Model.KServe.Input = "float_input"
	}
	if c.Model.KServe.Output == "" {
		c.Model.KServe.Output = "probabilities"
	}
	if len(c.Model.KServe.Classes) == 0 {
		c.Model.KServe.Classes = []string{"no", "yes"}
	}
	if c.Model.KServe.Timeout == 0 {
		c.Model.KServe.Timeout = 5 * time.Second
	}
}

// Validate checks configuration for correctness, all errors wrap domain.ErrConfiguration
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate feed config
	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	u, err := url.Parse(cfg.Feed.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed.url must be an http(s) url")
	}
	if cfg.Feed.Timeout < time.Second || cfg.Feed.Timeout > time.Minute {
		return fmt.Errorf("feed.timeout must be between 1s and 1m")
	}
	if cfg.Feed.Attempts < 1 || cfg.Feed.Attempts > 4 {
		return fmt.Errorf("feed.attempts must be between 1 and 4")
	}

	// validate model config
	switch cfg.Model.Backend {
	case "artifact":
		if cfg.Model.Path == "" {
			return fmt.Errorf("model.path is required for artifact backend")
		}
	case "kserve":
		if cfg.Model.KServe.Endpoint == "" || cfg.Model.KServe.Name == "" {
			return fmt.Errorf("model.kserve.endpoint and model.kserve.name are required for kserve backend")
		}
		if len(cfg.Model.KServe.Classes) < 2 {
			return fmt.Errorf("model.kserve.classes needs at least two labels")
		}
		if !slices.Contains(cfg.Model.KServe.Classes, cfg.Model.PositiveClass) {
			return fmt.Errorf("model.positive_class %q is not in model.kserve.classes", cfg.Model.PositiveClass)
		}
	default:
		return fmt.Errorf("model.backend must be artifact or kserve, got %q", cfg.Model.Backend)
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetFeedURL returns podcast feed URL
func (c *Config) GetFeedURL() string {
	return c.Feed.URL
}

// GetBaseURL returns public base URL of the service
func (c *Config) GetBaseURL() string {
	return c.Server.BaseURL
}
