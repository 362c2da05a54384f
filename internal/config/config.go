// Package config loads the trustgraph configuration using koanf.
// Values are layered with priority: environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment override. A double underscore
// separates sections, e.g. TRUSTGRAPH_SANDBOX__TIMEOUT=20s.
const EnvPrefix = "TRUSTGRAPH_"

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	GitHub  GitHubConfig  `koanf:"github"`
	Sandbox SandboxConfig `koanf:"sandbox"`
	OpenAI  OpenAIConfig  `koanf:"openai"`
	Data    DataConfig    `koanf:"data"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// GitHubConfig configures both the REST search endpoint and the GraphQL endpoint.
type GitHubConfig struct {
	APIURL     string        `koanf:"api_url" validate:"required,url"`
	GraphQLURL string        `koanf:"graphql_url" validate:"required,url"`
	Token      string        `koanf:"token"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	// MaxRateLimitSleep bounds how long a request may wait out a secondary rate limit.
	MaxRateLimitSleep time.Duration `koanf:"max_rate_limit_sleep"`
}

// SandboxConfig configures the subprocess probe.
type SandboxConfig struct {
	Enabled bool          `koanf:"enabled"`
	Command string        `koanf:"command" validate:"required_if=Enabled true"`
	Args    []string      `koanf:"args"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// Env lists extra variable names passed through to the child process.
	Env []string `koanf:"env"`
}

// OpenAIConfig configures skill extraction.
type OpenAIConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url" validate:"omitempty,url"`
	Model     string        `koanf:"model" validate:"required"`
	MaxTokens int           `koanf:"max_tokens" validate:"gt=0"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`
}

// DataConfig points at the mock data. An empty Dir means the embedded data set.
type DataConfig struct {
	Dir string `koanf:"dir"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error off disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=console json"`
}

// Defaults returns the default configuration values keyed by koanf path.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":                 ":8000",
		"server.cors_origins":         []string{"*"},
		"server.shutdown_timeout":     10 * time.Second,
		"github.api_url":              "https://api.github.com/",
		"github.graphql_url":          "https://api.github.com/graphql",
		"github.token":                "",
		"github.timeout":              10 * time.Second,
		"github.max_rate_limit_sleep": 5 * time.Second,
		"sandbox.enabled":             true,
		"sandbox.command":             "verify-github",
		"sandbox.args":                []string{"--format=json"},
		"sandbox.timeout":             15 * time.Second,
		"sandbox.env":                 []string{},
		"openai.api_key":              "",
		"openai.base_url":             "",
		"openai.model":                "gpt-4o-mini",
		"openai.max_tokens":           150,
		"openai.timeout":              30 * time.Second,
		"data.dir":                    "",
		"log.level":                   "info",
		"log.format":                  "console",
	}
}

// Load loads configuration from defaults, the optional YAML file at path, and
// the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyWellKnownEnv(&cfg)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envTransform converts environment variable names to config keys.
// Example: TRUSTGRAPH_GITHUB__API_URL -> github.api_url
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// applyWellKnownEnv fills credentials from the conventional variables when the
// prefixed ones are unset.
func applyWellKnownEnv(cfg *Config) {
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
