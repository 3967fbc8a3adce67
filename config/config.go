// Package config loads the analyst service configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type LLMConfig struct {
	Provider      string `yaml:"provider" validate:"oneof=gemini openai"`
	Model         string `yaml:"model" validate:"required"`
	MaxIterations int    `yaml:"max_iterations" validate:"gte=0"`
	APIKey        string `yaml:"api_key"`
}

type SearchConfig struct {
	Provider  string        `yaml:"provider" validate:"oneof=serper duckduckgo"`
	SerperURL string        `yaml:"serper_url" validate:"omitempty,url"`
	Results   int           `yaml:"results" validate:"gte=1,lte=20"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	APIKey    string        `yaml:"api_key"`
}

type PipelineConfig struct {
	OutputDir      string `yaml:"output_dir" validate:"required"`
	DefinitionsDir string `yaml:"definitions_dir"`
	Concurrent     bool   `yaml:"concurrent"`
	MaxParallel    int    `yaml:"max_parallel" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the embedded defaults with environment overrides applied.
func Default() (Config, error) {
	return Load("")
}

// Load reads the embedded defaults, overlays path when it is not empty,
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse default config: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ANALYST_ADDR"); v != "" {
		c.Server.Addr = v
	}
	switch c.LLM.Provider {
	case "openai":
		if v := getenv("OPENAI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	default:
		if v := getenv("GEMINI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
	if v := getenv("SERPER_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// SearchProvider is the provider to use given the configured keys. Serper
// needs an API key; without one the keyless DuckDuckGo search is used.
func (c Config) SearchProvider() string {
	if c.Search.Provider == "serper" && c.Search.APIKey == "" {
		return "duckduckgo"
	}
	return c.Search.Provider
}
