package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
	"github.com/davidbz/barista/internal/provider/anthropic"
	"github.com/davidbz/barista/internal/provider/openai"
)

// DefaultSystemPrompt frames the agent as a drink-pricing assistant.
const DefaultSystemPrompt = "You are a friendly barista assistant. " +
	"Use the calculate_drink_price tool to quote drink prices and never guess a price. " +
	"If the customer has not said which drink or which size they want, ask before calling the tool."

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Agent     AgentConfig
	Anthropic anthropic.Config
	OpenAI    openai.Config
	Log       observability.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// AgentConfig contains the defaults of every agent run.
type AgentConfig struct {
	Model        string   `env:"AGENT_MODEL"         envDefault:"claude-sonnet-4-5"`
	MaxTurns     int      `env:"AGENT_MAX_TURNS"     envDefault:"10"`
	MaxTokens    int      `env:"AGENT_MAX_TOKENS"    envDefault:"1024"`
	AllowedTools []string `env:"AGENT_ALLOWED_TOOLS" envDefault:"calculate_drink_price" envSeparator:","`
	SystemPrompt string   `env:"AGENT_SYSTEM_PROMPT"`
}

// QueryOptions converts the agent settings into run options.
func (c AgentConfig) QueryOptions() domain.QueryOptions {
	prompt := c.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return domain.QueryOptions{
		Model:        c.Model,
		SystemPrompt: prompt,
		MaxTurns:     c.MaxTurns,
		AllowedTools: c.AllowedTools,
		MaxTokens:    c.MaxTokens,
	}
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Server    *ServerConfig
	CORS      *CORSConfig
	Agent     *AgentConfig
	Anthropic *anthropic.Config
	OpenAI    *openai.Config
	Log       *observability.Config
}

// Load loads environment files and parses configuration.
func Load() (*Config, error) {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:       dig.Out{},
		Server:    &cfg.Server,
		CORS:      &cfg.CORS,
		Agent:     &cfg.Agent,
		Anthropic: &cfg.Anthropic,
		OpenAI:    &cfg.OpenAI,
		Log:       &cfg.Log,
	}
}
