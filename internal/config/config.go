package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StoreMemory = "memory"
	StoreRedis  = "redis"

	defaultStagingFile = "temp_medical_image.png"
)

var ErrMissingAPIKey = errors.New("model API key is not set")

type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Gemini  GeminiConfig
	OpenAI  OpenAIConfig
	Session SessionConfig
	Redis   RedisConfig

	StagingPath string `env:"STAGING_PATH"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"SERVER_THROTTLE_LIMIT" envDefault:"50"`
	MaxUploadSize   int64         `env:"MAX_UPLOAD_SIZE" envDefault:"20971520"`
}

type ModelConfig struct {
	Provider string `env:"MODEL_PROVIDER" envDefault:"gemini"`
}

type GeminiConfig struct {
	APIKey string `env:"GOOGLE_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
}

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

type SessionConfig struct {
	Store string        `env:"SESSION_STORE" envDefault:"memory"`
	TTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load reads an optional .env file from the working directory and then the
// process environment. A missing key for the selected provider is reported as
// ErrMissingAPIKey.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.StagingPath == "" {
		cfg.StagingPath = filepath.Join(os.TempDir(), defaultStagingFile)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY: %w", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY: %w", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.Model.Provider)
	}

	switch c.Session.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.Session.Store)
	}
	return nil
}
