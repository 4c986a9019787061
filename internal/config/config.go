// Package config loads and validates the application configuration from
// defaults, an optional config.yaml, and CHATD_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Defaults for optional settings.
const (
	DefaultServerAddr = ":8000"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultBrokerKind = "redis"

	DefaultOllamaURL     = "http://ollama:11434/api/generate"
	DefaultModel         = "deepseek-r1:1.5b"
	DefaultOllamaTimeout = 300 * time.Second

	DefaultMaxWorkers       = 3
	DefaultMaxMessageLength = 10000

	DefaultPingInterval = 30 * time.Second
	DefaultPingTimeout  = 60 * time.Second
)

// Config holds every setting consumed by the server.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Broker     BrokerConfig     `mapstructure:"broker"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Generation GenerationConfig `mapstructure:"generation"`
	Chat       ChatConfig       `mapstructure:"chat"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// BrokerConfig selects the broadcast transport. "memory" keeps fan-out inside
// a single process; "redis" and "nats" fan out across nodes.
type BrokerConfig struct {
	Kind string `mapstructure:"kind" validate:"oneof=memory redis nats"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
}

// GenerationConfig drives the Ollama client and the worker pool.
type GenerationConfig struct {
	OllamaURL    string        `mapstructure:"ollama_url"    validate:"required,url"`
	Model        string        `mapstructure:"model"         validate:"required"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"       validate:"min=1s,max=30m"`
	MaxWorkers   int           `mapstructure:"max_workers"   validate:"min=1,max=64"`
}

type ChatConfig struct {
	MaxMessageLength int           `mapstructure:"max_message_length" validate:"min=1"`
	PingInterval     time.Duration `mapstructure:"ping_interval"      validate:"min=1s"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"       validate:"min=1s"`
}

// Load reads configuration from defaults, config.yaml (optional), and the
// environment, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHATD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	if cfg.Broker.Kind == "redis" && cfg.Redis.URL == "" {
		return nil, fmt.Errorf("config: broker.kind is redis but redis.url is empty")
	}
	if cfg.Broker.Kind == "nats" && cfg.NATS.URL == "" {
		return nil, fmt.Errorf("config: broker.kind is nats but nats.url is empty")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultServerAddr)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	// Keys without a meaningful default still need registering so
	// AutomaticEnv values survive Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("broker.kind", DefaultBrokerKind)

	v.SetDefault("generation.ollama_url", DefaultOllamaURL)
	v.SetDefault("generation.model", DefaultModel)
	v.SetDefault("generation.system_prompt", "")
	v.SetDefault("generation.timeout", DefaultOllamaTimeout)
	v.SetDefault("generation.max_workers", DefaultMaxWorkers)

	v.SetDefault("chat.max_message_length", DefaultMaxMessageLength)
	v.SetDefault("chat.ping_interval", DefaultPingInterval)
	v.SetDefault("chat.ping_timeout", DefaultPingTimeout)
}
