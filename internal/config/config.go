// Package config assembles the typed runtime configuration from the process
// environment. Every command validates it before touching the graph store or
// the model backend.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
)

const (
	AdapterOllama = "ollama"
	AdapterOpenAI = "openai"
)

// ConfigurationError reports required settings that are missing or invalid.
// It is fatal at startup.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

type Neo4jConfig struct {
	URI         string
	Username    string
	Password    string
	Database    string
	Timeout     time.Duration
	MaxPoolSize int
}

type AIConfig struct {
	Adapter          string
	ChatModel        string
	ChatURL          string
	ChatKey          string
	ExtractMaxTokens int
	Timeout          time.Duration
	MaxConcurrent    int64
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string
	Port     string
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

type Config struct {
	Neo4j    Neo4jConfig
	AI       AIConfig
	S3       S3Config
	RabbitMQ RabbitMQConfig

	ExtractMaxChars int
	StoreTimeout    time.Duration
	DocsDir         string
	Port            string
	Debug           bool
	LogFormat       string
}

// Load reads the configuration from the environment and validates it.
// The returned error is always a *ConfigurationError.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the configuration without validating it.
func FromEnv() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:         util.GetEnv("NEO4J_URI"),
			Username:    util.GetEnv("NEO4J_USERNAME"),
			Password:    util.GetEnv("NEO4J_PASSWORD"),
			Database:    util.GetEnv("NEO4J_DATABASE"),
			Timeout:     seconds(util.GetEnvNumeric("NEO4J_TIMEOUT_SECONDS", 10)),
			MaxPoolSize: int(util.GetEnvNumeric("NEO4J_MAX_POOL_SIZE", 50)),
		},
		AI: AIConfig{
			Adapter:          strings.ToLower(util.GetEnvString("AI_ADAPTER", AdapterOllama)),
			ChatModel:        util.GetEnv("AI_CHAT_MODEL"),
			ChatURL:          util.GetEnv("AI_CHAT_URL"),
			ChatKey:          util.GetEnv("AI_CHAT_KEY"),
			ExtractMaxTokens: int(util.GetEnvNumeric("AI_EXTRACT_MAX_TOKENS", 512)),
			Timeout:          seconds(util.GetEnvNumeric("AI_TIMEOUT_SECONDS", 120)),
			MaxConcurrent:    int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 1)),
		},
		S3: S3Config{
			Endpoint:  util.GetEnv("AWS_ENDPOINT_URL"),
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY_ID"),
			SecretKey: util.GetEnv("AWS_SECRET_ACCESS_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
		},
		RabbitMQ: RabbitMQConfig{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
		ExtractMaxChars: int(util.GetEnvNumeric("EXTRACT_MAX_CHARS", 2000)),
		StoreTimeout:    seconds(util.GetEnvNumeric("STORE_TIMEOUT_SECONDS", 30)),
		DocsDir:         util.GetEnvString("DOCS_DIR", "docs"),
		Port:            util.GetEnvString("PORT", "8080"),
		Debug:           util.GetEnvBool("DEBUG", false),
		LogFormat:       strings.ToLower(util.GetEnvString("LOG_FORMAT", "console")),
	}
}

// Validate checks that every required setting is present and sane.
func (c *Config) Validate() error {
	cerr := &ConfigurationError{}

	required := []struct {
		key   string
		value string
	}{
		{"NEO4J_URI", c.Neo4j.URI},
		{"NEO4J_USERNAME", c.Neo4j.Username},
		{"NEO4J_PASSWORD", c.Neo4j.Password},
		{"AI_CHAT_MODEL", c.AI.ChatModel},
	}
	for _, r := range required {
		if r.value == "" {
			cerr.Missing = append(cerr.Missing, r.key)
		}
	}

	switch c.AI.Adapter {
	case AdapterOllama:
	case AdapterOpenAI:
		if c.AI.ChatKey == "" {
			cerr.Missing = append(cerr.Missing, "AI_CHAT_KEY")
		}
	default:
		cerr.Invalid = append(cerr.Invalid, "AI_ADAPTER")
	}

	if c.ExtractMaxChars <= 0 {
		cerr.Invalid = append(cerr.Invalid, "EXTRACT_MAX_CHARS")
	}
	if c.AI.ExtractMaxTokens <= 0 {
		cerr.Invalid = append(cerr.Invalid, "AI_EXTRACT_MAX_TOKENS")
	}
	if c.AI.MaxConcurrent <= 0 {
		cerr.Invalid = append(cerr.Invalid, "AI_PARALLEL_REQ")
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return cerr
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
