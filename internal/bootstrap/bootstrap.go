// Package bootstrap builds the collaborators shared by the commands from a
// validated configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/config"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/cropgraph/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/cropgraph/backend/pkg/ai/openai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader/s3"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger/console"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger/jsonlog"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store/neo4j"
)

// ErrNoBucket is returned by NewS3Loader when AWS_BUCKET is not set.
var ErrNoBucket = errors.New("AWS_BUCKET is not set")

// InitLogger installs the logging backend before the configuration is
// validated, so that configuration errors are reported through the logger.
// Call util.LoadEnv first.
// LOG_FORMAT=json selects zap, anything else the console logger.
func InitLogger(service string) {
	debug := util.GetEnvBool("DEBUG", false)
	if util.GetEnv("LOG_FORMAT") == "json" {
		l, err := jsonlog.NewJSONLogger(jsonlog.JSONLoggerParams{Debug: debug, Service: service})
		if err == nil {
			logger.Init(l)
			return
		}
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: debug, Prefix: service}))
		logger.Warn("JSON logger unavailable, falling back to console", "err", err)
		return
	}
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: debug, Prefix: service}))
}

// LoadConfig exits through logger.Fatal when the configuration is
// incomplete.
func LoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}
	return cfg
}

// NewAIClient creates the language model client selected by AI_ADAPTER.
func NewAIClient(cfg config.AIConfig) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case config.AdapterOllama:
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel: cfg.ChatModel,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,

			Timeout:               cfg.Timeout,
			MaxConcurrentRequests: cfg.MaxConcurrent,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return client, nil
	case config.AdapterOpenAI:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel: cfg.ChatModel,
			ChatURL:   cfg.ChatURL,
			ChatKey:   cfg.ChatKey,
			Timeout:   cfg.Timeout,
		}), nil
	default:
		return nil, &config.ConfigurationError{Invalid: []string{"AI_ADAPTER"}}
	}
}

// NewStorage connects to Neo4j and makes sure the constraints exist.
func NewStorage(ctx context.Context, cfg *config.Config) (*neo4j.GraphNeo4jStorage, error) {
	storage, err := neo4j.NewGraphNeo4jStorage(ctx, neo4j.NewGraphNeo4jStorageParams{
		URI:            cfg.Neo4j.URI,
		Username:       cfg.Neo4j.Username,
		Password:       cfg.Neo4j.Password,
		Database:       cfg.Neo4j.Database,
		ConnectTimeout: cfg.Neo4j.Timeout,
		Timeout:        cfg.StoreTimeout,
		MaxPoolSize:    cfg.Neo4j.MaxPoolSize,
	})
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureSchema(ctx); err != nil {
		logger.Warn("Schema setup incomplete", "err", err)
	}
	return storage, nil
}

// NewS3Loader creates the bucket document source, or ErrNoBucket when no
// bucket is configured.
func NewS3Loader(ctx context.Context, cfg config.S3Config) (*s3.S3GraphFileLoader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	return s3.NewS3GraphFileLoader(ctx, s3.NewS3GraphFileLoaderParams{
		Bucket:    cfg.Bucket,
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
}
