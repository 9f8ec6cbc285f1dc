package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/server"
	mid "github.com/OFFIS-RIT/cropgraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/telemetry"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/query"
)

func main() {
	util.LoadEnv()
	bootstrap.InitLogger("server")
	defer logger.Sync()
	cfg := bootstrap.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Init(ctx, telemetry.Config{ServiceName: "cropgraph-server"})
	defer shutdownTracing(context.Background())

	aiClient, err := bootstrap.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	storage, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}
	defer storage.Close(context.Background())

	qc, err := query.NewQueryClient(aiClient, storage)
	if err != nil {
		logger.Fatal("Could not create query client", "err", err)
	}
	app := &mid.App{Query: qc}

	// Document submission is optional: without RabbitMQ the query API still works.
	if conn, err := queue.Init(cfg.RabbitMQ.URL()); err != nil {
		logger.Warn("RabbitMQ unavailable, document submission disabled", "err", err)
	} else {
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		app.Queue = queue.NewChannelPublisher(ch)
	}

	docs, err := bootstrap.NewS3Loader(ctx, cfg.S3)
	switch {
	case errors.Is(err, bootstrap.ErrNoBucket):
		logger.Debug("No document bucket configured, texts are queued inline")
	case err != nil:
		logger.Fatal("Could not create S3 client", "err", err)
	default:
		app.Documents = docs
	}

	if err := server.Run(ctx, server.New(app), cfg.Port); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
	logger.Info("Shutdown complete")
}
