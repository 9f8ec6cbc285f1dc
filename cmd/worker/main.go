package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/telemetry"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
)

func main() {
	util.LoadEnv()
	bootstrap.InitLogger("worker")
	defer logger.Sync()
	cfg := bootstrap.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Init(ctx, telemetry.Config{ServiceName: "cropgraph-worker"})
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

	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{
		AIClient:  aiClient,
		Storage:   storage,
		MaxChars:  cfg.ExtractMaxChars,
		MaxTokens: cfg.AI.ExtractMaxTokens,
	})
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	var files loader.GraphFileLoader
	s3Loader, err := bootstrap.NewS3Loader(ctx, cfg.S3)
	switch {
	case errors.Is(err, bootstrap.ErrNoBucket):
		logger.Debug("No document bucket configured, only inline texts are accepted")
	case err != nil:
		logger.Fatal("Could not create S3 client", "err", err)
	default:
		files = s3Loader
	}

	conn, err := queue.Init(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// prefetch=1: documents are ingested strictly one at a time
	if err := ch.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.IngestQueue,
		queue.IngestQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.IngestQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.IngestQueue)
				return
			}
			handleMessage(ctx, ch, gc, files, aiClient, msg)
		}
	}
}

func handleMessage(
	ctx context.Context,
	ch *amqp.Channel,
	gc *graph.GraphClient,
	files loader.GraphFileLoader,
	aiClient ai.GraphAIClient,
	msg amqp.Delivery,
) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queue.IngestQueue, "correlation_id", msg.Headers["correlation_id"])

	_, err := queue.ProcessIngestMessage(ctx, gc, files, msg.Body)
	if err != nil {
		logger.Error("Error processing message", "queue", queue.IngestQueue, "err", err)
		deadLetter(ctx, ch, msg, err)
	} else if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", "err", err)
	}

	metrics := aiClient.GetMetrics()
	logger.Info(
		"AI Metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
	)
	logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
	aiClient.ResetMetrics()
}

// deadLetter moves msg to the dead letter queue. Messages are never retried.
func deadLetter(ctx context.Context, ch *amqp.Channel, msg amqp.Delivery, cause error) {
	dlqName := queue.DeadLetterQueue(queue.IngestQueue)
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-error"] = cause.Error()

	logger.Info("Sending message to DLQ", "dlq", dlqName)
	if err := queue.PublishFIFO(ctx, ch, dlqName, msg.Body, headers); err != nil {
		logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", err)
		if err := msg.Nack(false, false); err != nil {
			logger.Error("Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", "err", err)
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
