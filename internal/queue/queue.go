package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// IngestQueue carries documents submitted through the API.
const IngestQueue = "ingest_queue"

// DeadLetterQueue returns the name of the dead letter queue of name.
func DeadLetterQueue(name string) string {
	return name + "_dlq"
}

// Init dials RabbitMQ at url.
func Init(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue in queueNames together with its dead
// letter queue. There is no retry queue: failed messages go straight to the
// dead letter queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		for _, q := range []string{name, DeadLetterQueue(name)} {
			_, err := ch.QueueDeclare(
				q,
				true,  // durable
				false, // autoDelete
				false, // exclusive
				false, // noWait
				nil,   // args
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q, err)
			}
		}
	}
	logger.Debug("[Queue] Queues declared", "queues", queueNames)
	return nil
}

// PublishFIFO publishes data as a persistent message to queueName through
// the default exchange.
func PublishFIFO(ctx context.Context, ch *amqp091.Channel, queueName string, data []byte, headers amqp091.Table) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		publishing,
	)
}
