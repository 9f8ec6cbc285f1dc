package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"
)

// IngestMsg asks the worker to ingest one document. The text is either
// inline or stored under ObjectKey in the document bucket.
type IngestMsg struct {
	CorrelationID string `json:"correlation_id"`
	DocumentID    string `json:"document_id"`
	Source        string `json:"source"`
	Text          string `json:"text,omitempty"`
	ObjectKey     string `json:"object_key,omitempty"`
}

// Validate checks that the message names a document and carries its text
// one way or the other.
func (m IngestMsg) Validate() error {
	if strings.TrimSpace(m.DocumentID) == "" {
		return errors.New("ingest message without document_id")
	}
	if m.Text == "" && m.ObjectKey == "" {
		return errors.New("ingest message without text or object_key")
	}
	return nil
}

// NewCorrelationID returns a short random id used to follow a document
// from the API through the worker logs.
func NewCorrelationID() (string, error) {
	return gonanoid.New()
}

// Publisher sends ingest messages to the worker.
type Publisher interface {
	PublishIngest(ctx context.Context, msg IngestMsg) error
}

// ChannelPublisher publishes to IngestQueue on a RabbitMQ channel.
type ChannelPublisher struct {
	ch *amqp091.Channel
}

func NewChannelPublisher(ch *amqp091.Channel) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) PublishIngest(ctx context.Context, msg IngestMsg) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := PublishFIFO(ctx, p.ch, IngestQueue, data, amqp091.Table{
		"correlation_id": msg.CorrelationID,
	}); err != nil {
		return fmt.Errorf("publish to %s: %w", IngestQueue, err)
	}
	logger.Debug("[Queue] Ingest message published", "correlation_id", msg.CorrelationID, "document", msg.DocumentID)
	return nil
}
