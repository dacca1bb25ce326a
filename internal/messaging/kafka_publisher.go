package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisherConfig holds Kafka producer configuration
type KafkaPublisherConfig struct {
	Brokers      []string
	Topic        string        // e.g., "artifact_updates"
	WriteTimeout time.Duration // e.g., 10 * time.Second
}

// KafkaPublisher announces changed artifacts on Kafka
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher. Messages are keyed by fingerprint so
// updates of one artifact stay ordered.
func NewKafkaPublisher(config KafkaPublisherConfig, logger zerolog.Logger) *KafkaPublisher {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: config.WriteTimeout,
	}
	return newKafkaPublisher(writer, config.Topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// PublishArtifactUpdate writes one artifact.updated event
func (p *KafkaPublisher) PublishArtifactUpdate(ctx context.Context, update models.ArtifactUpdate) error {
	value, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact update: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(update.Fingerprint.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("artifact.updated")},
		},
	})
	if err != nil {
		metrics.KafkaMessages.WithLabelValues(p.topic, "error").Inc()
		return fmt.Errorf("failed to publish artifact update: %w", err)
	}
	metrics.KafkaMessages.WithLabelValues(p.topic, "ok").Inc()

	p.logger.Debug().
		Str("path", update.Path).
		Str("fingerprint", update.Fingerprint.Key()).
		Msg("published artifact update")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
