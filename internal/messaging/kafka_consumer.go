package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// Generator accepts generation triggers
type Generator interface {
	Trigger(ctx context.Context, in models.GenerationTrigger, source models.TriggerSource) (*models.GenerationRequest, error)
}

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer consumes generation triggers from Kafka
type KafkaConsumer struct {
	reader    messageReader
	topic     string
	groupID   string
	generator Generator
	logger    zerolog.Logger
}

// KafkaConsumerConfig holds Kafka consumer configuration
type KafkaConsumerConfig struct {
	Brokers []string // e.g., ["localhost:9092"]
	Topic   string   // e.g., "generation_triggers"
	GroupID string   // e.g., "odds-analytics"
}

// NewKafkaConsumer creates a new Kafka consumer
func NewKafkaConsumer(config KafkaConsumerConfig, generator Generator, logger zerolog.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       1,
		MaxBytes:       1e6,  // 1MB
		CommitInterval: 1000, // Commit every 1 second
	})

	return newKafkaConsumer(reader, config, generator, logger)
}

func newKafkaConsumer(reader messageReader, config KafkaConsumerConfig, generator Generator, logger zerolog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:    reader,
		topic:     config.Topic,
		groupID:   config.GroupID,
		generator: generator,
		logger:    logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start consumes until ctx is cancelled
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("topic", c.topic).
		Str("group_id", c.groupID).
		Msg("started consuming from Kafka")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info().Msg("stopping Kafka consumer")
				return nil
			}
			c.logger.Error().Err(err).Msg("failed to fetch message")
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			if !permanent(err) {
				c.logger.Error().
					Err(err).
					Int64("offset", msg.Offset).
					Str("key", string(msg.Key)).
					Msg("failed to process message")
				metrics.KafkaMessages.WithLabelValues(c.topic, "error").Inc()
				// Don't commit if processing failed
				continue
			}
			// a message that can never succeed must not block the partition
			c.logger.Warn().
				Err(err).
				Int64("offset", msg.Offset).
				Msg("dropping invalid generation trigger")
			metrics.KafkaMessages.WithLabelValues(c.topic, "dropped").Inc()
		} else {
			metrics.KafkaMessages.WithLabelValues(c.topic, "ok").Inc()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error().Err(err).Msg("failed to commit message")
		}
	}
}

// processMessage decodes one trigger and hands it to the pipeline
func (c *KafkaConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var in models.GenerationTrigger
	if err := json.Unmarshal(msg.Value, &in); err != nil {
		return models.NewError(models.KindInvalidInput, "malformed generation trigger", err)
	}

	req, err := c.generator.Trigger(ctx, in, models.SourceKafka)
	if err != nil {
		return fmt.Errorf("failed to trigger generation: %w", err)
	}

	c.logger.Debug().
		Str("request_id", req.ID.String()).
		Str("fingerprint", req.Fingerprint.Key()).
		Str("status", string(req.Status)).
		Msg("generation triggered from Kafka")
	return nil
}

// permanent reports errors that a redelivery would repeat
func permanent(err error) bool {
	switch models.KindOf(err) {
	case models.KindInvalidInput, models.KindUnsupportedMarket, models.KindUpstreamRejected:
		return true
	}
	return false
}

// Close closes the Kafka reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
