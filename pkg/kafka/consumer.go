// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Events are JSON encoded. Consumers dispatch each
// message to a MessageHandler, retrying failed handlers with backoff before
// the message is skipped.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type consumerOptions struct {
	groupID     string
	startOffset int64
	retry       resilience.RetryConfig
}

// ConsumerOption customizes NewConsumer.
type ConsumerOption func(*consumerOptions)

// WithGroupID overrides the configured consumer group. Searchers use a
// per-instance group so every instance sees every corpus update.
func WithGroupID(id string) ConsumerOption {
	return func(o *consumerOptions) { o.groupID = id }
}

// WithStartOffset sets where a new group starts reading: kafka.FirstOffset
// or kafka.LastOffset.
func WithStartOffset(offset int64) ConsumerOption {
	return func(o *consumerOptions) { o.startOffset = offset }
}

// WithRetry sets the backoff applied to a failing handler.
func WithRetry(cfg resilience.RetryConfig) ConsumerOption {
	return func(o *consumerOptions) { o.retry = cfg }
}

// Start offsets re-exported so callers need not import kafka-go.
const (
	FirstOffset = kafka.FirstOffset
	LastOffset  = kafka.LastOffset
)

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  *kafka.Reader
	topic   string
	retry   resilience.RetryConfig
	logger  *slog.Logger
	handler MessageHandler
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	o := consumerOptions{
		groupID:     cfg.ConsumerGroup,
		startOffset: kafka.LastOffset,
	}
	for _, opt := range opts {
		opt(&o)
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     o.groupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: o.startOffset,
	})

	return &Consumer{
		reader:  r,
		topic:   topic,
		retry:   o.retry,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", o.groupID),
		handler: handler,
	}
}

// Start enters the consume loop until ctx is cancelled. A message whose
// handler still fails after its retries is logged and committed so one
// bad event cannot stall the partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.dispatch(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return c.reader.Close()
			}
			c.logger.Error("skipping message after failed processing",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) error {
	return resilience.Retry(ctx, "handle "+c.topic+" message", c.retry, func() error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
