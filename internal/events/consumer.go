package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type MutationHandler interface {
	HandleMutation(ctx context.Context, event MutationEvent) error
}

type MutationHandlerFunc func(ctx context.Context, event MutationEvent) error

func (f MutationHandlerFunc) HandleMutation(ctx context.Context, event MutationEvent) error {
	return f(ctx, event)
}

type ConsumerConfig struct {
	Brokers string
	GroupID string
	Topics  []string
	// FromOldest replays retained events instead of starting at the end.
	FromOldest bool
	// SkipSource drops events published by this source.
	SkipSource string
}

type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *consumerGroupHandler
	logger        *logrus.Logger
	topics        []string
}

type consumerGroupHandler struct {
	handler    MutationHandler
	skipSource string
	logger     *logrus.Logger
}

func NewKafkaConsumer(cfg ConsumerConfig, handler MutationHandler, logger *logrus.Logger) (*KafkaConsumer, error) {
	config := newConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	if cfg.FromOldest {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	consumerGroup, err := sarama.NewConsumerGroup(splitBrokers(cfg.Brokers), cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	topics := cfg.Topics
	if len(topics) == 0 {
		topics = []string{MutationTopic}
	}

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		handler:       &consumerGroupHandler{handler: handler, skipSource: cfg.SkipSource, logger: logger},
		logger:        logger,
		topics:        topics,
	}, nil
}

// Start consumes until ctx is cancelled or the group fails.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Kafka consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
				c.logger.WithError(err).Error("Error consuming from Kafka")
				return err
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.consumerGroup.Close()
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.handleMessage(session.Context(), message); err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("Failed to handle mutation event")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event MutationEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// Undecodable events can never succeed; drop them.
		h.logger.WithError(err).WithField("offset", message.Offset).Warn("Skipping malformed mutation event")
		return nil
	}

	if h.skipSource != "" && event.Source == h.skipSource {
		return nil
	}

	h.logger.WithFields(logrus.Fields{
		"mutation_id": event.ID,
		"action":      event.Action,
		"source":      event.Source,
	}).Debug("Processing mutation event")

	return h.handler.HandleMutation(ctx, event)
}
