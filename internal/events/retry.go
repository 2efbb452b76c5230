package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   3,
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
}

// FailureMetadata travels with an event parked on the dead letter topic.
type FailureMetadata struct {
	Attempts      int       `json:"attempts"`
	LastFailure   time.Time `json:"last_failure"`
	OriginalTopic string    `json:"original_topic"`
	ErrorMessage  string    `json:"error_message"`
}

type RetryMetrics struct {
	Processed    int64
	Retries      int64
	DeadLettered int64
	Succeeded    int64
	Failed       int64
}

// RetryingHandler retries retryable failures with exponential backoff and
// parks events that still fail on the dead letter topic.
type RetryingHandler struct {
	next      MutationHandler
	retryable func(error) bool
	dlq       sarama.SyncProducer
	policy    RetryPolicy
	logger    *logrus.Logger

	processed, retries, deadLettered, succeeded, failed atomic.Int64
}

func NewRetryingHandler(next MutationHandler, retryable func(error) bool, dlq sarama.SyncProducer, policy RetryPolicy, logger *logrus.Logger) *RetryingHandler {
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	return &RetryingHandler{
		next:      next,
		retryable: retryable,
		dlq:       dlq,
		policy:    policy,
		logger:    logger,
	}
}

// NewDLQProducer connects the producer used to park failed events.
func NewDLQProducer(brokers string) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), newConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer for DLQ: %w", err)
	}
	return producer, nil
}

func (h *RetryingHandler) HandleMutation(ctx context.Context, event MutationEvent) error {
	h.processed.Add(1)

	attempts, err := h.attempt(ctx, event)
	if err == nil {
		h.succeeded.Add(1)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	h.failed.Add(1)
	if h.dlq == nil {
		return err
	}
	if dlqErr := h.sendToDLQ(event, attempts, err); dlqErr != nil {
		h.logger.WithError(dlqErr).Error("Failed to send event to DLQ")
		return err
	}
	h.deadLettered.Add(1)
	return nil
}

func (h *RetryingHandler) attempt(ctx context.Context, event MutationEvent) (int, error) {
	delay := h.policy.InitialDelay
	var err error

	for attempt := 0; attempt <= h.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			h.logger.WithFields(logrus.Fields{
				"mutation_id": event.ID,
				"attempt":     attempt,
				"delay":       delay,
			}).Info("Retrying mutation event")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return attempt, ctx.Err()
			}
			h.retries.Add(1)

			delay *= 2
			if delay > h.policy.MaxDelay {
				delay = h.policy.MaxDelay
			}
		}

		if err = h.next.HandleMutation(ctx, event); err == nil {
			return attempt + 1, nil
		}
		if !h.retryable(err) {
			h.logger.WithError(err).WithField("mutation_id", event.ID).Error("Non-retryable error handling mutation event")
			return attempt + 1, err
		}
		h.logger.WithError(err).WithField("attempt", attempt+1).Warn("Retryable error handling mutation event")
	}
	return h.policy.MaxRetries + 1, fmt.Errorf("exhausted retries for mutation %s: %w", event.ID, err)
}

func (h *RetryingHandler) sendToDLQ(event MutationEvent, attempts int, cause error) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	metadata, err := json.Marshal(FailureMetadata{
		Attempts:      attempts,
		LastFailure:   time.Now().UTC(),
		OriginalTopic: MutationTopic,
		ErrorMessage:  cause.Error(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	partition, offset, err := h.dlq.SendMessage(&sarama.ProducerMessage{
		Topic: MutationDLQTopic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("metadata"), Value: metadata},
			{Key: []byte("original_topic"), Value: []byte(MutationTopic)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send to DLQ: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"dlq_topic":     MutationDLQTopic,
		"dlq_partition": partition,
		"dlq_offset":    offset,
		"mutation_id":   event.ID,
		"error":         cause.Error(),
	}).Warn("Mutation event sent to dead letter queue")
	return nil
}

func (h *RetryingHandler) Metrics() RetryMetrics {
	return RetryMetrics{
		Processed:    h.processed.Load(),
		Retries:      h.retries.Load(),
		DeadLettered: h.deadLettered.Load(),
		Succeeded:    h.succeeded.Load(),
		Failed:       h.failed.Load(),
	}
}
