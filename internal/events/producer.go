// Package events carries mutation notices between console instances and to
// the audit monitor over Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/sirupsen/logrus"
)

const (
	MutationTopic    = "lectio.admin.mutations"
	MutationDLQTopic = "lectio.admin.mutations.dlq"
)

// MutationEvent is the wire form of a mutation applied by one console.
type MutationEvent struct {
	queries.Mutation
	Source    string    `json:"source"`
	EventTime time.Time `json:"event_time"`
}

func newConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Version = sarama.V2_6_0_0
	return config
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	source   string
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers, source string, logger *logrus.Logger) (*KafkaProducer, error) {
	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), newConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewProducer(producer, source, logger), nil
}

// NewProducer wraps an existing sarama producer.
func NewProducer(producer sarama.SyncProducer, source string, logger *logrus.Logger) *KafkaProducer {
	return &KafkaProducer{producer: producer, source: source, logger: logger}
}

func (p *KafkaProducer) PublishMutation(m queries.Mutation) error {
	event := MutationEvent{Mutation: m, Source: p.source, EventTime: time.Now().UTC()}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal mutation event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: MutationTopic,
		Key:   sarama.StringEncoder(m.Action),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to send mutation event to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":       MutationTopic,
		"partition":   partition,
		"offset":      offset,
		"mutation_id": m.ID,
		"action":      m.Action,
	}).Info("Mutation event published")

	return nil
}

// OnMutation publishes local mutations. Publishing failures are logged;
// the mutation itself already succeeded.
func (p *KafkaProducer) OnMutation(_ context.Context, m queries.Mutation) {
	_ = p.PublishMutation(m)
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
