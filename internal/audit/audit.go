// Package audit keeps a journal of the admin mutations applied through the
// console.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lectio/admin-console/internal/events"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/sirupsen/logrus"
)

type Entry struct {
	ID         string    `json:"id"`
	MutationID string    `json:"mutation_id"`
	Action     string    `json:"action"`
	ResourceID string    `json:"resource_id,omitempty"`
	Families   []string  `json:"families"`
	Actor      string    `json:"actor,omitempty"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

func FromMutation(m queries.Mutation, source string) Entry {
	return Entry{
		ID:         uuid.New().String(),
		MutationID: m.ID,
		Action:     m.Action,
		ResourceID: m.ResourceID,
		Families:   m.Families,
		Actor:      m.Actor,
		Source:     source,
		OccurredAt: m.At,
		RecordedAt: time.Now().UTC(),
	}
}

func FromEvent(e events.MutationEvent) Entry {
	return FromMutation(e.Mutation, e.Source)
}

// LogRecorder writes entries to the structured log.
type LogRecorder struct {
	logger *logrus.Logger
}

func NewLogRecorder(logger *logrus.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(_ context.Context, e Entry) error {
	r.logger.WithFields(logrus.Fields{
		"audit_id":    e.ID,
		"mutation_id": e.MutationID,
		"action":      e.Action,
		"resource_id": e.ResourceID,
		"actor":       e.Actor,
		"source":      e.Source,
		"occurred_at": e.OccurredAt,
	}).Info("Admin mutation")
	return nil
}

// Listener records the mutations of the local console.
type Listener struct {
	recorder Recorder
	source   string
	logger   *logrus.Logger
}

func NewListener(recorder Recorder, source string, logger *logrus.Logger) *Listener {
	return &Listener{recorder: recorder, source: source, logger: logger}
}

func (l *Listener) OnMutation(ctx context.Context, m queries.Mutation) {
	if err := l.recorder.Record(ctx, FromMutation(m, l.source)); err != nil {
		l.logger.WithError(err).WithField("mutation_id", m.ID).Error("Failed to record mutation")
	}
}

// Handler records mutation events consumed from Kafka.
func Handler(recorder Recorder) events.MutationHandler {
	return events.MutationHandlerFunc(func(ctx context.Context, e events.MutationEvent) error {
		return recorder.Record(ctx, FromEvent(e))
	})
}
