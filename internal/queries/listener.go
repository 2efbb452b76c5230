package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Mutation describes a write that reached the backend successfully.
type Mutation struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ResourceID string    `json:"resource_id,omitempty"`
	Families   []string  `json:"families"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

type Listener interface {
	OnMutation(ctx context.Context, m Mutation)
}

type ListenerFunc func(ctx context.Context, m Mutation)

func (f ListenerFunc) OnMutation(ctx context.Context, m Mutation) { f(ctx, m) }

func (s *Service) newMutation(ctx context.Context, action, resourceID string, families []string) Mutation {
	return Mutation{
		ID:         uuid.New().String(),
		Action:     action,
		ResourceID: resourceID,
		Families:   families,
		Actor:      ActorFrom(ctx),
		At:         s.now().UTC(),
	}
}
