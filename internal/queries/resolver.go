package queries

import (
	"context"
	"sync"

	"github.com/lectio/admin-console/pkg/models"
	"golang.org/x/sync/errgroup"
)

// UserResolver looks up many users at once through the per-user cache.
type UserResolver struct {
	service *Service
	workers int
}

func (s *Service) Resolver() *UserResolver {
	return &UserResolver{service: s, workers: s.workers}
}

// ResolveMany returns the users behind ids keyed by id. Empty and repeated
// ids are looked up once; lookups run in parallel up to the worker limit.
// The first failed lookup cancels the rest and fails the whole call.
func (r *UserResolver) ResolveMany(ctx context.Context, ids []string) (map[string]models.User, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var mu sync.Mutex
	users := make(map[string]models.User, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, id := range unique {
		g.Go(func() error {
			user, err := r.service.User(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			users[id] = user
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.service.logger.WithError(err).WithField("ids", len(unique)).Error("Failed to resolve users")
		return nil, err
	}
	return users, nil
}
