package queries

import (
	"context"
	"time"

	"github.com/lectio/admin-console/internal/cache"
	"github.com/lectio/admin-console/internal/metrics"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	// Enriched appointments embed user records, and every session's
	// currentUser may be the target.
	userFamilies = []string{FamilyUsers, FamilyStudents, FamilyUser, FamilyCurrentUser, FamilyAppointments}
	// Revoking access drops every cached read: the target's sessions
	// must go back to the backend, which now refuses them.
	revokeFamilies = []string{
		FamilyCurrentUser, FamilyUsers, FamilyStudents, FamilyUser,
		FamilyMaterials, FamilyMaterial, FamilyOrders, FamilyAppointments,
		FamilyAppointment, FamilyNotifications, FamilyAnalytics,
	}
	materialFamilies    = []string{FamilyMaterials, FamilyMaterial, FamilyAnalytics}
	orderFamilies       = []string{FamilyOrders, FamilyAnalytics}
	appointmentFamilies = []string{FamilyAppointments, FamilyAppointment, FamilyAnalytics}
)

// Login authenticates and returns the session token. The caller binds the
// token to later requests with WithSession.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	resp, err := s.api.Auth.Login(ctx, req)
	metrics.Mutation("login", err)
	if err != nil {
		return resp, err
	}
	if resp.AccessToken != "" {
		if _, err := s.cache.Invalidate(ctx, SessionScope(resp.AccessToken), FamilyCurrentUser); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate current user after login")
		}
	}
	return resp, nil
}

// Logout ends the backend session and drops everything cached for it.
func (s *Service) Logout(ctx context.Context) error {
	err := s.api.Auth.Logout(ctx)
	metrics.Mutation("logout", err)
	if err != nil {
		return err
	}
	if _, err := s.cache.PurgeScope(ctx, ScopeFrom(ctx)); err != nil {
		s.logger.WithError(err).Warn("Failed to purge session cache")
	}
	return nil
}

// Refresh marks the signed-in user as stale for the scope in ctx.
func (s *Service) Refresh(ctx context.Context) {
	if _, err := s.cache.Invalidate(ctx, ScopeFrom(ctx), FamilyCurrentUser); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate current user")
	}
}

func (s *Service) AddAdmin(ctx context.Context, userID, placement string) error {
	return s.mutate(ctx, "add_admin", userID, userFamilies, func(ctx context.Context) error {
		return s.api.Users.AddAdmin(ctx, userID, placement)
	})
}

func (s *Service) RemoveAdmin(ctx context.Context, userID string) error {
	return s.mutate(ctx, "remove_admin", userID, revokeFamilies, func(ctx context.Context) error {
		return s.api.Users.RemoveAdmin(ctx, userID)
	})
}

func (s *Service) BlockUser(ctx context.Context, userID string) error {
	return s.mutate(ctx, "block_user", userID, revokeFamilies, func(ctx context.Context) error {
		return s.api.Users.Block(ctx, userID)
	})
}

func (s *Service) UnblockUser(ctx context.Context, userID string) error {
	return s.mutate(ctx, "unblock_user", userID, userFamilies, func(ctx context.Context) error {
		return s.api.Users.Unblock(ctx, userID)
	})
}

func (s *Service) CreateMaterial(ctx context.Context, in models.CreateMaterial) error {
	return s.mutate(ctx, "create_material", "", materialFamilies, func(ctx context.Context) error {
		return s.api.Materials.Create(ctx, in)
	})
}

func (s *Service) EditMaterial(ctx context.Context, in models.EditMaterial) error {
	return s.mutate(ctx, "edit_material", in.ID, materialFamilies, func(ctx context.Context) error {
		return s.api.Materials.Edit(ctx, in)
	})
}

func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_material", id, materialFamilies, func(ctx context.Context) error {
		return s.api.Materials.Delete(ctx, id)
	})
}

// TransitionOrder applies an admin action to an order. The order's status
// is only known to have changed once it is read again.
func (s *Service) TransitionOrder(ctx context.Context, orderID string, action models.OrderAction) error {
	return s.mutate(ctx, "order_"+string(action), orderID, orderFamilies, func(ctx context.Context) error {
		return s.api.Orders.Apply(ctx, orderID, action)
	})
}

func (s *Service) MarkOrderReady(ctx context.Context, orderID string, appointment *time.Time) error {
	return s.mutate(ctx, "order_"+string(models.ActionPrint), orderID, orderFamilies, func(ctx context.Context) error {
		return s.api.Orders.MarkReady(ctx, orderID, appointment)
	})
}

func (s *Service) CreateAppointment(ctx context.Context, in models.CreateAppointment) error {
	return s.mutate(ctx, "create_appointment", in.OrderID, appointmentFamilies, func(ctx context.Context) error {
		return s.api.Appointments.Create(ctx, in)
	})
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_appointment", id, appointmentFamilies, func(ctx context.Context) error {
		return s.api.Appointments.Delete(ctx, id)
	})
}

// mutate runs call once. On success the affected families are invalidated
// for every session, since the backend state they mirror is shared, and
// listeners are notified.
func (s *Service) mutate(ctx context.Context, action, resourceID string, families []string, call func(context.Context) error) error {
	err := call(ctx)
	metrics.Mutation(action, err)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"resource_id": resourceID,
		}).Error("Mutation failed")
		return err
	}

	if _, err := s.cache.Invalidate(ctx, cache.AllScopes, families...); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("Failed to invalidate cache after mutation")
	}

	m := s.newMutation(ctx, action, resourceID, families)
	s.logger.WithFields(logrus.Fields{
		"mutation_id": m.ID,
		"action":      action,
		"resource_id": resourceID,
	}).Info("Mutation applied")

	for _, l := range s.listeners {
		l.OnMutation(ctx, m)
	}
	return nil
}

// ApplyRemote invalidates the families named by a mutation that happened
// elsewhere, such as on another console instance.
func (s *Service) ApplyRemote(ctx context.Context, m Mutation) error {
	_, err := s.cache.Invalidate(ctx, cache.AllScopes, m.Families...)
	return err
}
