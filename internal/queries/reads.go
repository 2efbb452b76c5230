package queries

import (
	"context"

	"github.com/lectio/admin-console/internal/api"
	"github.com/lectio/admin-console/internal/cache"
	"github.com/lectio/admin-console/pkg/models"
)

func (s *Service) CurrentUser(ctx context.Context) (models.User, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyCurrentUser), s.api.Auth.Me)
}

func (s *Service) Users(ctx context.Context, skip, limit int) ([]models.User, error) {
	page := api.NormalizePage(skip, limit)
	key := cache.NewKey(FamilyUsers, page.Skip, page.Limit)
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), key, func(ctx context.Context) ([]models.User, error) {
		return s.api.Users.All(ctx, page)
	})
}

func (s *Service) Students(ctx context.Context, skip, limit int) ([]models.User, error) {
	page := api.NormalizePage(skip, limit)
	key := cache.NewKey(FamilyStudents, page.Skip, page.Limit)
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), key, func(ctx context.Context) ([]models.User, error) {
		return s.api.Users.Students(ctx, page)
	})
}

func (s *Service) User(ctx context.Context, id string) (models.User, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyUser, id), func(ctx context.Context) (models.User, error) {
		return s.api.Users.Get(ctx, id)
	})
}

// Materials returns a page of materials with file names turned into
// loadable URLs.
func (s *Service) Materials(ctx context.Context, skip, limit int) ([]models.Material, error) {
	page := api.NormalizePage(skip, limit)
	key := cache.NewKey(FamilyMaterials, page.Limit, page.Skip)
	materials, err := cache.Fetch(ctx, s.cache, ScopeFrom(ctx), key, func(ctx context.Context) ([]models.Material, error) {
		return s.api.Materials.List(ctx, page)
	})
	if err != nil {
		return nil, err
	}
	for i := range materials {
		materials[i] = s.withAssetURLs(materials[i])
	}
	return materials, nil
}

func (s *Service) Material(ctx context.Context, id string) (models.Material, error) {
	m, err := cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyMaterial, id), func(ctx context.Context) (models.Material, error) {
		return s.api.Materials.Get(ctx, id)
	})
	if err != nil {
		return m, err
	}
	return s.withAssetURLs(m), nil
}

func (s *Service) withAssetURLs(m models.Material) models.Material {
	images := make([]string, 0, len(m.ImageURLs))
	for _, file := range m.ImageURLs {
		images = append(images, s.assetURL("image", file))
	}
	if len(images) == 0 {
		images = append(images, PlaceholderImage)
	}
	m.ImageURLs = images
	if m.PDFURL != "" {
		m.PDFURL = s.assetURL("file", m.PDFURL)
	}
	return m
}

func (s *Service) AdminOrders(ctx context.Context) ([]models.Order, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyOrders), s.api.Orders.AdminOrders)
}

func (s *Service) StudentOrders(ctx context.Context, studentID string) ([]models.Order, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyOrders, studentID), func(ctx context.Context) ([]models.Order, error) {
		return s.api.Orders.StudentOrders(ctx, studentID)
	})
}

func (s *Service) Appointments(ctx context.Context, skip, limit int) ([]models.Appointment, error) {
	page := api.NormalizePage(skip, limit)
	key := cache.NewKey(FamilyAppointments, page.Skip, page.Limit)
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), key, func(ctx context.Context) ([]models.Appointment, error) {
		return s.api.Appointments.List(ctx, page)
	})
}

func (s *Service) Appointment(ctx context.Context, id string) (models.Appointment, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyAppointment, id), func(ctx context.Context) (models.Appointment, error) {
		return s.api.Appointments.Get(ctx, id)
	})
}

// AppointmentsWithUsers returns a page of appointments with their student
// and admin references resolved. It fails if any lookup fails.
func (s *Service) AppointmentsWithUsers(ctx context.Context, skip, limit int) ([]models.EnrichedAppointment, error) {
	page := api.NormalizePage(skip, limit)
	key := cache.NewKey(FamilyAppointments, "enriched", page.Skip, page.Limit)
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), key, func(ctx context.Context) ([]models.EnrichedAppointment, error) {
		appointments, err := s.api.Appointments.List(ctx, page)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, 2*len(appointments))
		for _, a := range appointments {
			ids = append(ids, a.Student.ID, a.Admin.ID)
		}
		users, err := s.Resolver().ResolveMany(ctx, ids)
		if err != nil {
			return nil, err
		}

		out := make([]models.EnrichedAppointment, 0, len(appointments))
		for _, a := range appointments {
			out = append(out, models.EnrichedAppointment{
				ID:          a.ID,
				Order:       a.Order,
				Student:     users[a.Student.ID],
				Admin:       users[a.Admin.ID],
				ScheduledAt: a.ScheduledAt,
				Location:    a.Location,
				CreatedAt:   a.CreatedAt,
			})
		}
		return out, nil
	})
}

func (s *Service) Notifications(ctx context.Context) ([]models.Notification, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyNotifications), func(ctx context.Context) ([]models.Notification, error) {
		payloads, err := s.api.Notifications.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Notification, 0, len(payloads))
		for _, p := range payloads {
			out = append(out, p.Normalize())
		}
		return out, nil
	})
}

func (s *Service) Analytics(ctx context.Context) (models.DashboardAnalytics, error) {
	return cache.Fetch(ctx, s.cache, ScopeFrom(ctx), cache.NewKey(FamilyAnalytics), s.api.Analytics.Dashboard)
}
