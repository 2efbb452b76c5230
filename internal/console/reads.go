package console

import (
	"net/http"

	"github.com/lectio/admin-console/internal/views"
	"github.com/lectio/admin-console/pkg/models"
	"golang.org/x/sync/errgroup"
)

// dashboard loads analytics and orders side by side; either failing fails
// the view.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	var (
		analytics models.DashboardAnalytics
		orders    []models.Order
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		analytics, err = s.service.Analytics(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.service.AdminOrders(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err, "dashboard")
		return
	}
	respondWithView(w, views.BuildDashboard(analytics, orders))
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.service.Analytics(r.Context())
	if err != nil {
		s.fail(w, r, err, "analytics")
		return
	}
	respondWithView(w, analytics)
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.service.Notifications(r.Context())
	if err != nil {
		s.fail(w, r, err, "notifications")
		return
	}
	respondWithView(w, notifications)
}
