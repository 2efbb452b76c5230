package fakebackend

import (
	"math"
	"net/http"

	"github.com/lectio/admin-console/pkg/models"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.mu.RLock()
	out := make([]models.NotificationPayload, 0, len(s.notifications))
	for _, n := range s.notifications {
		if user.IsAdmin() || n.UserID.ID == user.ID {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()
	respondWithJSON(w, http.StatusOK, out)
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count) / float64(total) * 100)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request, _ *models.User) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	out := models.DashboardAnalytics{
		TotalUsers:              len(s.accounts),
		TotalAvailableMaterials: len(s.materials),
		OrderStatusPercentages:  []models.OrderStatusPercentage{},
		MaterialTypePercentages: []models.MaterialTypePercentage{},
		MonthlyOrders:           []models.MonthlyOrder{},
		MonthlyRevenue:          []models.MonthlyRevenue{},
	}

	for _, a := range s.appointments {
		y1, m1, d1 := a.ScheduledAt.UTC().Date()
		y2, m2, d2 := now.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			out.TotalTodayAppointments++
		}
	}

	orders := s.ordersLocked(func(*models.Order) bool { return true })
	statusCounts := make(map[models.OrderStatus]int)
	monthCounts := make(map[string]int)
	monthRevenue := make(map[string]float64)
	var months []string
	for _, o := range orders {
		statusCounts[o.Status]++
		if o.Status == models.OrderPending {
			out.TotalPendingOrders++
		}
		if o.CreatedAt.Year() == now.Year() {
			month := o.CreatedAt.Format("Jan")
			if _, seen := monthCounts[month]; !seen {
				months = append(months, month)
			}
			monthCounts[month]++
			monthRevenue[month] += o.Total()
		}
	}
	for _, status := range models.OrderStatuses {
		if n := statusCounts[status]; n > 0 {
			out.OrderStatusPercentages = append(out.OrderStatusPercentages, models.OrderStatusPercentage{
				Status: string(status), Percentage: percent(n, len(orders)),
			})
		}
	}
	for _, month := range months {
		out.MonthlyOrders = append(out.MonthlyOrders, models.MonthlyOrder{Month: month, Count: monthCounts[month]})
		out.MonthlyRevenue = append(out.MonthlyRevenue, models.MonthlyRevenue{Month: month, Revenue: monthRevenue[month]})
	}

	typeCounts := make(map[string]int)
	charted := 0
	for _, m := range s.materials {
		if m.MaterialType == models.MaterialPolycopie || m.MaterialType == models.MaterialBook {
			typeCounts[m.MaterialType]++
			charted++
		}
	}
	for _, t := range []string{models.MaterialBook, models.MaterialPolycopie} {
		if n := typeCounts[t]; n > 0 {
			out.MaterialTypePercentages = append(out.MaterialTypePercentages, models.MaterialTypePercentage{
				MaterialType: t, Percentage: percent(n, charted),
			})
		}
	}

	respondWithJSON(w, http.StatusOK, out)
}
