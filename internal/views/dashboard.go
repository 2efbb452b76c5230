package views

import "github.com/lectio/admin-console/pkg/models"

const recentOrderCount = 3

type Dashboard struct {
	Analytics    models.DashboardAnalytics `json:"analytics"`
	RecentOrders []OrderRow                `json:"recent_orders"`
	StatusCounts []StatusCount             `json:"status_counts"`
}

func BuildDashboard(analytics models.DashboardAnalytics, orders []models.Order) Dashboard {
	recent := RecentOrders(orders, recentOrderCount)
	rows := make([]OrderRow, 0, len(recent))
	for _, o := range recent {
		actions := models.AllowedActions(o.Status)
		if actions == nil {
			actions = []models.OrderAction{}
		}
		rows = append(rows, OrderRow{Order: o, Total: o.Total(), ItemCount: o.ItemCount(), Actions: actions})
	}
	return Dashboard{
		Analytics:    analytics,
		RecentOrders: rows,
		StatusCounts: CountByStatus(orders),
	}
}
