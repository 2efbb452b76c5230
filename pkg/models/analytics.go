package models

type DashboardAnalytics struct {
	TotalUsers              int                      `json:"total_users"`
	TotalAvailableMaterials int                      `json:"total_available_materials"`
	TotalPendingOrders      int                      `json:"total_pending_orders"`
	TotalTodayAppointments  int                      `json:"total_today_appointments"`
	OrderStatusPercentages  []OrderStatusPercentage  `json:"order_status_percentages"`
	MaterialTypePercentages []MaterialTypePercentage `json:"material_type_percentages"`
	MonthlyOrders           []MonthlyOrder           `json:"monthly_orders"`
	MonthlyRevenue          []MonthlyRevenue         `json:"monthly_revenue"`
}

type OrderStatusPercentage struct {
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
}

type MaterialTypePercentage struct {
	MaterialType string  `json:"material_type"`
	Percentage   float64 `json:"percentage"`
}

type MonthlyOrder struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}
