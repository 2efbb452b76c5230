package views

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/lectio/admin-console/pkg/models"
)

const (
	SortDateDesc  = "date_desc"
	SortDateAsc   = "date_asc"
	SortStatus    = "status"
	SortTotalDesc = "total_desc"
	SortTotalAsc  = "total_asc"
)

type OrderFilter struct {
	Status models.OrderStatus
	// Query matches the student name or email, a material title or the order id.
	Query string
	From  time.Time
	To    time.Time
	Sort  string
}

func ParseOrderFilter(q url.Values) (OrderFilter, error) {
	f := OrderFilter{Query: strings.TrimSpace(q.Get("q")), Sort: q.Get("sort")}

	if s := q.Get("status"); s != "" && s != "all" {
		f.Status = models.OrderStatus(s)
		if !f.Status.Valid() {
			return OrderFilter{}, fmt.Errorf("unknown status %q", s)
		}
	}
	switch f.Sort {
	case "":
		f.Sort = SortDateDesc
	case SortDateDesc, SortDateAsc, SortStatus, SortTotalDesc, SortTotalAsc:
	default:
		return OrderFilter{}, fmt.Errorf("unknown sort %q", f.Sort)
	}

	var err error
	if f.From, err = parseDate(q.Get("from")); err != nil {
		return OrderFilter{}, fmt.Errorf("from: %w", err)
	}
	if f.To, err = parseDate(q.Get("to")); err != nil {
		return OrderFilter{}, fmt.Errorf("to: %w", err)
	}
	if !f.To.IsZero() && len(q.Get("to")) == len(time.DateOnly) {
		// a bare date includes the whole day
		f.To = f.To.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (f OrderFilter) match(o models.Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.CreatedAt.After(f.To) {
		return false
	}
	if f.Query == "" {
		return true
	}

	q := strings.ToLower(f.Query)
	if strings.Contains(o.ID, f.Query) {
		return true
	}
	if o.Student != nil && (contains(o.Student.FullName, q) || contains(o.Student.Email, q)) {
		return true
	}
	for _, line := range o.Items {
		if contains(line.Material.Title, q) {
			return true
		}
	}
	return false
}

type OrderRow struct {
	Order     models.Order         `json:"order"`
	Total     float64              `json:"total"`
	ItemCount int                  `json:"item_count"`
	Actions   []models.OrderAction `json:"actions"`
}

type StatusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int                `json:"count"`
}

type OrdersView struct {
	Rows    []OrderRow    `json:"rows"`
	Counts  []StatusCount `json:"counts"`
	Revenue float64       `json:"revenue"`
	Total   int           `json:"total"`
}

func BuildOrders(orders []models.Order, f OrderFilter) OrdersView {
	v := OrdersView{Rows: []OrderRow{}}
	for _, o := range orders {
		if !f.match(o) {
			continue
		}
		row := OrderRow{
			Order:     o,
			Total:     o.Total(),
			ItemCount: o.ItemCount(),
			Actions:   models.AllowedActions(o.Status),
		}
		if row.Actions == nil {
			row.Actions = []models.OrderAction{}
		}
		v.Rows = append(v.Rows, row)
		v.Revenue += row.Total
	}

	sortOrderRows(v.Rows, f.Sort)
	v.Counts = CountByStatus(filteredOrders(v.Rows))
	v.Total = len(v.Rows)
	return v
}

func filteredOrders(rows []OrderRow) []models.Order {
	out := make([]models.Order, len(rows))
	for i, r := range rows {
		out[i] = r.Order
	}
	return out
}

// CountByStatus returns one entry per workflow status, zero counts included,
// in workflow order.
func CountByStatus(orders []models.Order) []StatusCount {
	counts := make([]StatusCount, len(models.OrderStatuses))
	for i, s := range models.OrderStatuses {
		counts[i].Status = s
	}
	for _, o := range orders {
		if i := slices.Index(models.OrderStatuses, o.Status); i >= 0 {
			counts[i].Count++
		}
	}
	return counts
}

func sortOrderRows(rows []OrderRow, by string) {
	byDate := func(a, b OrderRow) int { return a.Order.CreatedAt.Compare(b.Order.CreatedAt.Time) }
	var cmpFn func(a, b OrderRow) int
	switch by {
	case SortDateAsc:
		cmpFn = byDate
	case SortStatus:
		cmpFn = func(a, b OrderRow) int {
			return cmp.Or(
				cmp.Compare(slices.Index(models.OrderStatuses, a.Order.Status), slices.Index(models.OrderStatuses, b.Order.Status)),
				-byDate(a, b),
			)
		}
	case SortTotalAsc:
		cmpFn = func(a, b OrderRow) int { return cmp.Compare(a.Total, b.Total) }
	case SortTotalDesc:
		cmpFn = func(a, b OrderRow) int { return cmp.Compare(b.Total, a.Total) }
	default:
		cmpFn = func(a, b OrderRow) int { return -byDate(a, b) }
	}
	slices.SortStableFunc(rows, cmpFn)
}

// RecentOrders returns the n most recently created orders, newest first.
func RecentOrders(orders []models.Order, n int) []models.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b models.Order) int { return b.CreatedAt.Compare(a.CreatedAt.Time) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
