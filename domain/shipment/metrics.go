package shipment

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// Summary is the metric-card reduction of an order set.
type Summary struct {
	TotalDemand    int64 `json:"total_demand"`
	TotalShipped   int64 `json:"total_shipped"`
	TotalRemaining int64 `json:"total_remaining"`
	OverdueCount   int   `json:"overdue_count"`
	MaxOverdueDays int64 `json:"max_overdue_days"`
}

// DepartmentSummary is a Summary scoped to one project department.
type DepartmentSummary struct {
	Department string `json:"project_department"`
	Orders     int    `json:"orders"`
	Summary
}

// Summarize reduces orders to summary metrics. The empty set yields zeros.
func Summarize(orders []Order) Summary {
	overdue := lo.Filter(orders, func(o Order, _ int) bool { return o.Overdue() })
	s := Summary{
		TotalDemand:    lo.SumBy(orders, func(o Order) int64 { return o.Demand }),
		TotalShipped:   lo.SumBy(orders, func(o Order) int64 { return o.Shipped }),
		TotalRemaining: lo.SumBy(orders, func(o Order) int64 { return o.Remaining }),
		OverdueCount:   len(overdue),
	}
	if len(overdue) > 0 {
		s.MaxOverdueDays = lo.MaxBy(overdue, func(a, b Order) bool { return a.OverdueDays > b.OverdueDays }).OverdueDays
	}
	return s
}

// SummarizeByDepartment summarizes each department separately, sorted by name.
func SummarizeByDepartment(orders []Order) []DepartmentSummary {
	groups := lo.GroupBy(orders, func(o Order) string { return o.Department })
	out := make([]DepartmentSummary, 0, len(groups))
	for dept, group := range groups {
		out = append(out, DepartmentSummary{Department: dept, Orders: len(group), Summary: Summarize(group)})
	}
	slices.SortFunc(out, func(a, b DepartmentSummary) int { return cmp.Compare(a.Department, b.Department) })
	return out
}
