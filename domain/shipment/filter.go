package shipment

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Filter selects orders by department and inclusive order-date range.
// An empty Department, or one equal to AllLabel, selects every department.
// Zero From/To leave that side of the range open.
type Filter struct {
	Department string
	AllLabel   string
	From       time.Time
	To         time.Time
}

func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && daysBetween(f.From, f.To) < 0 {
		return ErrInvalidRange
	}
	return nil
}

// ParseBound parses a range bound with the tolerance used for order dates.
// A blank bound is open and returns the zero time.
func ParseBound(s string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, ok := parseDate(s, loc)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// DefaultWindow is the dashboard's initial range: yesterday through today.
func DefaultWindow(now time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.Local
	}
	to = dateOnly(now, loc)
	return to.AddDate(0, 0, -1), to
}

func (f Filter) allDepartments() bool {
	return f.Department == "" || (f.AllLabel != "" && f.Department == f.AllLabel)
}

// Match compares calendar dates only, so From and To should already be in
// the zone the orders were normalized in.
func (f Filter) Match(o Order) bool {
	if !f.allDepartments() && o.Department != f.Department {
		return false
	}
	if !f.From.IsZero() && daysBetween(f.From, o.OrderTime) < 0 {
		return false
	}
	if !f.To.IsZero() && daysBetween(o.OrderTime, f.To) < 0 {
		return false
	}
	return true
}

func (f Filter) Apply(orders []Order) ([]Order, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return lo.Filter(orders, func(o Order, _ int) bool { return f.Match(o) }), nil
}

// Departments returns the distinct named departments, sorted. Orders that
// fell back to defaultLabel are left out of the picker.
func Departments(orders []Order, defaultLabel string) []string {
	names := lo.Uniq(lo.Map(orders, func(o Order, _ int) string { return o.Department }))
	names = lo.Without(names, defaultLabel)
	slices.Sort(names)
	return names
}
