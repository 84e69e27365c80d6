package shipment

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// Diagnostics collects non-fatal findings of one normalization run. They
// never change the returned orders beyond the documented corrections.
type Diagnostics struct {
	InputRows        int               `json:"input_rows"`
	Retained         int               `json:"retained"`
	DroppedOrderTime int               `json:"dropped_order_time"`
	DroppedSegment   int               `json:"dropped_segment"`
	NegativeQuantity int               `json:"negative_quantity"`
	InvalidArrival   int               `json:"invalid_arrival"`
	Renamed          map[string]string `json:"renamed,omitempty"`
}

type WarningKind string

const (
	WarningNegativeQuantity WarningKind = "negative_quantity_clamped"
	WarningInvalidArrival   WarningKind = "invalid_planned_arrival"
	WarningInvalidOrderTime WarningKind = "invalid_order_time_dropped"
	WarningMissingSegment   WarningKind = "missing_segment_dropped"
)

// RowCoercionWarning is an aggregated, recoverable per-row anomaly.
type RowCoercionWarning struct {
	Kind WarningKind `json:"kind"`
	Rows int         `json:"rows"`
}

// Warnings lists the non-zero anomaly counters.
func (d Diagnostics) Warnings() []RowCoercionWarning {
	all := []RowCoercionWarning{
		{Kind: WarningInvalidOrderTime, Rows: d.DroppedOrderTime},
		{Kind: WarningMissingSegment, Rows: d.DroppedSegment},
		{Kind: WarningNegativeQuantity, Rows: d.NegativeQuantity},
		{Kind: WarningInvalidArrival, Rows: d.InvalidArrival},
	}
	return lo.Filter(all, func(w RowCoercionWarning, _ int) bool { return w.Rows > 0 })
}

// Normalizer turns raw tables into Orders. It holds no state between calls.
type Normalizer struct {
	cfg Config
	now func() time.Time
}

func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of n that reads the current time from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	c := *n
	c.now = now
	return &c
}

// Normalize runs a Normalizer built from cfg against t.
func Normalize(t *Table, cfg Config) ([]Order, Diagnostics, error) {
	return NewNormalizer(cfg).Normalize(t)
}

// Normalize reconciles the headers of t, validates required fields and
// coerces every row. A SchemaError or SourceUnavailableError aborts the run
// and no orders are returned.
func (n *Normalizer) Normalize(t *Table) ([]Order, Diagnostics, error) {
	var diag Diagnostics
	if t == nil {
		return nil, diag, &SourceUnavailableError{Err: errors.New("no table")}
	}
	if len(t.Headers) == 0 {
		return nil, diag, &SourceUnavailableError{
			Source:     t.Source,
			Candidates: t.Candidates,
			Err:        errors.New("table has no header row"),
		}
	}

	cols, renamed := n.reconcile(t.Headers)
	diag.Renamed = renamed
	missing := lo.Filter(n.cfg.Required, func(f string, _ int) bool {
		_, ok := cols[f]
		return !ok
	})
	if len(missing) > 0 {
		return nil, diag, &SchemaError{Missing: missing, Headers: t.Headers}
	}

	loc := n.cfg.location()
	today := dateOnly(n.now(), loc)
	orders := make([]Order, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		diag.InputRows++
		o, ok := n.normalizeRow(row, cols, today, &diag)
		if !ok {
			continue
		}
		o.Row = i + 1
		orders = append(orders, o)
	}
	diag.Retained = len(orders)
	return orders, diag, nil
}

// reconcile maps canonical fields to column indexes. A verbatim canonical
// header wins; otherwise the first named alias found, in priority order, is
// used, and column letter aliases only fill fields still unmatched.
// A column is claimed by at most one field.
func (n *Normalizer) reconcile(headers []string) (map[string]int, map[string]string) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, seen := index[h]; h != "" && !seen {
			index[h] = i
		}
	}

	cols := make(map[string]int)
	claimed := make(map[int]bool)
	for _, field := range CanonicalFields {
		if i, ok := index[field]; ok {
			cols[field] = i
			claimed[i] = true
		}
	}

	// Named aliases are resolved for every field before any positional
	// alias may claim a column.
	renamed := make(map[string]string)
	for _, positional := range []bool{false, true} {
		for _, field := range CanonicalFields {
			if _, ok := cols[field]; ok {
				continue
			}
			for _, alias := range n.cfg.Aliases[field] {
				if strings.HasPrefix(alias, ColumnRefPrefix) != positional {
					continue
				}
				i, ok := lookupAlias(alias, index, len(headers))
				if !ok || claimed[i] {
					continue
				}
				cols[field] = i
				claimed[i] = true
				from := strings.TrimSpace(headers[i])
				if from == "" || positional {
					from = alias
				}
				renamed[from] = field
				break
			}
		}
	}
	return cols, renamed
}

func lookupAlias(alias string, index map[string]int, width int) (int, bool) {
	if ref, ok := strings.CutPrefix(alias, ColumnRefPrefix); ok {
		col, err := excelize.ColumnNameToNumber(strings.TrimSpace(ref))
		if err != nil || col > width {
			return 0, false
		}
		return col - 1, true
	}
	i, ok := index[strings.TrimSpace(alias)]
	return i, ok
}

func (n *Normalizer) normalizeRow(row []string, cols map[string]int, today time.Time, diag *Diagnostics) (Order, bool) {
	get := func(field string) (string, bool) {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return "", ok
		}
		return row[i], true
	}
	label := func(field string) string {
		raw, _ := get(field)
		if v, ok := cleanText(raw); ok {
			return v
		}
		return n.cfg.defaultFor(field)
	}
	loc := n.cfg.location()

	rawOrderTime, _ := get(FieldOrderTime)
	orderTime, ok := parseDate(rawOrderTime, loc)
	if !ok {
		diag.DroppedOrderTime++
		return Order{}, false
	}
	rawSegment, _ := get(FieldSegment)
	segment, ok := cleanText(rawSegment)
	if !ok {
		diag.DroppedSegment++
		return Order{}, false
	}

	o := Order{
		Department:    label(FieldDepartment),
		Segment:       segment,
		Material:      label(FieldMaterial),
		Specification: label(FieldSpecification),
		Supplier:      label(FieldSupplier),
		OrderTime:     orderTime,
	}

	rawDemand, _ := get(FieldDemand)
	rawShipped, _ := get(FieldShipped)
	var negDemand, negShipped bool
	o.Demand, negDemand = parseQuantity(rawDemand)
	o.Shipped, negShipped = parseQuantity(rawShipped)
	if negDemand || negShipped {
		diag.NegativeQuantity++
	}

	if raw, present := get(FieldPlannedArrival); present && !isNullLike(raw) {
		if planned, ok := parseDate(raw, loc); ok {
			o.PlannedArrival = &planned
		} else {
			diag.InvalidArrival++
		}
	}

	o.Remaining = max(o.Demand-o.Shipped, 0)
	o.OverdueDays = overdueDays(o.PlannedArrival, today)
	return o, true
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
