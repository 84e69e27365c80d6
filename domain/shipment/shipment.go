package shipment

import "time"

// Canonical field names. Source spreadsheets are reconciled onto these
// regardless of their actual header text.
const (
	FieldDepartment     = "project_department"
	FieldSegment        = "segment_name"
	FieldMaterial       = "material_name"
	FieldSpecification  = "specification"
	FieldSupplier       = "supplier"
	FieldOrderTime      = "order_time"
	FieldPlannedArrival = "planned_arrival_time"
	FieldDemand         = "demand_quantity"
	FieldShipped        = "shipped_quantity"

	FieldRemaining   = "remaining_quantity"
	FieldOverdueDays = "overdue_days"
)

// CanonicalFields lists the reconciled input fields in reconciliation order.
var CanonicalFields = []string{
	FieldDepartment,
	FieldSegment,
	FieldMaterial,
	FieldSpecification,
	FieldSupplier,
	FieldOrderTime,
	FieldPlannedArrival,
	FieldDemand,
	FieldShipped,
}

// Table is a raw tabular dataset as handed over by a source collaborator.
// Rows hold cells in header order; short rows are padded with blanks on read.
type Table struct {
	// Source is the location the table was read from.
	Source string
	// Candidates are the locations probed by the collaborator, in order.
	Candidates []string
	Headers    []string
	Rows       [][]string
}

// Order is one normalized shipment order. Orders are produced once per load
// and never mutated; arrival status lives in an Overlay.
type Order struct {
	Row            int        `json:"row"` // 1-based data row in the source, header excluded
	Department     string     `json:"project_department"`
	Segment        string     `json:"segment_name"`
	Material       string     `json:"material_name"`
	Specification  string     `json:"specification"`
	Supplier       string     `json:"supplier"`
	OrderTime      time.Time  `json:"order_time"`
	PlannedArrival *time.Time `json:"planned_arrival_time,omitempty"`
	Demand         int64      `json:"demand_quantity"`
	Shipped        int64      `json:"shipped_quantity"`
	Remaining      int64      `json:"remaining_quantity"`
	OverdueDays    int64      `json:"overdue_days"`
}

// Overdue reports whether the order is past its planned arrival date.
func (o Order) Overdue() bool { return o.OverdueDays > 0 }

// TrackedOrder is an Order joined with its overlay status.
type TrackedOrder struct {
	Order
	Fingerprint     string     `json:"fingerprint"`
	Status          Status     `json:"status"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty"`
	IsOverdue       bool       `json:"overdue"`
}
