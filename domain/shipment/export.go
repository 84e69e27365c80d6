package shipment

import (
	"strconv"
	"time"
)

// RecordFields is the stable serialization order of an Order.
var RecordFields = []string{
	FieldDepartment,
	FieldSegment,
	FieldMaterial,
	FieldSpecification,
	FieldSupplier,
	FieldOrderTime,
	FieldPlannedArrival,
	FieldDemand,
	FieldShipped,
	FieldRemaining,
	FieldOverdueDays,
}

// FieldLabels are the display headers used by the dashboard exports.
var FieldLabels = map[string]string{
	FieldDepartment:     "项目部名称",
	FieldSegment:        "工程标段",
	FieldMaterial:       "材料名称",
	FieldSpecification:  "规格型号",
	FieldSupplier:       "供应商",
	FieldOrderTime:      "下单时间",
	FieldPlannedArrival: "计划进场时间",
	FieldDemand:         "需求(吨)",
	FieldShipped:        "已发(吨)",
	FieldRemaining:      "待发(吨)",
	FieldOverdueDays:    "超期天数",
}

// Values returns the order's fields in RecordFields order. Dates are
// written as YYYY-MM-DD; an absent planned arrival is blank.
func (o Order) Values() []string {
	planned := ""
	if o.PlannedArrival != nil {
		planned = o.PlannedArrival.Format(time.DateOnly)
	}
	return []string{
		o.Department,
		o.Segment,
		o.Material,
		o.Specification,
		o.Supplier,
		o.OrderTime.Format(time.DateOnly),
		planned,
		strconv.FormatInt(o.Demand, 10),
		strconv.FormatInt(o.Shipped, 10),
		strconv.FormatInt(o.Remaining, 10),
		strconv.FormatInt(o.OverdueDays, 10),
	}
}
