package shipment

import "time"

// Default labels substituted for blank categorical cells so that the
// "unspecified" group stays selectable and countable.
const (
	DefaultDepartmentLabel    = "unspecified project"
	DefaultMaterialLabel      = "unspecified material"
	DefaultSpecificationLabel = "unspecified specification"
	DefaultSupplierLabel      = "unspecified supplier"
)

// ColumnRefPrefix marks a positional alias: "column:R" resolves to the
// eighteenth column whatever its header text.
const ColumnRefPrefix = "column:"

// Config drives the Normalizer. Aliases maps a canonical field to the header
// names accepted for it, in priority order. Required lists the canonical
// fields a table must provide after alias resolution.
type Config struct {
	Aliases  map[string][]string
	Required []string
	Defaults map[string]string
	Location *time.Location
}

// DefaultConfig returns the header vocabulary seen in the shipment plan
// workbooks.
func DefaultConfig() Config {
	return Config{
		Aliases: map[string][]string{
			FieldDepartment:     {"项目部名称", "项目部", ColumnRefPrefix + "R"},
			FieldSegment:        {"标段名称", "项目标段", "工程名称", "标段"},
			FieldMaterial:       {"物资名称", "材料名称"},
			FieldSpecification:  {"规格型号", "规格"},
			FieldSupplier:       {"供应商", "钢厂", "发货单位"},
			FieldOrderTime:      {"下单时间", "创建时间", "日期", "录入时间"},
			FieldPlannedArrival: {"计划进场时间", "计划到货时间", "交货时间"},
			FieldDemand:         {"需求量", "需求吨位", "计划量", "数量"},
			FieldShipped:        {"已发量", "已发货量", "发货量"},
		},
		Required: []string{FieldSegment, FieldOrderTime, FieldDemand},
		Defaults: map[string]string{
			FieldDepartment:    DefaultDepartmentLabel,
			FieldMaterial:      DefaultMaterialLabel,
			FieldSpecification: DefaultSpecificationLabel,
			FieldSupplier:      DefaultSupplierLabel,
		},
		Location: time.Local,
	}
}

func (c Config) defaultFor(field string) string {
	if v, ok := c.Defaults[field]; ok && v != "" {
		return v
	}
	switch field {
	case FieldDepartment:
		return DefaultDepartmentLabel
	case FieldMaterial:
		return DefaultMaterialLabel
	case FieldSpecification:
		return DefaultSpecificationLabel
	case FieldSupplier:
		return DefaultSupplierLabel
	}
	return ""
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
