// Package xlsx renders the shipment detail table as an Excel workbook.
package xlsx

import (
	"bytes"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"rebar-stats/domain/shipment"
)

const sheetName = "发货明细"

// BuildOrders returns an XLSX document with one row per order. Overdue rows
// are shaded; quantities and overdue days are written as numbers.
func BuildOrders(orders []shipment.TrackedOrder) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#3b82f6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	overdue, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#ffdddd"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	headers := lo.Map(shipment.RecordFields, func(field string, _ int) string { return shipment.FieldLabels[field] })
	headers = append(headers, "到货状态")
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, header); err != nil {
		return nil, err
	}

	for i, o := range orders {
		rowIdx := i + 2
		for c, v := range rowValues(o) {
			cell, err := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
		if o.IsOverdue {
			first, _ := excelize.CoordinatesToCellName(1, rowIdx)
			end, _ := excelize.CoordinatesToCellName(len(headers), rowIdx)
			if err := f.SetCellStyle(sheetName, first, end, overdue); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rowValues(o shipment.TrackedOrder) []any {
	planned := ""
	if o.PlannedArrival != nil {
		planned = o.PlannedArrival.Format("2006-01-02")
	}
	return []any{
		o.Department,
		o.Segment,
		o.Material,
		o.Specification,
		o.Supplier,
		o.OrderTime.Format("2006-01-02"),
		planned,
		o.Demand,
		o.Shipped,
		o.Remaining,
		o.OverdueDays,
		o.Status.String(),
	}
}
