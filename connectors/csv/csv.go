package csv

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"rebar-stats/domain/shipment"
)

const utf8BOM = "\ufeff"

// WriteOrdersFile writes the canonical record set with canonical headers.
// The file can be fed back through the normalizer unchanged.
func WriteOrdersFile(path string, orders []shipment.Order) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteOrders(f, orders); err != nil {
		return err
	}
	return f.Close()
}

func WriteOrders(out io.Writer, orders []shipment.Order) error {
	w := csv.NewWriter(out)
	if err := w.Write(shipment.RecordFields); err != nil {
		return err
	}
	for _, o := range orders {
		if err := w.Write(o.Values()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteExport writes the detail table for download: UTF-8 BOM so that
// spreadsheet tools detect the encoding, display headers, and the arrival
// status and fingerprint of each order.
func WriteExport(out io.Writer, orders []shipment.TrackedOrder) error {
	if _, err := io.WriteString(out, utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(out)
	headers := lo.Map(shipment.RecordFields, func(f string, _ int) string { return shipment.FieldLabels[f] })
	headers = append(headers, "到货状态", "fingerprint")
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, o := range orders {
		row := append(o.Values(), o.Status.String(), o.Fingerprint)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSummaryFile writes one row per department followed by the overall row
// labelled allLabel.
func WriteSummaryFile(path string, allLabel string, overall shipment.Summary, total int, depts []shipment.DepartmentSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	headers := []string{"project_department", "orders", "total_demand", "total_shipped", "total_remaining", "overdue_count", "max_overdue_days"}
	if err := w.Write(headers); err != nil {
		return err
	}
	rows := append(slices.Clone(depts), shipment.DepartmentSummary{Department: allLabel, Orders: total, Summary: overall})
	for _, d := range rows {
		row := []string{
			d.Department,
			strconv.Itoa(d.Orders),
			strconv.FormatInt(d.TotalDemand, 10),
			strconv.FormatInt(d.TotalShipped, 10),
			strconv.FormatInt(d.TotalRemaining, 10),
			strconv.Itoa(d.OverdueCount),
			strconv.FormatInt(d.MaxOverdueDays, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
