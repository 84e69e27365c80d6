package csv

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar-stats/connectors/sheet"
	"rebar-stats/domain/shipment"
)

func normalizer() *shipment.Normalizer {
	cfg := shipment.DefaultConfig()
	cfg.Location = time.UTC
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	return shipment.NewNormalizer(cfg).WithClock(func() time.Time { return now })
}

func TestWriteOrders_NormalizationIsIdempotent(t *testing.T) {
	raw := &shipment.Table{
		Headers: []string{"项目部名称", "项目标段", "物资名称", "规格型号", "创建时间", "需求吨位", "已发量", "计划进场时间", "备注"},
		Rows: [][]string{
			{"宜宾项目部", "YB-1", "螺纹钢", "Φ25", "2025/3/1 10:00", "100吨", "40", "2025-03-10", "急"},
			{"", "YB-2", "", "", "2025年3月2日", "-3", "", "", ""},
		},
	}
	n := normalizer()
	first, _, err := n.Normalize(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, WriteOrdersFile(path, first))

	tbl, err := sheet.Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, shipment.RecordFields, tbl.Headers)

	second, diag, err := n.Normalize(tbl)
	require.NoError(t, err)
	assert.Empty(t, diag.Renamed)
	assert.Equal(t, first, second)
}

func TestWriteExport(t *testing.T) {
	planned := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	orders := []shipment.Order{{
		Department:     "宜宾项目部",
		Segment:        "YB-1",
		Material:       "螺纹钢",
		Specification:  "Φ25",
		Supplier:       "德胜钢厂",
		OrderTime:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PlannedArrival: &planned,
		Demand:         100,
		Shipped:        40,
		Remaining:      60,
		OverdueDays:    10,
	}}
	ov, _ := shipment.Overlay{}.Set(shipment.Fingerprint(orders[0]), shipment.StatusNotArrived, planned)

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, shipment.ApplyOverlay(orders, ov)))

	body := buf.String()
	require.True(t, strings.HasPrefix(body, utf8BOM))
	recs, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "项目部名称", recs[0][0])
	assert.Equal(t, "到货状态", recs[0][11])
	assert.Equal(t, []string{
		"宜宾项目部", "YB-1", "螺纹钢", "Φ25", "德胜钢厂", "2025-03-01", "2025-03-10",
		"100", "40", "60", "10", "not_arrived", shipment.Fingerprint(orders[0]),
	}, recs[1])
}

func TestWriteSummaryFile(t *testing.T) {
	orders := []shipment.Order{
		{Department: "甲", Demand: 10, Shipped: 4, Remaining: 6, OverdueDays: 2},
		{Department: "乙", Demand: 5, Remaining: 5},
	}
	path := filepath.Join(t.TempDir(), "out", "summary.csv")
	require.NoError(t, WriteSummaryFile(path, "总部", shipment.Summarize(orders), len(orders), shipment.SummarizeByDepartment(orders)))

	tbl, err := sheet.Read(path, "")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, []string{"乙", "1", "5", "0", "5", "0", "0"}, tbl.Rows[0])
	assert.Equal(t, []string{"甲", "1", "10", "4", "6", "1", "2"}, tbl.Rows[1])
	assert.Equal(t, []string{"总部", "2", "15", "4", "11", "1", "2"}, tbl.Rows[2])
}
