package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar-stats/connectors/overlay"
	dc "rebar-stats/domain/config"
	"rebar-stats/domain/shipment"
)

var testNow = time.Date(2025, 3, 20, 15, 30, 0, 0, time.UTC)

type fakeSource struct {
	table       *shipment.Table
	err         error
	invalidated int
}

func (f *fakeSource) Get() (*shipment.Table, error) { return f.table, f.err }
func (f *fakeSource) Invalidate()                   { f.invalidated++ }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []shipment.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n shipment.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func sampleTable() *shipment.Table {
	return &shipment.Table{
		Source:  "plan.xlsx",
		Headers: []string{"项目部名称", "标段名称", "物资名称", "规格型号", "供应商", "下单时间", "计划进场时间", "需求量", "已发量"},
		Rows: [][]string{
			{"甲", "S1", "螺纹钢", "HRB400 12", "钢厂A", "2025-03-19", "2025-03-15", "100", "40"},
			{"乙", "S2", "盘螺", "HPB300 8", "钢厂B", "2025-03-20", "2025-03-25", "50", "50"},
			{"甲", "S3", "螺纹钢", "HRB400 16", "钢厂A", "2025-03-01", "", "30", "0"},
		},
	}
}

type harness struct {
	e        *echo.Echo
	source   *fakeSource
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := dc.Default()
	sc, err := cfg.Shipment()
	require.NoError(t, err)
	sc.Location = time.UTC

	h := &harness{source: &fakeSource{table: sampleTable()}, notifier: &recordingNotifier{}}
	store := overlay.NewFileStore(filepath.Join(t.TempDir(), "status.csv"))
	srv := NewServer(cfg, sc, h.source, shipment.NewStatusService(store, h.notifier)).
		WithClock(func() time.Time { return testNow })

	h.e = echo.New()
	srv.Register(h.e)
	return h
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) orders(t *testing.T, query string) []shipment.TrackedOrder {
	t.Helper()
	rec := h.do(http.MethodGet, "/api/orders"+query, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []shipment.TrackedOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func segments(orders []shipment.TrackedOrder) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Segment)
	}
	return out
}

func TestProjects(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AllLabel    string   `json:"all_label"`
		Projects    []string `json:"projects"`
		DefaultFrom string   `json:"default_from"`
		DefaultTo   string   `json:"default_to"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "中铁物贸成都分公司", body.AllLabel)
	assert.Equal(t, []string{"中铁物贸成都分公司", "乙", "甲"}, body.Projects)
	assert.Equal(t, "2025-03-19", body.DefaultFrom)
	assert.Equal(t, "2025-03-20", body.DefaultTo)
}

func TestOrders_Filters(t *testing.T) {
	h := newHarness(t)

	all := h.orders(t, "")
	assert.Equal(t, []string{"S1", "S2", "S3"}, segments(all))
	assert.True(t, all[0].IsOverdue)
	assert.Equal(t, int64(5), all[0].OverdueDays)
	assert.Equal(t, shipment.StatusUnset, all[0].Status)
	assert.NotEmpty(t, all[0].Fingerprint)

	assert.Equal(t, []string{"S1", "S3"}, segments(h.orders(t, "?project="+url.QueryEscape("甲"))))
	assert.Equal(t, []string{"S1", "S2", "S3"}, segments(h.orders(t, "?project="+url.QueryEscape("中铁物贸成都分公司"))))
	assert.Equal(t, []string{"S1", "S2"}, segments(h.orders(t, "?from=2025-03-19&to=2025-03-20")))
}

func TestSummary(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Orders      int                          `json:"orders"`
		Overall     shipment.Summary             `json:"overall"`
		Departments []shipment.DepartmentSummary `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Orders)
	assert.Equal(t, int64(180), body.Overall.TotalDemand)
	assert.Equal(t, int64(90), body.Overall.TotalShipped)
	assert.Equal(t, int64(90), body.Overall.TotalRemaining)
	assert.Equal(t, 1, body.Overall.OverdueCount)
	assert.Equal(t, int64(5), body.Overall.MaxOverdueDays)
	assert.Len(t, body.Departments, 2)
}

func TestBadQuery(t *testing.T) {
	h := newHarness(t)
	for _, q := range []string{"?from=2025-03-20&to=2025-03-19", "?from=not-a-date-1"} {
		rec := h.do(http.MethodGet, "/api/orders"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSchemaErrorIs422(t *testing.T) {
	h := newHarness(t)
	h.source.table = &shipment.Table{Source: "plan.xlsx", Headers: []string{"物资名称"}, Rows: [][]string{{"螺纹钢"}}}

	rec := h.do(http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "plan.xlsx", body["path"])
	assert.Contains(t, body["error"], "segment_name")
}

func TestSourceUnavailableIs503(t *testing.T) {
	h := newHarness(t)
	h.source.table = nil
	h.source.err = &shipment.SourceUnavailableError{Candidates: []string{"a.xlsx", "b.xlsx"}, Err: errors.New("not found")}

	rec := h.do(http.MethodGet, "/api/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "b.xlsx")
}

func TestSetStatus(t *testing.T) {
	h := newHarness(t)
	fp := h.orders(t, "")[0].Fingerprint

	rec := h.do(http.MethodPut, "/api/orders/"+fp+"/status", `{"status":"not_arrived"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res shipment.StatusResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, shipment.StatusUnset, res.Previous)
	assert.Equal(t, shipment.StatusNotArrived, res.Current)
	assert.True(t, res.Notified)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "S1", h.notifier.sent[0].Segment)

	got := h.orders(t, "")
	assert.Equal(t, shipment.StatusNotArrived, got[0].Status)
	assert.NotNil(t, got[0].StatusUpdatedAt)
	assert.Equal(t, shipment.StatusUnset, got[1].Status)

	rec = h.do(http.MethodPut, "/api/orders/"+fp+"/status", `{"status":"未到货"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.notifier.sent, 1)
}

func TestSetStatus_Errors(t *testing.T) {
	h := newHarness(t)
	fp := h.orders(t, "")[0].Fingerprint

	rec := h.do(http.MethodPut, "/api/orders/"+fp+"/status", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/orders/00000000-0000-0000-0000-000000000000/status", `{"status":"arrived"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReload(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.source.invalidated)

	var body struct {
		Source      string               `json:"source"`
		Diagnostics shipment.Diagnostics `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "plan.xlsx", body.Source)
	assert.Equal(t, 3, body.Diagnostics.Retained)
}

func TestExports(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/orders/export.csv?project="+url.QueryEscape("甲"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeff"))
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "orders.csv")

	rec = h.do(http.MethodGet, "/api/orders/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}
