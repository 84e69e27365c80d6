package web

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"rebar-stats/connectors/config"
	ccsv "rebar-stats/connectors/csv"
	"rebar-stats/connectors/notify"
	"rebar-stats/connectors/overlay"
	"rebar-stats/connectors/sheet"
	"rebar-stats/connectors/xlsx"
	dc "rebar-stats/domain/config"
	"rebar-stats/domain/shipment"
)

// Run starts a small Echo web server exposing the shipment dashboard APIs and an optional SPA dashboard.
//
// Usage:
//
//	rebar-stats web [-addr :8080] [-ui ./ui/dist]
//
// Endpoints:
//
//	GET  /api/projects                     -> department picker and default date window
//	GET  /api/orders?project=&from=&to=    -> filtered orders with arrival status and overdue flag
//	GET  /api/summary?project=&from=&to=   -> overall metrics and per-department metrics
//	GET  /api/diagnostics                  -> normalization diagnostics of the current source
//	GET  /api/orders/export.csv            -> filtered orders as CSV (UTF-8 BOM)
//	GET  /api/orders/export.xlsx           -> filtered orders as a workbook
//	PUT  /api/orders/:fingerprint/status   -> set arrival status {"status": "arrived|not_arrived|unset"}
//	POST /api/reload                       -> drop the cached source and read it again
//
// When -ui points to a built Vite app (index.html exists), static files are served at / and
// unknown routes fall back to index.html for SPA routing.
func Run(args []string) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "http listen address (host:port)")
	uiDir := fs.String("ui", "./ui/dist", "directory containing built UI (Vite dist)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	sc, err := cfg.Shipment()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := overlay.Open(ctx, cfg.Status)
	if err != nil {
		return err
	}
	defer closeStore()

	cache := sheet.NewCache(cfg.Source.CacheTTL, func() (*shipment.Table, error) {
		return sheet.Load(cfg.Source.Paths, cfg.Source.Sheet)
	})
	srv := NewServer(cfg, sc, cache, shipment.NewStatusService(store, notify.FromConfig(ctx, cfg.Notify)))

	e := echo.New()
	e.HideBanner = true
	srv.Register(e)

	// Static UI (optional)
	indexPath := filepath.Join(*uiDir, "index.html")
	if fi, err := os.Stat(indexPath); err == nil && !fi.IsDir() {
		e.Static("/", *uiDir)
		e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

		// Fallback to index.html for non-API 404s (SPA routing) while keeping static assets working
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
				if !strings.HasPrefix(c.Request().URL.Path, "/api") {
					_ = c.File(indexPath)
					return
				}
			}
			e.DefaultHTTPErrorHandler(err, c)
		}
	}

	return e.Start(*addr)
}

// Source yields the raw order table, typically through a TTL cache.
type Source interface {
	Get() (*shipment.Table, error)
	Invalidate()
}

// Server holds the handlers. Orders are normalized on each request from the
// cached table so that overdue days follow the clock.
type Server struct {
	allLabel   string
	defaultDep string
	loc        *time.Location
	normalizer *shipment.Normalizer
	source     Source
	status     *shipment.StatusService
	now        func() time.Time
}

func NewServer(cfg *dc.Config, sc shipment.Config, source Source, status *shipment.StatusService) *Server {
	loc := sc.Location
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		allLabel:   cfg.Dashboard.AllProjectsLabel,
		defaultDep: cfg.DefaultDepartment(),
		loc:        loc,
		normalizer: shipment.NewNormalizer(sc),
		source:     source,
		status:     status,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for overdue days and the default window.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	s.normalizer = s.normalizer.WithClock(now)
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/api/projects", s.projects)
	e.GET("/api/orders", s.orders)
	e.GET("/api/summary", s.summary)
	e.GET("/api/diagnostics", s.diagnostics)
	e.GET("/api/orders/export.csv", s.exportCSV)
	e.GET("/api/orders/export.xlsx", s.exportXLSX)
	e.PUT("/api/orders/:fingerprint/status", s.setStatus)
	e.POST("/api/reload", s.reload)
}

type snapshot struct {
	source string
	orders []shipment.Order
	diag   shipment.Diagnostics
}

func (s *Server) load() (snapshot, error) {
	t, err := s.source.Get()
	if err != nil {
		return snapshot{}, err
	}
	orders, diag, err := s.normalizer.Normalize(t)
	if err != nil {
		return snapshot{source: t.Source}, err
	}
	return snapshot{source: t.Source, orders: orders, diag: diag}, nil
}

func (s *Server) filter(c echo.Context) (shipment.Filter, error) {
	f := shipment.Filter{Department: strings.TrimSpace(c.QueryParam("project")), AllLabel: s.allLabel}
	var err error
	if f.From, err = shipment.ParseBound(c.QueryParam("from"), s.loc); err != nil {
		return f, err
	}
	if f.To, err = shipment.ParseBound(c.QueryParam("to"), s.loc); err != nil {
		return f, err
	}
	return f, f.Validate()
}

// selection loads the source, applies the request filter and joins statuses.
func (s *Server) selection(c echo.Context) (snapshot, []shipment.TrackedOrder, error) {
	f, err := s.filter(c)
	if err != nil {
		return snapshot{}, nil, &queryError{err: err}
	}
	snap, err := s.load()
	if err != nil {
		return snap, nil, err
	}
	selected, err := f.Apply(snap.orders)
	if err != nil {
		return snap, nil, &queryError{err: err}
	}
	ov, err := s.status.Overlay(c.Request().Context())
	if err != nil {
		return snap, nil, err
	}
	return snap, shipment.ApplyOverlay(selected, ov), nil
}

func (s *Server) projects(c echo.Context) error {
	snap, err := s.load()
	if err != nil {
		return writeError(c, snap.source, err)
	}
	from, to := shipment.DefaultWindow(s.now(), s.loc)
	return c.JSON(http.StatusOK, map[string]any{
		"all_label":    s.allLabel,
		"projects":     append([]string{s.allLabel}, shipment.Departments(snap.orders, s.defaultDep)...),
		"default_from": from.Format(time.DateOnly),
		"default_to":   to.Format(time.DateOnly),
	})
}

func (s *Server) orders(c echo.Context) error {
	snap, tracked, err := s.selection(c)
	if err != nil {
		return writeError(c, snap.source, err)
	}
	return c.JSON(http.StatusOK, tracked)
}

func (s *Server) summary(c echo.Context) error {
	snap, tracked, err := s.selection(c)
	if err != nil {
		return writeError(c, snap.source, err)
	}
	orders := untrack(tracked)
	return c.JSON(http.StatusOK, map[string]any{
		"orders":      len(orders),
		"overall":     shipment.Summarize(orders),
		"departments": shipment.SummarizeByDepartment(orders),
	})
}

func (s *Server) diagnostics(c echo.Context) error {
	snap, err := s.load()
	if err != nil {
		return writeError(c, snap.source, err)
	}
	return c.JSON(http.StatusOK, diagnosticsBody(snap))
}

func (s *Server) reload(c echo.Context) error {
	s.source.Invalidate()
	return s.diagnostics(c)
}

func (s *Server) exportCSV(c echo.Context) error {
	snap, tracked, err := s.selection(c)
	if err != nil {
		return writeError(c, snap.source, err)
	}
	var buf bytes.Buffer
	if err := ccsv.WriteExport(&buf, tracked); err != nil {
		return writeError(c, snap.source, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) exportXLSX(c echo.Context) error {
	snap, tracked, err := s.selection(c)
	if err != nil {
		return writeError(c, snap.source, err)
	}
	b, err := xlsx.BuildOrders(tracked)
	if err != nil {
		return writeError(c, snap.source, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) setStatus(c echo.Context) error {
	fp := c.Param("fingerprint")
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, "", &queryError{err: err})
	}
	st, err := shipment.ParseStatus(req.Status)
	if err != nil {
		return writeError(c, "", &queryError{err: err})
	}
	snap, err := s.load()
	if err != nil {
		return writeError(c, snap.source, err)
	}
	order, ok := shipment.FindByFingerprint(snap.orders, fp)
	if !ok {
		return writeError(c, snap.source, shipment.ErrOrderNotFound)
	}
	res, err := s.status.SetStatus(c.Request().Context(), order, st)
	if err != nil {
		return writeError(c, snap.source, err)
	}
	return c.JSON(http.StatusOK, res)
}

func diagnosticsBody(snap snapshot) map[string]any {
	return map[string]any{
		"source":      snap.source,
		"diagnostics": snap.diag,
		"warnings":    snap.diag.Warnings(),
	}
}

func untrack(tracked []shipment.TrackedOrder) []shipment.Order {
	out := make([]shipment.Order, len(tracked))
	for i, t := range tracked {
		out[i] = t.Order
	}
	return out
}

// queryError marks a malformed request.
type queryError struct{ err error }

func (e *queryError) Error() string { return e.err.Error() }
func (e *queryError) Unwrap() error { return e.err }

// writeError maps typed failures onto the JSON error body used by every endpoint.
func writeError(c echo.Context, path string, err error) error {
	var (
		schemaErr  *shipment.SchemaError
		sourceErr  *shipment.SourceUnavailableError
		overlayErr *shipment.OverlayWriteError
		queryErr   *queryError
	)
	code, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.As(err, &queryErr):
		code, msg = http.StatusBadRequest, "invalid request"
	case errors.As(err, &schemaErr):
		code, msg = http.StatusUnprocessableEntity, "order sheet is missing required columns"
	case errors.As(err, &sourceErr):
		code, msg = http.StatusServiceUnavailable, "order data unavailable"
		if path == "" {
			path = sourceErr.Source
		}
	case errors.As(err, &overlayErr):
		code, msg = http.StatusInternalServerError, "failed to save arrival status"
	case errors.Is(err, shipment.ErrOrderNotFound):
		code, msg = http.StatusNotFound, "no order with this fingerprint"
	}
	slog.Warn("web.request.error", "method", c.Request().Method, "path", c.Request().URL.Path, "status", code, "error", err)
	return c.JSON(code, map[string]any{
		"error":   err.Error(),
		"path":    path,
		"message": msg,
	})
}
