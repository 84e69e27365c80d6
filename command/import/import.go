package cmdimport

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rebar-stats/connectors/config"
	ccsv "rebar-stats/connectors/csv"
	"rebar-stats/connectors/sheet"
	"rebar-stats/domain/shipment"
)

// Run executes the import subcommand: locate the order sheet, normalize it and
// write the canonical record set to <data>/orders.csv.
func Run(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "order spreadsheet (.xlsx or .csv); overrides source.paths from config")
	sheetName := fs.String("sheet", "", "worksheet name (default: first sheet or source.sheet)")
	out := fs.String("out", "", "output CSV (default <data_dir>/orders.csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		slog.Error("import.config.error", "error", err)
		return err
	}
	candidates := cfg.Source.Paths
	if *file != "" {
		candidates = []string{*file}
	}
	if *sheetName == "" {
		*sheetName = cfg.Source.Sheet
	}
	if *out == "" {
		*out = filepath.Join(cfg.DataDir, "orders.csv")
	}
	sc, err := cfg.Shipment()
	if err != nil {
		return fmt.Errorf("invalid normalize config: %w", err)
	}

	slog.Info("import.start", "candidates", candidates, "sheet", *sheetName)
	table, err := sheet.Load(candidates, *sheetName)
	if err != nil {
		slog.Error("phase.source.error", "error", err)
		return err
	}
	slog.Info("phase.source.loaded", "path", table.Source, "rows", len(table.Rows), "columns", len(table.Headers))

	orders, diag, err := shipment.NewNormalizer(sc).Normalize(table)
	if err != nil {
		slog.Error("phase.normalize.error", "path", table.Source, "error", err)
		return err
	}
	logDiagnostics(diag)

	if err := ccsv.WriteOrdersFile(*out, orders); err != nil {
		slog.Error("phase.csv.write.error", "path", *out, "error", err)
		return err
	}
	slog.Info("import.done", "orders", len(orders), "output", *out)
	return nil
}

func logDiagnostics(d shipment.Diagnostics) {
	slog.Info("phase.normalize.done",
		"input", d.InputRows,
		"retained", d.Retained,
		"droppedOrderTime", d.DroppedOrderTime,
		"droppedSegment", d.DroppedSegment)
	for from, to := range d.Renamed {
		slog.Debug("phase.normalize.alias", "header", from, "field", to)
	}
	for _, w := range d.Warnings() {
		slog.Warn("phase.normalize.warning", "kind", string(w.Kind), "rows", w.Rows)
	}
}
