package calculate

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	lo "github.com/samber/lo"

	"rebar-stats/connectors/config"
	ccsv "rebar-stats/connectors/csv"
	"rebar-stats/connectors/overlay"
	"rebar-stats/connectors/sheet"
	"rebar-stats/domain/shipment"
)

// Run executes the calculate command: read the canonical orders written by
// import, overlay arrival statuses, filter and write <data>/summary.csv.
func Run(args []string) error {
	fs := flag.NewFlagSet("calculate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	project := fs.String("project", "", "restrict to one project department (empty or the all-projects label: every department)")
	from := fs.String("from", "", "first order date, inclusive (e.g. 2025-03-01)")
	to := fs.String("to", "", "last order date, inclusive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("calculate: unexpected arguments %v", fs.Args())
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	sc, err := cfg.Shipment()
	if err != nil {
		return fmt.Errorf("invalid normalize config: %w", err)
	}

	f := shipment.Filter{Department: *project, AllLabel: cfg.Dashboard.AllProjectsLabel}
	if f.From, err = shipment.ParseBound(*from, sc.Location); err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	if f.To, err = shipment.ParseBound(*to, sc.Location); err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	// Read inputs from data/
	base := cfg.DataDir
	table, err := sheet.Read(filepath.Join(base, "orders.csv"), "")
	if err != nil {
		return fmt.Errorf("read orders (run import first): %w", err)
	}
	// The canonical file normalizes to itself; this refreshes overdue days for today.
	orders, _, err := shipment.NewNormalizer(sc).Normalize(table)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := overlay.Open(ctx, cfg.Status)
	if err != nil {
		return err
	}
	defer closeStore()
	ov, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load statuses: %w", err)
	}

	selected, err := f.Apply(orders)
	if err != nil {
		return err
	}
	tracked := shipment.ApplyOverlay(selected, ov)
	byStatus := lo.CountValuesBy(tracked, func(t shipment.TrackedOrder) string { return t.Status.String() })
	slog.Info("calculate.status", "arrived", byStatus["arrived"], "notArrived", byStatus["not_arrived"], "unset", byStatus["unset"])

	overall := shipment.Summarize(selected)
	depts := shipment.SummarizeByDepartment(selected)
	out := filepath.Join(base, "summary.csv")
	if err := ccsv.WriteSummaryFile(out, cfg.Dashboard.AllProjectsLabel, overall, len(selected), depts); err != nil {
		return err
	}

	slog.Info("calculate.done", "orders", len(selected), "departments", len(depts), "output", out)
	return nil
}
