package status

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"rebar-stats/connectors/config"
	"rebar-stats/connectors/notify"
	"rebar-stats/connectors/overlay"
	"rebar-stats/connectors/sheet"
	"rebar-stats/domain/shipment"
)

// Run executes the status subcommand. Without -set it prints the current
// status of the order; with -set it records the new one.
//
//	rebar-stats status -fingerprint <uuid> [-set arrived|not_arrived|unset]
func Run(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fp := fs.String("fingerprint", "", "order fingerprint (see /api/orders or the export)")
	set := fs.String("set", "", "new status: arrived, not_arrived or unset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fp == "" {
		return fmt.Errorf("missing required -fingerprint")
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
	svc := shipment.NewStatusService(store, notify.FromConfig(ctx, cfg.Notify))

	if *set == "" {
		ov, err := svc.Overlay(ctx)
		if err != nil {
			return err
		}
		return printJSON(ov.Get(*fp))
	}

	st, err := shipment.ParseStatus(*set)
	if err != nil {
		return err
	}
	table, err := sheet.Load(cfg.Source.Paths, cfg.Source.Sheet)
	if err != nil {
		return err
	}
	orders, _, err := shipment.NewNormalizer(sc).Normalize(table)
	if err != nil {
		return err
	}
	order, ok := shipment.FindByFingerprint(orders, *fp)
	if !ok {
		return fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, *fp)
	}
	res, err := svc.SetStatus(ctx, order, st)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
