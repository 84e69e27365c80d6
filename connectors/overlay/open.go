package overlay

import (
	"context"
	"fmt"
	"log/slog"

	dc "rebar-stats/domain/config"
	"rebar-stats/domain/shipment"
)

// Open returns the store selected by cfg.Store and a func releasing it.
func Open(ctx context.Context, cfg dc.Status) (shipment.OverlayStore, func() error, error) {
	switch cfg.Store {
	case "", "file":
		slog.Info("overlay.store", "kind", "file", "path", cfg.Path)
		return NewFileStore(cfg.Path), func() error { return nil }, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("status.store postgres requires status.dsn or DATABASE_URL")
		}
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("overlay.store", "kind", "postgres")
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown status.store %q", cfg.Store)
}
