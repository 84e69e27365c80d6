package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	cmdcalculate "rebar-stats/command/calculate"
	cmdimport "rebar-stats/command/import"
	cmdstatus "rebar-stats/command/status"
	cmdweb "rebar-stats/command/web"
)

// Shipment plan monitor for rebar orders.
// Usage:
//   rebar-stats import [-file plan.xlsx] [-sheet name]
//   rebar-stats calculate [-project name] [-from 2025-03-01] [-to 2025-03-31]
//   rebar-stats web [-addr :8080] [-ui ./ui/dist]
//   rebar-stats status -fingerprint <uuid> [-set arrived|not_arrived|unset]
// Notes:
// - Reads the configuration from CONFIG_PATH (default ./config.yml) and .env.
// - LOG_FILE adds a rotating JSON log file; LOG_LEVEL=debug enables debug events.

func main() {
	slog.SetDefault(slog.New(newHandler()))

	args := os.Args
	if len(args) > 1 {
		sub := args[1]
		rest := append([]string{}, args[2:]...)
		var run func([]string) error
		switch sub {
		case "import":
			run = cmdimport.Run
		case "calculate":
			run = cmdcalculate.Run
		case "web":
			run = cmdweb.Run
		case "status":
			run = cmdstatus.Run
		}
		if run != nil {
			if err := run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: rebar-stats import [-file <xlsx|csv>] | calculate [-project <name>] [-from <date>] [-to <date>] | web [-addr :8080] | status -fingerprint <id> [-set <status>]\nENV: set CONFIG_PATH to point to a YAML config file (default ./config.yml)")
	os.Exit(2)
}

// newHandler logs text to an interactive stderr and JSON otherwise. When
// LOG_FILE is set, JSON records are also written to a rotating file.
func newHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		opts.Level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if path := os.Getenv("LOG_FILE"); path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30,
		})
		return slog.NewJSONHandler(out, opts)
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}
