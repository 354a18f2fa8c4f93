// Command moim-report prints the dues report for one reference month.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"moim/internal/backend"
	"moim/internal/cli"
	"moim/internal/config"
	"moim/internal/core"
	applog "moim/internal/log"
	"moim/internal/services"
)

func main() {
	month := flag.String("month", "", "reference month as YYYY-MM (default: from DUES_MONTH_REFERENCE)")
	format := flag.String("format", "table", "output format: table or json")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentReport)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, cfg, logger, *month, *format, os.Stdout); err != nil {
		logger.Failure(ctx, "Report failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger, month, format string, out io.Writer) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q: must be table or json", format)
	}
	schemaDef, err := cfg.Schema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	reconciler, err := cli.NewReconciler(cfg, schemaDef)
	if err != nil {
		return err
	}
	policy, now, err := reportTime(reconciler.Policy, month, time.Now())
	if err != nil {
		return err
	}
	reconciler.Policy = policy

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	snap, err := result.Backend.ReadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	return writeReport(out, reconciler.BuildReport(snap, now), format)
}

// reportTime returns the policy and instant to compute at. An explicit month
// is taken as the reference month itself.
func reportTime(p core.DuesPolicy, month string, now time.Time) (core.DuesPolicy, time.Time, error) {
	if month == "" {
		return p, now, nil
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return p, time.Time{}, err
	}
	p.Reference = core.ReferenceCurrent
	return p, time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, now.Location()), nil
}

func writeReport(w io.Writer, rep services.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "table":
		return writeTable(w, rep)
	default:
		return fmt.Errorf("unknown format %q: must be table or json", format)
	}
}
