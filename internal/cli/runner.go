package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/okian/rallyeval/internal/adapters/plotting"
	service "github.com/okian/rallyeval/internal/app"
	"github.com/okian/rallyeval/internal/domain/matching"
	"github.com/okian/rallyeval/internal/domain/model"
	"github.com/okian/rallyeval/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// File permission constants.
const (
	outputFilePermission = 0o644
)

// result pairs an input with its evaluation.
type result struct {
	Input  string         `json:"input"`
	Report service.Report `json:"report"`
	log    model.Log
}

// Run evaluates every input in cfg and writes the results to stdout in
// argument order.
func Run(ctx context.Context, cfg *Config, stdin io.Reader, stdout io.Writer) error {
	if err := validate(cfg); err != nil {
		return err
	}
	mode, err := matching.ParseMode(cfg.Mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	log := logger.Get().Named("cli")
	svc := service.New(
		service.WithLogger(log),
		service.WithTolerance(cfg.Tolerance),
		service.WithMode(mode),
	)

	start := time.Now()
	results, err := evaluateAll(ctx, svc, cfg, stdin)
	if err != nil {
		return err
	}
	log.Debug(ctx, "evaluated inputs",
		logger.Int("inputs", len(results)),
		logger.Duration("elapsed", time.Since(start)))

	if err := render(ctx, svc, cfg, results[0].log); err != nil {
		return err
	}
	return write(stdout, cfg.Format, results)
}

func validate(cfg *Config) error {
	if len(cfg.Inputs) == 0 {
		cfg.Inputs = []string{Stdin}
	}
	if cfg.Tolerance < 0 {
		return fmt.Errorf("%w: %w", ErrUsage, &matching.InvalidToleranceError{Tolerance: cfg.Tolerance})
	}
	switch cfg.Format {
	case "":
		cfg.Format = FormatText
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrUsage, cfg.Format)
	}
	stdinCount := 0
	for _, in := range cfg.Inputs {
		if in == Stdin {
			stdinCount++
		}
	}
	if stdinCount > 1 {
		return fmt.Errorf("%w: stdin may be read only once", ErrUsage)
	}
	if (cfg.PlotPath != "" || cfg.ChartPath != "") && len(cfg.Inputs) != 1 {
		return ErrMultipleRender
	}
	if cfg.PlotPath != "" {
		if _, err := plotFormat(cfg.PlotPath); err != nil {
			return err
		}
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = runtime.NumCPU()
	}
	return nil
}

func evaluateAll(ctx context.Context, svc *service.Service, cfg *Config, stdin io.Reader) ([]result, error) {
	results := make([]result, len(cfg.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)
	for i, input := range cfg.Inputs {
		g.Go(func() error {
			log, err := decode(gctx, svc, input, stdin)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			report, err := svc.Evaluate(gctx, log, service.Request{})
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = result{Input: input, Report: report, log: log}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func decode(ctx context.Context, svc *service.Service, input string, stdin io.Reader) (model.Log, error) {
	if input == Stdin {
		return svc.Decode(ctx, stdin)
	}
	return svc.DecodeFile(ctx, input)
}

func render(ctx context.Context, svc *service.Service, cfg *Config, log model.Log) error {
	if cfg.PlotPath != "" {
		format, err := plotFormat(cfg.PlotPath)
		if err != nil {
			return err
		}
		if err := writeFile(cfg.PlotPath, func(w io.Writer) error {
			return svc.Plot(ctx, w, log, format)
		}); err != nil {
			return err
		}
	}
	if cfg.ChartPath != "" {
		if err := writeFile(cfg.ChartPath, func(w io.Writer) error {
			return svc.Chart(ctx, w, log)
		}); err != nil {
			return err
		}
	}
	return nil
}

func plotFormat(path string) (plotting.Format, error) {
	f, err := plotting.ParseFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil || filepath.Ext(path) == "" {
		return "", fmt.Errorf("%w: %s", ErrPlotExtension, path)
	}
	return f, nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func write(w io.Writer, format string, results []result) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0].Report)
		}
		return enc.Encode(results)
	}

	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s ==\n", r.Input)
		}
		fmt.Fprintf(w, "tolerance: %d frames (%s)\n", r.Report.Tolerance, r.Report.Mode)
		fmt.Fprint(w, r.Report.Table.String())
	}
	return nil
}
