package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/okian/rallyeval/internal/cli"
)

// Default configuration constants.
const (
	defaultTolerance = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		input     = flag.String("input", "", `Event log to evaluate, "-" for stdin`)
		tolerance = flag.Int("tolerance", defaultTolerance, "Matching window half-width in frames")
		mode      = flag.String("mode", "any", "Pairing mode: any or one_to_one")
		format    = flag.String("format", cli.FormatText, "Output format: text or json")
		plotPath  = flag.String("plot", "", "Write the stacked plot to a .png or .svg file")
		chartPath = flag.String("chart", "", "Write the interactive chart page to an .html file")
		parallel  = flag.Int("parallel", runtime.NumCPU(), "Maximum logs evaluated at once")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		cli.ShowHelp(os.Stdout)
		return 0
	}

	if err := cli.SetupLogging(os.Stderr, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inputs := flag.Args()
	if *input != "" {
		inputs = append([]string{*input}, inputs...)
	}
	config := &cli.Config{
		Inputs:    inputs,
		Tolerance: *tolerance,
		Mode:      *mode,
		Format:    *format,
		PlotPath:  *plotPath,
		ChartPath: *chartPath,
		Parallel:  *parallel,
		Verbose:   *verbose,
	}

	if err := cli.Run(ctx, config, os.Stdin, os.Stdout); err != nil {
		os.Stderr.WriteString("evaluate: " + err.Error() + "\n")
		return 1
	}
	return 0
}
