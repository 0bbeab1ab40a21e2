package cli

// Config holds configuration for one CLI invocation.
type Config struct {
	Inputs    []string // Event log files; "-" reads stdin
	Tolerance int      // Matching window half-width in frames
	Mode      string   // Pairing mode: any or one_to_one
	Format    string   // Output format: text or json
	PlotPath  string   // Optional .png/.svg plot destination
	ChartPath string   // Optional .html chart destination
	Parallel  int      // Maximum logs evaluated at once
	Verbose   bool     // Enable debug logging
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Stdin is the input name that reads the event log from standard input.
const Stdin = "-"
