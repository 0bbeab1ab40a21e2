package cli

import "errors"

// Sentinel errors for CLI usage problems.
var (
	ErrUsage          = errors.New("usage error")
	ErrPlotExtension  = errors.New("plot path must end in .png or .svg")
	ErrMultipleRender = errors.New("-plot and -chart need exactly one input")
)
