// Package plotting renders an event log as two stacked time-series plots:
// annotated events on top, predicted events below, each overlaying the
// ball position with dashed markers at hit (green) and bounce (red)
// frames.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/okian/rallyeval/internal/domain/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Format is an output image format.
type Format string

// Supported formats.
const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ErrUnsupportedFormat is returned for formats other than png and svg.
var ErrUnsupportedFormat = errors.New("unsupported plot format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPNG, FormatSVG:
		return f, nil
	case "":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

var (
	hitColor      = color.RGBA{G: 128, A: 255}
	bounceColor   = color.RGBA{R: 220, A: 255}
	positionColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	markerDashes  = []vg.Length{vg.Points(5), vg.Points(3)}
)

// Option applies a configuration option to Render.
type Option func(*renderer)

// WithFormat sets the output format.
func WithFormat(f Format) Option {
	return func(r *renderer) {
		if f != "" {
			r.format = f
		}
	}
}

// WithSize sets the overall image size.
func WithSize(width, height vg.Length) Option {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.width = width
			r.height = height
		}
	}
}

type renderer struct {
	format Format
	width  vg.Length
	height vg.Length
}

// panelSpec describes one of the two stacked plots.
type panelSpec struct {
	title  string
	prefix string // legend prefix, "Actual" or "Pred"
	label  func(model.Frame) model.Label
}

// Render draws log to w.
func Render(w io.Writer, log model.Log, opts ...Option) error {
	r := renderer{format: FormatPNG, width: 12 * vg.Inch, height: 12 * vg.Inch}
	for _, opt := range opts {
		opt(&r)
	}
	if _, err := ParseFormat(string(r.format)); err != nil {
		return err
	}

	specs := []panelSpec{
		{title: "Actual Hits and Bounces", prefix: "Actual", label: func(f model.Frame) model.Label { return f.Actual }},
		{title: "Predicted Hits and Bounces", prefix: "Pred", label: func(f model.Frame) model.Label { return f.Predicted }},
	}

	plots := make([][]*plot.Plot, len(specs))
	for i, spec := range specs {
		p, err := panel(log, spec)
		if err != nil {
			return fmt.Errorf("build %q plot: %w", spec.title, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	// Shared x-axis; only the bottom plot carries the label.
	if first, last, ok := log.Span(); ok {
		for _, row := range plots {
			row[0].X.Min = float64(first)
			row[0].X.Max = float64(last)
		}
	}
	plots[len(plots)-1][0].X.Label.Text = "Frame"

	canvas, err := draw.NewFormattedCanvas(r.width, r.height, string(r.format))
	if err != nil {
		return fmt.Errorf("create canvas: %w", err)
	}
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Points(6),
		PadBottom: vg.Points(6),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(12),
		PadY:      vg.Points(12),
	}
	canvases := plot.Align(plots, tiles, draw.New(canvas))
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if _, err := canvas.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", r.format, err)
	}
	return nil
}

func panel(log model.Log, spec panelSpec) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = spec.title
	p.Y.Label.Text = "y"
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := addPosition(p, log); err != nil {
		return nil, err
	}

	ymin, ymax := yBounds(log)
	markers := []struct {
		label model.Label
		name  string
		color color.Color
	}{
		{model.LabelHit, spec.prefix + " Hit", hitColor},
		{model.LabelBounce, spec.prefix + " Bounce", bounceColor},
	}
	for _, m := range markers {
		legendAdded := false
		for _, f := range log.Frames() {
			if spec.label(f) != m.label {
				continue
			}
			x := float64(f.Index)
			line, err := plotter.NewLine(plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}})
			if err != nil {
				return nil, fmt.Errorf("marker at frame %d: %w", f.Index, err)
			}
			line.Color = m.color
			line.Width = vg.Points(1)
			line.Dashes = markerDashes
			p.Add(line)
			// One legend entry per label, however many markers share it.
			if !legendAdded {
				p.Legend.Add(m.name, line)
				legendAdded = true
			}
		}
	}
	return p, nil
}

// addPosition draws the ball position, breaking the line where y is
// undefined.
func addPosition(p *plot.Plot, log model.Log) error {
	var segment plotter.XYs
	legendAdded := false
	flush := func() error {
		if len(segment) == 0 {
			return nil
		}
		line, err := plotter.NewLine(segment)
		if err != nil {
			return fmt.Errorf("position line: %w", err)
		}
		line.Color = positionColor
		line.Width = vg.Points(1)
		p.Add(line)
		if !legendAdded {
			p.Legend.Add("y-position", line)
			legendAdded = true
		}
		segment = nil
		return nil
	}

	for _, f := range log.Frames() {
		if !f.HasY {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		segment = append(segment, plotter.XY{X: float64(f.Index), Y: f.Y})
	}
	return flush()
}

// yBounds returns the vertical extent of the event markers: the range of
// defined positions, or [0, 1] when there are none.
func yBounds(log model.Log) (float64, float64) {
	_, ys := log.Positions()
	if len(ys) == 0 {
		return 0, 1
	}
	lo, hi := floats.Min(ys), floats.Max(ys)
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}
