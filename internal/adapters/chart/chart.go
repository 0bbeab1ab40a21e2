// Package chart renders an event log as an interactive HTML page using
// go-echarts. It mirrors the static plots: ball position with dashed
// mark-lines at annotated (top) and predicted (bottom) events.
package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/okian/rallyeval/internal/domain/model"
)

const (
	hitColor    = "green"
	bounceColor = "red"
	chartWidth  = "1100px"
	chartHeight = "480px"
)

// Render writes a two-chart HTML page for log to w.
func Render(w io.Writer, log model.Log) error {
	page := components.NewPage()
	page.PageTitle = "Predicted vs actual events"
	page.AddCharts(
		eventChart(log, "Actual Hits and Bounces", "Actual", func(f model.Frame) model.Label { return f.Actual }, false),
		eventChart(log, "Predicted Hits and Bounces", "Pred", func(f model.Frame) model.Label { return f.Predicted }, true),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

func eventChart(log model.Log, title, prefix string, label func(model.Frame) model.Label, showFrameLabel bool) *charts.Line {
	xAxis := opts.XAxis{Type: "value"}
	if first, last, ok := log.Span(); ok {
		xAxis.Min = first
		xAxis.Max = last
	}
	if showFrameLabel {
		xAxis.Name = "Frame"
		xAxis.NameLocation = "middle"
		xAxis.NameGap = 25
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "y", Scale: opts.Bool(true)}),
	)

	frames := log.Frames()
	position := make([]opts.LineData, 0, len(frames))
	for _, f := range frames {
		// "-" leaves a gap where the position is undefined.
		var y interface{} = "-"
		if f.HasY {
			y = f.Y
		}
		position = append(position, opts.LineData{Value: []interface{}{f.Index, y}})
	}
	line.AddSeries("y-position", position, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	addMarkers(line, prefix+" Hit", hitColor, frames, func(f model.Frame) bool { return label(f) == model.LabelHit })
	addMarkers(line, prefix+" Bounce", bounceColor, frames, func(f model.Frame) bool { return label(f) == model.LabelBounce })
	return line
}

// addMarkers adds one series per label so the legend holds a single
// entry however many frames carry it.
func addMarkers(line *charts.Line, name, color string, frames []model.Frame, keep func(model.Frame) bool) {
	var items []opts.MarkLineNameXAxisItem
	for _, f := range frames {
		if keep(f) {
			items = append(items, opts.MarkLineNameXAxisItem{Name: name, XAxis: f.Index})
		}
	}
	if len(items) == 0 {
		return
	}
	line.AddSeries(name, []opts.LineData{},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Color: color}),
		charts.WithMarkLineNameXAxisItemOpts(items...),
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Symbol: []string{"none", "none"},
			Label:  &opts.Label{Show: opts.Bool(false)},
		}),
	)
}
