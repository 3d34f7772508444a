package http

import (
	"bytes"
	"errors"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	"tablero/internal/dashboard"
)

var errNoChartData = errors.New("no data to chart")

const (
	chartWidth  = 800
	chartHeight = 360
	// room for the y axis ticks on the left
	chartAxisWidth = 80
)

// renderBarChart draws a series as a PNG bar chart. Percentage series are
// plotted on a fixed 0..100 axis.
func renderBarChart(title string, s dashboard.Series, percent bool) ([]byte, error) {
	if len(s) == 0 {
		return nil, errNoChartData
	}

	bars := make([]chart.Value, len(s))
	top := 1.0
	for i, p := range s {
		bars[i] = chart.Value{Label: p.Label, Value: p.Value}
		if p.Value > top {
			top = p.Value
		}
	}
	if percent {
		top = 100
	}

	slot := (chartWidth - chartAxisWidth) / len(s)
	spacing := slot / 4
	width := slot - spacing
	if width < 2 {
		width = 2
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   width,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}
