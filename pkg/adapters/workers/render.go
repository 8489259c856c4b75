package workers

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 800
	chartHeight = 480
	barWidth    = 40
	barSpacing  = 20
)

// RenderSVG draws spec as a standalone SVG document.
// Specs are expected to pass Validate.
func RenderSVG(spec ChartSpec) ([]byte, error) {
	var (
		buf bytes.Buffer
		err error
	)
	switch spec.Type {
	case "line":
		err = lineChart(spec).Render(chart.SVG, &buf)
	case "pie":
		err = pieChart(spec).Render(chart.SVG, &buf)
	default:
		err = barChart(spec).Render(chart.SVG, &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", spec.Type, err)
	}
	return buf.Bytes(), nil
}

func values(labels []string, series ChartSeries) []chart.Value {
	out := make([]chart.Value, len(labels))
	for i, label := range labels {
		out[i] = chart.Value{Label: label, Value: series.Values[i]}
	}
	return out
}

func barChart(spec ChartSpec) chart.BarChart {
	width := max(chartWidth, len(spec.Labels)*(barWidth+barSpacing)+2*barSpacing)
	return chart.BarChart{
		Title:  spec.Title,
		Width:  width,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis:        chart.YAxis{Range: flatRange(spec.Series, true)},
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         values(spec.Labels, spec.Series[0]),
	}
}

func pieChart(spec ChartSpec) chart.PieChart {
	return chart.PieChart{
		Title:  spec.Title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: values(spec.Labels, spec.Series[0]),
	}
}

func lineChart(spec ChartSpec) *chart.Chart {
	xs := make([]float64, len(spec.Labels))
	ticks := make([]chart.Tick, len(spec.Labels))
	for i, label := range spec.Labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: label}
	}

	graph := &chart.Chart{
		Title:  spec.Title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: spec.XLabel, Ticks: ticks},
		YAxis: chart.YAxis{Name: spec.YLabel, Range: flatRange(spec.Series, false)},
	}
	for _, ser := range spec.Series {
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    ser.Name,
			XValues: xs,
			YValues: ser.Values,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph
}

// flatRange pads the y range when every plotted value is the same, since
// the renderer refuses a zero-height range. It returns nil otherwise.
func flatRange(series []ChartSeries, fromZero bool) chart.Range {
	var lo, hi float64
	first := !fromZero
	for _, ser := range series {
		for _, v := range ser.Values {
			if first {
				lo, hi, first = v, v, false
				continue
			}
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	if lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}
