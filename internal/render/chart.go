// Package render draws the weekly comparison chart: a gray bar for last
// week next to a zone-colored bar for this week, per category.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"batch-health/internal/models"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNothingToRender = errors.New("no results to render")

const (
	barWidth   = 28
	barSpacing = 6
	lastWeek   = "808080"
)

type Options struct {
	Width      int
	Height     int
	ShowDeltas bool
}

func (o Options) size(n int) (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = int(math.Max(800, float64(n*2*(barWidth+barSpacing)+240)))
	}
	if h <= 0 {
		h = 480
	}
	return w, h
}

type legendEntry struct {
	label string
	fill  string
}

var legend = []legendEntry{
	{"Healthy Zone", models.ColorGreen.Hex()},
	{"Watch Zone", models.ColorOrange.Hex()},
	{"Risk Zone", models.ColorRed.Hex()},
	{"Last Week", lastWeek},
	{"This Week (Color Coded)", "ffffff"},
}

// RenderComparison writes a PNG. Bars keep the order of results and take
// their fill from ZoneResult.Color.
func RenderComparison(w io.Writer, title string, results []models.ZoneResult, opts Options) error {
	if len(results) == 0 {
		return ErrNothingToRender
	}

	width, height := opts.size(len(results))
	bars, maxVal := comparisonBars(results, opts.ShowDeltas)

	top := 100.0
	if maxVal > 0 {
		top = math.Ceil(maxVal*1.15/5) * 5
	}

	bc := chart.BarChart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 96, Left: 16, Right: 16, Bottom: 16},
		},
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis: chart.YAxis{
			Name:  "Percentage of Batches",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Bars:     bars,
		Elements: []chart.Renderable{drawLegend},
	}

	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// comparisonBars pairs a last-week bar with a this-week bar per result. The
// this-week fill is ZoneResult.Color as given.
func comparisonBars(results []models.ZoneResult, showDeltas bool) ([]chart.Value, float64) {
	bars := make([]chart.Value, 0, len(results)*2)
	maxVal := 0.0
	for _, r := range results {
		bars = append(bars,
			chart.Value{
				Label: r.Label,
				Value: r.Previous,
				Style: barStyle(lastWeek),
			},
			chart.Value{
				Label: currentLabel(r, showDeltas),
				Value: r.Current,
				Style: barStyle(r.Color.Hex()),
			},
		)
		maxVal = math.Max(maxVal, math.Max(r.Previous, r.Current))
	}
	return bars, maxVal
}

func currentLabel(r models.ZoneResult, showDeltas bool) string {
	if showDeltas {
		return r.Annotation()
	}
	return ""
}

func barStyle(hex string) chart.Style {
	return chart.Style{
		FillColor:   drawing.ColorFromHex(hex),
		StrokeColor: drawing.ColorBlack,
		StrokeWidth: 1,
	}
}

func drawLegend(r chart.Renderer, canvas chart.Box, defaults chart.Style) {
	text := chart.Style{
		FontSize:  8,
		FontColor: drawing.ColorBlack,
	}.InheritFrom(defaults)
	text.WriteTextOptionsToRenderer(r)

	const swatch, gap, rowHeight = 10, 6, 14
	widest := 0
	for _, e := range legend {
		if tw := r.MeasureText(e.label).Width(); tw > widest {
			widest = tw
		}
	}

	// legend sits in the top padding, right aligned
	left := canvas.Right - (swatch + gap + widest + 8)
	y := canvas.Top - len(legend)*rowHeight - 4
	for _, e := range legend {
		chart.Draw.Box(r, chart.Box{Top: y, Left: left, Right: left + swatch, Bottom: y + swatch}, chart.Style{
			FillColor:   drawing.ColorFromHex(e.fill),
			StrokeColor: drawing.ColorBlack,
			StrokeWidth: 1,
		})
		text.WriteTextOptionsToRenderer(r)
		r.Text(e.label, left+swatch+gap, y+swatch-1)
		y += rowHeight
	}
}
