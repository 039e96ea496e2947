package visualization

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
	"polcam/pkg/ellipse"
	"polcam/pkg/polarization"
)

// MaxInteractiveCells bounds the number of cells written into an interactive
// heatmap page; larger fields are decimated with a uniform step.
const MaxInteractiveCells = 250000

// interactiveStep returns the smallest sampling step that keeps the field
// under MaxInteractiveCells.
func interactiveStep(f models.Field) int {
	step := 1
	for (f.Rows/step+1)*(f.Cols/step+1) > MaxInteractiveCells {
		step++
	}
	return step
}

// SaveInteractiveHeatmap writes a self-contained HTML heatmap of a descriptor
// with hover readout of row, column and value.
func SaveInteractiveHeatmap(path, name string, f models.Field) error {
	if f.Empty() {
		return apperrors.NewShapeError(name, fmt.Sprintf("cannot render an empty %s field", f))
	}

	lo, hi := ColorRange(name, f)
	field := polarization.DisplayClamp(name, f)
	step := interactiveStep(field)

	xs := make([]int, 0, field.Cols/step+1)
	for c := 0; c < field.Cols; c += step {
		xs = append(xs, c)
	}
	// Category axes grow upward, so rows are listed bottom first to keep
	// row 0 at the top.
	var rows []int
	for r := 0; r < field.Rows; r += step {
		rows = append(rows, r)
	}
	ys := make([]int, len(rows))
	for i, r := range rows {
		ys[len(rows)-1-i] = r
	}

	data := make([]opts.HeatMapData, 0, len(xs)*len(ys))
	for yi, r := range ys {
		for xi, c := range xs {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{xi, yi, field.At(r, c)}})
		}
	}

	subtitle := fmt.Sprintf("%s  %dx%d", name, field.Rows, field.Cols)
	if step > 1 {
		subtitle += fmt.Sprintf("  (every %d px)", step)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: fmt.Sprintf("%s (Interactive)", name), Width: "900px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s (Interactive)", models.DisplayName(name)), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "column", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "row", Data: ys, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Text:       []string{name},
			InRange:    &opts.VisualMapInRange{Color: ViridisHex()},
		}),
	)
	hm.SetXAxis(xs).AddSeries(name, data)

	return renderTo(path, hm.Render)
}

// SaveInteractiveEllipses writes an HTML page plotting every ellipse as a
// closed line on value axes.
func SaveInteractiveEllipses(path string, curves []ellipse.Curve) error {
	line := charts.NewLine()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Interactive Polarization Ellipses", Width: "900px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "Interactive Polarization Ellipses", Subtitle: fmt.Sprintf("%d ellipses", len(curves))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}, opts.DataZoom{Type: "inside", YAxisIndex: []int{0}}),
	}
	xAxis := opts.XAxis{Type: "value", Name: "X"}
	yAxis := opts.YAxis{Type: "value", Name: "Y"}
	if len(curves) > 0 {
		minX, minY, maxX, maxY := ellipse.Bounds(curves)
		xAxis.Min, xAxis.Max = minX-1, maxX+1
		yAxis.Min, yAxis.Max = minY-1, maxY+1
	}
	global = append(global, charts.WithXAxisOpts(xAxis), charts.WithYAxisOpts(yAxis))
	line.SetGlobalOptions(global...)

	for _, c := range curves {
		pts := closedXYs(c)
		data := make([]opts.LineData, 0, len(pts))
		for _, p := range pts {
			data = append(data, opts.LineData{Value: []interface{}{p.X, p.Y}})
		}
		line.AddSeries(fmt.Sprintf("(%d, %d)", c.Row, c.Col), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"}),
		)
	}

	return renderTo(path, line.Render)
}

func renderTo(path string, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to render %s", path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
