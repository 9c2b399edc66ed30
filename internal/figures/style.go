// Package figures renders the calibration charts with gonum/plot and
// returns them as encoded PNG images.
package figures

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Figure is one rendered chart.
type Figure struct {
	Name string
	PNG  []byte
}

const (
	width  = 10 * vg.Inch
	height = 6 * vg.Inch
)

var (
	black = color.RGBA{A: 255}
	band  = color.RGBA{R: 128, G: 128, B: 128, A: 51}
	red   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func prepPlot(
	title, xlabel, ylabel string,
) (
	*plot.Plot,
) {

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = 16
	p.Title.Padding = font.Length(10)

	p.X.Label.Text = xlabel
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = 13
	p.X.LineStyle.Width = vg.Points(1)
	p.X.Tick.LineStyle.Width = vg.Points(1)
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = 11

	p.Y.Label.Text = ylabel
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = 13
	p.Y.LineStyle.Width = vg.Points(1)
	p.Y.Tick.LineStyle.Width = vg.Points(1)
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = 11

	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.TextStyle.Font.Size = 10
	p.Legend.Top = true
	p.Legend.Padding = vg.Points(2)
	p.Legend.ThumbnailWidth = vg.Points(25)

	p.Add(plotter.NewGrid())

	return p
}

// palette cycles through ten distinct line colours, one per bond.
func palette(
	brush int,
) (
	color.RGBA,
) {

	col := []color.RGBA{
		{R: 31, G: 119, B: 180, A: 255},
		{R: 255, G: 127, B: 14, A: 255},
		{R: 44, G: 160, B: 44, A: 255},
		{R: 214, G: 39, B: 40, A: 255},
		{R: 148, G: 103, B: 189, A: 255},
		{R: 140, G: 86, B: 75, A: 255},
		{R: 227, G: 119, B: 194, A: 255},
		{R: 127, G: 127, B: 127, A: 255},
		{R: 188, G: 189, B: 34, A: 255},
		{R: 23, G: 190, B: 207, A: 255},
	}

	return col[brush%len(col)]
}

func buildData(
	x, y []float64,
) (
	plotter.XYs,
) {

	xy := make(plotter.XYs, len(x))

	for i := range xy {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}

	return xy
}

func buildErrors(
	σ []float64,
) (
	plotter.Errors,
) {

	errs := make(plotter.Errors, len(σ))

	for i := range errs {
		errs[i].Low, errs[i].High = σ[i], σ[i]
	}

	return errs
}

func encode(
	p *plot.Plot,
	name string,
) (
	Figure, error,
) {

	w, err := p.WriterTo(width, height, "png")
	if err != nil {
		return Figure{}, fmt.Errorf("rendering %s: %w", name, err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return Figure{}, fmt.Errorf("encoding %s: %w", name, err)
	}

	return Figure{Name: name, PNG: buf.Bytes()}, nil
}
