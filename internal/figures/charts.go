package figures

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
)

// Suffixes of the four standard views.
const (
	RawSuffix          = "calibRaw"
	LossSuffix         = "calibLoss"
	FittedSuffix       = "fittedLoss"
	LossAtTargetSuffix = "calibLossWAVL"
)

// Name prefixes a view suffix with the target wavelength, e.g.
// "1550_calibRaw".
func Name(target float64, suffix string) string {
	return strconv.FormatFloat(target, 'f', -1, 64) + "_" + suffix
}

func bondLabel(bond int) string {
	return "Bond_" + strconv.Itoa(bond)
}

// brushes assigns each distinct bond its rank among all bonds, so a bond
// keeps its colour across every view.
func brushes(bonds []int) map[int]int {
	uniq := append([]int(nil), bonds...)
	sort.Ints(uniq)
	m := make(map[int]int)
	for _, b := range uniq {
		if _, ok := m[b]; !ok {
			m[b] = len(m)
		}
	}
	return m
}

// legendOnce adds one legend entry per bond.
type legendOnce map[int]bool

func (l legendOnce) add(p *plot.Plot, bond int, th plot.Thumbnailer) {
	if l[bond] {
		return
	}
	l[bond] = true
	p.Legend.Add(bondLabel(bond), th)
}

// Raw overlays the reference sweep and every bond sweep.
func Raw(
	ref calib.Spectrum,
	spectra []calib.Spectrum,
	target float64,
) (
	Figure, error,
) {

	p := prepPlot("Raw PWB Calibration Data", "Wavelength (nm)", "Power (dBm)")

	refLine, err := plotter.NewLine(buildData(ref.Wavelength, ref.Power))
	if err != nil {
		return Figure{}, err
	}
	refLine.Color = black
	p.Add(refLine)
	p.Legend.Add("Reference", refLine)

	bonds := make([]int, len(spectra))
	for i, s := range spectra {
		bonds[i] = s.Bond
	}
	brush := brushes(bonds)
	legend := legendOnce{}

	for _, s := range spectra {
		l, err := plotter.NewLine(buildData(s.Wavelength, s.Power))
		if err != nil {
			return Figure{}, fmt.Errorf("%s: %w", s.Name, err)
		}
		l.Color = palette(brush[s.Bond])
		p.Add(l)
		legend.add(p, s.Bond, l)
	}

	return encode(p, Name(target, RawSuffix))
}

// Loss plots every insertion-loss curve against wavelength.
func Loss(
	curves []calib.LossCurve,
	target float64,
) (
	Figure, error,
) {

	p := prepPlot("PWB Calibration Data Insertion Loss", "Wavelength (nm)", "Insertion Loss (dB)")

	bonds := make([]int, len(curves))
	for i, c := range curves {
		bonds[i] = c.Bond
	}
	brush := brushes(bonds)
	legend := legendOnce{}

	for _, c := range curves {
		l, err := plotter.NewLine(buildData(c.Wavelength, c.Loss))
		if err != nil {
			return Figure{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		l.Color = palette(brush[c.Bond])
		p.Add(l)
		legend.add(p, c.Bond, l)
	}

	return encode(p, Name(target, LossSuffix))
}

// Fitted plots every polynomial fit on the wavelength grid of the first
// curve, with their average and a ±1 standard deviation band.
func Fitted(
	fits []calib.FittedLoss,
	target float64,
) (
	Figure, error,
) {

	p := prepPlot(
		"Fitted PWB Calibration Data Insertion Loss with Average and Std Dev",
		"Wavelength (nm)", "Insertion Loss (dB)",
	)

	if len(fits) == 0 {
		return encode(p, Name(target, FittedSuffix))
	}

	grid := fits[0].Curve.Wavelength
	bonds := make([]int, len(fits))
	for i, f := range fits {
		bonds[i] = f.Curve.Bond
	}
	brush := brushes(bonds)
	legend := legendOnce{}

	// columns[j] holds every fit evaluated at grid[j]
	columns := make([][]float64, len(grid))
	for j := range columns {
		columns[j] = make([]float64, len(fits))
	}

	for i, f := range fits {
		y := make([]float64, len(grid))
		for j, w := range grid {
			y[j] = f.Poly.Eval(w)
			columns[j][i] = y[j]
		}

		l, err := plotter.NewLine(buildData(grid, y))
		if err != nil {
			return Figure{}, fmt.Errorf("%s: %w", f.Curve.Name, err)
		}
		c := palette(brush[f.Curve.Bond])
		c.A = 128
		l.Color = c
		p.Add(l)
		legend.add(p, f.Curve.Bond, l)
	}

	avg := make([]float64, len(grid))
	upper := make(plotter.XYs, len(grid))
	lower := make(plotter.XYs, len(grid))
	for j, w := range grid {
		mean, std := stat.PopMeanStdDev(columns[j], nil)
		avg[j] = mean
		upper[j] = plotter.XY{X: w, Y: mean + std}
		lower[len(grid)-1-j] = plotter.XY{X: w, Y: mean - std}
	}

	shade, err := plotter.NewPolygon(append(upper, lower...))
	if err != nil {
		return Figure{}, err
	}
	shade.Color = band
	shade.LineStyle.Width = 0

	avgLine, err := plotter.NewLine(buildData(grid, avg))
	if err != nil {
		return Figure{}, err
	}
	avgLine.Color = black
	avgLine.Width = vg.Points(1.5)

	p.Add(shade, avgLine)
	p.Legend.Add("Average Fitted Difference", avgLine)
	p.Legend.Add("±1 Std Dev", shade)

	return encode(p, Name(target, FittedSuffix))
}

// LossAtTarget plots each record's loss at the target wavelength against
// its bond number, with the population mean as a dashed reference line.
func LossAtTarget(
	records []calib.LossRecord,
	agg *calib.AggregateResult,
	target float64,
) (
	Figure, error,
) {

	wl := strconv.FormatFloat(target, 'f', -1, 64)
	p := prepPlot(
		"PWB Calibration Data Insertion Loss at "+wl+" nm",
		"Bond Number", "Insertion Loss at "+wl+" nm (dB)",
	)

	type errorPoints struct {
		plotter.XYs
		plotter.YErrors
	}

	bonds := make([]int, len(records))
	for i, r := range records {
		bonds[i] = r.Bond
	}
	brush := brushes(bonds)
	legend := legendOnce{}

	var ticks []plot.Tick
	for _, r := range records {

		pts := buildData([]float64{float64(r.Bond)}, []float64{r.Loss})
		σErr := buildErrors([]float64{r.Uncertainty})

		setPoints := errorPoints{
			XYs:     pts,
			YErrors: plotter.YErrors(σErr),
		}

		plotSet, err := plotter.NewScatter(setPoints)
		if err != nil {
			return Figure{}, err
		}

		// Error bars
		e, err := plotter.NewYErrorBars(setPoints)
		if err != nil {
			return Figure{}, err
		}

		c := palette(brush[r.Bond])
		e.LineStyle.Color = c
		plotSet.GlyphStyle.Color = c
		plotSet.GlyphStyle.Radius = vg.Points(4)
		plotSet.Shape = draw.CircleGlyph{}

		p.Add(e, plotSet)
		legend.add(p, r.Bond, plotSet)

		if len(ticks) == 0 || ticks[len(ticks)-1].Value != float64(r.Bond) {
			ticks = append(ticks, plot.Tick{Value: float64(r.Bond), Label: strconv.Itoa(r.Bond)})
		}
	}
	if len(ticks) > 0 {
		p.X.Tick.Marker = plot.ConstantTicks(ticks)
	}

	if agg != nil && len(records) > 0 {
		xmin, xmax := ticks[0].Value, ticks[len(ticks)-1].Value
		mean := plotter.XYs{{X: xmin - 0.5, Y: agg.Mean}, {X: xmax + 0.5, Y: agg.Mean}}

		m, err := plotter.NewLine(mean)
		if err != nil {
			return Figure{}, err
		}
		m.Color = red
		m.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

		p.Add(m)
		p.Legend.Add(fmt.Sprintf("Average: %.2f ± %.2f dB", agg.Mean, agg.Combined), m)
	}

	return encode(p, Name(target, LossAtTargetSuffix))
}

// PerSpectrum plots one loss curve next to its polynomial fit.
func PerSpectrum(
	fit calib.FittedLoss,
	brush int,
	name string,
) (
	Figure, error,
) {

	label := bondLabel(fit.Curve.Bond)
	p := prepPlot("Original and Fitted Data for "+label, "Wavelength (nm)", "Insertion Loss (dB)")

	orig, err := plotter.NewLine(buildData(fit.Curve.Wavelength, fit.Curve.Loss))
	if err != nil {
		return Figure{}, err
	}
	orig.Color = palette(brush)

	fitted, err := plotter.NewLine(buildData(fit.Curve.Wavelength, fit.Fitted))
	if err != nil {
		return Figure{}, err
	}
	fitted.Color = black
	fitted.Width = vg.Points(2)
	fitted.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	p.Add(orig, fitted)
	p.Legend.Add("Original "+label, orig)
	p.Legend.Add("Fitted "+label, fitted)

	return encode(p, name)
}
