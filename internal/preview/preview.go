// Package preview opens quick-look gnuplot windows of a finished run.
package preview

import (
	"fmt"

	"github.com/Arafatk/glot"
	"github.com/apex/log"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/analysis"
)

// group is one point group of a glot window.
type group struct {
	name  string
	style string
	data  [][]float64
}

type window struct {
	title  string
	xlabel string
	ylabel string
	groups []group
}

// windows lays out the loss curves and the loss at the target per bond.
func windows(res *analysis.Result) []window {
	curves := window{
		title:  fmt.Sprintf("Loss (%g nm)", res.Target),
		xlabel: "Wavelength (nm)",
		ylabel: "Loss (dB)",
	}
	for _, f := range res.Fits {
		curves.groups = append(curves.groups, group{
			name:  fmt.Sprintf("Bond %d %s", f.Curve.Bond, f.Curve.Name),
			style: "lines",
			data:  [][]float64{f.Curve.Wavelength, f.Curve.Loss},
		})
	}

	bonds := make([]float64, len(res.Records))
	losses := make([]float64, len(res.Records))
	for i, r := range res.Records {
		bonds[i] = float64(r.Bond)
		losses[i] = r.Loss
	}
	target := window{
		title:  fmt.Sprintf("Loss at %g nm", res.Target),
		xlabel: "Bond",
		ylabel: "Loss (dB)",
		groups: []group{{name: "Loss", style: "points", data: [][]float64{bonds, losses}}},
	}

	return []window{curves, target}
}

// Show plots res in persistent gnuplot windows. gnuplot being unavailable
// is logged, never returned.
func Show(res *analysis.Result, logger log.Interface) {
	dimensions := 2
	persist := true
	debug := false

	for _, w := range windows(res) {
		plot, err := glot.NewPlot(dimensions, persist, debug)
		if err != nil {
			logger.Warnf("preview unavailable: %v", err)
			return
		}

		plot.SetTitle(w.title)
		plot.SetXLabel(w.xlabel)
		plot.SetYLabel(w.ylabel)

		for _, g := range w.groups {
			if err := plot.AddPointGroup(g.name, g.style, g.data); err != nil {
				logger.WithField("group", g.name).Warnf("preview: %v", err)
			}
		}
	}
}
