package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/analysis"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
)

func TestWindows(t *testing.T) {
	res := &analysis.Result{
		Target: 1550,
		Fits: []calib.FittedLoss{
			{Curve: calib.LossCurve{Name: "a.csv", Bond: 2, Wavelength: []float64{1549, 1550}, Loss: []float64{2.1, 2.0}}},
		},
		Records: []calib.LossRecord{
			{Bond: 2, Loss: 2.0},
			{Bond: 5, Loss: 2.4},
		},
	}

	ws := windows(res)
	require.Len(t, ws, 2)

	assert.Equal(t, "Loss (1550 nm)", ws[0].title)
	require.Len(t, ws[0].groups, 1)
	assert.Equal(t, "Bond 2 a.csv", ws[0].groups[0].name)
	assert.Equal(t, "lines", ws[0].groups[0].style)
	assert.Equal(t, [][]float64{{1549, 1550}, {2.1, 2.0}}, ws[0].groups[0].data)

	assert.Equal(t, "Loss at 1550 nm", ws[1].title)
	assert.Equal(t, [][]float64{{2, 5}, {2.0, 2.4}}, ws[1].groups[0].data)
}
