package calib

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sweep returns wavelengths from start to stop inclusive in steps of step.
func sweep(start, stop, step float64) []float64 {
	var w []float64
	for i := 0; start+float64(i)*step <= stop+step/2; i++ {
		w = append(w, start+float64(i)*step)
	}
	return w
}

func quartic(x float64) float64 {
	d := x - 1550
	return 2 + 0.01*d - 0.002*d*d + 1e-5*d*d*d + 3e-7*d*d*d*d
}

// ripple is deterministic pseudo noise.
func ripple(i int) float64 {
	return 0.03 * math.Sin(1.7*float64(i)+0.3)
}

func TestFitPolynomialRecoversQuartic(t *testing.T) {
	x := sweep(1500, 1600, 0.5)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = quartic(v)
	}

	for _, method := range []Method{MethodQR, MethodLM} {
		t.Run(string(method), func(t *testing.T) {
			p, err := FitPolynomial(x, y, method)
			require.NoError(t, err)
			for _, w := range []float64{1500, 1523.25, 1550, 1588, 1600} {
				assert.InDelta(t, quartic(w), p.Eval(w), 1e-6, "at %g", w)
			}
		})
	}
}

func TestPolynomialCoefficientsAscendingPowers(t *testing.T) {
	want := []float64{1, 2, -0.5, 0.1, -0.01}
	x := sweep(0, 10, 0.25)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = want[0] + want[1]*v + want[2]*v*v + want[3]*v*v*v + want[4]*v*v*v*v
	}

	p, err := FitPolynomial(x, y, MethodQR)
	require.NoError(t, err)

	got := p.Coefficients()
	require.Len(t, got, NumCoefficients)
	for k := range want {
		assert.InDelta(t, want[k], got[k], 1e-8, "coefficient %d", k)
	}
}

func TestFitAlwaysReturnsFiveCoefficients(t *testing.T) {
	for _, n := range []int{5, 6, 10, 101, 1000} {
		x := sweep(1500, 1500+float64(n-1), 1)
		require.Len(t, x, n)
		y := make([]float64, n)
		for i := range y {
			y[i] = ripple(i)
		}

		fl, err := FitCurve(LossCurve{Wavelength: x, Loss: y}, MethodQR)
		require.NoError(t, err)
		assert.Len(t, fl.Poly.Coefficients(), NumCoefficients, "n=%d", n)
		assert.Len(t, fl.Fitted, n)
	}
}

func TestFitMethodsAgreeOnNoisyCurve(t *testing.T) {
	x := sweep(1530, 1570, 0.2)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = quartic(v) + ripple(i)
	}

	qr, err := FitPolynomial(x, y, MethodQR)
	require.NoError(t, err)
	lmFit, err := FitPolynomial(x, y, MethodLM)
	require.NoError(t, err)

	for _, w := range []float64{1530, 1545, 1550, 1562.5, 1570} {
		assert.InDelta(t, qr.Eval(w), lmFit.Eval(w), 1e-5, "at %g", w)
	}
}

func TestEstimateAtTarget(t *testing.T) {
	x := sweep(1500, 1600, 0.5)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = quartic(v) + ripple(i)
	}

	fl, err := FitCurve(LossCurve{Name: "a.csv", Bond: 2, Wavelength: x, Loss: y}, MethodQR)
	require.NoError(t, err)

	est, err := fl.EstimateAt(1550, WindowNM)
	require.NoError(t, err)

	assert.Equal(t, 21, est.Window)
	assert.Equal(t, 1550.0, est.Target)
	assert.InDelta(t, 2.0, est.Loss, 0.05)
	assert.GreaterOrEqual(t, est.Uncertainty, 0.0)
	assert.Less(t, est.Uncertainty, 0.05)

	// recompute the local standard error of regression by hand
	rss := 0.
	n := 0
	for i, w := range x {
		if math.Abs(w-1550) <= 5 {
			r := y[i] - fl.Poly.Eval(w)
			rss += r * r
			n++
		}
	}
	assert.InDelta(t, math.Sqrt(rss/float64(n-5)), est.Uncertainty, 1e-12)
}

func TestEstimateExactPolynomialHasZeroUncertainty(t *testing.T) {
	x := sweep(1540, 1560, 1)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = quartic(v)
	}

	fl, err := FitCurve(LossCurve{Wavelength: x, Loss: y}, MethodQR)
	require.NoError(t, err)

	est, err := fl.EstimateAt(1550, WindowNM)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, est.Loss, 1e-9)
	assert.InDelta(t, 0.0, est.Uncertainty, 1e-9)
	assert.GreaterOrEqual(t, est.Uncertainty, 0.0)
}

func TestEstimateInsufficientSamples(t *testing.T) {
	// 2 nm spacing puts exactly five samples inside ±5 nm of 1550
	x := sweep(1500, 1600, 2)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = quartic(v)
	}

	fl, err := FitCurve(LossCurve{Wavelength: x, Loss: y}, MethodQR)
	require.NoError(t, err)

	_, err = fl.EstimateAt(1550, WindowNM)
	var insufficient *InsufficientSamplesError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, 5, insufficient.Have)
	assert.Equal(t, NumCoefficients, insufficient.Need)

	_, err = fl.EstimateAt(1700, WindowNM)
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, 0, insufficient.Have)
	assert.Contains(t, err.Error(), "no samples within ±5 nm of 1700 nm")
}

func TestThreePointBondInterpolatesTarget(t *testing.T) {
	ref := Spectrum{Name: "ref", Wavelength: []float64{1500, 1600}, Power: []float64{0, 0}}
	bond := Spectrum{
		Name:       "bond1.csv",
		Bond:       1,
		Wavelength: []float64{1500, 1550, 1600},
		Power:      []float64{-3, -2, -3},
	}

	curve, err := Normalize(ref, bond)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 3}, curve.Loss)

	// fewer samples than coefficients: the minimum-norm solution passes
	// through every sample, so the value at 1550 nm is the measured 2 dB
	fl, err := FitCurve(curve, MethodQR)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, fl.Poly.Eval(1550), 1e-9)
	for i := range curve.Loss {
		assert.InDelta(t, curve.Loss[i], fl.Fitted[i], 1e-9)
	}

	_, err = fl.EstimateAt(1550, WindowNM)
	var insufficient *InsufficientSamplesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Have)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodQR, m)

	m, err = ParseMethod("lm")
	require.NoError(t, err)
	assert.Equal(t, MethodLM, m)

	_, err = ParseMethod("spline")
	assert.Error(t, err)
}
