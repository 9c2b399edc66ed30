package calib

import (
	"errors"
	"fmt"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/mat"
)

const (
	// Degree of the loss curve model.
	Degree = 4

	// NumCoefficients is the number of fitted parameters.
	NumCoefficients = Degree + 1

	// WindowNM is the half width of the uncertainty window around the
	// target wavelength.
	WindowNM = 5.0
)

// Method selects the least-squares solver.
type Method string

const (
	MethodQR Method = "qr"
	MethodLM Method = "lm"
)

// ParseMethod maps a configuration string to a Method. Empty means QR.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodQR:
		return MethodQR, nil
	case MethodLM:
		return MethodLM, nil
	}
	return "", fmt.Errorf("unknown fit method %q (want %q or %q)", s, MethodQR, MethodLM)
}

// Polynomial is a degree-4 model. It is evaluated in t = (x-center)/scale,
// which keeps the normal equations well conditioned at telecom wavelengths.
type Polynomial struct {
	coeffs []float64
	center float64
	scale  float64
}

// Eval evaluates the polynomial at x.
func (p Polynomial) Eval(x float64) float64 {
	t := (x - p.center) / p.scale
	y := 0.
	for k := len(p.coeffs) - 1; k >= 0; k-- {
		y = y*t + p.coeffs[k]
	}
	return y
}

// Coefficients returns the NumCoefficients coefficients in ascending
// powers of x.
func (p Polynomial) Coefficients() []float64 {
	raw := make([]float64, len(p.coeffs))
	for k, c := range p.coeffs {
		ck := c / math.Pow(p.scale, float64(k))
		for j := 0; j <= k; j++ {
			raw[j] += ck * binomial(k, j) * math.Pow(-p.center, float64(k-j))
		}
	}
	return raw
}

func binomial(n, k int) float64 {
	r := 1.
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

// FitPolynomial fits y(x) by least squares. With fewer samples than
// coefficients the minimum-norm solution is returned.
func FitPolynomial(
	x, y []float64,
	method Method,
) (
	Polynomial, error,
) {

	if err := validate("", x, y, 1); err != nil {
		return Polynomial{}, err
	}

	n := len(x)
	center := (x[0] + x[n-1]) / 2
	scale := (x[n-1] - x[0]) / 2
	if scale == 0 {
		scale = 1
	}

	t := make([]float64, n)
	for i, v := range x {
		t[i] = (v - center) / scale
	}

	var coeffs []float64
	var err error
	if method == MethodLM && n >= NumCoefficients {
		coeffs, err = solveLM(t, y)
	} else {
		coeffs, err = solveQR(t, y)
	}
	if err != nil {
		return Polynomial{}, err
	}

	return Polynomial{coeffs: coeffs, center: center, scale: scale}, nil
}

func solveQR(t, y []float64) ([]float64, error) {
	n := len(t)
	a := mat.NewDense(n, NumCoefficients, nil)
	for i, ti := range t {
		v := 1.
		for k := 0; k < NumCoefficients; k++ {
			a.Set(i, k, v)
			v *= ti
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("least squares: %w", err)
		}
	}

	coeffs := make([]float64, NumCoefficients)
	for k := range coeffs {
		coeffs[k] = c.AtVec(k)
	}
	return coeffs, nil
}

func solveLM(t, y []float64) ([]float64, error) {

	f := func(dst, guess []float64) {
		for i, ti := range t {
			v := 0.
			for k := NumCoefficients - 1; k >= 0; k-- {
				v = v*ti + guess[k]
			}
			dst[i] = v - y[i]
		}
	}

	jacobian := lm.NumJac{Func: f}

	toBeSolved := lm.LMProblem{
		Dim:        NumCoefficients,
		Size:       len(t),
		Func:       f,
		Jac:        jacobian.Jac,
		InitParams: make([]float64, NumCoefficients),
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	results, err := lm.LM(toBeSolved, &lm.Settings{Iterations: 1000, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, fmt.Errorf("levenberg-marquardt: %w", err)
	}
	return append([]float64(nil), results.X...), nil
}

// FittedLoss is a loss curve together with its polynomial model evaluated
// on the curve's own wavelengths.
type FittedLoss struct {
	Curve  LossCurve
	Poly   Polynomial
	Fitted []float64
}

// FitCurve fits the whole wavelength domain of c.
func FitCurve(c LossCurve, method Method) (FittedLoss, error) {
	if err := validate(c.Name, c.Wavelength, c.Loss, 1); err != nil {
		return FittedLoss{}, err
	}

	p, err := FitPolynomial(c.Wavelength, c.Loss, method)
	if err != nil {
		return FittedLoss{}, fmt.Errorf("fitting %s: %w", c.Name, err)
	}

	fitted := make([]float64, c.Len())
	for i, w := range c.Wavelength {
		fitted[i] = p.Eval(w)
	}

	return FittedLoss{Curve: c, Poly: p, Fitted: fitted}, nil
}

// Estimate is the fitted loss at the target wavelength.
type Estimate struct {
	Target      float64
	Loss        float64
	Uncertainty float64
	Window      int
}

// EstimateAt evaluates the fit at target. The uncertainty is the standard
// error of regression over the residuals with |w-target| <= tolerance.
func (fl FittedLoss) EstimateAt(target, tolerance float64) (Estimate, error) {
	rss := 0.
	n := 0
	for i, w := range fl.Curve.Wavelength {
		if w < target-tolerance || w > target+tolerance {
			continue
		}
		r := fl.Curve.Loss[i] - fl.Fitted[i]
		rss += r * r
		n++
	}

	if n <= NumCoefficients {
		return Estimate{}, &InsufficientSamplesError{
			Target:    target,
			Tolerance: tolerance,
			Have:      n,
			Need:      NumCoefficients,
		}
	}

	return Estimate{
		Target:      target,
		Loss:        fl.Poly.Eval(target),
		Uncertainty: math.Sqrt(rss / float64(n-NumCoefficients)),
		Window:      n,
	}, nil
}
