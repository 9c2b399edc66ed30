package calib

import (
	"gonum.org/v1/gonum/interp"
)

// LossCurve is the insertion loss of one spectrum against the reference,
// sampled on the spectrum's own wavelength axis.
type LossCurve struct {
	Name       string
	Bond       int
	Wavelength []float64
	Loss       []float64
}

// Len returns the number of samples.
func (c LossCurve) Len() int {
	return len(c.Wavelength)
}

// Normalize interpolates the reference power onto the target's wavelengths
// and returns loss = -(target - reference). Outside the reference domain
// the reference is held at its end values.
func Normalize(ref, target Spectrum) (LossCurve, error) {
	if err := ref.ValidateReference(); err != nil {
		return LossCurve{}, err
	}
	if err := target.Validate(); err != nil {
		return LossCurve{}, err
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(ref.Wavelength, ref.Power); err != nil {
		return LossCurve{}, &InvalidSpectrumError{Spectrum: ref.Name, Reason: err.Error()}
	}

	wl := make([]float64, target.Len())
	loss := make([]float64, target.Len())
	copy(wl, target.Wavelength)
	for i, w := range wl {
		loss[i] = -(target.Power[i] - pl.Predict(w))
	}

	return LossCurve{
		Name:       target.Name,
		Bond:       target.Bond,
		Wavelength: wl,
		Loss:       loss,
	}, nil
}
