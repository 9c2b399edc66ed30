// Package calib holds the calibration analysis core: reference
// normalization, per-spectrum polynomial fitting and population statistics
// of photonic wire-bond insertion loss.
package calib

import (
	"fmt"
	"math"
)

// Spectrum is one channel of one measurement sweep. Power is in dBm and
// Wavelength in nm, index-aligned.
type Spectrum struct {
	Name       string
	Bond       int
	Wavelength []float64
	Power      []float64
}

// Len returns the number of samples.
func (s Spectrum) Len() int {
	return len(s.Wavelength)
}

// Validate checks that s can take part in normalization.
func (s Spectrum) Validate() error {
	return validate(s.Name, s.Wavelength, s.Power, 1)
}

// ValidateReference checks s as a baseline: it must also hold at least two
// samples to be interpolated.
func (s Spectrum) ValidateReference() error {
	return validate(s.Name, s.Wavelength, s.Power, 2)
}

func validate(name string, x, y []float64, min int) error {
	if len(x) == 0 {
		return &InvalidSpectrumError{Spectrum: name, Reason: "no samples"}
	}
	if len(x) != len(y) {
		return &InvalidSpectrumError{
			Spectrum: name,
			Reason:   fmt.Sprintf("%d wavelengths but %d values", len(x), len(y)),
		}
	}
	if len(x) < min {
		return &InvalidSpectrumError{
			Spectrum: name,
			Reason:   fmt.Sprintf("%d samples, need at least %d", len(x), min),
		}
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return &InvalidSpectrumError{
				Spectrum: name,
				Reason:   fmt.Sprintf("non-finite value at sample %d", i),
			}
		}
		if i > 0 && x[i] <= x[i-1] {
			return &InvalidSpectrumError{
				Spectrum: name,
				Reason: fmt.Sprintf(
					"wavelength not strictly increasing at sample %d (%g after %g)",
					i, x[i], x[i-1],
				),
			}
		}
	}
	return nil
}
