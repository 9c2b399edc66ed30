package calib

import (
	"fmt"
	"strconv"
)

// InvalidSpectrumError reports a spectrum that cannot be normalized:
// empty, mismatched columns, non-finite values or a wavelength axis that
// is not strictly increasing.
type InvalidSpectrumError struct {
	Spectrum string
	Reason   string
}

func (e *InvalidSpectrumError) Error() string {
	if e.Spectrum == "" {
		return "invalid spectrum: " + e.Reason
	}
	return fmt.Sprintf("invalid spectrum %q: %s", e.Spectrum, e.Reason)
}

// InsufficientSamplesError reports a tolerance window around the target
// wavelength holding too few samples to estimate the fit uncertainty.
type InsufficientSamplesError struct {
	Target    float64
	Tolerance float64
	Have      int
	Need      int
}

func (e *InsufficientSamplesError) Error() string {
	if e.Have == 0 {
		return fmt.Sprintf("no samples within ±%s nm of %s nm", ftoa(e.Tolerance), ftoa(e.Target))
	}
	return fmt.Sprintf(
		"%d samples within ±%s nm of %s nm, need more than %d",
		e.Have, ftoa(e.Tolerance), ftoa(e.Target), e.Need,
	)
}

// NoDataError reports a run in which no spectrum produced a loss record.
type NoDataError struct {
	Target  float64
	Skipped int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf(
		"no usable loss records at %s nm (%d spectra skipped); expected at least one bond spectrum with samples around the target wavelength",
		ftoa(e.Target), e.Skipped,
	)
}

// ReferenceReadError wraps any failure to load the reference spectrum.
type ReferenceReadError struct {
	Path string
	Err  error
}

func (e *ReferenceReadError) Error() string {
	return fmt.Sprintf("reading reference spectrum %s: %v", e.Path, e.Err)
}

func (e *ReferenceReadError) Unwrap() error { return e.Err }

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
