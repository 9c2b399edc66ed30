package calib

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LossRecord is one row of the loss table.
type LossRecord struct {
	Bond        int
	Spectrum    string
	Loss        float64
	Uncertainty float64
}

// AggregateResult summarises the loss records of a run.
type AggregateResult struct {
	N    int
	Mean float64
	// Std is the population standard deviation.
	Std float64
	// SEM is the standard error of the mean, Std/sqrt(N).
	SEM float64
	// Combined is sqrt(Std^2 + SEM^2).
	Combined float64
}

// Aggregate combines per-spectrum losses. It fails with NoDataError when
// records is empty.
func Aggregate(records []LossRecord, target float64) (AggregateResult, error) {
	if len(records) == 0 {
		return AggregateResult{}, &NoDataError{Target: target}
	}

	losses := make([]float64, len(records))
	for i, r := range records {
		losses[i] = r.Loss
	}

	mean, std := stat.PopMeanStdDev(losses, nil)
	n := float64(len(losses))
	sem := std / math.Sqrt(n)

	return AggregateResult{
		N:        len(losses),
		Mean:     mean,
		Std:      std,
		SEM:      sem,
		Combined: math.Sqrt(std*std + sem*sem),
	}, nil
}
