// Package analysis drives one calibration run: every bond spectrum is
// normalized against the reference and fitted on a worker pool, the
// results are aggregated once all fits are in, and the standard figures
// are rendered.
package analysis

import (
	"context"
	"fmt"
	"runtime"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/dataset"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/figures"
)

// Options configures a run.
type Options struct {
	Target float64
	// Tolerance is the half width of the uncertainty window, calib.WindowNM
	// when zero.
	Tolerance float64
	Method    calib.Method
	// Workers bounds the fitting pool, runtime.NumCPU() when < 1.
	Workers int
	// Verbose adds an original-vs-fitted figure per spectrum.
	Verbose bool
}

// Skip is a spectrum left out of the loss table.
type Skip struct {
	Bond     int
	Spectrum string
	Err      error
}

// Result is everything a run produces.
type Result struct {
	Target    float64
	Reference calib.Spectrum
	// Spectra in processing order: bond ascending, then file name.
	Spectra []calib.Spectrum
	// Fits holds every spectrum that could be normalized and fitted,
	// including those later skipped for lack of window samples.
	Fits      []calib.FittedLoss
	Records   []calib.LossRecord
	Aggregate calib.AggregateResult
	Skipped   []Skip
	Figures   []figures.Figure
}

type outcome struct {
	fit    calib.FittedLoss
	fitted bool
	est    calib.Estimate
	err    error
}

// Run analyses groups against ref. Per-spectrum failures are logged and
// skipped; an invalid reference or a run without any loss record is fatal.
func Run(
	ctx context.Context,
	ref calib.Spectrum,
	groups dataset.Groups,
	opts Options,
	logger log.Interface,
) (
	*Result, error,
) {

	if opts.Tolerance == 0 {
		opts.Tolerance = calib.WindowNM
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}

	if err := ref.ValidateReference(); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	res := &Result{Target: opts.Target, Reference: ref}
	for _, bond := range groups.Bonds() {
		res.Spectra = append(res.Spectra, groups[bond]...)
	}

	logger.WithFields(log.Fields{
		"bonds":   len(groups),
		"spectra": len(res.Spectra),
		"workers": opts.Workers,
		"method":  string(opts.Method),
	}).Info("fitting spectra")

	outcomes, err := fitAll(ctx, ref, res.Spectra, opts)
	if err != nil {
		return nil, err
	}

	for i, o := range outcomes {
		s := res.Spectra[i]
		entry := logger.WithFields(log.Fields{"bond": s.Bond, "spectrum": s.Name})

		if o.fitted {
			res.Fits = append(res.Fits, o.fit)
		}
		if o.err != nil {
			entry.Warnf("excluded from loss table: %v", o.err)
			res.Skipped = append(res.Skipped, Skip{Bond: s.Bond, Spectrum: s.Name, Err: o.err})
			continue
		}

		entry.Infof(
			"Bond %d: Difference at %g nm = %.2f ± %.2f dB",
			s.Bond, opts.Target, o.est.Loss, o.est.Uncertainty,
		)
		res.Records = append(res.Records, calib.LossRecord{
			Bond:        s.Bond,
			Spectrum:    s.Name,
			Loss:        o.est.Loss,
			Uncertainty: o.est.Uncertainty,
		})
	}

	if len(res.Skipped) > 0 {
		logger.Warnf("%d of %d spectra excluded from the loss table", len(res.Skipped), len(res.Spectra))
	}

	if len(res.Records) == 0 {
		return nil, &calib.NoDataError{Target: opts.Target, Skipped: len(res.Skipped)}
	}

	agg, err := calib.Aggregate(res.Records, opts.Target)
	if err != nil {
		return nil, err
	}
	res.Aggregate = agg

	logger.Infof("Average difference at %g nm: %.2f +/- %.2f dB", opts.Target, agg.Mean, agg.Combined)
	logger.Infof("Standard deviation: %.2f dB", agg.Std)
	logger.Infof("Standard error of the mean: %.2f dB", agg.SEM)

	res.Figures, err = render(res, opts)
	if err != nil {
		return nil, fmt.Errorf("rendering figures: %w", err)
	}

	return res, nil
}

// fitAll normalizes, fits and estimates every spectrum. Each result goes
// into the slot of its spectrum, so the order never depends on which
// worker finishes first.
func fitAll(
	ctx context.Context,
	ref calib.Spectrum,
	spectra []calib.Spectrum,
	opts Options,
) (
	[]outcome, error,
) {

	outcomes := make([]outcome, len(spectra))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, s := range spectra {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = fitOne(ref, s, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

func fitOne(ref, s calib.Spectrum, opts Options) outcome {
	curve, err := calib.Normalize(ref, s)
	if err != nil {
		return outcome{err: err}
	}

	fit, err := calib.FitCurve(curve, opts.Method)
	if err != nil {
		return outcome{err: err}
	}

	est, err := fit.EstimateAt(opts.Target, opts.Tolerance)
	return outcome{fit: fit, fitted: true, est: est, err: err}
}

func render(res *Result, opts Options) ([]figures.Figure, error) {
	var out []figures.Figure

	// non-finite sweeps were skipped and cannot be drawn
	var plottable []calib.Spectrum
	for _, s := range res.Spectra {
		if s.Validate() == nil {
			plottable = append(plottable, s)
		}
	}

	raw, err := figures.Raw(res.Reference, plottable, opts.Target)
	if err != nil {
		return nil, err
	}
	out = append(out, raw)

	curves := make([]calib.LossCurve, len(res.Fits))
	for i, f := range res.Fits {
		curves[i] = f.Curve
	}
	loss, err := figures.Loss(curves, opts.Target)
	if err != nil {
		return nil, err
	}
	out = append(out, loss)

	fitted, err := figures.Fitted(res.Fits, opts.Target)
	if err != nil {
		return nil, err
	}
	out = append(out, fitted)

	wavl, err := figures.LossAtTarget(res.Records, &res.Aggregate, opts.Target)
	if err != nil {
		return nil, err
	}
	out = append(out, wavl)

	if opts.Verbose {
		seen := map[int]int{}
		brush := map[int]int{}
		for _, f := range res.Fits {
			b := f.Curve.Bond
			if _, ok := brush[b]; !ok {
				brush[b] = len(brush)
			}
			seen[b]++
			name := fmt.Sprintf("original_and_fitted_loss_bond_%d_%d", b, seen[b])
			fig, err := figures.PerSpectrum(f, brush[b], name)
			if err != nil {
				return nil, err
			}
			out = append(out, fig)
		}
	}

	return out, nil
}
