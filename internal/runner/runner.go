// Package runner executes a configured calibration run from the files on
// disk to the written report.
package runner

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/apex/log/handlers/multi"
	"github.com/google/uuid"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/analysis"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/config"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/dataset"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/report"
)

// Outcome is a completed run.
type Outcome struct {
	RunID     string
	Result    *analysis.Result
	Artifacts report.Artifacts
}

// Execute reads the reference and the bond folders named by cfg, runs the
// analysis and writes the report. Log entries go to handler and are also
// captured for log.txt. Nothing is written unless the analysis succeeds.
func Execute(
	ctx context.Context,
	cfg config.Config,
	handler log.Handler,
	level log.Level,
) (
	*Outcome, error,
) {

	runID := uuid.NewString()
	captured := memory.New()
	logger := &log.Logger{Handler: multi.New(handler, captured), Level: level}
	entry := logger.WithField("run", runID)

	method, err := calib.ParseMethod(cfg.FitMethod)
	if err != nil {
		return nil, err
	}
	date, err := cfg.MeasurementDate()
	if err != nil {
		return nil, fmt.Errorf("measurement date: %w", err)
	}
	match := cfg.FolderMatch
	if match == "" {
		match = dataset.DefaultFolderMatch
	}

	entry.WithFields(log.Fields{
		"base":       cfg.BasePath,
		"reference":  cfg.ReferenceFile,
		"channel":    cfg.Channel,
		"wavelength": cfg.Wavelength,
	}).Info("starting calibration analysis")

	ref, err := dataset.ReadReference(cfg.ReferenceFile, cfg.Channel)
	if err != nil {
		return nil, err
	}

	sources, err := dataset.Discover(cfg.BasePath, match, entry)
	if err != nil {
		return nil, err
	}
	groups, err := dataset.Load(ctx, sources, cfg.Channel, cfg.Workers, entry)
	if err != nil {
		return nil, err
	}
	entry.Infof("found %d spectra in %d bond folders", groups.Len(), len(groups))

	res, err := analysis.Run(ctx, ref, groups, analysis.Options{
		Target:  cfg.Wavelength,
		Method:  method,
		Workers: cfg.Workers,
		Verbose: cfg.Verbose,
	}, entry)
	if err != nil {
		return nil, err
	}

	dir := report.ResultsDir(cfg.BasePath)
	entry.WithField("dir", dir).Info("writing report")

	meta := report.Meta{
		ChipName: cfg.ChipName,
		Date:     date,
		Process:  cfg.Process,
		RunID:    runID,
	}
	arts, err := report.Write(dir, meta, res)
	if err != nil {
		return nil, err
	}
	entry.WithField("pdf", arts.PDF).Info("PDF report generated")
	entry.Info("calibration analysis complete")

	if err := report.WriteLogFile(arts.Log, captured.Entries); err != nil {
		return nil, err
	}

	return &Outcome{RunID: runID, Result: res, Artifacts: arts}, nil
}
