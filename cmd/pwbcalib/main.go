package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/config"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/preview"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/runner"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

//----------------------------------------------------------------------------//

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
) (
	int,
) {

	fs := flag.NewFlagSet("pwbcalib", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts, showPreview, debug, err := flags(fs, args)
	if err != nil {
		return exitConfig
	}

	handler := cli.New(stderr)
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := &log.Logger{Handler: handler, Level: level}

	cfg, warnings, err := config.Load(opts)
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		logger.WithError(err).Error("configuration")
		var missing *config.MissingConfigurationError
		if errors.As(err, &missing) {
			fs.Usage()
		}
		return exitConfig
	}

	out, err := runner.Execute(ctx, cfg, handler, level)
	if err != nil {
		logger.WithError(err).Error("calibration analysis failed")
		return exitFailed
	}

	fmt.Fprintf(stdout, "PDF report generated at %s\n", out.Artifacts.PDF)

	if showPreview {
		preview.Show(out.Result, logger)
	}

	return exitOK
}

func flags(
	fs *flag.FlagSet,
	args []string,
) (
	config.Flags, bool, bool, error,
) {

	var f config.Flags
	var showPreview, debug bool

	fs.StringVar(&f.BasePath, "base", "", "folder holding the bond measurement folders")
	fs.StringVar(&f.ReferenceFile, "ref", "", "reference (baseline) sweep CSV")
	fs.StringVar(&f.ConfigFile, "config", "", "config file (default <base>/config.yaml)")
	fs.StringVar(&f.ChipName, "chip", "", "chip name for the report")
	fs.StringVar(&f.Date, "date", "", "measurement date, YYYY-MM-DD")
	fs.StringVar(&f.Process, "process", "", "fabrication process for the report")
	fs.Float64Var(&f.Wavelength, "wavelength", 0, "target wavelength in nm")
	fs.StringVar(&f.Channel, "channel", "", "power channel column")
	fs.StringVar(&f.FolderMatch, "match", "", "substring selecting bond folders (default calibration_ST2ST)")
	fs.StringVar(&f.FitMethod, "fit", "", "least-squares solver: qr or lm")
	fs.IntVar(&f.Workers, "workers", 0, "parallel workers (default number of CPUs)")
	fs.BoolVar(&f.Verbose, "verbose", false, "add an original vs fitted figure per spectrum")
	fs.BoolVar(&showPreview, "preview", false, "open gnuplot quick-look windows")
	fs.BoolVar(&debug, "debug", false, "debug logging")
	err := fs.Parse(args)

	return f, showPreview, debug, err
}
