package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSweep(t *testing.T, path string, power func(w float64) float64) {
	t.Helper()

	var wl, pw strings.Builder
	wl.WriteString("wavelength")
	pw.WriteString("ch1")
	for w := 1530.0; w <= 1570; w += 0.5 {
		fmt.Fprintf(&wl, ",%g", w)
		fmt.Fprintf(&pw, ",%g", power(w))
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(wl.String()+"\n"+pw.String()+"\n"), 0644))
}

// measurement lays out a base folder with a reference and the given bonds
// and returns the base path and the reference path.
func measurement(t *testing.T, bonds ...int) (string, string) {
	root := t.TempDir()
	base := filepath.Join(root, "measurements")
	require.NoError(t, os.MkdirAll(base, 0755))

	ref := filepath.Join(root, "reference.csv")
	writeSweep(t, ref, func(float64) float64 { return 0 })

	for _, b := range bonds {
		dir := filepath.Join(base, fmt.Sprintf("chip_calibration_ST2ST_%d_0", b))
		writeSweep(t, filepath.Join(dir, "sweep.csv"), func(w float64) float64 {
			d := w - 1550
			return -(2 + 0.001*d*d)
		})
	}
	return base, ref
}

func fullArgs(base, ref string) []string {
	return []string{
		"-base", base,
		"-ref", ref,
		"-chip", "PWB-7",
		"-date", "2024-03-18",
		"-process", "p",
		"-wavelength", "1550",
		"-channel", "ch1",
	}
}

func TestRunSucceeds(t *testing.T) {
	base, ref := measurement(t, 1, 2)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), fullArgs(base, ref), &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	pdf := filepath.Join(filepath.Dir(base), "analysis_results", "PWB-7_analysis_report.pdf")
	assert.Equal(t, "PDF report generated at "+pdf+"\n", stdout.String())
	assert.FileExists(t, pdf)
}

func TestRunMissingConfigurationExitsTwo(t *testing.T) {
	base, _ := measurement(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-base", base}, &stdout, &stderr)

	assert.Equal(t, exitConfig, code)
	assert.Contains(t, stderr.String(), "missing configuration")
	assert.Contains(t, stderr.String(), "-wavelength")
	assert.Empty(t, stdout.String())
}

func TestRunInvalidConfigurationExitsTwo(t *testing.T) {
	base, ref := measurement(t, 1)
	args := append(fullArgs(base, ref), "-fit", "svd")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)

	assert.Equal(t, exitConfig, code)
	assert.Contains(t, stderr.String(), "must be one of qr lm")
	assert.NotContains(t, stderr.String(), "-wavelength")
}

func TestRunUnknownFlagExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-bogus"}, &stdout, &stderr)
	assert.Equal(t, exitConfig, code)
}

func TestRunAnalysisFailureExitsOne(t *testing.T) {
	base, ref := measurement(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), fullArgs(base, ref), &stdout, &stderr)

	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr.String(), "calibration analysis failed")
	assert.Empty(t, stdout.String())
	assert.NoDirExists(t, filepath.Join(filepath.Dir(base), "analysis_results"))
}
