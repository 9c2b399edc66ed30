package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/config"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/report"
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

// fixture lays out <tmp>/chip/measurements with a reference file and the
// given bond losses at 1550 nm, one spectrum per bond.
func fixture(t *testing.T, losses map[int]float64) config.Config {
	root := filepath.Join(t.TempDir(), "chip")
	base := filepath.Join(root, "measurements")
	require.NoError(t, os.MkdirAll(base, 0755))

	ref := filepath.Join(root, "reference.csv")
	writeSweep(t, ref, func(float64) float64 { return -1 })

	for bond, loss := range losses {
		dir := filepath.Join(base, fmt.Sprintf("chipA_calibration_ST2ST_%d_0", bond))
		writeSweep(t, filepath.Join(dir, "sweep.csv"), func(w float64) float64 {
			d := w - 1550
			return -1 - (loss + 0.002*d*d)
		})
	}

	return config.Config{
		BasePath:      base,
		ReferenceFile: ref,
		ChipName:      "PWB-7",
		Date:          "2024-03-18",
		Process:       "two-photon lithography",
		Wavelength:    1550,
		Channel:       "ch1",
		Workers:       2,
	}
}

func TestExecuteWritesReport(t *testing.T) {
	cfg := fixture(t, map[int]float64{1: 2.0, 2: 2.5, 7: 3.0})
	console := memory.New()

	out, err := Execute(context.Background(), cfg, console, log.InfoLevel)
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	require.Len(t, out.Result.Records, 3)
	assert.Equal(t, 7, out.Result.Records[2].Bond)
	assert.InDelta(t, 3.0, out.Result.Records[2].Loss, 1e-6)
	assert.InDelta(t, 2.5, out.Result.Aggregate.Mean, 1e-6)

	dir := filepath.Join(filepath.Dir(cfg.BasePath), report.DirName)
	assert.Equal(t, dir, out.Artifacts.Dir)
	for _, name := range []string{
		"loss_data.csv",
		"loss_data.xlsx",
		"log.txt",
		"PWB-7_analysis_report.pdf",
		"1550_calibRaw.png",
		"1550_calibLoss.png",
		"1550_fittedLoss.png",
		"1550_calibLossWAVL.png",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	csv, err := os.ReadFile(filepath.Join(dir, "loss_data.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "Bond,Loss (dB),Uncertainty (dB)\n1,"))

	logTxt, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(logTxt), "run="+out.RunID)
	assert.Contains(t, string(logTxt), "Average difference at 1550 nm")
	assert.Contains(t, string(logTxt), "PDF report generated pdf="+out.Artifacts.PDF)
	lines := strings.Split(strings.TrimSpace(string(logTxt)), "\n")
	assert.Contains(t, lines[len(lines)-1], "calibration analysis complete")

	require.NotEmpty(t, console.Entries)
	assert.Equal(t, out.RunID, console.Entries[0].Fields["run"])
}

func TestExecuteNoBondsWritesNothing(t *testing.T) {
	cfg := fixture(t, nil)

	_, err := Execute(context.Background(), cfg, memory.New(), log.InfoLevel)

	var noData *calib.NoDataError
	require.True(t, errors.As(err, &noData), "got %v", err)

	_, err = os.Stat(filepath.Join(filepath.Dir(cfg.BasePath), report.DirName))
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteMissingReference(t *testing.T) {
	cfg := fixture(t, map[int]float64{1: 2.0})
	cfg.ReferenceFile = filepath.Join(t.TempDir(), "absent.csv")

	_, err := Execute(context.Background(), cfg, memory.New(), log.InfoLevel)

	var readErr *calib.ReferenceReadError
	require.True(t, errors.As(err, &readErr), "got %v", err)
	assert.Equal(t, cfg.ReferenceFile, readErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExecuteUnknownMethod(t *testing.T) {
	cfg := fixture(t, map[int]float64{1: 2.0})
	cfg.FitMethod = "svd"

	_, err := Execute(context.Background(), cfg, memory.New(), log.InfoLevel)
	assert.ErrorContains(t, err, "unknown fit method")
}
