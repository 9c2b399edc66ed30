// Package report writes the artifacts of a finished calibration run: the
// loss table as CSV and XLSX, every figure as PNG, a PDF summary and the
// run log.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/analysis"
)

const (
	// DirName is created next to the measurement folder.
	DirName = "analysis_results"

	CSVName  = "loss_data.csv"
	XLSXName = "loss_data.xlsx"
	LogName  = "log.txt"
)

// Meta describes the measured chip.
type Meta struct {
	ChipName string
	Date     time.Time
	Process  string
	RunID    string
}

// Artifacts lists the files written for one run.
type Artifacts struct {
	Dir     string
	CSV     string
	XLSX    string
	PDF     string
	Log     string
	Figures []string
}

// ResultsDir returns the results directory for a measurement folder.
func ResultsDir(base string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(base)), DirName)
}

// PDFName returns the report file name for a chip.
func PDFName(chip string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_").Replace(chip)
	return safe + "_analysis_report.pdf"
}

// Write stores the tables, figures and PDF of res in dir, creating it if
// needed. The run log is written separately by WriteLogFile so that it can
// include everything logged up to the end of the run.
func Write(
	dir string,
	meta Meta,
	res *analysis.Result,
) (
	Artifacts, error,
) {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Artifacts{}, fmt.Errorf("creating results directory: %w", err)
	}

	a := Artifacts{
		Dir:  dir,
		CSV:  filepath.Join(dir, CSVName),
		XLSX: filepath.Join(dir, XLSXName),
		PDF:  filepath.Join(dir, PDFName(meta.ChipName)),
		Log:  filepath.Join(dir, LogName),
	}

	if err := writeFile(a.CSV, func(f *os.File) error { return WriteCSV(f, res.Records) }); err != nil {
		return a, err
	}

	if err := WriteXLSX(a.XLSX, res.Target, res.Records, res.Aggregate); err != nil {
		return a, fmt.Errorf("writing %s: %w", a.XLSX, err)
	}

	figs, err := WriteFigures(dir, res.Figures)
	if err != nil {
		return a, err
	}
	a.Figures = figs

	if err := WritePDF(a.PDF, meta, res.Records, res.Figures); err != nil {
		return a, fmt.Errorf("writing %s: %w", a.PDF, err)
	}

	return a, nil
}

// WriteLogFile stores entries as log.txt at path.
func WriteLogFile(path string, entries []*log.Entry) error {
	return writeFile(path, func(f *os.File) error { return WriteLog(f, entries) })
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
