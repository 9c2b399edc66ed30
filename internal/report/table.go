package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
)

// Header is the loss table's column row.
var Header = []string{"Bond", "Loss (dB)", "Uncertainty (dB)"}

const (
	lossSheet    = "Loss"
	summarySheet = "Summary"
)

// WriteCSV writes the loss table at full precision.
func WriteCSV(w io.Writer, records []calib.LossRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Bond),
			strconv.FormatFloat(r.Loss, 'g', -1, 64),
			strconv.FormatFloat(r.Uncertainty, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the loss table to a Loss sheet and the population
// statistics to a Summary sheet.
func WriteXLSX(
	path string,
	target float64,
	records []calib.LossRecord,
	agg calib.AggregateResult,
) error {

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", lossSheet); err != nil {
		return err
	}

	header := []interface{}{Header[0], Header[1], Header[2], "Spectrum"}
	if err := f.SetSheetRow(lossSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.Bond, r.Loss, r.Uncertainty, r.Spectrum}
		if err := f.SetSheetRow(lossSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"Target wavelength (nm)", target},
		{"Records", agg.N},
		{"Mean loss (dB)", agg.Mean},
		{"Standard deviation (dB)", agg.Std},
		{"Standard error (dB)", agg.SEM},
		{"Combined uncertainty (dB)", agg.Combined},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
