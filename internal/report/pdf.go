package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"codeberg.org/go-pdf/fpdf"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/figures"
)

// Page geometry in inches, US Letter.
const (
	pageWidth  = 8.5
	margin     = 0.75
	cellWidth  = 1.5
	figWidth   = 7.2
	figHeight  = 4.32
	figsOnPage = 2
)

// DateLayout renders the measurement date in the report.
const DateLayout = "January 02, 2006"

// WriteFigures stores every figure as <name>.png in dir and returns the
// paths in figure order.
func WriteFigures(dir string, figs []figures.Figure) ([]string, error) {
	paths := make([]string, 0, len(figs))
	for _, fig := range figs {
		path := filepath.Join(dir, fig.Name+".png")
		if err := os.WriteFile(path, fig.PNG, 0644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WritePDF lays out the summary report: title, measurement metadata, the
// loss table and then the figures, two per page.
func WritePDF(
	path string,
	meta Meta,
	records []calib.LossRecord,
	figs []figures.Figure,
) error {

	pdf := fpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-0.5)
		pdf.SetFont("Times", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 0.2, fmt.Sprintf("Run %s - page %d", meta.RunID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(0, 0.4, tr("Analysis Report of "+meta.ChipName), "", 1, "C", false, 0, "")
	pdf.Ln(0.2)

	pdf.SetFont("Times", "", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 0.25, tr("Measurement date: "+meta.Date.Format(DateLayout)), "", "L", false)
	pdf.Ln(0.1)
	pdf.MultiCell(0, 0.25, tr("Process: "+meta.Process), "", "L", false)
	pdf.Ln(0.25)

	lossTable(pdf, tr, records)

	for i, fig := range figs {
		slot := i % figsOnPage
		if slot == 0 {
			pdf.AddPage()
		}

		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(fig.Name, opts, bytes.NewReader(fig.PNG))
		y := margin + float64(slot)*(figHeight+0.4)
		pdf.ImageOptions(fig.Name, (pageWidth-figWidth)/2, y, figWidth, figHeight, false, opts, 0, "")
	}

	return pdf.OutputFileAndClose(path)
}

func lossTable(
	pdf *fpdf.Fpdf,
	tr func(string) string,
	records []calib.LossRecord,
) {

	left := (pageWidth - cellWidth*float64(len(Header))) / 2

	pdf.SetFont("Times", "", 14)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(248, 248, 255)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetX(left)
	for _, h := range Header {
		pdf.CellFormat(cellWidth, 0.4, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Times", "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 245)
	for i, r := range records {
		fill := i == 0
		pdf.SetX(left)
		pdf.CellFormat(cellWidth, 0.25, strconv.Itoa(r.Bond), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(cellWidth, 0.25, fmt.Sprintf("%.2f", r.Loss), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(cellWidth, 0.25, fmt.Sprintf("%.2f", r.Uncertainty), "1", 0, "C", fill, 0, "")
		pdf.Ln(-1)
	}
}
