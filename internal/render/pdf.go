package render

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDF writes rep as an A4 document.
func PDF(w io.Writer, rep *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Scanresultaten "+rep.Targets.Domain), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Scanresultaten: %s", rep.Targets.Domain)), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gegenereerd: %s", rep.GeneratedAt.Format("2006-01-02 15:04 MST"))), "", 1, "", false, 0, "")
	score := CosmeticScore()
	pdf.CellFormat(0, 6, fmt.Sprintf("Score: %d%%", score.Value), "", 1, "", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Advies", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	switch {
	case rep.Scan.Failed():
		pdf.SetTextColor(185, 28, 28)
		pdf.MultiCell(0, 5, tr(rep.Scan.Error), "", "", false)
		pdf.SetTextColor(0, 0, 0)
	case rep.Scan.Succeeded():
		pdf.MultiCell(0, 5, tr(rep.Scan.Value.Advice), "", "", false)
	}
	pdf.Ln(4)

	if len(rep.Scan.Value.Results) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Gevonden problemen", "", 1, "", false, 0, "")
		for _, problem := range rep.Scan.Value.Results {
			if pdf.GetY() > 260 {
				pdf.AddPage()
			}
			pdf.SetFont("Arial", "B", 11)
			pdf.SetFillColor(240, 240, 240)
			pdf.CellFormat(0, 7, tr(problem.Name), "", 1, "", true, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(0, 5, tr(problem.AIAdvice), "", "", false)
			pdf.Ln(2)
		}
	}

	if rep.Leaks != nil {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Gelekte gegevens", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		if rep.Leaks.Failed() {
			pdf.MultiCell(0, 5, tr(rep.Leaks.Error), "", "", false)
		}
		for _, entry := range rep.Leaks.Value {
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("- %s (%s)", entry.Service, entry.Date)), "", 1, "", false, 0, "")
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 4, tr(Disclaimer), "", "", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
