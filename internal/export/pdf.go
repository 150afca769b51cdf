package export

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"finboard/internal/core"
)

// Report renders the "Expense Report" PDF: a title, then one
// "date - category: amount" line per transaction in stored order. Pages
// break automatically.
func Report(ledger core.Ledger, symbol string) ([]byte, error) {
	pdf := buildReport(ledger, symbol)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func buildReport(ledger core.Ledger, symbol string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Expense Report", false)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Expense Report")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	for _, t := range ledger {
		line := fmt.Sprintf("%s - %s: %s", t.Date, t.Category, t.Amount.Format(symbol))
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Total: %s (%d transactions)", ledger.Total().Format(symbol), len(ledger))))
	return pdf
}
