package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"finboard/internal/core"
)

// SheetName is the worksheet holding the transactions.
const SheetName = "Transactions"

var xlsxHeader = []string{"Date", "Amount", "Category", "Has Receipt"}

// Workbook renders the ledger as a single-sheet workbook. Amounts are
// numeric cells so spreadsheet formulas work on them.
func Workbook(ledger core.Ledger) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range xlsxHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for idx, t := range ledger {
		row := idx + 2
		receipt := "no"
		if t.HasReceipt() {
			receipt = "yes"
		}
		values := []any{t.Date.String(), t.Amount.Float64(), t.Category, receipt}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	f.SetColWidth(SheetName, "A", "A", 12)
	f.SetColWidth(SheetName, "B", "B", 12)
	f.SetColWidth(SheetName, "C", "C", 18)
	f.SetColWidth(SheetName, "D", "D", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
