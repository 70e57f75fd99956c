package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"parkcore/internal/dto"

	"github.com/xuri/excelize/v2"
)

// GenerateShiftSummaryXLSX writes storagePath/shift_{id}.xlsx with a
// "Summary" sheet of label/value rows and a "Payments" sheet per method.
func GenerateShiftSummaryXLSX(s dto.ShiftSummary, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("xlsx: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("shift_%s.xlsx", s.ShiftID))

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	rows := [][]any{
		{"Shift", s.ShiftID},
		{"Operator", s.OperatorID},
		{"Status", s.Status},
		{"Opened at", s.OpenedAt},
		{"Opening float", s.OpeningFloat.InexactFloat64()},
		{"Cash collected", s.CashCollected.InexactFloat64()},
		{"Cash withdrawals", s.CashWithdrawals.InexactFloat64()},
		{"Cash deposits", s.CashDeposits.InexactFloat64()},
		{"Cash expected", s.CashExpected.InexactFloat64()},
		{"Tickets", s.TicketsCount},
		{"Sales total", s.SalesTotal.InexactFloat64()},
	}
	if s.ClosedAt != nil {
		rows = append(rows, []any{"Closed at", *s.ClosedAt})
	}
	if s.CashDeclared != nil {
		rows = append(rows, []any{"Cash declared", s.CashDeclared.InexactFloat64()})
	}
	if s.CashOverShort != nil {
		rows = append(rows, []any{"Over / short", s.CashOverShort.InexactFloat64()})
	}
	if s.Variance != nil {
		rows = append(rows,
			[]any{"Variance %", s.Variance.Percentage.InexactFloat64()},
			[]any{"Classification", s.Variance.Classification},
		)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &r); err != nil {
			return "", fmt.Errorf("xlsx: write summary: %w", err)
		}
	}
	_ = f.SetColWidth(summary, "A", "A", 20)
	_ = f.SetColWidth(summary, "B", "B", 40)

	const payments = "Payments"
	if _, err := f.NewSheet(payments); err != nil {
		return "", fmt.Errorf("xlsx: add sheet: %w", err)
	}
	if err := f.SetSheetRow(payments, "A1", &[]any{"Method", "Count", "Amount"}); err != nil {
		return "", fmt.Errorf("xlsx: write header: %w", err)
	}
	for i, m := range s.PaymentsByMethod {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(payments, cell, &[]any{m.Method, m.Count, m.Amount.InexactFloat64()}); err != nil {
			return "", fmt.Errorf("xlsx: write payments: %w", err)
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("xlsx: write file: %w", err)
	}
	return filePath, nil
}
