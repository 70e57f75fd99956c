package infra

// pdf.go renders the closed-shift summary as a one-page A5 report using
// go-pdf/fpdf: header with shift id and dates, the cash ledger lines, the
// declared/over-short block and the payments-by-method table.

import (
	"fmt"
	"os"
	"path/filepath"

	"parkcore/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateShiftSummaryPDF writes storagePath/shift_{id}.pdf and returns its path.
func GenerateShiftSummaryPDF(s dto.ShiftSummary, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("shift_%s.pdf", s.ShiftID))

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20
	labelW := contentW * 0.62
	valueW := contentW - labelW

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Shift cash summary", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Shift "+s.ShiftID, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, "Operator "+s.OperatorID, "", 1, "C", false, 0, "")
	if s.DeviceID != nil {
		pdf.CellFormat(contentW, 5, "Device "+*s.DeviceID, "", 1, "C", false, 0, "")
	}
	closed := "-"
	if s.ClosedAt != nil {
		closed = *s.ClosedAt
	}
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Opened %s  Closed %s", s.OpenedAt, closed), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(3)

	row := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, v.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Cash ledger ──────────────────────────────────────────────────────────
	row("Opening float", s.OpeningFloat, false)
	row("Cash collected", s.CashCollected, false)
	row("Withdrawals", s.CashWithdrawals.Neg(), false)
	row("Deposits", s.CashDeposits, false)
	row("Cash expected", s.CashExpected, true)
	if s.CashDeclared != nil {
		row("Cash declared", *s.CashDeclared, false)
	}
	if s.CashOverShort != nil {
		row("Over / short", *s.CashOverShort, true)
	}
	if s.Variance != nil {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Variance %s%% (%s)", s.Variance.Percentage.StringFixed(2), s.Variance.Classification), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(labelW, 6, "Tickets closed", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 6, fmt.Sprintf("%d", s.TicketsCount), "", 1, "R", false, 0, "")
	row("Sales total", s.SalesTotal, true)
	pdf.Ln(3)

	// ── Payments by method ───────────────────────────────────────────────────
	col1, col2, col3 := contentW*0.5, contentW*0.2, contentW*0.3
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "Method", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Count", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, m := range s.PaymentsByMethod {
		pdf.CellFormat(col1, 5, m.Method, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%d", m.Count), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, m.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
