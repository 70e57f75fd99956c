package infra

import (
	"os"
	"testing"

	"parkcore/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func closedSummary() dto.ShiftSummary {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	declared, over := d("8950"), d("-50")
	closedAt := "2026-03-02T18:00:00Z"
	return dto.ShiftSummary{
		ShiftID:         "3f0c8a9e-5d2b-4c11-9a7e-2f5b6c7d8e90",
		OperatorID:      "9b1d2c3e-4f50-4a6b-8c7d-0e1f2a3b4c5d",
		Status:          "closed",
		OpeningFloat:    d("10000"),
		CashCollected:   d("1000"),
		CashWithdrawals: d("2000"),
		CashDeposits:    decimal.Zero,
		CashExpected:    d("9000"),
		CashDeclared:    &declared,
		CashOverShort:   &over,
		TicketsCount:    1,
		SalesTotal:      d("1000"),
		PaymentsByMethod: []dto.MethodTotal{
			{Method: "cash", Count: 1, Amount: d("1000")},
		},
		Variance: &dto.VarianceResponse{Amount: over, Percentage: d("-0.56"), Classification: "normal"},
		OpenedAt: "2026-03-02T08:00:00Z",
		ClosedAt: &closedAt,
	}
}

func TestGenerateShiftSummaryPDF(t *testing.T) {
	path, err := GenerateShiftSummaryPDF(closedSummary(), t.TempDir())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestGenerateShiftSummaryXLSX(t *testing.T) {
	path, err := GenerateShiftSummaryXLSX(closedSummary(), t.TempDir())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Summary", "B9")
	require.NoError(t, err)
	assert.Equal(t, "9000", v)

	method, err := f.GetCellValue("Payments", "A2")
	require.NoError(t, err)
	assert.Equal(t, "cash", method)
}
