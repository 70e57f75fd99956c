package service

import (
	"sort"

	"parkcore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	VarianceNormal   = "normal"
	VarianceWarning  = "warning"
	VarianceCritical = "critical"
)

// ShiftTotals is the aggregated cash position of one shift.
type ShiftTotals struct {
	OpeningFloat     decimal.Decimal
	CashCollected    decimal.Decimal
	CashWithdrawals  decimal.Decimal
	CashDeposits     decimal.Decimal
	CashExpected     decimal.Decimal
	TicketsCount     int
	SalesTotal       decimal.Decimal
	PaymentsByMethod []MethodTotal
}

type MethodTotal struct {
	Method string
	Count  int
	Amount decimal.Decimal
}

// ComputeTotals aggregates a shift from its payment and adjustment rows.
//
// paidBySale must hold, for every sale referenced by payments, the sum of its
// completed payments across all shifts; sales holds their totals. Closure is
// therefore global while every amount counted is one of this shift's own
// payments, so summing SalesTotal over the shifts a sale was paid in yields
// the sale total exactly once.
func ComputeTotals(
	shift *model.Shift,
	payments []model.Payment,
	adjustments []model.CashAdjustment,
	sales map[uuid.UUID]model.Sale,
	paidBySale map[uuid.UUID]decimal.Decimal,
) ShiftTotals {
	t := ShiftTotals{
		OpeningFloat:    shift.OpeningFloat,
		CashCollected:   decimal.Zero,
		CashWithdrawals: decimal.Zero,
		CashDeposits:    decimal.Zero,
		SalesTotal:      decimal.Zero,
	}

	closed := func(saleID uuid.UUID) bool {
		sale, ok := sales[saleID]
		if !ok {
			return false
		}
		return paidBySale[saleID].GreaterThanOrEqual(sale.Total)
	}

	byMethod := map[string]*MethodTotal{}
	tickets := map[uuid.UUID]struct{}{}
	for _, p := range payments {
		if p.Status != model.PaymentCompleted {
			continue
		}

		mt, ok := byMethod[p.Method]
		if !ok {
			mt = &MethodTotal{Method: p.Method, Amount: decimal.Zero}
			byMethod[p.Method] = mt
		}
		mt.Count++
		mt.Amount = mt.Amount.Add(p.Amount)

		saleClosed := p.SaleID != nil && closed(*p.SaleID)
		if p.Method == model.MethodCash && (p.SaleID == nil || saleClosed) {
			t.CashCollected = t.CashCollected.Add(p.Amount)
		}
		if saleClosed {
			tickets[*p.SaleID] = struct{}{}
			t.SalesTotal = t.SalesTotal.Add(p.Amount)
		}
	}
	t.TicketsCount = len(tickets)

	for _, a := range adjustments {
		switch a.Kind {
		case model.AdjustmentWithdrawal:
			t.CashWithdrawals = t.CashWithdrawals.Add(a.Amount)
		case model.AdjustmentDeposit:
			t.CashDeposits = t.CashDeposits.Add(a.Amount)
		}
	}
	t.CashExpected = t.OpeningFloat.Add(t.CashCollected).Sub(t.CashWithdrawals).Add(t.CashDeposits)

	t.PaymentsByMethod = make([]MethodTotal, 0, len(byMethod))
	for _, mt := range byMethod {
		t.PaymentsByMethod = append(t.PaymentsByMethod, *mt)
	}
	sort.Slice(t.PaymentsByMethod, func(i, j int) bool {
		return t.PaymentsByMethod[i].Method < t.PaymentsByMethod[j].Method
	})
	return t
}

// classifyVariance grades |overShort| against expected:
// normal ≤ 1%, warning ≤ 5%, critical above. With nothing expected any
// difference is critical.
func classifyVariance(overShort, expected decimal.Decimal) (pct decimal.Decimal, class string) {
	if expected.IsZero() {
		if overShort.IsZero() {
			return decimal.Zero, VarianceNormal
		}
		return decimal.Zero, VarianceCritical
	}
	pct = overShort.Div(expected).Mul(decimal.NewFromInt(100)).Round(2)
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return pct, VarianceNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return pct, VarianceWarning
	default:
		return pct, VarianceCritical
	}
}
