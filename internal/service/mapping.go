package service

import (
	"encoding/json"

	"parkcore/internal/dto"
	"parkcore/internal/model"
	"parkcore/internal/tariff"

	"github.com/shopspring/decimal"
)

func toSessionResponse(s *model.ParkingSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:             s.ID.String(),
		Plate:          s.Plate,
		SectorID:       s.SectorID.String(),
		StreetID:       idPtr(s.StreetID),
		OperatorInID:   s.OperatorInID.String(),
		Status:         s.Status,
		StartedAt:      fmtTime(s.StartedAt),
		EndedAt:        fmtTimePtr(s.EndedAt),
		ElapsedSeconds: s.ElapsedSeconds,
		GrossAmount:    s.GrossAmount,
		DiscountAmount: s.DiscountAmount,
		NetAmount:      s.NetAmount,
	}
}

func toSaleResponse(s *model.Sale, paid decimal.Decimal) *dto.SaleResponse {
	return &dto.SaleResponse{
		ID:        s.ID.String(),
		SessionID: idPtr(s.SessionID),
		DocType:   s.DocType,
		NetAmount: s.NetAmount,
		TaxAmount: s.TaxAmount,
		Total:     s.Total,
		Paid:      paid,
		Closed:    paid.GreaterThanOrEqual(s.Total),
		IssuedAt:  fmtTimePtr(s.IssuedAt),
	}
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:                p.ID.String(),
		SaleID:            idPtr(p.SaleID),
		SessionID:         idPtr(p.SessionID),
		ShiftID:           idPtr(p.ShiftID),
		Method:            p.Method,
		Amount:            p.Amount,
		Status:            p.Status,
		PaidAt:            fmtTime(p.PaidAt),
		ExternalRef:       p.ExternalRef,
		AuthorizationCode: p.AuthorizationCode,
	}
}

func toDebtResponse(d *model.Debt) dto.DebtResponse {
	return dto.DebtResponse{
		ID:              d.ID.String(),
		Plate:           d.Plate,
		SessionID:       idPtr(d.SessionID),
		SaleID:          idPtr(d.SaleID),
		Origin:          d.Origin,
		OriginalAmount:  d.OriginalAmount,
		PrincipalAmount: d.PrincipalAmount,
		Status:          d.Status,
		Notes:           d.Notes,
		CreatedAt:       fmtTime(d.CreatedAt),
		SettledAt:       fmtTimePtr(d.SettledAt),
		SettledPayment:  idPtr(d.SettledPaymentID),
	}
}

func toShiftResponse(s *model.Shift) dto.ShiftResponse {
	return dto.ShiftResponse{
		ID:                  s.ID.String(),
		OperatorID:          s.OperatorID.String(),
		SectorID:            idPtr(s.SectorID),
		DeviceID:            s.DeviceID,
		OpeningFloat:        s.OpeningFloat,
		CashExpected:        s.CashExpected,
		ClosingDeclaredCash: s.ClosingDeclaredCash,
		CashOverShort:       s.CashOverShort,
		Status:              s.Status,
		Notes:               s.Notes,
		OpenedAt:            fmtTime(s.OpenedAt),
		ClosedAt:            fmtTimePtr(s.ClosedAt),
	}
}

func toAdjustmentResponse(a *model.CashAdjustment) dto.AdjustmentResponse {
	return dto.AdjustmentResponse{
		ID:         a.ID.String(),
		ShiftID:    a.ShiftID.String(),
		Kind:       a.Kind,
		Amount:     a.Amount,
		Reason:     a.Reason,
		ActorID:    a.ActorID.String(),
		ApproverID: idPtr(a.ApproverID),
		CreatedAt:  fmtTime(a.CreatedAt),
	}
}

func toShiftOperationResponse(o *model.ShiftOperation) dto.ShiftOperationResponse {
	resp := dto.ShiftOperationResponse{
		ID:        o.ID.String(),
		Kind:      o.Kind,
		Amount:    o.Amount,
		ActorID:   o.ActorID.String(),
		CreatedAt: fmtTime(o.CreatedAt),
	}
	if len(o.Payload) > 0 {
		resp.Payload = json.RawMessage(o.Payload)
	}
	return resp
}

func toQuoteResponse(b tariff.Breakdown, discount decimal.Decimal) dto.QuoteResponse {
	return dto.QuoteResponse{
		RuleID:         b.RuleID.String(),
		RuleName:       b.RuleName,
		Minutes:        b.Minutes,
		Rate:           b.Rate,
		FixedPrice:     b.FixedPrice,
		Base:           b.Base,
		MinimumApplied: b.MinimumApplied,
		CapApplied:     b.CapApplied,
		Fallback:       b.Fallback,
		Gross:          b.Amount,
		Discount:       discount,
		Net:            b.Amount.Sub(discount),
	}
}

func toProfileResponse(p *model.PricingProfile) dto.ProfileResponse {
	resp := dto.ProfileResponse{
		ID:         p.ID.String(),
		SectorID:   p.SectorID.String(),
		Name:       p.Name,
		Active:     p.Active,
		ActiveFrom: fmtTime(p.ActiveFrom),
		ActiveTo:   fmtTimePtr(p.ActiveTo),
		Rules:      make([]dto.RuleResponse, 0, len(p.Rules)),
		Discounts:  make([]dto.DiscountResponse, 0, len(p.Discounts)),
	}
	for _, r := range p.Rules {
		resp.Rules = append(resp.Rules, toRuleResponse(&r))
	}
	for _, d := range p.Discounts {
		resp.Discounts = append(resp.Discounts, dto.DiscountResponse{
			ID: d.ID.String(), Name: d.Name, Kind: d.Kind, Value: d.Value, MinMinutes: d.MinMinutes,
		})
	}
	return resp
}

func toRuleResponse(r *model.PricingRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:                     r.ID.String(),
		Name:                   r.Name,
		MinDurationMinutes:     r.MinDurationMinutes,
		MaxDurationMinutes:     r.MaxDurationMinutes,
		PricePerMinute:         r.PricePerMinute,
		FixedPrice:             r.FixedPrice,
		MinimumAmount:          r.MinimumAmount,
		MinimumIsBase:          r.MinimumIsBase,
		MinimumDurationMinutes: r.MinimumDurationMinutes,
		DailyMaximum:           r.DailyMaximum,
		Priority:               r.Priority,
	}
}

func toOperatorResponse(o *model.Operator) dto.OperatorResponse {
	return dto.OperatorResponse{
		ID:       o.ID.String(),
		Username: o.Username,
		Name:     o.Name,
		Email:    o.Email,
		Role:     o.Role,
		Active:   o.Active,
	}
}
