package dto

import "github.com/shopspring/decimal"

// IndexValueResponse is a currency index value as supplied by the index service.
type IndexValueResponse struct {
	Code  string          `json:"code"`
	Value decimal.Decimal `json:"value"`
	Date  string          `json:"date"`
}
