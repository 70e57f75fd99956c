package infra

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// IndexValue is a currency index (e.g. UF) value for a date.
type IndexValue struct {
	Code  string          `json:"code"`
	Value decimal.Decimal `json:"value"`
	Date  string          `json:"date"`
}

// IndexClient fetches currency index values from the index service.
// Values are never cached here; callers ask on demand.
type IndexClient struct {
	jsonClient
}

func NewIndexClient(baseURL string, cb *CircuitBreaker) *IndexClient {
	return &IndexClient{jsonClient: newJSONClient("currency_index", baseURL, 10*time.Second, cb)}
}

// Current returns today's value of the index identified by code.
func (c *IndexClient) Current(ctx context.Context, code string) (*IndexValue, error) {
	var v IndexValue
	if err := c.do(ctx, http.MethodGet, "/indices/"+url.PathEscape(code), nil, &v); err != nil {
		return nil, err
	}
	if v.Code == "" {
		v.Code = code
	}
	return &v, nil
}
