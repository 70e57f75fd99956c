package infra

import (
	"context"
	"net/http"
	"time"
)

// Resource kinds submitted to the plan/quota service.
const (
	ResourceSession        = "session"
	ResourceOperator       = "operator"
	ResourcePricingProfile = "pricing_profile"
	ResourcePricingRule    = "pricing_rule"
)

// QuotaDecision is the plan service's answer to a capability check.
type QuotaDecision struct {
	Allowed bool `json:"allowed"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
}

type quotaRequest struct {
	ResourceKind string `json:"resource_kind"`
}

// QuotaClient asks the tenant's plan service whether one more resource of a
// kind may be created.
type QuotaClient struct {
	jsonClient
}

func NewQuotaClient(baseURL string, cb *CircuitBreaker) *QuotaClient {
	return &QuotaClient{jsonClient: newJSONClient("quota", baseURL, 5*time.Second, cb)}
}

// CanCreate posts the resource kind to /can-create.
func (c *QuotaClient) CanCreate(ctx context.Context, resourceKind string) (*QuotaDecision, error) {
	var d QuotaDecision
	if err := c.do(ctx, http.MethodPost, "/can-create", quotaRequest{ResourceKind: resourceKind}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// AllowAllQuota is used when no plan service is configured.
type AllowAllQuota struct{}

func (AllowAllQuota) CanCreate(_ context.Context, _ string) (*QuotaDecision, error) {
	return &QuotaDecision{Allowed: true, Limit: -1}, nil
}
