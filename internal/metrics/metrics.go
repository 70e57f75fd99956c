// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkcore_sessions_opened_total",
		Help: "Parking sessions opened.",
	})

	SessionCheckouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_session_checkouts_total",
		Help: "Session checkouts by pricing outcome.",
	}, []string{"outcome"}) // priced | fallback | free

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_payments_total",
		Help: "Payments recorded by method and status.",
	}, []string{"method", "status"})

	PaymentAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_payment_amount_total",
		Help: "Sum of completed payment amounts by method.",
	}, []string{"method"})

	DebtsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_debts_opened_total",
		Help: "Debts created by origin.",
	}, []string{"origin"})

	DebtsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkcore_debts_settled_total",
		Help: "Debts settled.",
	})

	ShiftsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_shifts_closed_total",
		Help: "Shifts closed by variance classification.",
	}, []string{"classification"})

	IdempotentReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkcore_idempotent_replays_total",
		Help: "External confirmations answered from a stored result.",
	})

	QuotaDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_quota_denials_total",
		Help: "Operations blocked by the plan quota check.",
	}, []string{"resource"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcore_jobs_processed_total",
		Help: "Async jobs processed by type and result.",
	}, []string{"type", "result"}) // ok | retry | dead

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkcore_circuit_breaker_state",
		Help: "Collaborator circuit breaker state: 0 closed, 1 open, 2 half-open.",
	}, []string{"name"})
)
