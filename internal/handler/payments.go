package handler

import (
	"net/http"
	"strings"

	"parkcore/internal/apierror"
	"parkcore/internal/dto"
	"parkcore/internal/middleware"
	"parkcore/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// Record godoc
// @Summary Record a payment against a sale or session
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/payments [post]
func (h *PaymentsHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Record(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Declined godoc
// @Summary Store a declined terminal result
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RecordPaymentRequest true "Declined payment"
// @Success 201 {object} dto.PaymentResponse
// @Router /v1/payments/declined [post]
func (h *PaymentsHandler) Declined(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordDeclined(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ConfirmExternal godoc
// @Summary Confirm a gateway payment at most once per Idempotency-Key
// @Description A repeated key with the same payload returns the stored result
// @Description with the Idempotent-Replayed header set.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Caller-generated key"
// @Param body body dto.ConfirmExternalRequest true "Gateway confirmation"
// @Success 201 {object} dto.PaymentResponse
// @Success 200 {object} dto.PaymentResponse "replayed"
// @Failure 409 {object} apierror.APIError
// @Router /v1/payments/confirm-external [post]
func (h *PaymentsHandler) ConfirmExternal(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Detail: IdempotencyKeyHeader + " header is required", Code: "bad_request"})
		return
	}
	var req dto.ConfirmExternalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, replayed, err := h.svc.ConfirmExternal(c.Request.Context(), middleware.ActorID(c), key, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if replayed {
		c.Header(ReplayedHeader, "true")
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SaleStatus godoc
// @Summary Sale totals and closure
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param id path string true "Sale ID"
// @Success 200 {object} dto.SaleResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sales/{id} [get]
func (h *PaymentsHandler) SaleStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.SaleStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentsHandler) ListBySale(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListBySale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
