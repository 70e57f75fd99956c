package handler

import (
	"net/http"

	"parkcore/internal/dto"
	"parkcore/internal/middleware"
	"parkcore/internal/service"

	"github.com/gin-gonic/gin"
)

type ShiftsHandler struct{ svc service.ShiftService }

func NewShiftsHandler(svc service.ShiftService) *ShiftsHandler { return &ShiftsHandler{svc: svc} }

// Open godoc
// @Summary Open a cash shift for the operator's device
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenShiftRequest true "Opening float"
// @Success 201 {object} dto.ShiftResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts [post]
func (h *ShiftsHandler) Open(c *gin.Context) {
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Active godoc
// @Summary The caller's open shift
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param device_id query string false "Device"
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/shifts/active [get]
func (h *ShiftsHandler) Active(c *gin.Context) {
	var deviceID *string
	if d := c.Query("device_id"); d != "" {
		deviceID = &d
	}
	resp, err := h.svc.GetActive(c.Request.Context(), middleware.ActorID(c), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary Closed and canceled shifts, newest first
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param operator_id query string false "Operator"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} dto.ShiftHistoryResponse
// @Router /v1/shifts/history [get]
func (h *ShiftsHandler) History(c *gin.Context) {
	var filter dto.ShiftHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error(), "code": "bad_request"})
		return
	}
	resp, err := h.svc.History(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordAdjustment godoc
// @Summary Record a cash withdrawal or deposit
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.AdjustmentRequest true "Adjustment"
// @Success 201 {object} dto.AdjustmentResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/adjustments [post]
func (h *ShiftsHandler) RecordAdjustment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordAdjustment(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ShiftsHandler) ListAdjustments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListAdjustments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Totals godoc
// @Summary Current cash position of a shift
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} dto.ShiftSummary
// @Router /v1/shifts/{id}/totals [get]
func (h *ShiftsHandler) Totals(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Totals(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Close godoc
// @Summary Close a shift against the declared cash
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.CloseShiftRequest true "Declared cash"
// @Success 200 {object} dto.ShiftSummary
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/close [post]
func (h *ShiftsHandler) Close(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ShiftsHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelShiftRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Operations godoc
// @Summary Append-only operation log of a shift
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {array} dto.ShiftOperationResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/shifts/{id}/operations [get]
func (h *ShiftsHandler) Operations(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListOperations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
