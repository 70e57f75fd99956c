package handler

import (
	"net/http"

	"parkcore/internal/apierror"
	"parkcore/internal/dto"
	"parkcore/internal/middleware"
	"parkcore/internal/service"

	"github.com/gin-gonic/gin"
)

type DebtsHandler struct{ svc service.DebtService }

func NewDebtsHandler(svc service.DebtService) *DebtsHandler { return &DebtsHandler{svc: svc} }

// Create godoc
// @Summary Register a fine or manual debt for a plate
// @Tags debts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateDebtRequest true "Debt"
// @Success 201 {object} dto.DebtResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/debts [post]
func (h *DebtsHandler) Create(c *gin.Context) {
	var req dto.CreateDebtRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateManual(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary Debts of a plate
// @Tags debts
// @Produce json
// @Security BearerAuth
// @Param plate query string true "Plate"
// @Param status query string false "pending | settled | cancelled"
// @Success 200 {array} dto.DebtResponse
// @Router /v1/debts [get]
func (h *DebtsHandler) List(c *gin.Context) {
	plate := c.Query("plate")
	if plate == "" {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Detail: "plate is required", Code: "bad_request"})
		return
	}
	resp, err := h.svc.ListByPlate(c.Request.Context(), plate, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DebtsHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Settle godoc
// @Summary Settle a pending debt with one payment
// @Tags debts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Param body body dto.SettleDebtRequest true "Payment"
// @Success 200 {object} dto.SettleDebtResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/debts/{id}/settle [post]
func (h *DebtsHandler) Settle(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.SettleDebtRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Settle(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DebtsHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelDebtRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
