package handler

import (
	"net/http"

	"parkcore/internal/dto"
	"parkcore/internal/service"

	"github.com/gin-gonic/gin"
)

// OperatorsHandler administers operators, their assignments and sectors.
type OperatorsHandler struct{ svc service.OperatorService }

func NewOperatorsHandler(svc service.OperatorService) *OperatorsHandler {
	return &OperatorsHandler{svc: svc}
}

// Create godoc
// @Summary Create an operator
// @Tags operators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateOperatorRequest true "Operator"
// @Success 201 {object} dto.OperatorResponse
// @Failure 402 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/operators [post]
func (h *OperatorsHandler) Create(c *gin.Context) {
	var req dto.CreateOperatorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *OperatorsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OperatorsHandler) Deactivate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OperatorsHandler) Reactivate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Reactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OperatorsHandler) CreateAssignment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CreateAssignmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateAssignment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *OperatorsHandler) ListAssignments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListAssignments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OperatorsHandler) CreateSector(c *gin.Context) {
	var req dto.CreateSectorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateSector(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *OperatorsHandler) ListSectors(c *gin.Context) {
	resp, err := h.svc.ListSectors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
