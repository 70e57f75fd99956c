package handler

import (
	"net/http"

	"parkcore/internal/dto"
	"parkcore/internal/service"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct{ svc service.PricingService }

func NewPricingHandler(svc service.PricingService) *PricingHandler { return &PricingHandler{svc: svc} }

// CreateProfile godoc
// @Summary Create a pricing profile for a sector
// @Tags pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateProfileRequest true "Profile"
// @Success 201 {object} dto.ProfileResponse
// @Failure 402 {object} apierror.APIError
// @Router /v1/pricing/profiles [post]
func (h *PricingHandler) CreateProfile(c *gin.Context) {
	var req dto.CreateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateProfile(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PricingHandler) GetProfile(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PricingHandler) ListProfiles(c *gin.Context) {
	sectorID, ok := uuidParam(c, "sector_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListProfiles(c.Request.Context(), sectorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PricingHandler) AddRule(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CreateRuleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddRule(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PricingHandler) AddDiscount(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CreateDiscountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddDiscount(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Quote godoc
// @Summary Price a duration without touching any session
// @Tags pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.QuoteRequest true "Sector and duration"
// @Success 200 {object} dto.QuoteResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Quote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
