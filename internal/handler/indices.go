package handler

import (
	"net/http"

	"parkcore/internal/service"

	"github.com/gin-gonic/gin"
)

type IndicesHandler struct{ svc service.IndexService }

func NewIndicesHandler(svc service.IndexService) *IndicesHandler { return &IndicesHandler{svc: svc} }

// Current godoc
// @Summary Today's value of a currency index
// @Tags indices
// @Produce json
// @Security BearerAuth
// @Param code path string true "Index code, e.g. UF"
// @Success 200 {object} dto.IndexValueResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/indices/{code} [get]
func (h *IndicesHandler) Current(c *gin.Context) {
	resp, err := h.svc.Current(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
