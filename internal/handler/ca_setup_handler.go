package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/service"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
	"github.com/noah-isme/school-core-api/pkg/response"
)

// CASetupHandler exposes the continuous-assessment registry endpoints.
type CASetupHandler struct {
	service *service.CASetupService
}

// NewCASetupHandler constructs handler.
func NewCASetupHandler(svc *service.CASetupService) *CASetupHandler {
	return &CASetupHandler{service: svc}
}

// Save godoc
// @Summary Save CA setup for a class level
// @Tags CA Setup
// @Accept json
// @Produce json
// @Param payload body service.SaveCASetupRequest true "CA setup payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ca-setups [post]
func (h *CASetupHandler) Save(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveCASetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.service.Save(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "ca setup saved", results)
}

// Get godoc
// @Summary Get CA setup for a class level
// @Tags CA Setup
// @Produce json
// @Param classLevel query string true "Class level"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ca-setups [get]
func (h *CASetupHandler) Get(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.service.Get(c.Request.Context(), rctx, c.Query("classLevel"))
	if err != nil {
		// An unconfigured level keeps the envelope shape with an empty list.
		if appErrors.Is(err, appErrors.ErrNotFound) {
			response.ErrorWithData(c, err, []models.ClassLevelCA{})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "ca setup retrieved", rows)
}

// Update godoc
// @Summary Update one CA setup entry
// @Tags CA Setup
// @Accept json
// @Produce json
// @Param id path string true "CA setup entry ID"
// @Param payload body service.UpdateCASetupRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ca-setups/{id} [patch]
func (h *CASetupHandler) Update(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateCASetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	row, err := h.service.Update(c.Request.Context(), rctx, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "ca setup updated", row)
}
