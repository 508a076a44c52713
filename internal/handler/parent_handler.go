package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-core-api/internal/service"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
	"github.com/noah-isme/school-core-api/pkg/response"
)

// ParentHandler exposes parent link administration.
type ParentHandler struct {
	service *service.ParentLinkService
}

// NewParentHandler constructs handler.
func NewParentHandler(svc *service.ParentLinkService) *ParentHandler {
	return &ParentHandler{service: svc}
}

// Link godoc
// @Summary Link a parent to a student
// @Tags Parents
// @Accept json
// @Produce json
// @Param payload body service.LinkParentRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /parents/links [post]
func (h *ParentHandler) Link(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.LinkParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.service.Link(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "parent linked", link)
}
