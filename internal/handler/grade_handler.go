package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-core-api/internal/service"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
	"github.com/noah-isme/school-core-api/pkg/response"
)

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Record godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.GradeRecordRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.GradeRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Record(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "grade recorded", record)
}

// BulkRecord godoc
// @Summary Record multiple grades atomically
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.BulkGradeRequest true "Bulk payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) BulkRecord(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BulkGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.service.BulkRecord(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "grades recorded", records)
}

// AddScores godoc
// @Summary Upsert raw component scores
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.AddScoresRequest true "Scores payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades/scores [post]
func (h *GradeHandler) AddScores(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AddScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	saved, err := h.service.AddScores(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "scores saved", gin.H{"saved": saved})
}

// List godoc
// @Summary List academic records
// @Tags Grades
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param subjectId query string false "Filter by subject"
// @Param examId query string false "Filter by exam"
// @Param semester query string false "Filter by semester"
// @Param academicYear query string false "Filter by academic year"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.GradeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	records, err := h.service.List(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "grades retrieved", records)
}
