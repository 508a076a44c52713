package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/service"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
	"github.com/noah-isme/school-core-api/pkg/response"
)

// ExamHandler exposes exam endpoints.
type ExamHandler struct {
	service *service.ExamService
}

// NewExamHandler constructs handler.
func NewExamHandler(svc *service.ExamService) *ExamHandler {
	return &ExamHandler{service: svc}
}

// Create godoc
// @Summary Create exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.service.Create(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "exam created", exam)
}

// CreateAutoCA godoc
// @Summary Create exam with components derived from CA setup
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateExamAutoCARequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams/auto-ca [post]
func (h *ExamHandler) CreateAutoCA(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateExamAutoCARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.service.CreateWithAutoCAs(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "exam created", exam)
}

// Get godoc
// @Summary Get exam with components
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exam, err := h.service.Get(c.Request.Context(), rctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "exam retrieved", exam)
}

// Results godoc
// @Summary List raw component scores for an exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id}/results [get]
func (h *ExamHandler) Results(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	results, err := h.service.Results(c.Request.Context(), rctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "exam results retrieved", results)
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param classId query string false "Filter by class"
// @Param subjectId query string false "Filter by subject"
// @Param semester query string false "Filter by semester"
// @Param academicYear query string false "Filter by academic year"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ExamFilter{
		ClassID:      c.Query("classId"),
		SubjectID:    c.Query("subjectId"),
		Semester:     c.Query("semester"),
		AcademicYear: c.Query("academicYear"),
	}
	exams, err := h.service.List(c.Request.Context(), rctx, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "exams retrieved", exams)
}

// Update godoc
// @Summary Update exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body service.UpdateExamRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id} [patch]
func (h *ExamHandler) Update(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.service.Update(c.Request.Context(), rctx, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "exam updated", exam)
}

// Delete godoc
// @Summary Delete exam and its components
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /exams/{id} [delete]
func (h *ExamHandler) Delete(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), rctx, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
