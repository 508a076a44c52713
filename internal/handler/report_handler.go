package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-core-api/internal/service"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
	"github.com/noah-isme/school-core-api/pkg/response"
)

// ReportHandler exposes report endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ReportCard godoc
// @Summary Get a student's report card
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semester query string false "Filter by semester"
// @Param academicYear query string false "Filter by academic year"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/report-card/{studentId} [get]
func (h *ReportHandler) ReportCard(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var period service.ReportPeriod
	if err := c.ShouldBindQuery(&period); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	card, err := h.service.ReportCard(c.Request.Context(), rctx, c.Param("studentId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "report card retrieved", card)
}

// ExportReportCard godoc
// @Summary Export a student's report card as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} file
// @Router /reports/report-card/{studentId}/export [get]
func (h *ReportHandler) ExportReportCard(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var period service.ReportPeriod
	if err := c.ShouldBindQuery(&period); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.ExportReportCard(c.Request.Context(), rctx, c.Param("studentId"), period, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, payload, contentType, fmt.Sprintf("report-card-%s.%s", c.Param("studentId"), format))
}

// ClassReport godoc
// @Summary Get a class report with subject averages
// @Tags Reports
// @Produce json
// @Param classId path string true "Class ID"
// @Param subjectId query string false "Narrow to one subject"
// @Param semester query string false "Filter by semester"
// @Param academicYear query string false "Filter by academic year"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/class/{classId} [get]
func (h *ReportHandler) ClassReport(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var period service.ReportPeriod
	if err := c.ShouldBindQuery(&period); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	report, err := h.service.ClassReport(c.Request.Context(), rctx, c.Param("classId"), c.Query("subjectId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "class report retrieved", report)
}

// ExportClassReport godoc
// @Summary Export a class report as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param subjectId query string false "Narrow to one subject"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} file
// @Router /reports/class/{classId}/export [get]
func (h *ReportHandler) ExportClassReport(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var period service.ReportPeriod
	if err := c.ShouldBindQuery(&period); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.ExportClassReport(c.Request.Context(), rctx, c.Param("classId"), c.Query("subjectId"), period, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, payload, contentType, fmt.Sprintf("class-report-%s.%s", c.Param("classId"), format))
}

// AttendanceReport godoc
// @Summary Get per-student attendance counts
// @Tags Reports
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param subjectId query string false "Filter by subject"
// @Param startDate query string false "Start date (2006-01-02)"
// @Param endDate query string false "End date (2006-01-02)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) AttendanceReport(c *gin.Context) {
	rctx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AttendanceReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	report, err := h.service.AttendanceReport(c.Request.Context(), rctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "attendance report retrieved", report)
}

func serveExport(c *gin.Context, payload []byte, contentType, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
