package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/service"
	"github.com/noah-isme/school-core-api/pkg/config"
)

type attendanceCountsStub struct {
	lastFilter models.AttendanceFilter
}

func (s *attendanceCountsStub) StatusCounts(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error) {
	s.lastFilter = filter
	return nil, nil
}

func TestAttendanceReportBindsStartDateAndEndDate(t *testing.T) {
	counts := &attendanceCountsStub{}
	svc := service.NewReportService(nil, counts, nil, nil, nil, nil, nil, config.ReportsConfig{}, nil)
	h := NewReportHandler(svc)

	c, w := caSetupTestContext(t, "/reports/attendance?classId=class-1&startDate=2026-01-01&endDate=2026-01-31")
	h.AttendanceReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", counts.lastFilter.ClassID)
	require.NotNil(t, counts.lastFilter.From)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *counts.lastFilter.From)
	require.NotNil(t, counts.lastFilter.To)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *counts.lastFilter.To)
}

func TestAttendanceReportIgnoresLegacyDateParams(t *testing.T) {
	counts := &attendanceCountsStub{}
	svc := service.NewReportService(nil, counts, nil, nil, nil, nil, nil, config.ReportsConfig{}, nil)
	h := NewReportHandler(svc)

	c, w := caSetupTestContext(t, "/reports/attendance?classId=class-1&from=2026-01-01&to=2026-01-31")
	h.AttendanceReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, counts.lastFilter.From)
	assert.Nil(t, counts.lastFilter.To)
}
