package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/handler"
	"github.com/noah-isme/uniportal-api/internal/models"
)

func TestCourseEndpointsServeCatalogue(t *testing.T) {
	app := setupPortalApp(t, &handlerEvaluator{})

	resp, payload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var courses []dto.CourseResponse
	require.NoError(t, json.Unmarshal(payload.Data, &courses))
	require.Len(t, courses, 5)
	require.Equal(t, "CS201 — Data Structures", courses[0].DisplayName)

	resp, payload = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS301/assignments", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var assignments []dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(payload.Data, &assignments))
	require.Equal(t, []dto.AssignmentResponse{
		{ID: "1", Title: "Project Proposal", CourseID: "CS301"},
		{ID: "2", Title: "Literature Review", CourseID: "CS301"},
		{ID: "3", Title: "Model Implementation", CourseID: "CS301"},
	}, assignments)
}

func TestCourseSubmissionsRequireFacultyRole(t *testing.T) {
	app := setupPortalApp(t, &handlerEvaluator{})

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS201/submissions", nil))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS201/submissions?since=2026-01-01", nil)
	req.Header.Set("X-Test-Role", "faculty")
	resp, payload := doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var records []dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(payload.Data, &records))
	require.Len(t, records, 1)
	require.Equal(t, "Data Structures Lab - Linked Lists", records[0].AssignmentTitle)
	require.Equal(t, models.SubmissionStatusSubmitted, records[0].Status)

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/courses/CS201/submissions?since=last-week", nil)
	bad.Header.Set("X-Test-Role", "admin")
	resp, payload = doRequest(t, app, bad)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, payload.Success)
}

func TestHealthCheck(t *testing.T) {
	app := setupPortalApp(t, &handlerEvaluator{configured: true})

	resp, payload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))

	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(payload.Data, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Environment)
	require.Equal(t, "redis", health.StorageDriver)
	require.True(t, health.AIConfigured)
	require.WithinDuration(t, time.Now().UTC(), health.Timestamp, 5*time.Second)
}
