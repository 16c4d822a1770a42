package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniportal-api/internal/config"
	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/handler"
	"github.com/noah-isme/uniportal-api/internal/middleware"
	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/internal/repository"
	"github.com/noah-isme/uniportal-api/internal/router"
	"github.com/noah-isme/uniportal-api/internal/service"
	"github.com/noah-isme/uniportal-api/pkg/ai"
	"github.com/noah-isme/uniportal-api/pkg/portal"
)

type handlerEvaluator struct {
	configured bool
	feedback   models.Feedback
	err        error
	calls      int
}

func (e *handlerEvaluator) Evaluate(context.Context, ai.EvaluationInput) (models.Feedback, error) {
	e.calls++
	return e.feedback, e.err
}

func (e *handlerEvaluator) Configured() bool {
	return e.configured
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupPortalApp(t *testing.T, evaluator ai.Evaluator) *fiber.App {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	backend := portal.New(portal.Config{}, logger)

	catalog := service.NewCourseCatalog(backend, nil, 0, logger)
	store := service.NewFeedbackStore(backend, repository.NewRedisLocalStorage(redisClient), logger)
	coordinator := service.NewSubmissionCoordinator(
		backend,
		evaluator,
		service.NewContentExtractor(logger),
		store,
		service.NewEvaluationEvents(redisClient, nil, "portal", logger),
		catalog,
		validate,
		service.SubmissionCoordinatorConfig{MockDelay: time.Millisecond},
		logger,
	)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", StorageDriver: config.StorageDriverRedis}, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(coordinator, store, logger),
		CourseHandler:     handler.NewCourseHandler(catalog, store, validate, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			role := c.Get("X-Test-Role")
			if role == "" {
				role = middleware.RoleStudent
			}
			return middleware.WithSession(dto.Session{UserID: "STU001", Role: role})(c)
		},
		AIConfigured: evaluator.Configured(),
	})
	return app
}

func multipartSubmission(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload envelope
	require.NoError(t, json.Unmarshal(raw, &payload))
	return resp, payload
}

func submit(t *testing.T, app *fiber.App, fields map[string]string, fileName, content string) (*http.Response, envelope) {
	t.Helper()
	body, contentType := multipartSubmission(t, fields, fileName, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	return doRequest(t, app, req)
}

func TestSubmissionEndpointRunsPipeline(t *testing.T) {
	evaluator := &handlerEvaluator{configured: true, feedback: models.Feedback{
		GrammarScore: 90, RelevanceScore: 87, OriginalityScore: 80, OverallScore: 88,
		Summary: "Well argued.", Suggestions: []string{"Add a complexity table"},
	}}
	app := setupPortalApp(t, evaluator)

	resp, payload := submit(t, app, map[string]string{"courseId": "CS201", "assignmentId": "1"}, "answer.txt", "Lists are linear structures...")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, payload.Success)

	var result dto.SubmissionResult
	require.NoError(t, json.Unmarshal(payload.Data, &result))
	require.Equal(t, "EVALUATED", result.State)
	require.Equal(t, 88, result.Feedback.OverallScore)
	require.Empty(t, result.Warning)
	require.Equal(t, "STU001", result.Submission.StudentID)
	require.Equal(t, "Lab 1 - Linked Lists", result.Submission.AssignmentTitle)
	require.Equal(t, "CS201 — Data Structures", result.Submission.CourseName)
	require.Equal(t, 1, evaluator.calls)

	listResp, listPayload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/submissions", nil))
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)
	var listed []dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(listPayload.Data, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, result.Submission.ID, listed[0].ID)
	require.Equal(t, 88, *listed[0].Score)

	feedbackResp, feedbackPayload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/submissions/"+result.Submission.ID+"/feedback", nil))
	require.Equal(t, fiber.StatusOK, feedbackResp.StatusCode)
	var feedback dto.FeedbackResponse
	require.NoError(t, json.Unmarshal(feedbackPayload.Data, &feedback))
	require.Equal(t, 88, feedback.Feedback.OverallScore)
	require.Equal(t, models.FeedbackSourceAI, feedback.Source)
}

func TestSubmissionEndpointFallbackWarning(t *testing.T) {
	app := setupPortalApp(t, &handlerEvaluator{configured: true, err: ai.ErrEvaluationFailed})

	resp, payload := submit(t, app, map[string]string{"courseId": "CS201", "assignmentId": "1"}, "answer.txt", "Lists are linear structures...")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, service.FallbackWarning, payload.Message)

	var result dto.SubmissionResult
	require.NoError(t, json.Unmarshal(payload.Data, &result))
	require.Equal(t, 85, result.Feedback.OverallScore)
	require.Equal(t, service.FallbackWarning, result.Warning)
}

func TestSubmissionEndpointValidation(t *testing.T) {
	evaluator := &handlerEvaluator{configured: true}
	app := setupPortalApp(t, evaluator)

	resp, payload := submit(t, app, map[string]string{"courseId": "CS201", "assignmentId": "1"}, "", "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "Please attach a file.", payload.Message)

	resp, payload = submit(t, app, map[string]string{"assignmentId": "1"}, "answer.txt", "x")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Please select a course.", payload.Message)

	require.Zero(t, evaluator.calls)
}

func TestSubmissionResultContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "submission_result.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)

	app := setupPortalApp(t, &handlerEvaluator{configured: false})
	body, contentType := multipartSubmission(t, map[string]string{"courseId": "CS305", "assignmentId": "2"}, "diagram.png", "\x89PNG\r\n\x1a\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestFeedbackEndpointNotYetEvaluated(t *testing.T) {
	app := setupPortalApp(t, &handlerEvaluator{})

	resp, payload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/submissions/unknown/feedback", nil))
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.False(t, payload.Success)
}
