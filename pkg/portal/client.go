package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/pkg/ai"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNotFound indicates the backend answered 404 or returned an empty document.
	ErrNotFound = errors.New("portal resource not found")
	// ErrUnexpectedStatus indicates a non-2xx answer from the backend.
	ErrUnexpectedStatus = errors.New("unexpected portal response status")
	// ErrNotConfigured indicates no backend base URL was configured.
	ErrNotConfigured = errors.New("portal backend not configured")
)

// Config contains connection details for the portal REST backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the portal REST backend.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  zerolog.Logger
}

// UploadResult is what the upload endpoint answered.
type UploadResult struct {
	SubmissionID string
	FileName     string
	Feedback     *models.Feedback
}

// New constructs a portal client. An empty base URL yields a client whose
// calls fail with ErrNotConfigured, which callers treat as "backend absent".
func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: timeout,
		logger:  logger.With().Str("component", "portal_client").Logger(),
	}
}

// Upload posts the submission file as multipart form data.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if err := c.ready(ctx); err != nil {
		return UploadResult{}, err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("courseId", req.CourseID)
	args.Set("assignmentId", req.AssignmentID)
	args.Set("studentId", req.StudentID)

	agent := fiber.Post(c.endpoint("assignments", "upload")).Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.FileData(&fiber.FormFile{
		Fieldname: "file",
		Name:      req.FileName,
		Content:   req.Content,
	})
	agent.MultipartForm(args)

	var wire uploadWire
	if err := c.do(agent, &wire); err != nil {
		return UploadResult{}, fmt.Errorf("upload submission: %w", err)
	}

	return UploadResult{
		SubmissionID: string(wire.SubmissionID),
		FileName:     wire.FileName,
		Feedback:     decodeFeedback(wire.Feedback),
	}, nil
}

// Feedback fetches the stored evaluation for a backend submission id.
func (c *Client) Feedback(ctx context.Context, submissionID string) (models.Feedback, error) {
	if err := c.ready(ctx); err != nil {
		return models.Feedback{}, err
	}

	var raw json.RawMessage
	agent := fiber.Get(c.endpoint("ai-feedback", "submission", submissionID)).Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if err := c.do(agent, &raw); err != nil {
		return models.Feedback{}, fmt.Errorf("get feedback: %w", err)
	}

	feedback := decodeFeedback(raw)
	if feedback == nil {
		return models.Feedback{}, ErrNotFound
	}
	return *feedback, nil
}

// SaveFeedback writes an evaluation back to the backend.
func (c *Client) SaveFeedback(ctx context.Context, submissionID string, feedback models.Feedback) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(submissionID) == "" {
		return fmt.Errorf("save feedback: %w", ErrNotFound)
	}

	agent := fiber.Post(c.endpoint("ai-feedback", "submission", submissionID)).Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.JSON(feedback)
	if err := c.do(agent, nil); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// SubmissionsByStudent lists the submissions of one student.
func (c *Client) SubmissionsByStudent(ctx context.Context, studentID string) ([]models.SubmissionRecord, error) {
	return c.listSubmissions(ctx, c.endpoint("assignments", "student", studentID))
}

// SubmissionsByCourse lists every submission made for a course.
func (c *Client) SubmissionsByCourse(ctx context.Context, courseID string) ([]models.SubmissionRecord, error) {
	return c.listSubmissions(ctx, c.endpoint("assignments", "course", courseID, "submissions"))
}

// Courses lists the course catalogue.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	var wire []courseWire
	agent := fiber.Get(c.endpoint("courses")).Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if err := c.do(agent, &wire); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	courses := make([]Course, 0, len(wire))
	for _, item := range wire {
		if course := item.toCourse(); course.ID != "" {
			courses = append(courses, course)
		}
	}
	return courses, nil
}

// Assignments lists the assignments of a course.
func (c *Client) Assignments(ctx context.Context, courseID string) ([]Assignment, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	var wire []assignmentWire
	agent := fiber.Get(c.endpoint("assignments", "course", courseID)).Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if err := c.do(agent, &wire); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	assignments := make([]Assignment, 0, len(wire))
	for _, item := range wire {
		assignment := item.toAssignment()
		if assignment.CourseID == "" {
			assignment.CourseID = courseID
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

func (c *Client) listSubmissions(ctx context.Context, endpoint string) ([]models.SubmissionRecord, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	var wire []submissionWire
	agent := fiber.Get(endpoint).Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if err := c.do(agent, &wire); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	records := make([]models.SubmissionRecord, 0, len(wire))
	for _, item := range wire {
		records = append(records, item.toRecord())
	}
	return records, nil
}

func (w submissionWire) toRecord() models.SubmissionRecord {
	status := models.SubmissionStatus(strings.ToUpper(strings.TrimSpace(w.Status)))
	if !status.Valid() {
		status = models.SubmissionStatusSubmitted
	}

	record := models.SubmissionRecord{
		Submission: models.Submission{
			ID:              string(w.ID),
			RemoteID:        string(w.ID),
			StudentID:       string(w.StudentID),
			CourseID:        string(w.CourseID),
			AssignmentID:    string(w.AssignmentID),
			AssignmentTitle: w.AssignmentTitle,
			FileName:        w.FileName,
			SubmittedAt:     parseTimestamp(w.SubmittedAt),
			Status:          status,
		},
		Source: models.FeedbackSourceBackend,
	}
	if w.Score != nil {
		score := models.ClampScore(int(math.Round(*w.Score)))
		record.Score = &score
	}
	return record
}

func (c *Client) ready(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(agent *fiber.Agent, out interface{}) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code == fiber.StatusNotFound {
		return ErrNotFound
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, code)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode portal response: %w", err)
	}
	return nil
}

// decodeFeedback reads an embedded feedback object. Absent, null and empty
// objects mean "not evaluated yet". Anything else goes through the same
// normalisation as model output, so missing scores default and every score is
// clamped.
func decodeFeedback(raw json.RawMessage) *models.Feedback {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil || len(probe) == 0 {
		return nil
	}

	feedback := ai.ParseFeedback(string(trimmed))
	return &feedback
}
