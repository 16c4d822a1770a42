package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/service"
	"github.com/noah-isme/uniportal-api/internal/utils"
)

// SubmissionHandler serves the submission pipeline and a student's own records.
type SubmissionHandler struct {
	coordinator service.SubmissionCoordinator
	store       service.FeedbackStore
	logger      zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(coordinator service.SubmissionCoordinator, store service.FeedbackStore, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		coordinator: coordinator,
		store:       store,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. limiter guards the
// submit route and may be nil.
func (h *SubmissionHandler) Register(router fiber.Router, limiter fiber.Handler) {
	if limiter != nil {
		router.Post("", limiter, h.create)
	} else {
		router.Post("", h.create)
	}
	router.Get("", h.list)
	router.Get("/:id/feedback", h.feedback)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	session, ok, err := sessionOrUnauthorized(c)
	if !ok {
		return err
	}

	payload := dto.SubmissionCreateRequest{
		CourseID:     strings.TrimSpace(c.FormValue("courseId")),
		AssignmentID: strings.TrimSpace(c.FormValue("assignmentId")),
	}

	var file *service.FileHandle
	if header, err := c.FormFile("file"); err == nil && header != nil {
		handle := service.FileHandleFromMultipart(header)
		file = &handle
	}

	result, err := h.coordinator.Submit(c.UserContext(), session, payload, file)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	message := "submission evaluated"
	if result.Warning != "" {
		message = result.Warning
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, message, result)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	session, ok, err := sessionOrUnauthorized(c)
	if !ok {
		return err
	}

	records, err := h.store.ListByStudent(c.UserContext(), session.UserID)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", dto.NewSubmissionResponseSlice(records))
}

func (h *SubmissionHandler) feedback(c *fiber.Ctx) error {
	feedback, err := h.store.Feedback(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback retrieved", feedback)
}
