package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/middleware"
	"github.com/noah-isme/uniportal-api/internal/service"
	"github.com/noah-isme/uniportal-api/internal/utils"
)

// CourseHandler exposes the course catalogue and faculty submission reviews.
type CourseHandler struct {
	catalog   service.CourseCatalog
	store     service.FeedbackStore
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseHandler constructs the course handler.
func NewCourseHandler(catalog service.CourseCatalog, store service.FeedbackStore, validate *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		catalog:   catalog,
		store:     store,
		validator: validate,
		logger:    logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:courseId/assignments", h.assignments)
	router.Get("/:courseId/submissions", middleware.RequireRole(middleware.RoleFaculty, middleware.RoleAdmin), h.submissions)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	courses, err := h.catalog.Courses(c.UserContext())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) assignments(c *fiber.Ctx) error {
	assignments, err := h.catalog.Assignments(c.UserContext(), c.Params("courseId"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *CourseHandler) submissions(c *fiber.Ctx) error {
	var filter dto.SubmissionListFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(filter); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	var since time.Time
	if filter.Since != "" {
		since, _ = time.Parse("2006-01-02", filter.Since)
	}

	records, err := h.store.ListByCourse(c.UserContext(), c.Params("courseId"), since)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", dto.NewSubmissionResponseSlice(records))
}
