package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/observability"
	"github.com/noah-isme/uniportal-api/pkg/portal"
)

const catalogCachePrefix = "portal:catalog"

var (
	// ErrCourseNotFound indicates the course is unknown to the catalog.
	ErrCourseNotFound = errors.New("course not found")
	// ErrAssignmentNotInCourse indicates the assignment is not offered by the course.
	ErrAssignmentNotInCourse = errors.New("assignment does not belong to course")
)

var fallbackCourses = []portal.Course{
	{ID: "CS201", Name: "Data Structures"},
	{ID: "CS202", Name: "Database Management"},
	{ID: "CS301", Name: "Machine Learning"},
	{ID: "CS305", Name: "Web Development"},
	{ID: "CS204", Name: "Computer Networks"},
}

var fallbackAssignmentTitles = map[string][]string{
	"CS201": {"Lab 1 - Linked Lists", "Lab 2 - Binary Trees", "Lab 3 - Graph Algorithms"},
	"CS202": {"ER Diagram Design", "SQL Queries Assignment", "Normalization Exercise"},
	"CS301": {"Project Proposal", "Literature Review", "Model Implementation"},
	"CS305": {"React App Development", "REST API Design", "Full Stack Project"},
	"CS204": {"TCP/IP Analysis", "Network Simulation", "Protocol Design"},
}

// CatalogSource is the remote course catalogue.
type CatalogSource interface {
	Courses(ctx context.Context) ([]portal.Course, error)
	Assignments(ctx context.Context, courseID string) ([]portal.Assignment, error)
}

// ResolvedAssignment names the course and assignment a submission targets.
type ResolvedAssignment struct {
	Course     portal.Course
	Assignment portal.Assignment
}

// CourseDisplayName is the label shown to students and handed to the evaluator.
func (r ResolvedAssignment) CourseDisplayName() string {
	return CourseDisplayName(r.Course)
}

// CourseDisplayName formats a course as "<id> — <name>".
func CourseDisplayName(course portal.Course) string {
	if course.Name == "" {
		return course.ID
	}
	return fmt.Sprintf("%s — %s", course.ID, course.Name)
}

// CourseCatalog lists courses and their assignments, falling back to a built-in catalogue.
type CourseCatalog interface {
	Courses(ctx context.Context) ([]dto.CourseResponse, error)
	Assignments(ctx context.Context, courseID string) ([]dto.AssignmentResponse, error)
	Resolve(ctx context.Context, courseID, assignmentID string) (ResolvedAssignment, error)
}

type courseCatalog struct {
	source CatalogSource
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCourseCatalog constructs the catalog. source and cache are optional.
func NewCourseCatalog(source CatalogSource, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CourseCatalog {
	return &courseCatalog{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "course_catalog").Logger(),
	}
}

func (c *courseCatalog) Courses(ctx context.Context) ([]dto.CourseResponse, error) {
	courses := c.loadCourses(ctx)

	responses := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, dto.CourseResponse{
			ID:          course.ID,
			Name:        course.Name,
			DisplayName: CourseDisplayName(course),
		})
	}
	return responses, nil
}

func (c *courseCatalog) Assignments(ctx context.Context, courseID string) ([]dto.AssignmentResponse, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrCourseNotFound
	}

	assignments := c.loadAssignments(ctx, courseID)

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.AssignmentResponse{
			ID:       assignment.ID,
			Title:    assignment.Title,
			CourseID: courseID,
		})
	}
	return responses, nil
}

func (c *courseCatalog) Resolve(ctx context.Context, courseID, assignmentID string) (ResolvedAssignment, error) {
	courseID = strings.TrimSpace(courseID)
	assignmentID = strings.TrimSpace(assignmentID)

	var resolved ResolvedAssignment
	found := false
	for _, course := range c.loadCourses(ctx) {
		if course.ID == courseID {
			resolved.Course = course
			found = true
			break
		}
	}
	if !found {
		return ResolvedAssignment{}, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}

	for _, assignment := range c.loadAssignments(ctx, courseID) {
		if assignment.ID == assignmentID {
			resolved.Assignment = assignment
			resolved.Assignment.CourseID = courseID
			return resolved, nil
		}
	}

	return ResolvedAssignment{}, fmt.Errorf("%w: %s/%s", ErrAssignmentNotInCourse, courseID, assignmentID)
}

func (c *courseCatalog) loadCourses(ctx context.Context) []portal.Course {
	key := catalogCachePrefix + ":courses"

	var courses []portal.Course
	if c.readCache(ctx, key, &courses) {
		return courses
	}

	if c.source != nil {
		remote, err := c.source.Courses(ctx)
		if err == nil {
			c.writeCache(ctx, key, remote)
			return remote
		}
		c.logger.Debug().Err(err).Msg("course listing unavailable, using built-in catalogue")
	}

	observability.CatalogFallbacks().Inc()
	return append([]portal.Course(nil), fallbackCourses...)
}

func (c *courseCatalog) loadAssignments(ctx context.Context, courseID string) []portal.Assignment {
	key := fmt.Sprintf("%s:assignments:%s", catalogCachePrefix, courseID)

	var assignments []portal.Assignment
	if c.readCache(ctx, key, &assignments) {
		return assignments
	}

	if c.source != nil {
		remote, err := c.source.Assignments(ctx, courseID)
		if err == nil {
			c.writeCache(ctx, key, remote)
			return remote
		}
		c.logger.Debug().Err(err).Str("course_id", courseID).Msg("assignment listing unavailable, using built-in catalogue")
	}

	observability.CatalogFallbacks().Inc()
	titles := fallbackAssignmentTitles[courseID]
	fallback := make([]portal.Assignment, 0, len(titles))
	for index, title := range titles {
		fallback = append(fallback, portal.Assignment{
			ID:       strconv.Itoa(index + 1),
			Title:    title,
			CourseID: courseID,
		})
	}
	return fallback
}

func (c *courseCatalog) readCache(ctx context.Context, key string, out interface{}) bool {
	if c.cache == nil || c.ttl <= 0 {
		return false
	}
	cached, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to read catalog cache")
		}
		return false
	}
	return json.Unmarshal(cached, out) == nil
}

func (c *courseCatalog) writeCache(ctx context.Context, key string, value interface{}) {
	if c.cache == nil || c.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to write catalog cache")
	}
}
