package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/pkg/portal"
)

type catalogSourceStub struct {
	courses         []portal.Course
	assignments     map[string][]portal.Assignment
	err             error
	courseCalls     int
	assignmentCalls int
}

func (s *catalogSourceStub) Courses(ctx context.Context) ([]portal.Course, error) {
	s.courseCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.courses, nil
}

func (s *catalogSourceStub) Assignments(ctx context.Context, courseID string) ([]portal.Assignment, error) {
	s.assignmentCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.assignments[courseID], nil
}

func TestCourseCatalogFallsBackToBuiltInCatalogue(t *testing.T) {
	catalog := NewCourseCatalog(&catalogSourceStub{err: portal.ErrUnexpectedStatus}, nil, 0, testLogger())

	courses, err := catalog.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 5)
	require.Equal(t, dto.CourseResponse{ID: "CS201", Name: "Data Structures", DisplayName: "CS201 — Data Structures"}, courses[0])

	assignments, err := catalog.Assignments(context.Background(), "CS202")
	require.NoError(t, err)
	require.Equal(t, []dto.AssignmentResponse{
		{ID: "1", Title: "ER Diagram Design", CourseID: "CS202"},
		{ID: "2", Title: "SQL Queries Assignment", CourseID: "CS202"},
		{ID: "3", Title: "Normalization Exercise", CourseID: "CS202"},
	}, assignments)

	unknown, err := catalog.Assignments(context.Background(), "CS999")
	require.NoError(t, err)
	require.Empty(t, unknown)
}

func TestCourseCatalogResolve(t *testing.T) {
	catalog := NewCourseCatalog(nil, nil, 0, testLogger())

	resolved, err := catalog.Resolve(context.Background(), "CS201", "1")
	require.NoError(t, err)
	require.Equal(t, "Lab 1 - Linked Lists", resolved.Assignment.Title)
	require.Equal(t, "CS201 — Data Structures", resolved.CourseDisplayName())

	_, err = catalog.Resolve(context.Background(), "CS201", "4")
	require.ErrorIs(t, err, ErrAssignmentNotInCourse)

	_, err = catalog.Resolve(context.Background(), "MATH101", "1")
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseCatalogPrefersRemoteAndCaches(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	source := &catalogSourceStub{
		courses: []portal.Course{{ID: "CS410", Name: "Compilers"}},
		assignments: map[string][]portal.Assignment{
			"CS410": {{ID: "77", Title: "Parser Lab"}},
		},
	}
	catalog := NewCourseCatalog(source, redisClient, time.Minute, testLogger())

	for i := 0; i < 2; i++ {
		courses, err := catalog.Courses(context.Background())
		require.NoError(t, err)
		require.Equal(t, []dto.CourseResponse{{ID: "CS410", Name: "Compilers", DisplayName: "CS410 — Compilers"}}, courses)

		resolved, err := catalog.Resolve(context.Background(), "CS410", "77")
		require.NoError(t, err)
		require.Equal(t, "Parser Lab", resolved.Assignment.Title)
		require.Equal(t, "CS410", resolved.Assignment.CourseID)
	}

	require.Equal(t, 1, source.courseCalls)
	require.Equal(t, 1, source.assignmentCalls)
	require.True(t, server.Exists("portal:catalog:courses"))

	server.FastForward(2 * time.Minute)
	source.err = errors.New("backend down")
	courses, err := catalog.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 5, "expired cache with a failing backend falls back to the built-in list")
}
