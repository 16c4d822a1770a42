package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/internal/observability"
	"github.com/noah-isme/uniportal-api/internal/repository"
)

// LocalSubmissionsKey namespaces the fallback submission list.
const LocalSubmissionsKey = "university-portal:submissions"

// ErrFeedbackNotFound indicates the submission has not been evaluated yet.
var ErrFeedbackNotFound = errors.New("feedback not yet available")

// FeedbackBackend is the remote system of record for submissions and feedback.
type FeedbackBackend interface {
	SaveFeedback(ctx context.Context, submissionID string, feedback models.Feedback) error
	Feedback(ctx context.Context, submissionID string) (models.Feedback, error)
	SubmissionsByStudent(ctx context.Context, studentID string) ([]models.SubmissionRecord, error)
	SubmissionsByCourse(ctx context.Context, courseID string) ([]models.SubmissionRecord, error)
}

// FeedbackStore keeps evaluated submissions retrievable: remote backend first,
// local fallback list second, seed data last.
type FeedbackStore interface {
	Save(ctx context.Context, record models.SubmissionRecord) error
	ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionRecord, error)
	ListByCourse(ctx context.Context, courseID string, since time.Time) ([]models.SubmissionRecord, error)
	Feedback(ctx context.Context, submissionID string) (dto.FeedbackResponse, error)
}

type feedbackStore struct {
	backend FeedbackBackend
	local   repository.LocalStorage
	logger  zerolog.Logger
}

// NewFeedbackStore constructs the store. backend may be nil when no portal backend is configured.
func NewFeedbackStore(backend FeedbackBackend, local repository.LocalStorage, logger zerolog.Logger) FeedbackStore {
	return &feedbackStore{
		backend: backend,
		local:   local,
		logger:  logger.With().Str("component", "feedback_store").Logger(),
	}
}

func (s *feedbackStore) Save(ctx context.Context, record models.SubmissionRecord) error {
	if record.Feedback != nil && record.Submission.RemoteID != "" && s.backend != nil {
		err := s.backend.SaveFeedback(ctx, record.Submission.RemoteID, *record.Feedback)
		if err == nil {
			observability.FeedbackStoreWrites().WithLabelValues("remote").Inc()
			return nil
		}
		s.logger.Warn().Err(err).Str("submission_id", record.Submission.ID).Msg("remote feedback save failed, keeping record locally")
	}

	records, err := s.readLocal(ctx)
	if err != nil {
		return fmt.Errorf("read local submissions: %w", err)
	}
	records = append(records, record)

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode local submissions: %w", err)
	}
	if err := s.local.SetItem(ctx, LocalSubmissionsKey, payload); err != nil {
		return err
	}

	observability.FeedbackStoreWrites().WithLabelValues("local").Inc()
	return nil
}

func (s *feedbackStore) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionRecord, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, errors.New("student id is required")
	}

	if s.backend != nil {
		records, err := s.backend.SubmissionsByStudent(ctx, studentID)
		if err == nil {
			observability.FeedbackStoreReads().WithLabelValues("student", "remote").Inc()
			return records, nil
		}
		s.logger.Debug().Err(err).Str("student_id", studentID).Msg("remote submission listing unavailable")
	}

	local := filterRecords(s.localOrEmpty(ctx), func(record models.SubmissionRecord) bool {
		return record.Submission.StudentID == studentID
	})
	if len(local) > 0 {
		observability.FeedbackStoreReads().WithLabelValues("student", "local").Inc()
		return local, nil
	}

	observability.FeedbackStoreReads().WithLabelValues("student", "seed").Inc()
	return seedSubmissions(), nil
}

func (s *feedbackStore) ListByCourse(ctx context.Context, courseID string, since time.Time) ([]models.SubmissionRecord, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrCourseNotFound
	}

	matches := func(record models.SubmissionRecord) bool {
		if record.Submission.CourseID != courseID {
			return false
		}
		return since.IsZero() || !record.Submission.SubmittedAt.Before(since)
	}

	if s.backend != nil {
		records, err := s.backend.SubmissionsByCourse(ctx, courseID)
		if err == nil {
			observability.FeedbackStoreReads().WithLabelValues("course", "remote").Inc()
			if since.IsZero() {
				return records, nil
			}
			return filterRecords(records, matches), nil
		}
		s.logger.Debug().Err(err).Str("course_id", courseID).Msg("remote course listing unavailable")
	}

	local := filterRecords(s.localOrEmpty(ctx), matches)
	if len(local) > 0 {
		observability.FeedbackStoreReads().WithLabelValues("course", "local").Inc()
		return local, nil
	}

	observability.FeedbackStoreReads().WithLabelValues("course", "seed").Inc()
	return filterRecords(seedSubmissions(), matches), nil
}

func (s *feedbackStore) Feedback(ctx context.Context, submissionID string) (dto.FeedbackResponse, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return dto.FeedbackResponse{}, ErrFeedbackNotFound
	}

	if s.backend != nil {
		feedback, err := s.backend.Feedback(ctx, submissionID)
		if err == nil {
			observability.FeedbackStoreReads().WithLabelValues("feedback", "remote").Inc()
			return dto.FeedbackResponse{
				SubmissionID: submissionID,
				Feedback:     feedback.Clamp(),
				Source:       models.FeedbackSourceBackend,
			}, nil
		}
		s.logger.Debug().Err(err).Str("submission_id", submissionID).Msg("remote feedback unavailable")
	}

	records := s.localOrEmpty(ctx)
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if record.Feedback == nil {
			continue
		}
		if record.Submission.ID == submissionID || record.Submission.RemoteID == submissionID {
			observability.FeedbackStoreReads().WithLabelValues("feedback", "local").Inc()
			return dto.FeedbackResponse{
				SubmissionID: record.Submission.ID,
				Feedback:     record.Feedback.Clamp(),
				Source:       record.Source,
				Warning:      record.Warning,
			}, nil
		}
	}

	return dto.FeedbackResponse{}, ErrFeedbackNotFound
}

// readLocal returns the stored list. A missing or unreadable list reads as empty;
// any other storage failure is returned so writers do not overwrite records they
// could not see.
func (s *feedbackStore) readLocal(ctx context.Context) ([]models.SubmissionRecord, error) {
	raw, err := s.local.GetItem(ctx, LocalSubmissionsKey)
	if err != nil {
		if errors.Is(err, repository.ErrLocalItemNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var records []models.SubmissionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable local submissions")
		return nil, nil
	}
	return records, nil
}

// localOrEmpty serves read paths, which degrade to the next tier on storage failures.
func (s *feedbackStore) localOrEmpty(ctx context.Context) []models.SubmissionRecord {
	records, err := s.readLocal(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read local submissions")
		return nil
	}
	return records
}

func filterRecords(records []models.SubmissionRecord, keep func(models.SubmissionRecord) bool) []models.SubmissionRecord {
	filtered := make([]models.SubmissionRecord, 0, len(records))
	for _, record := range records {
		if keep(record) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

func seedSubmissions() []models.SubmissionRecord {
	seed := []struct {
		title    string
		courseID string
		status   models.SubmissionStatus
		score    *int
		due      string
	}{
		{"Data Structures Lab - Linked Lists", "CS201", models.SubmissionStatusSubmitted, intPtr(85), "2026-02-20"},
		{"Machine Learning Project Proposal", "CS301", models.SubmissionStatusPending, nil, "2026-03-01"},
		{"Database Design - ER Diagrams", "CS202", models.SubmissionStatusEvaluated, intPtr(92), "2026-02-15"},
		{"Web Development - React App", "CS305", models.SubmissionStatusSubmitted, nil, "2026-02-25"},
		{"Computer Networks - TCP/IP", "CS204", models.SubmissionStatusPending, nil, "2026-03-05"},
	}

	records := make([]models.SubmissionRecord, 0, len(seed))
	for index, item := range seed {
		submission := models.Submission{
			ID:              fmt.Sprintf("seed-%d", index+1),
			CourseID:        item.courseID,
			CourseName:      seedCourseName(item.courseID),
			AssignmentTitle: item.title,
			Status:          item.status,
		}
		if item.status != models.SubmissionStatusPending {
			submission.SubmittedAt, _ = time.Parse("2006-01-02", item.due)
		}
		records = append(records, models.SubmissionRecord{Submission: submission, Score: item.score})
	}
	return records
}

func seedCourseName(courseID string) string {
	for _, course := range fallbackCourses {
		if course.ID == courseID {
			return CourseDisplayName(course)
		}
	}
	return courseID
}

func intPtr(value int) *int {
	return &value
}
