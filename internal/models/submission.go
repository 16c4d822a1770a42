package models

import (
	"errors"
	"fmt"
	"time"
)

// SubmissionStatus tracks where a submission sits in the evaluation lifecycle.
type SubmissionStatus string

const (
	// SubmissionStatusPending indicates the submission was accepted locally but not yet uploaded.
	SubmissionStatusPending SubmissionStatus = "PENDING"
	// SubmissionStatusSubmitted indicates the upload step finished, with or without a backend.
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	// SubmissionStatusEvaluated indicates feedback has been attached.
	SubmissionStatusEvaluated SubmissionStatus = "EVALUATED"
)

// ErrStatusRegression is returned when a submission would move back in its lifecycle.
var ErrStatusRegression = errors.New("submission status cannot move backwards")

var statusRank = map[SubmissionStatus]int{
	SubmissionStatusPending:   0,
	SubmissionStatusSubmitted: 1,
	SubmissionStatusEvaluated: 2,
}

// Valid reports whether the status is one of the known lifecycle values.
func (s SubmissionStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Submission represents a student's single attempt at an assignment.
type Submission struct {
	ID              string           `json:"id"`
	RemoteID        string           `json:"remoteId,omitempty"`
	StudentID       string           `json:"studentId"`
	CourseID        string           `json:"courseId"`
	AssignmentID    string           `json:"assignmentId"`
	AssignmentTitle string           `json:"assignmentTitle"`
	CourseName      string           `json:"courseName"`
	FileName        string           `json:"fileName"`
	FileSizeBytes   int64            `json:"fileSizeBytes"`
	ContentType     string           `json:"contentType,omitempty"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	Status          SubmissionStatus `json:"status"`
}

// Advance moves the submission forward to the given status. Moving to the current
// status is a no-op; moving backwards fails with ErrStatusRegression.
func (s *Submission) Advance(next SubmissionStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown submission status %q", next)
	}
	current := s.Status
	if current == "" {
		current = SubmissionStatusPending
	}
	if statusRank[next] < statusRank[current] {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current, next)
	}
	s.Status = next
	return nil
}

// IsEvaluated reports whether feedback has been attached.
func (s Submission) IsEvaluated() bool {
	return s.Status == SubmissionStatusEvaluated
}

// FeedbackSource records where the attached feedback came from.
type FeedbackSource string

const (
	FeedbackSourceBackend FeedbackSource = "backend"
	FeedbackSourceAI      FeedbackSource = "ai"
	FeedbackSourceMock    FeedbackSource = "mock"
)

// SubmissionRecord is the Submission and Feedback pair persisted by the feedback store.
type SubmissionRecord struct {
	Submission Submission     `json:"submission"`
	Feedback   *Feedback      `json:"feedback,omitempty"`
	Score      *int           `json:"score,omitempty"`
	Source     FeedbackSource `json:"source,omitempty"`
	Warning    string         `json:"warning,omitempty"`
}

// NewSubmissionRecord pairs a submission with its feedback and mirrors the
// overall score for listings.
func NewSubmissionRecord(submission Submission, feedback *Feedback, source FeedbackSource, warning string) SubmissionRecord {
	record := SubmissionRecord{
		Submission: submission,
		Feedback:   feedback,
		Source:     source,
		Warning:    warning,
	}
	if feedback != nil {
		score := feedback.OverallScore
		record.Score = &score
	}
	return record
}
