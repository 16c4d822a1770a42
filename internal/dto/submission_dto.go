package dto

import (
	"github.com/noah-isme/uniportal-api/internal/models"
)

// SubmissionCreateRequest describes the multipart fields of a submission upload.
type SubmissionCreateRequest struct {
	CourseID     string `form:"courseId" validate:"required"`
	AssignmentID string `form:"assignmentId" validate:"required"`
}

// SubmissionListFilter holds query string filters for course submission listings.
type SubmissionListFilter struct {
	Since string `query:"since" validate:"omitempty,datetime=2006-01-02"`
}

// SubmissionResult is returned once the evaluation pipeline reaches a terminal state.
type SubmissionResult struct {
	State      string                `json:"state"`
	Submission models.Submission     `json:"submission"`
	Feedback   *models.Feedback      `json:"feedback,omitempty"`
	Source     models.FeedbackSource `json:"source,omitempty"`
	Warning    string                `json:"warning,omitempty"`
}

// SubmissionResponse serializes a stored submission record for listings.
type SubmissionResponse struct {
	ID              string                  `json:"id"`
	RemoteID        string                  `json:"remoteId,omitempty"`
	StudentID       string                  `json:"studentId"`
	CourseID        string                  `json:"courseId"`
	CourseName      string                  `json:"courseName"`
	AssignmentID    string                  `json:"assignmentId"`
	AssignmentTitle string                  `json:"assignmentTitle"`
	FileName        string                  `json:"fileName"`
	SubmittedAt     string                  `json:"submittedAt"`
	Status          models.SubmissionStatus `json:"status"`
	Score           *int                    `json:"score"`
	Source          models.FeedbackSource   `json:"source,omitempty"`
}

// NewSubmissionResponse maps a record into its listing representation.
func NewSubmissionResponse(record models.SubmissionRecord) SubmissionResponse {
	submittedAt := ""
	if !record.Submission.SubmittedAt.IsZero() {
		submittedAt = record.Submission.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	return SubmissionResponse{
		ID:              record.Submission.ID,
		RemoteID:        record.Submission.RemoteID,
		StudentID:       record.Submission.StudentID,
		CourseID:        record.Submission.CourseID,
		CourseName:      record.Submission.CourseName,
		AssignmentID:    record.Submission.AssignmentID,
		AssignmentTitle: record.Submission.AssignmentTitle,
		FileName:        record.Submission.FileName,
		SubmittedAt:     submittedAt,
		Status:          record.Submission.Status,
		Score:           record.Score,
		Source:          record.Source,
	}
}

// NewSubmissionResponseSlice maps records into listing responses.
func NewSubmissionResponseSlice(records []models.SubmissionRecord) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewSubmissionResponse(record))
	}
	return responses
}

// FeedbackResponse is the evaluation shown for a single submission.
type FeedbackResponse struct {
	SubmissionID string                `json:"submissionId"`
	Feedback     models.Feedback       `json:"feedback"`
	Source       models.FeedbackSource `json:"source,omitempty"`
	Warning      string                `json:"warning,omitempty"`
}
