package ai

import (
	"context"
	"errors"

	"github.com/noah-isme/uniportal-api/internal/models"
)

var (
	// ErrEvaluationFailed wraps every failure of a live evaluation request.
	ErrEvaluationFailed = errors.New("ai evaluation failed")
	// ErrNotConfigured indicates no usable API key was supplied.
	ErrNotConfigured = errors.New("ai evaluator not configured")
	// ErrEmptyCompletion indicates the model returned no text.
	ErrEmptyCompletion = errors.New("empty ai response")
)

// EvaluationInput contains what the model needs to grade a written assignment.
type EvaluationInput struct {
	AssignmentTitle      string
	CourseName           string
	Content              string
	ContentIsPlaceholder bool
}

// Evaluator describes an AI model capable of scoring assignment submissions.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (models.Feedback, error)
	Configured() bool
}
