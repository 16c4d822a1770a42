package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/pkg/ai"
)

// FallbackWarning is shown when AI scoring degraded to the canned feedback.
const FallbackWarning = "AI evaluation encountered an error. Showing fallback results."

// DefaultMockDelay is how long the unconfigured path waits before showing canned feedback.
const DefaultMockDelay = 2 * time.Second

// FlowState is a step of the submission pipeline.
type FlowState string

const (
	FlowIdle                        FlowState = "IDLE"
	FlowUploading                   FlowState = "UPLOADING"
	FlowUploadSucceededWithFeedback FlowState = "UPLOAD_SUCCEEDED_WITH_FEEDBACK"
	FlowUploadSucceededNoFeedback   FlowState = "UPLOAD_SUCCEEDED_NO_FEEDBACK"
	FlowEvaluating                  FlowState = "EVALUATING"
	FlowEvaluated                   FlowState = "EVALUATED"
	FlowEvaluationFailedFallback    FlowState = "EVALUATION_FAILED_FALLBACK"
)

// Terminal reports whether no further events are accepted.
func (s FlowState) Terminal() bool {
	switch s {
	case FlowUploadSucceededWithFeedback, FlowEvaluated, FlowEvaluationFailedFallback:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when an event does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid submission flow transition")

// Event drives the flow forward.
type Event interface {
	event()
}

// EventSubmit starts the pipeline for a validated submission.
type EventSubmit struct{}

// EventUploadFinished reports the upload outcome. A failed upload is reported
// with Err set and is handled like an upload without feedback.
type EventUploadFinished struct {
	RemoteID string
	Feedback *models.Feedback
	Err      error
}

// EventContentExtracted carries the extractor output.
type EventContentExtracted struct {
	Extraction Extraction
}

// EventEvaluationSucceeded carries normalised evaluator feedback.
type EventEvaluationSucceeded struct {
	Feedback models.Feedback
}

// EventEvaluationFailed reports an evaluator error.
type EventEvaluationFailed struct {
	Err error
}

// EventMockDelayElapsed fires after the simulated evaluation delay.
type EventMockDelayElapsed struct{}

func (EventSubmit) event()              {}
func (EventUploadFinished) event()      {}
func (EventContentExtracted) event()    {}
func (EventEvaluationSucceeded) event() {}
func (EventEvaluationFailed) event()    {}
func (EventMockDelayElapsed) event()    {}

// Effect is work the flow asks its runner to perform.
type Effect interface {
	effect()
}

// EffectUpload posts the submission file to the portal backend.
type EffectUpload struct {
	Submission models.Submission
}

// EffectExtract reads the submission file into evaluator input.
type EffectExtract struct{}

// EffectEvaluate calls the AI evaluator.
type EffectEvaluate struct {
	Input ai.EvaluationInput
}

// EffectMockDelay waits before the canned feedback is shown.
type EffectMockDelay struct {
	Duration time.Duration
}

// EffectStore persists the finished record.
type EffectStore struct {
	Record models.SubmissionRecord
}

// EffectPublish announces the finished record.
type EffectPublish struct {
	Record models.SubmissionRecord
}

func (EffectUpload) effect()    {}
func (EffectExtract) effect()   {}
func (EffectEvaluate) effect()  {}
func (EffectMockDelay) effect() {}
func (EffectStore) effect()     {}
func (EffectPublish) effect()   {}

// Flow is the submission state machine. It performs no I/O; Apply only
// computes the next state and the effects a runner has to execute.
type Flow struct {
	state      FlowState
	submission models.Submission
	feedback   *models.Feedback
	source     models.FeedbackSource
	warning    string
	configured bool
	mockDelay  time.Duration
}

// NewFlow prepares a flow for a validated submission. configured tells the flow
// whether a real evaluator may be called.
func NewFlow(submission models.Submission, configured bool, mockDelay time.Duration) *Flow {
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusPending
	}
	return &Flow{
		state:      FlowIdle,
		submission: submission,
		configured: configured,
		mockDelay:  mockDelay,
	}
}

// State returns the current state.
func (f *Flow) State() FlowState {
	return f.state
}

// Submission returns the submission as currently known to the flow.
func (f *Flow) Submission() models.Submission {
	return f.submission
}

// Apply advances the flow.
func (f *Flow) Apply(event Event) ([]Effect, error) {
	switch e := event.(type) {
	case EventSubmit:
		if f.state != FlowIdle {
			return nil, f.invalid(event)
		}
		f.state = FlowUploading
		return []Effect{EffectUpload{Submission: f.submission}}, nil

	case EventUploadFinished:
		if f.state != FlowUploading {
			return nil, f.invalid(event)
		}
		if e.RemoteID != "" {
			f.submission.RemoteID = e.RemoteID
		}
		if e.Err == nil && e.Feedback != nil {
			clamped := e.Feedback.Clamp()
			if err := f.submission.Advance(models.SubmissionStatusEvaluated); err != nil {
				return nil, err
			}
			f.state = FlowUploadSucceededWithFeedback
			f.feedback = &clamped
			f.source = models.FeedbackSourceBackend
			return []Effect{EffectPublish{Record: f.record()}}, nil
		}
		if err := f.submission.Advance(models.SubmissionStatusSubmitted); err != nil {
			return nil, err
		}
		f.state = FlowUploadSucceededNoFeedback
		return []Effect{EffectExtract{}}, nil

	case EventContentExtracted:
		if f.state != FlowUploadSucceededNoFeedback {
			return nil, f.invalid(event)
		}
		f.state = FlowEvaluating
		if !f.configured {
			return []Effect{EffectMockDelay{Duration: f.mockDelay}}, nil
		}
		return []Effect{EffectEvaluate{Input: ai.EvaluationInput{
			AssignmentTitle:      f.submission.AssignmentTitle,
			CourseName:           f.submission.CourseName,
			Content:              e.Extraction.Text,
			ContentIsPlaceholder: e.Extraction.Placeholder,
		}}}, nil

	case EventEvaluationSucceeded:
		if f.state != FlowEvaluating || !f.configured {
			return nil, f.invalid(event)
		}
		return f.finish(FlowEvaluated, e.Feedback.Clamp(), models.FeedbackSourceAI, "")

	case EventEvaluationFailed:
		if f.state != FlowEvaluating || !f.configured {
			return nil, f.invalid(event)
		}
		return f.finish(FlowEvaluationFailedFallback, ai.MockFeedback(), models.FeedbackSourceMock, FallbackWarning)

	case EventMockDelayElapsed:
		if f.state != FlowEvaluating || f.configured {
			return nil, f.invalid(event)
		}
		return f.finish(FlowEvaluated, ai.MockFeedback(), models.FeedbackSourceMock, "")
	}

	return nil, f.invalid(event)
}

// Result describes the flow outcome for API clients.
func (f *Flow) Result() dto.SubmissionResult {
	result := dto.SubmissionResult{
		State:      string(f.state),
		Submission: f.submission,
		Source:     f.source,
		Warning:    f.warning,
	}
	if f.feedback != nil {
		feedback := *f.feedback
		result.Feedback = &feedback
	}
	return result
}

func (f *Flow) finish(state FlowState, feedback models.Feedback, source models.FeedbackSource, warning string) ([]Effect, error) {
	if err := f.submission.Advance(models.SubmissionStatusEvaluated); err != nil {
		return nil, err
	}
	f.state = state
	f.feedback = &feedback
	f.source = source
	f.warning = warning

	record := f.record()
	return []Effect{EffectStore{Record: record}, EffectPublish{Record: record}}, nil
}

func (f *Flow) record() models.SubmissionRecord {
	var feedback *models.Feedback
	if f.feedback != nil {
		copied := *f.feedback
		feedback = &copied
	}
	return models.NewSubmissionRecord(f.submission, feedback, f.source, f.warning)
}

func (f *Flow) invalid(event Event) error {
	return fmt.Errorf("%w: %T in state %s", ErrInvalidTransition, event, f.state)
}
