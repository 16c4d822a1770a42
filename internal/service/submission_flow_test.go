package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/pkg/ai"
)

func flowSubmission() models.Submission {
	return models.Submission{
		ID:              "sub-1",
		StudentID:       "STU001",
		CourseID:        "CS201",
		AssignmentID:    "1",
		AssignmentTitle: "Lab 1 - Linked Lists",
		CourseName:      "CS201 — Data Structures",
		FileName:        "answer.txt",
	}
}

func applyOK(t *testing.T, flow *Flow, event Event) []Effect {
	t.Helper()
	effects, err := flow.Apply(event)
	require.NoError(t, err)
	return effects
}

func TestFlowLiveEvaluation(t *testing.T) {
	flow := NewFlow(flowSubmission(), true, DefaultMockDelay)
	require.Equal(t, models.SubmissionStatusPending, flow.Submission().Status)

	effects := applyOK(t, flow, EventSubmit{})
	require.Equal(t, FlowUploading, flow.State())
	require.Len(t, effects, 1)
	require.IsType(t, EffectUpload{}, effects[0])

	effects = applyOK(t, flow, EventUploadFinished{RemoteID: "42"})
	require.Equal(t, FlowUploadSucceededNoFeedback, flow.State())
	require.Equal(t, models.SubmissionStatusSubmitted, flow.Submission().Status)
	require.Equal(t, "42", flow.Submission().RemoteID)
	require.Equal(t, []Effect{EffectExtract{}}, effects)

	effects = applyOK(t, flow, EventContentExtracted{Extraction: Extraction{Text: "Lists are linear structures..."}})
	require.Equal(t, FlowEvaluating, flow.State())
	require.Equal(t, []Effect{EffectEvaluate{Input: ai.EvaluationInput{
		AssignmentTitle: "Lab 1 - Linked Lists",
		CourseName:      "CS201 — Data Structures",
		Content:         "Lists are linear structures...",
	}}}, effects)

	feedback := models.Feedback{GrammarScore: 90, RelevanceScore: 87, OriginalityScore: 80, OverallScore: 88, Summary: "Good", Suggestions: []string{}}
	effects = applyOK(t, flow, EventEvaluationSucceeded{Feedback: feedback})
	require.Equal(t, FlowEvaluated, flow.State())
	require.True(t, flow.State().Terminal())
	require.Len(t, effects, 2)
	store, ok := effects[0].(EffectStore)
	require.True(t, ok, "store must run before publish")
	require.IsType(t, EffectPublish{}, effects[1])
	require.Equal(t, models.FeedbackSourceAI, store.Record.Source)
	require.Equal(t, 88, *store.Record.Score)

	result := flow.Result()
	require.Equal(t, string(FlowEvaluated), result.State)
	require.Equal(t, models.SubmissionStatusEvaluated, result.Submission.Status)
	require.Equal(t, feedback, *result.Feedback)
	require.Empty(t, result.Warning)
}

func TestFlowEvaluationFailureFallsBackWithWarning(t *testing.T) {
	flow := NewFlow(flowSubmission(), true, DefaultMockDelay)
	applyOK(t, flow, EventSubmit{})
	applyOK(t, flow, EventUploadFinished{Err: errors.New("connection refused")})
	applyOK(t, flow, EventContentExtracted{})

	effects := applyOK(t, flow, EventEvaluationFailed{Err: ai.ErrEvaluationFailed})
	require.Equal(t, FlowEvaluationFailedFallback, flow.State())
	require.Len(t, effects, 2)

	result := flow.Result()
	require.Equal(t, models.SubmissionStatusEvaluated, result.Submission.Status)
	require.Equal(t, ai.MockFeedback(), *result.Feedback)
	require.Equal(t, FallbackWarning, result.Warning)
	require.Equal(t, models.FeedbackSourceMock, result.Source)
}

func TestFlowUnconfiguredUsesMockDelay(t *testing.T) {
	flow := NewFlow(flowSubmission(), false, 2*time.Second)
	applyOK(t, flow, EventSubmit{})
	applyOK(t, flow, EventUploadFinished{})

	effects := applyOK(t, flow, EventContentExtracted{Extraction: Extraction{Text: "x"}})
	require.Equal(t, []Effect{EffectMockDelay{Duration: 2 * time.Second}}, effects)

	_, err := flow.Apply(EventEvaluationSucceeded{Feedback: models.Feedback{}})
	require.ErrorIs(t, err, ErrInvalidTransition)

	applyOK(t, flow, EventMockDelayElapsed{})
	result := flow.Result()
	require.Equal(t, string(FlowEvaluated), result.State)
	require.Equal(t, ai.MockFeedback().OverallScore, result.Feedback.OverallScore)
	require.Empty(t, result.Warning)
}

func TestFlowBackendFeedbackShortCircuits(t *testing.T) {
	flow := NewFlow(flowSubmission(), true, DefaultMockDelay)
	applyOK(t, flow, EventSubmit{})

	backend := models.Feedback{GrammarScore: 70, RelevanceScore: 140, OriginalityScore: -3, OverallScore: 72, Summary: "Backend", Suggestions: []string{"More tests"}}
	effects := applyOK(t, flow, EventUploadFinished{RemoteID: "9", Feedback: &backend})
	require.Equal(t, FlowUploadSucceededWithFeedback, flow.State())
	require.True(t, flow.State().Terminal())
	require.Len(t, effects, 1)
	require.IsType(t, EffectPublish{}, effects[0])

	result := flow.Result()
	require.Equal(t, models.SubmissionStatusEvaluated, result.Submission.Status)
	require.Equal(t, 100, result.Feedback.RelevanceScore)
	require.Equal(t, 0, result.Feedback.OriginalityScore)
	require.Equal(t, models.FeedbackSourceBackend, result.Source)

	_, err := flow.Apply(EventContentExtracted{})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFlowRejectsOutOfOrderEvents(t *testing.T) {
	flow := NewFlow(flowSubmission(), true, DefaultMockDelay)

	_, err := flow.Apply(EventUploadFinished{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = flow.Apply(EventEvaluationFailed{})
	require.ErrorIs(t, err, ErrInvalidTransition)

	applyOK(t, flow, EventSubmit{})
	_, err = flow.Apply(EventSubmit{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, FlowUploading, flow.State())
}
