package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/uniportal-api/internal/dto"
	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/internal/observability"
	"github.com/noah-isme/uniportal-api/pkg/ai"
	"github.com/noah-isme/uniportal-api/pkg/portal"
)

const defaultMaxUploadBytes = 10 * 1024 * 1024

// ValidationError rejects a submission before any upload or evaluation happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// SubmissionUploader posts submission files to the portal backend.
type SubmissionUploader interface {
	Upload(ctx context.Context, req portal.UploadRequest) (portal.UploadResult, error)
}

// SubmissionCoordinatorConfig tunes the pipeline.
type SubmissionCoordinatorConfig struct {
	MaxUploadBytes int64
	MockDelay      time.Duration
}

// SubmissionCoordinator runs the submit, upload, evaluate and store pipeline.
type SubmissionCoordinator interface {
	Submit(ctx context.Context, session dto.Session, payload dto.SubmissionCreateRequest, file *FileHandle) (dto.SubmissionResult, error)
}

type submissionCoordinator struct {
	uploader       SubmissionUploader
	evaluator      ai.Evaluator
	extractor      ContentExtractor
	store          FeedbackStore
	publisher      EvaluationPublisher
	catalog        CourseCatalog
	validator      *validator.Validate
	logger         zerolog.Logger
	tracer         trace.Tracer
	maxUploadBytes int64
	mockDelay      time.Duration
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
	newID          func() string
}

// NewSubmissionCoordinator wires the pipeline collaborators. evaluator and publisher may be nil.
func NewSubmissionCoordinator(
	uploader SubmissionUploader,
	evaluator ai.Evaluator,
	extractor ContentExtractor,
	store FeedbackStore,
	publisher EvaluationPublisher,
	catalog CourseCatalog,
	validate *validator.Validate,
	cfg SubmissionCoordinatorConfig,
	logger zerolog.Logger,
) SubmissionCoordinator {
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	mockDelay := cfg.MockDelay
	if mockDelay <= 0 {
		mockDelay = DefaultMockDelay
	}

	return &submissionCoordinator{
		uploader:       uploader,
		evaluator:      evaluator,
		extractor:      extractor,
		store:          store,
		publisher:      publisher,
		catalog:        catalog,
		validator:      validate,
		logger:         logger.With().Str("component", "submission_coordinator").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/uniportal-api/internal/service/submission"),
		maxUploadBytes: maxBytes,
		mockDelay:      mockDelay,
		now:            time.Now,
		sleep:          sleepContext,
		newID:          uuid.NewString,
	}
}

func (s *submissionCoordinator) Submit(ctx context.Context, session dto.Session, payload dto.SubmissionCreateRequest, file *FileHandle) (dto.SubmissionResult, error) {
	if err := s.validateForm(payload, file); err != nil {
		return dto.SubmissionResult{}, err
	}

	resolved, err := s.catalog.Resolve(ctx, payload.CourseID, payload.AssignmentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCourseNotFound):
			return dto.SubmissionResult{}, newValidationError("Please select a valid course.")
		case errors.Is(err, ErrAssignmentNotInCourse):
			return dto.SubmissionResult{}, newValidationError("Please select an assignment for the selected course.")
		default:
			return dto.SubmissionResult{}, err
		}
	}

	submission := models.Submission{
		ID:              s.newID(),
		StudentID:       session.UserID,
		CourseID:        resolved.Course.ID,
		AssignmentID:    resolved.Assignment.ID,
		AssignmentTitle: resolved.Assignment.Title,
		CourseName:      resolved.CourseDisplayName(),
		FileName:        file.Name,
		FileSizeBytes:   file.Size,
		ContentType:     s.contentType(*file),
		SubmittedAt:     s.now().UTC(),
		Status:          models.SubmissionStatusPending,
	}

	spanCtx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(
		attribute.String("submission.id", submission.ID),
		attribute.String("submission.course_id", submission.CourseID),
		attribute.String("submission.assignment_id", submission.AssignmentID),
	))
	defer span.End()

	configured := s.evaluator != nil && s.evaluator.Configured()
	flow := NewFlow(submission, configured, s.mockDelay)

	effects, err := flow.Apply(EventSubmit{})
	for err == nil && len(effects) > 0 {
		effect := effects[0]
		effects = effects[1:]

		event := s.run(spanCtx, effect, *file)
		if event == nil {
			continue
		}

		var next []Effect
		next, err = flow.Apply(event)
		effects = append(effects, next...)
	}
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResult{}, err
	}

	result := flow.Result()
	span.SetAttributes(attribute.String("submission.state", result.State))
	observability.SubmissionOutcomes().WithLabelValues(result.State, string(result.Source)).Inc()

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("state", result.State).
		Str("source", string(result.Source)).
		Msg("submission pipeline finished")

	return result, nil
}

// run executes one effect and returns the event it produced, if any.
func (s *submissionCoordinator) run(ctx context.Context, effect Effect, file FileHandle) Event {
	switch e := effect.(type) {
	case EffectUpload:
		return s.upload(ctx, e.Submission, file)

	case EffectExtract:
		return EventContentExtracted{Extraction: s.extractor.Extract(ctx, file)}

	case EffectEvaluate:
		feedback, err := s.evaluator.Evaluate(ctx, e.Input)
		if err != nil {
			s.logger.Warn().Err(err).Msg("ai evaluation failed, using fallback feedback")
			return EventEvaluationFailed{Err: err}
		}
		return EventEvaluationSucceeded{Feedback: feedback}

	case EffectMockDelay:
		if err := s.sleep(ctx, e.Duration); err != nil {
			s.logger.Debug().Err(err).Msg("mock evaluation delay interrupted")
		}
		return EventMockDelayElapsed{}

	case EffectStore:
		if err := s.store.Save(ctx, e.Record); err != nil {
			s.logger.Error().Err(err).Str("submission_id", e.Record.Submission.ID).Msg("failed to store evaluated submission")
		}
		return nil

	case EffectPublish:
		if s.publisher == nil {
			return nil
		}
		if err := s.publisher.Publish(ctx, e.Record); err != nil {
			s.logger.Warn().Err(err).Str("submission_id", e.Record.Submission.ID).Msg("failed to publish evaluation event")
		}
		return nil
	}

	return nil
}

func (s *submissionCoordinator) upload(ctx context.Context, submission models.Submission, file FileHandle) Event {
	content, err := readAll(file, s.maxUploadBytes)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", file.Name).Msg("failed to read submission for upload")
		return EventUploadFinished{Err: err}
	}

	result, err := s.uploader.Upload(ctx, portal.UploadRequest{
		FileName:     submission.FileName,
		Content:      content,
		CourseID:     submission.CourseID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
	})
	if err != nil {
		s.logger.Info().Err(err).Str("submission_id", submission.ID).Msg("portal upload unavailable, evaluating locally")
		return EventUploadFinished{Err: err}
	}

	return EventUploadFinished{RemoteID: result.SubmissionID, Feedback: result.Feedback}
}

func (s *submissionCoordinator) validateForm(payload dto.SubmissionCreateRequest, file *FileHandle) error {
	payload.CourseID = strings.TrimSpace(payload.CourseID)
	payload.AssignmentID = strings.TrimSpace(payload.AssignmentID)

	if err := s.validator.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			if validationErrors[0].Field() == "CourseID" {
				return newValidationError("Please select a course.")
			}
			return newValidationError("Please select an assignment.")
		}
		return err
	}

	if file == nil || strings.TrimSpace(file.Name) == "" {
		return newValidationError("Please attach a file.")
	}

	if file.Size > s.maxUploadBytes {
		return newValidationError("File exceeds the %d MB limit.", s.maxUploadBytes/(1024*1024))
	}

	return nil
}

// contentType keeps the declared type unless it is missing or generic.
func (s *submissionCoordinator) contentType(file FileHandle) string {
	declared := strings.TrimSpace(file.MIMEType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if file.Open == nil {
		return declared
	}

	reader, err := file.Open()
	if err != nil {
		return declared
	}
	defer reader.Close()

	detected, err := mimetype.DetectReader(reader)
	if err != nil {
		return declared
	}
	return detected.String()
}

func readAll(file FileHandle, limit int64) ([]byte, error) {
	if file.Open == nil {
		return nil, fmt.Errorf("file %s has no content", file.Name)
	}
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("file %s exceeds %d bytes", file.Name, limit)
	}
	return content, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
