package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/internal/observability"
)

// EvaluationEventType names events emitted when a submission reaches a terminal state.
const EvaluationEventType = "submission.evaluated"

// EvaluationEvent is the payload broadcast to dashboards.
type EvaluationEvent struct {
	Type   string                  `json:"type"`
	Source string                  `json:"source"`
	Record models.SubmissionRecord `json:"record"`
	SentAt time.Time               `json:"sentAt"`
}

// EvaluationPublisher announces evaluated submissions.
type EvaluationPublisher interface {
	Publish(ctx context.Context, record models.SubmissionRecord) error
}

type evaluationEvents struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
	now          func() time.Time
}

// NewEvaluationEvents constructs a publisher over Redis pubsub and NATS. Either
// broker may be nil; with neither configured Publish is a no-op.
func NewEvaluationEvents(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EvaluationPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":evaluations"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".evaluations"
	}

	return &evaluationEvents{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "evaluation_events").Logger(),
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (p *evaluationEvents) Publish(ctx context.Context, record models.SubmissionRecord) error {
	event := EvaluationEvent{
		Type:   EvaluationEventType,
		Source: p.nodeID,
		Record: record,
		SentAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.EvaluationEvents().WithLabelValues("redis", "error").Inc()
			errs = append(errs, err)
		} else {
			observability.EvaluationEvents().WithLabelValues("redis", "ok").Inc()
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			observability.EvaluationEvents().WithLabelValues("nats", "error").Inc()
			errs = append(errs, err)
		} else {
			observability.EvaluationEvents().WithLabelValues("nats", "ok").Inc()
		}
	}

	return errors.Join(errs...)
}
