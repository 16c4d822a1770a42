package ai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/uniportal-api/internal/models"
)

const (
	// DefaultBaseURL is the OpenRouter API root; the client appends /chat/completions.
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "deepseek/deepseek-chat"
	// DefaultTitle is sent as the X-Title attribution header.
	DefaultTitle = "University Portal - AI Evaluator"
	// PlaceholderAPIKey is the sample value shipped in example env files.
	PlaceholderAPIKey = "your-api-key-here"

	defaultTemperature = 0.7
	defaultMaxTokens   = 800
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})
)

// OpenRouterConfig defines configuration options for the OpenRouter evaluator.
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Referer     string
	Title       string
	MaxTokens   int
	// Temperature nil selects the default of 0.7; zero is honoured.
	Temperature *float32
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// OpenRouterEvaluator implements Evaluator against the OpenRouter chat completion API.
type OpenRouterEvaluator struct {
	client *openai.Client
	cfg    OpenRouterConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// IsConfigured reports whether the key is usable for live evaluation.
func IsConfigured(apiKey string) bool {
	key := strings.TrimSpace(apiKey)
	return key != "" && key != PlaceholderAPIKey
}

// NewOpenRouterEvaluator builds an evaluator. A missing key is not an error:
// the evaluator reports Configured() == false and callers use MockFeedback.
func NewOpenRouterEvaluator(cfg OpenRouterConfig) *OpenRouterEvaluator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == nil {
		temperature := float32(defaultTemperature)
		cfg.Temperature = &temperature
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	decorated := *httpClient
	decorated.Transport = &attributionTransport{
		base:    base,
		referer: cfg.Referer,
		title:   cfg.Title,
	}

	config := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	config.HTTPClient = &decorated

	return &OpenRouterEvaluator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/uniportal-api/pkg/ai/openrouter"),
		logger: logger.With().Str("component", "openrouter_evaluator").Logger(),
	}
}

// Configured reports whether a real API key is available.
func (e *OpenRouterEvaluator) Configured() bool {
	return IsConfigured(e.cfg.APIKey)
}

// Evaluate sends the evaluation request to OpenRouter and normalises the response.
func (e *OpenRouterEvaluator) Evaluate(parent context.Context, input EvaluationInput) (models.Feedback, error) {
	if !e.Configured() {
		return models.Feedback{}, fmt.Errorf("%w: %w", ErrEvaluationFailed, ErrNotConfigured)
	}

	ctx, span := e.tracer.Start(parent, "openrouter.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Bool("content.placeholder", input.ContentIsPlaceholder),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: requestTemperature(*e.cfg.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: evaluatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return e.fail(span, fmt.Errorf("openrouter evaluate: %w", err))
	}

	if len(resp.Choices) == 0 {
		return e.fail(span, ErrEmptyCompletion)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return e.fail(span, ErrEmptyCompletion)
	}

	feedback := ParseFeedback(content)
	span.SetAttributes(attribute.Int("feedback.overall_score", feedback.OverallScore))
	e.logger.Debug().
		Str("model", e.cfg.Model).
		Int("overall_score", feedback.OverallScore).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("assignment evaluated")

	return feedback, nil
}

// requestTemperature keeps a zero temperature on the wire; go-openai omits a literal 0.
func requestTemperature(value float32) float32 {
	if value == 0 {
		return math.SmallestNonzeroFloat32
	}
	return value
}

func (e *OpenRouterEvaluator) fail(span trace.Span, err error) (models.Feedback, error) {
	aiFailures.WithLabelValues(e.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Warn().Err(err).Str("model", e.cfg.Model).Msg("ai evaluation failed")
	return models.Feedback{}, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
}

// attributionTransport adds the referrer and client title headers OpenRouter
// uses to attribute traffic.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.referer != "" {
		clone.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		clone.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(clone)
}
