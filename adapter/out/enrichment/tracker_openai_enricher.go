// Package enrichment implements the optional LLM-backed identity enricher.
// The pipeline works without it; it only corroborates weak extractions.
package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"tracker_server/core/domain"
	"tracker_server/core/port/out"
	"tracker_server/pkg/logger"
)

const systemPrompt = `You identify the employer and job title a recruiting email refers to.

If the email does not name an employer, return an empty company_name. Never guess.

Respond with this exact JSON format:
{
  "company_name": "employer name or empty",
  "job_title": "job title or empty",
  "confidence": 0.0
}`

// DefaultModel is used when the config names none.
const DefaultModel = "gpt-4o-mini"

// Config for the enricher.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxBodySize int
}

// OpenAIEnricher implements out.IdentityEnricher over the chat completion
// API, wrapped in a circuit breaker so a degraded upstream cannot stall
// ingestion. Breaker-open and API failures all surface as errors the
// pipeline logs and ignores.
type OpenAIEnricher struct {
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
	model   string
	timeout time.Duration
	maxBody int
}

// NewOpenAIEnricher creates the enricher.
func NewOpenAIEnricher(cfg Config, log *logger.Logger) *OpenAIEnricher {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 3000
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "identity-enricher",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &OpenAIEnricher{
		client:  openai.NewClient(cfg.APIKey),
		breaker: breaker,
		log:     log.WithField("component", "enricher"),
		model:   model,
		timeout: timeout,
		maxBody: maxBody,
	}
}

type enrichmentResponse struct {
	CompanyName string  `json:"company_name"`
	JobTitle    string  `json:"job_title"`
	Confidence  float64 `json:"confidence"`
}

// Enrich asks the model for the employer and role behind one message.
func (e *OpenAIEnricher) Enrich(ctx context.Context, msg *domain.InboundMessage) (*out.EnrichedIdentity, error) {
	body := msg.BodyText
	if body == "" {
		body = msg.Snippet
	}
	if len(body) > e.maxBody {
		body = body[:e.maxBody]
	}
	userPrompt := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", msg.Sender, msg.Subject, body)

	result, err := e.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       e.model,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return nil, fmt.Errorf("enrichment call failed: %w", err)
	}

	raw := strings.TrimSpace(result.(string))
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed enrichmentResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse enrichment response: %w", err)
	}
	if parsed.CompanyName == "" && parsed.JobTitle == "" {
		return nil, nil
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0.5
	}
	return &out.EnrichedIdentity{
		CompanyName: parsed.CompanyName,
		JobTitle:    parsed.JobTitle,
		Confidence:  parsed.Confidence,
	}, nil
}
