package stream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
)

type Producer struct {
	stream *RedisStream
}

func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// PublishMessage enqueues one inbound email for pipeline processing.
func (p *Producer) PublishMessage(ctx context.Context, msg *domain.InboundMessage) (string, error) {
	job := &Job{
		ID:   uuid.New().String(),
		Type: "message.process",
		Payload: map[string]any{
			"message_id":  msg.ID,
			"user_id":     msg.UserID.String(),
			"sender":      msg.Sender,
			"subject":     msg.Subject,
			"snippet":     msg.Snippet,
			"body_text":   msg.BodyText,
			"received_at": msg.ReceivedAt.Format(time.RFC3339),
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamMessages, job)
}

// PublishReinfer enqueues a status recomputation for one application.
func (p *Producer) PublishReinfer(ctx context.Context, userID, applicationID uuid.UUID) (string, error) {
	job := &Job{
		ID:   uuid.New().String(),
		Type: "application.reinfer",
		Payload: map[string]any{
			"user_id":        userID.String(),
			"application_id": applicationID.String(),
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamReinfer, job)
}
