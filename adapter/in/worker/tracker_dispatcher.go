package worker

import (
	"context"

	"tracker_server/core/domain"
	in "tracker_server/core/port/in"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Handler struct {
	pipeline in.PipelineService
}

func NewHandler(pipeline in.PipelineService) *Handler {
	return &Handler{pipeline: pipeline}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	logger.Debug("Processing message: %s", msg.Type)

	switch msg.Type {
	case JobMessageProcess:
		return h.processMessage(ctx, msg)
	case JobApplicationReinfer:
		return h.reinferApplication(ctx, msg)
	default:
		logger.Warn("Unknown job type: %s", msg.Type)
		return nil
	}
}

func (h *Handler) processMessage(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[MessageProcessPayload](msg)
	if err != nil {
		logger.Error("Invalid message.process payload for job %s: %v", msg.ID, err)
		return nil
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		logger.Error("Invalid user_id in job %s: %v", msg.ID, err)
		return nil
	}

	result, err := h.pipeline.ProcessMessage(ctx, &domain.InboundMessage{
		ID:         payload.MessageID,
		UserID:     userID,
		Sender:     payload.Sender,
		Subject:    payload.Subject,
		Snippet:    payload.Snippet,
		BodyText:   payload.BodyText,
		ReceivedAt: payload.ReceivedAt,
	})
	if err != nil {
		// Transient store or cache failures are worth a retry; anything
		// else would fail the same way every time.
		if apperr.IsTransient(err) {
			return err
		}
		logger.Error("Pipeline rejected message %s: %v", payload.MessageID, err)
		return nil
	}

	if result.Event == nil {
		logger.Debug("Message %s not job related", payload.MessageID)
	}
	return nil
}

func (h *Handler) reinferApplication(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ReinferPayload](msg)
	if err != nil {
		logger.Error("Invalid application.reinfer payload for job %s: %v", msg.ID, err)
		return nil
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		logger.Error("Invalid user_id in job %s: %v", msg.ID, err)
		return nil
	}
	appID, err := uuid.Parse(payload.ApplicationID)
	if err != nil {
		logger.Error("Invalid application_id in job %s: %v", msg.ID, err)
		return nil
	}

	if _, err := h.pipeline.ReinferApplication(ctx, userID, appID); err != nil {
		if apperr.IsTransient(err) {
			return err
		}
		logger.Error("Reinfer failed for application %s: %v", payload.ApplicationID, err)
		return nil
	}
	return nil
}

func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
