package http

import (
	"context"
	"time"

	"tracker_server/core/domain"
	in "tracker_server/core/port/in"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MessagePublisher enqueues an inbound message for the stream worker and
// returns the stream entry id.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *domain.InboundMessage) (string, error)
}

// MessageHandler accepts inbound messages for pipeline processing. The
// primary ingestion path is the stream worker; this endpoint exists for
// connectors that push directly and for manual reprocessing.
type MessageHandler struct {
	pipeline  in.PipelineService
	publisher MessagePublisher // optional, enables async=true
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(pipeline in.PipelineService, publisher MessagePublisher) *MessageHandler {
	return &MessageHandler{pipeline: pipeline, publisher: publisher}
}

// Register registers message routes
func (h *MessageHandler) Register(router fiber.Router) {
	messages := router.Group("/messages")

	messages.Post("/", h.Process)
}

// ProcessMessageRequest is the inbound message payload.
type ProcessMessageRequest struct {
	MessageID  string     `json:"message_id"`
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	Snippet    string     `json:"snippet"`
	BodyText   string     `json:"body_text,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// Process runs one message through the full pipeline
// @Summary Process an inbound message
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body ProcessMessageRequest true "Message data"
// @Success 200 {object} in.ProcessResult
// @Router /api/v1/messages [post]
func (h *MessageHandler) Process(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	var req ProcessMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.MessageID == "" {
		return apperr.MissingField("message_id")
	}
	if req.Sender == "" {
		return apperr.MissingField("sender")
	}

	receivedAt := time.Now().UTC()
	if req.ReceivedAt != nil {
		receivedAt = req.ReceivedAt.UTC()
	}

	msg := &domain.InboundMessage{
		ID:         req.MessageID,
		UserID:     userID,
		Sender:     req.Sender,
		Subject:    req.Subject,
		Snippet:    req.Snippet,
		BodyText:   req.BodyText,
		ReceivedAt: receivedAt,
	}

	// async=true hands the message to the stream worker instead of
	// blocking the caller on the full pipeline run.
	if c.QueryBool("async") && h.publisher != nil {
		entryID, err := h.publisher.PublishMessage(c.Context(), msg)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"success":    true,
			"message_id": msg.ID,
			"stream_id":  entryID,
		})
	}

	result, err := h.pipeline.ProcessMessage(c.Context(), msg)
	if err != nil {
		return err
	}

	return response.OK(c, result)
}
