package http

import (
	"strings"

	"tracker_server/core/domain"
	in "tracker_server/core/port/in"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EventHandler handles HTTP requests for event triage
type EventHandler struct {
	service in.TrackerService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(service in.TrackerService) *EventHandler {
	return &EventHandler{service: service}
}

// Register registers event routes
func (h *EventHandler) Register(router fiber.Router) {
	events := router.Group("/events")

	events.Get("/unassigned", h.ListUnassigned)
	events.Post("/:id/assign", h.Assign)
}

// ListUnassigned returns events the matcher could not attach
// @Summary List unassigned events
// @Tags Events
// @Produce json
// @Param reasons query string false "Comma-separated reason codes"
// @Param limit query int false "Limit (default 100)"
// @Success 200 {array} domain.Event
// @Router /api/v1/events/unassigned [get]
func (h *EventHandler) ListUnassigned(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	var reasons []domain.ReasonCode
	if raw := c.Query("reasons"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			reason, ok := domain.ParseReasonCode(part)
			if !ok {
				return apperr.InvalidInput("reasons", "unknown reason code: "+part)
			}
			reasons = append(reasons, reason)
		}
	}
	limit := c.QueryInt("limit", 0)

	events, err := h.service.ListUnassignedEvents(c.Context(), userID, reasons, limit)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, events, &response.Meta{Total: len(events)})
}

// Assign attaches an unassigned or misfiled event to an application
// @Summary Assign an event to an application
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body map[string]string true "Application ID"
// @Success 200 {object} in.ReinferResult
// @Router /api/v1/events/{id}/assign [post]
func (h *EventHandler) Assign(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	eventID, err := parseEventID(c)
	if err != nil {
		return err
	}

	var req struct {
		ApplicationID string `json:"application_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.ApplicationID == "" {
		return apperr.MissingField("application_id")
	}
	appID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		return apperr.InvalidInput("application_id", "invalid application ID")
	}

	result, err := h.service.AssignEvent(c.Context(), userID, eventID, appID)
	if err != nil {
		return err
	}

	return response.OK(c, result)
}
