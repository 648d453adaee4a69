package http

import (
	"strconv"
	"strings"

	"tracker_server/core/domain"
	in "tracker_server/core/port/in"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ApplicationHandler handles HTTP requests for job application triage
type ApplicationHandler struct {
	service  in.TrackerService
	pipeline in.PipelineService
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(service in.TrackerService, pipeline in.PipelineService) *ApplicationHandler {
	return &ApplicationHandler{service: service, pipeline: pipeline}
}

// Register registers application routes
func (h *ApplicationHandler) Register(router fiber.Router) {
	apps := router.Group("/applications")

	apps.Get("/", h.List)
	apps.Get("/:id", h.Get)
	apps.Get("/:id/events", h.ListEvents)

	// Status lifecycle
	apps.Put("/:id/status", h.OverrideStatus)
	apps.Delete("/:id/status", h.ClearOverride)
	apps.Post("/:id/suggestion/accept", h.AcceptSuggestion)
	apps.Post("/:id/reinfer", h.Reinfer)

	apps.Post("/:id/archive", h.Archive)
}

// List lists the user's applications with optional filters
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param company query string false "Filter by company name"
// @Param job_title query string false "Filter by job title"
// @Param source query string false "Filter by sender domain"
// @Param archived query bool false "Include archived (default false)"
// @Param fields query string false "Comma-separated field selection"
// @Success 200 {array} domain.Application
// @Router /api/v1/applications [get]
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	filter := &domain.ApplicationFilter{}
	if company := c.Query("company"); company != "" {
		filter.CompanyName = &company
	}
	if jobTitle := c.Query("job_title"); jobTitle != "" {
		filter.JobTitle = &jobTitle
	}
	if source := c.Query("source"); source != "" {
		filter.Source = &source
	}
	archived := c.QueryBool("archived", false)
	filter.Archived = &archived

	apps, err := h.service.ListApplications(c.Context(), userID, filter)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, response.SelectFields(c, apps), &response.Meta{Total: len(apps)})
}

// Get retrieves a single application
// @Summary Get an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} domain.Application
// @Router /api/v1/applications/{id} [get]
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	app, err := h.service.GetApplication(c.Context(), userID, appID)
	if err != nil {
		return err
	}

	return response.OK(c, app)
}

// ListEvents returns the event timeline of an application
// @Summary List application events
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} domain.Event
// @Router /api/v1/applications/{id}/events [get]
func (h *ApplicationHandler) ListEvents(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	events, err := h.service.ListApplicationEvents(c.Context(), userID, appID)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, events, &response.Meta{Total: len(events)})
}

// OverrideStatus pins an application to a user-chosen status
// @Summary Override application status
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body map[string]string true "Status"
// @Success 200 {object} domain.Application
// @Router /api/v1/applications/{id}/status [put]
func (h *ApplicationHandler) OverrideStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	newStatus, ok := domain.ParseApplicationStatus(strings.ToUpper(req.Status))
	if !ok {
		return apperr.InvalidInput("status", "unknown application status")
	}

	app, err := h.service.OverrideStatus(c.Context(), userID, appID, newStatus)
	if err != nil {
		return err
	}

	return response.OK(c, app)
}

// ClearOverride removes a user override and re-infers from the event history
// @Summary Clear a status override
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} domain.Application
// @Router /api/v1/applications/{id}/status [delete]
func (h *ApplicationHandler) ClearOverride(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	app, err := h.service.ClearOverride(c.Context(), userID, appID)
	if err != nil {
		return err
	}

	return response.OK(c, app)
}

// AcceptSuggestion promotes a pending status suggestion
// @Summary Accept the suggested status
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} domain.Application
// @Router /api/v1/applications/{id}/suggestion/accept [post]
func (h *ApplicationHandler) AcceptSuggestion(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	app, err := h.service.AcceptSuggestion(c.Context(), userID, appID)
	if err != nil {
		return err
	}

	return response.OK(c, app)
}

// Reinfer recomputes the application status from its full event history
// @Summary Re-infer application status
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} in.ReinferResult
// @Router /api/v1/applications/{id}/reinfer [post]
func (h *ApplicationHandler) Reinfer(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	result, err := h.pipeline.ReinferApplication(c.Context(), userID, appID)
	if err != nil {
		return err
	}

	return response.OK(c, result)
}

// Archive archives an application
// @Summary Archive an application
// @Tags Applications
// @Param id path string true "Application ID"
// @Success 204
// @Router /api/v1/applications/{id}/archive [post]
func (h *ApplicationHandler) Archive(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	appID, err := parseApplicationID(c)
	if err != nil {
		return err
	}

	if err := h.service.ArchiveApplication(c.Context(), userID, appID); err != nil {
		return err
	}

	return response.NoContent(c)
}

func parseApplicationID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("id", "invalid application ID")
	}
	return id, nil
}

// parseEventID reads an event ID path parameter.
func parseEventID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, apperr.InvalidInput("id", "invalid event ID")
	}
	return id, nil
}
