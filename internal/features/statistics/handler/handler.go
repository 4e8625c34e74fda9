package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Toggle switches analytics on and off.
type Toggle interface {
	SetEnabled(ctx context.Context, enabled bool)
	IsEnabled() bool
}

// StatisticsHandler exposes the analytics switch over HTTP.
type StatisticsHandler struct {
	toggle Toggle
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(toggle Toggle) *StatisticsHandler {
	return &StatisticsHandler{
		toggle: toggle,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id,omitempty"`
}

// StatusRequest is the body of a status update.
type StatusRequest struct {
	Enabled *bool `json:"enabled"`
}

// StatusResponse reports whether analytics are posted.
type StatusResponse struct {
	Enabled bool `json:"enabled"`
}

// RegisterRoutes mounts the statistics routes on r.
func (h *StatisticsHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/statistics", h.GetStatus)
	r.Put("/statistics", h.SetStatus)
}

// GetStatus godoc
// @Summary Get statistics status
// @Description Reports whether analytics events are posted
// @Tags statistics
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /statistics [get]
func (h *StatisticsHandler) GetStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(StatusResponse{Enabled: h.toggle.IsEnabled()})
}

// SetStatus godoc
// @Summary Switch statistics on or off
// @Description Enables or disables analytics events and posts the change
// @Tags statistics
// @Accept json
// @Produce json
// @Param status body StatusRequest true "Status"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Router /statistics [put]
func (h *StatisticsHandler) SetStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		rayID, _ := c.Locals("requestid").(string)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "enabled is required",
			RayID:   rayID,
		})
	}

	h.toggle.SetEnabled(c.UserContext(), *req.Enabled)

	return c.Status(fiber.StatusOK).JSON(StatusResponse{Enabled: *req.Enabled})
}
