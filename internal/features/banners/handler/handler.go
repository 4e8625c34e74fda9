package handler

import (
	"errors"

	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"
	"github.com/Melaeke/omim/internal/features/banners/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BannerHandler handles HTTP requests for ad placements.
type BannerHandler struct {
	service ports.BannerService
}

// NewBannerHandler creates a new BannerHandler.
func NewBannerHandler(svc ports.BannerService) *BannerHandler {
	return &BannerHandler{
		service: svc,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// ClickRequest is the body of a click report.
type ClickRequest struct {
	BannerType string `json:"banner_type"`
}

// VisibilityRequest is the body of a visibility update.
type VisibilityRequest struct {
	BannerType string `json:"banner_type"`
	OnScreen   *bool  `json:"on_screen"`
}

// RegisterRoutes mounts the placement routes on r.
func (h *BannerHandler) RegisterRoutes(r fiber.Router) {
	ads := r.Group("/ads")
	ads.Get("/", h.ListPlacements)
	ads.Get("/:placement", h.LoadBanner)
	ads.Post("/:placement/click", h.Click)
	ads.Put("/:placement/visibility", h.SetVisibility)
	ads.Get("/:placement/state", h.GetState)
	ads.Get("/:placement/stats", h.GetStats)
}

func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func (h *BannerHandler) fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   rayID(c),
	})
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPlacementNotFound), errors.Is(err, service.ErrBannerNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNoBannerAvailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotLoaded):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *BannerHandler) serviceError(c *fiber.Ctx, err error, msg string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Get().Error(msg,
			zap.String("placement", c.Params("placement")),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return h.fail(c, status, "internal server error")
	}
	return h.fail(c, status, err.Error())
}

// ListPlacements godoc
// @Summary List ad placements
// @Description Returns every configured placement with its networks
// @Tags ads
// @Produce json
// @Success 200 {array} domain.Placement
// @Router /ads [get]
func (h *BannerHandler) ListPlacements(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.service.Placements())
}

// LoadBanner godoc
// @Summary Load a banner for a placement
// @Description Reloads the best scoring banner of the placement, falling back to the next network on failure
// @Tags ads
// @Produce json
// @Param placement path string true "Placement ID"
// @Success 200 {object} domain.LoadResult
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /ads/{placement} [get]
func (h *BannerHandler) LoadBanner(c *fiber.Ctx) error {
	placementID := c.Params("placement")

	result, err := h.service.Load(c.UserContext(), placementID)
	if err != nil {
		logger.Get().Info("No banner served",
			zap.String("placement", placementID),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return h.serviceError(c, err, "Failed to load banner")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Click godoc
// @Summary Report a banner click
// @Description Forwards a user click on the displayed creative to its network
// @Tags ads
// @Accept json
// @Produce json
// @Param placement path string true "Placement ID"
// @Param click body ClickRequest true "Clicked banner"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /ads/{placement}/click [post]
func (h *BannerHandler) Click(c *fiber.Ctx) error {
	var req ClickRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	bannerType, err := domain.ParseBannerType(req.BannerType)
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Click(c.UserContext(), c.Params("placement"), bannerType); err != nil {
		return h.serviceError(c, err, "Failed to record click")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "click recorded",
	})
}

// SetVisibility godoc
// @Summary Update banner visibility
// @Description Tells the service whether the client currently displays the banner
// @Tags ads
// @Accept json
// @Produce json
// @Param placement path string true "Placement ID"
// @Param visibility body VisibilityRequest true "Visibility"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /ads/{placement}/visibility [put]
func (h *BannerHandler) SetVisibility(c *fiber.Ctx) error {
	var req VisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.OnScreen == nil {
		return h.fail(c, fiber.StatusBadRequest, "on_screen is required")
	}

	bannerType, err := domain.ParseBannerType(req.BannerType)
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.SetOnScreen(c.Params("placement"), bannerType, *req.OnScreen); err != nil {
		return h.serviceError(c, err, "Failed to update visibility")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "visibility updated",
	})
}

// GetState godoc
// @Summary Get banner state
// @Description Returns the on-screen, retain and reload flags of every banner of the placement
// @Tags ads
// @Produce json
// @Param placement path string true "Placement ID"
// @Success 200 {array} domain.BannerState
// @Failure 404 {object} ErrorResponse
// @Router /ads/{placement}/state [get]
func (h *BannerHandler) GetState(c *fiber.Ctx) error {
	states, err := h.service.State(c.Params("placement"))
	if err != nil {
		return h.serviceError(c, err, "Failed to get state")
	}

	return c.Status(fiber.StatusOK).JSON(states)
}

// GetStats godoc
// @Summary Get rotation statistics
// @Description Returns shows and clicks per network for the placement
// @Tags ads
// @Produce json
// @Param placement path string true "Placement ID"
// @Success 200 {array} domain.BannerStat
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /ads/{placement}/stats [get]
func (h *BannerHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), c.Params("placement"))
	if err != nil {
		return h.serviceError(c, err, "Failed to get stats")
	}

	if stats == nil {
		stats = []domain.BannerStat{}
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
