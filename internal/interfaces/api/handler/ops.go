package handler

import (
	"net/http"

	"bookingreminder/internal/application/service"
	"bookingreminder/internal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// OpsHandler serves queue statistics and health checks.
type OpsHandler struct {
	bookingService service.BookingService
	ping           func() error
	log            logger.Logger
}

// NewOpsHandler creates a new OpsHandler. ping checks the database.
func NewOpsHandler(bookingService service.BookingService, ping func() error, log logger.Logger) *OpsHandler {
	return &OpsHandler{
		bookingService: bookingService,
		ping:           ping,
		log:            log,
	}
}

// QueueStats handles GET /queue/stats.
func (h *OpsHandler) QueueStats(c echo.Context) error {
	stats, err := h.bookingService.QueueStats(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to read queue statistics", err)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// Health handles GET /healthz.
func (h *OpsHandler) Health(c echo.Context) error {
	if h.ping != nil {
		if err := h.ping(); err != nil {
			h.log.Warn("Health check failed: " + err.Error())
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
