package handler

import (
	"errors"
	"fmt"
	"net/http"

	"bookingreminder/internal/application/dto"
	"bookingreminder/internal/application/service"
	appErrors "bookingreminder/internal/pkg/errors"
	"bookingreminder/internal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BookingHandler exposes booking and reminder operations over HTTP.
type BookingHandler struct {
	bookingService service.BookingService
	log            logger.Logger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService service.BookingService, log logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		log:            log,
	}
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// CreateBooking handles POST /bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	resp, err := h.bookingService.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetBooking handles GET /bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	resp, err := h.bookingService.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateBooking handles PUT /bookings/:id.
func (h *BookingHandler) UpdateBooking(c echo.Context) error {
	var req dto.UpdateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	resp, err := h.bookingService.UpdateBooking(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CancelBooking handles POST /bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	resp, err := h.bookingService.CancelBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetReminders handles GET /bookings/:id/reminders.
func (h *BookingHandler) GetReminders(c echo.Context) error {
	statuses, err := h.bookingService.GetBookingReminderStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, statuses)
}

// CancelReminders handles DELETE /bookings/:id/reminders.
func (h *BookingHandler) CancelReminders(c echo.Context) error {
	id := c.Param("id")
	removed, err := h.bookingService.CancelBookingReminders(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.CancelRemindersResponse{BookingID: id, Removed: removed})
}

// fail maps application errors to HTTP status codes.
func (h *BookingHandler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appErrors.ErrBookingNotFound), errors.Is(err, appErrors.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, appErrors.ErrInvalidBooking):
		status = http.StatusBadRequest
	case errors.Is(err, appErrors.ErrCancellation), errors.Is(err, appErrors.ErrDatabaseOperation):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(fmt.Sprintf("%s %s failed", c.Request().Method, c.Path()), err)
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
