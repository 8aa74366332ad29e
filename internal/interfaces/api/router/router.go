package router

import (
	"fmt"
	"net/http"

	"bookingreminder/internal/interfaces/api/handler"
	"bookingreminder/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the dependencies for the router.
type Config struct {
	BookingHandler *handler.BookingHandler
	OpsHandler     *handler.OpsHandler
	Metrics        http.Handler // optional, served on /metrics
	Logger         logger.Logger
}

// NewRouter creates and configures a new Echo router.
func NewRouter(cfg *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	// Use custom logger that integrates with our logger interface
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogHost:      true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			cfg.Logger.Info(fmt.Sprintf("REQUEST: method=%s, uri=%s, status=%d, latency=%s, req_id=%s",
				v.Method, v.URI, v.Status, v.Latency, v.RequestID,
			))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		MaxAge:       300,
	}))

	// Routes
	bookings := e.Group("/bookings")
	bookings.POST("", cfg.BookingHandler.CreateBooking)
	bookings.GET("/:id", cfg.BookingHandler.GetBooking)
	bookings.PUT("/:id", cfg.BookingHandler.UpdateBooking)
	bookings.POST("/:id/cancel", cfg.BookingHandler.CancelBooking)
	bookings.GET("/:id/reminders", cfg.BookingHandler.GetReminders)
	bookings.DELETE("/:id/reminders", cfg.BookingHandler.CancelReminders)

	e.GET("/queue/stats", cfg.OpsHandler.QueueStats)
	e.GET("/healthz", cfg.OpsHandler.Health)
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	cfg.Logger.Info("Router initialized with routes.")
	return e
}
