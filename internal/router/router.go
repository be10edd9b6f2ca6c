package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/building-management/internal/handler"
	"github.com/iliyamo/building-management/internal/middleware"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Health       echo.HandlerFunc
	Rooms        *handler.RoomHandler
	Occupancy    *handler.OccupancyHandler
	Reservations *handler.ReservationHandler
}

// Options configures the middleware chain.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // nil disables rate limiting
}

// New returns an Echo instance with the validator, the error handler and
// the global middleware installed.
func New(log *zap.Logger) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewErrorHandler(log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(requestLogger(log))
	return e
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if uid := middleware.UserID(c); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// RegisterRoutes mounts the health check and the /v1 API.  Every /v1 route
// requires a valid bearer token; the token only identifies the caller and
// no route is restricted further.
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/healthz", h.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(opts.JWTSecret))
	if opts.RateLimit != nil {
		v1.Use(opts.RateLimit)
	}

	// rooms
	v1.POST("/rooms", h.Rooms.Create)
	v1.GET("/rooms", h.Rooms.List)
	v1.GET("/rooms/:id", h.Rooms.Get)
	v1.DELETE("/rooms/:id", h.Rooms.Delete)
	v1.PUT("/rooms/:id/image", h.Rooms.SetImage)
	v1.PUT("/rooms/:id/projector", h.Rooms.AttachProjector)
	v1.GET("/rooms/:id/projector", h.Rooms.GetProjector)
	v1.DELETE("/rooms/:id/projector", h.Rooms.DetachProjector)

	// occupancy
	v1.POST("/transfers", h.Occupancy.Transfer)
	v1.POST("/rooms/:id/admit", h.Occupancy.Admit)
	v1.POST("/rooms/:id/release", h.Occupancy.Release)

	// reservations
	v1.POST("/rooms/:id/reservations", h.Reservations.Book)
	v1.GET("/rooms/:id/reservations", h.Reservations.ListByRoom)
	v1.GET("/rooms/:id/reserved-days", h.Reservations.ReservedDays)
	v1.GET("/reservations/:id", h.Reservations.Get)
	v1.DELETE("/reservations/:id", h.Reservations.Cancel)
}
