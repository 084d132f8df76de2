// Package httpapi exposes the schedule service over JSON/HTTP using echo.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"worshipScheduling/internal/auth"
	"worshipScheduling/internal/config"
	"worshipScheduling/repository"
)

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps bundles what the handlers need.
type Deps struct {
	Users     repository.UserStore
	Schedules repository.ScheduleStore
	DB        Pinger
	Logger    *log.Logger
}

type handler struct {
	users     repository.UserStore
	schedules repository.ScheduleStore
	db        Pinger
	issuer    *auth.Issuer
	logger    *log.Logger
}

// New builds the echo instance with middleware and all routes registered.
func New(cfg *config.Config, d Deps) *echo.Echo {
	if cfg == nil {
		panic("config is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	h := &handler{
		users:     d.Users,
		schedules: d.Schedules,
		db:        d.DB,
		issuer:    auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration),
		logger:    logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLevel(cfg.Log.Level))
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if t := cfg.HTTP.RequestTimeout.Duration; t > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: t}))
	}

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "worship scheduling API")
	})

	api := e.Group("/api")
	api.GET("/health", h.health)

	authGroup := api.Group("/auth")
	if cfg.HTTP.AuthRateLimit > 0 {
		authGroup.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.HTTP.AuthRateLimit),
				Burst:     cfg.HTTP.AuthRateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)

	authn := auth.Middleware(cfg.Auth.JWTSecret)
	admin := auth.RequireAdmin(d.Users)

	users := api.Group("/users", authn)
	users.GET("", h.listUsers, admin)
	users.POST("", h.createUser, admin)
	users.PUT("/:id", h.updateUser)
	users.DELETE("/:id", h.deleteUser, admin)

	schedules := api.Group("/schedules", authn)
	schedules.GET("", h.listSchedules)
	schedules.GET("/:id", h.getSchedule)
	schedules.POST("", h.createSchedule, admin)
	schedules.PUT("/:id", h.updateSchedule, admin)
	schedules.DELETE("/:id", h.deleteSchedule, admin)
	schedules.DELETE("", h.deleteAllSchedules, admin)
	schedules.POST("/:id/confirm", h.confirm)
	schedules.DELETE("/:id/confirm", h.removeConfirmation)
	schedules.POST("/:id/request-change", h.requestChange)
	schedules.POST("/:id/change-requests/:userId/resolve", h.resolveChangeRequest, admin)

	return e
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *handler) health(c echo.Context) error {
	if h.db == nil {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("health check failed", "err", err)
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				kv = append(kv, "err", v.Error)
			}
			logger.Info("request", kv...)
			return nil
		},
	})
}

func echoLevel(level string) glog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error", "fatal":
		return glog.ERROR
	}
	return glog.INFO
}

// Start listens on addr and serves e in the background. It returns the bound address
// and a shutdown function.
func Start(e *echo.Echo, addr string, logger *log.Logger) (string, func(context.Context) error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	e.Listener = lis
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "err", err)
		}
	}()
	return lis.Addr().String(), e.Shutdown, nil
}
