// Package router assembles the echo instance: global middleware, error
// rendering and the /api routes with their per-route limiters.
package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/iliyamo/wod-leaderboard/internal/config"
	"github.com/iliyamo/wod-leaderboard/internal/handler"
	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/middleware"
	"github.com/iliyamo/wod-leaderboard/internal/service"
)

// ServiceName labels server spans.
const ServiceName = "wodboard"

// Deps are the collaborators New wires into the routes. Redis may be nil,
// in which case rate limiting and caching are skipped.
type Deps struct {
	Config   *config.Config
	Workouts *service.WorkoutService
	Results  *service.ResultService
	Redis    *redis.Client
	Log      *logging.Logger
}

// New returns a configured echo instance.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(ServiceName))
	e.Use(requestLogger(d.Log))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.Config.HTTP.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(echomw.BodyLimit(d.Config.HTTP.BodyLimit))

	e.GET("/health", handler.Health)

	RegisterAPI(e, d)
	return e
}

// RegisterAPI mounts the /api routes.
func RegisterAPI(e *echo.Echo, d Deps) {
	wh := handler.NewWorkoutHandler(d.Workouts, d.Log)
	rh := handler.NewResultHandler(d.Results, d.Log)

	workoutLimit := middleware.NewTokenBucket(d.Config.WorkoutLimit, d.Redis, d.Log)
	resultLimit := middleware.NewTokenBucket(d.Config.ResultLimit, d.Redis, d.Log)

	api := e.Group("/api")
	api.Use(middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Log))

	api.GET("/workout-types", wh.Types)
	api.POST("/workouts", wh.Create, workoutLimit)
	api.GET("/workouts", wh.List)
	api.GET("/workouts/:id", wh.Get)
	api.DELETE("/workouts/:id", wh.Delete)

	api.POST("/results", rh.Submit, resultLimit)
	api.GET("/results/:workoutId", rh.Leaderboard)
	api.PUT("/results/:id", rh.Update)
	api.DELETE("/results/:id", rh.Delete)
}

func requestLogger(log *logging.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				log.Warn("request", append(args, "err", v.Error)...)
				return nil
			}
			log.Info("request", args...)
			return nil
		},
	})
}

// errorHandler renders echo's own errors (unknown route, body too large,
// bad method) in the same {"error": ...} shape the handlers use.
func errorHandler(log *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
		} else {
			log.Error("unhandled error", "path", c.Path(), "err", err)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"error": msg})
		}
		if err != nil {
			log.Error("write error response", "err", err)
		}
	}
}
