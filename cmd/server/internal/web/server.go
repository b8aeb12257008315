package web

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/api/fileserver"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/api/recipe_api"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/api/task_api"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/api/video_api"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

type Webserver struct {
	*echo.Echo
	queries    common.Queries
	env        *pipeline.Env
	store      queue.Store
	fileServer *fileserver.FileServer
}

func NewWebserver(queries common.Queries, env *pipeline.Env, store queue.Store) *Webserver {
	webserver := &Webserver{
		Echo:       echo.New(),
		queries:    queries,
		env:        env,
		store:      store,
		fileServer: fileserver.NewFileServer(env.StorageDir),
	}
	webserver.Validator = common.NewValidator()

	webserver.setupMiddleware()
	webserver.registerRoutes()
	return webserver
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("64K"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
}

func (s *Webserver) registerRoutes() {
	s.POST("/recipes", recipe_api.HandleCreate(s.env, s.store))
	s.GET("/recipes", recipe_api.HandleIndex(s.queries))
	s.GET("/recipes/:id", recipe_api.HandleShow(s.queries))

	s.GET("/videos/:id", video_api.HandleFile(s.queries, s.fileServer))
	s.POST("/videos/:id/transcribe", video_api.HandleTranscribe(s.queries, s.env, s.store))

	s.GET("/tasks/:id", task_api.HandleStatus(s.store))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}
