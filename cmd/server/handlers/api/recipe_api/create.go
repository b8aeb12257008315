// package recipe_api provides recipe submission and read handlers.
package recipe_api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

type createRequest struct {
	ReelURL string `json:"reel_url" form:"reel_url" validate:"required,max=2048"`
}

// HandleCreate queues a fetch for a reel URL given as a form field or JSON.
func HandleCreate(env *pipeline.Env, store queue.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}
		req.ReelURL = strings.TrimSpace(req.ReelURL)
		if err := c.Validate(&req); err != nil {
			return err
		}

		task, err := env.FetchTask(req.ReelURL)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidInput) {
				return common.ErrBadRequest("invalid reel url")
			}
			return err
		}

		res, err := store.Enqueue(c.Request().Context(), task)
		if err != nil {
			slog.Error("failed to enqueue fetch", "unique_key", task.UniqKey, "error", err)
			return common.ErrInternal("failed to enqueue")
		}
		if res.Skipped {
			slog.Info("fetch already queued", "unique_key", task.UniqKey)
		} else {
			slog.Info("fetch queued", "task_id", res.TaskID, "unique_key", task.UniqKey)
		}
		return common.RespondEnqueued(c, task, res)
	}
}
