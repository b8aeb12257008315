// package task_api reports queued task state.
package task_api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

// HandleStatus returns a task's state, attempt count, next run and last error.
func HandleStatus(store queue.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}

		task, err := store.Get(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, queue.ErrTaskNotFound) {
				return common.ErrNotFound("task not found")
			}
			slog.Error("failed to load task", "task_id", id, "error", err)
			return common.ErrInternal("failed to load task")
		}
		return c.JSON(http.StatusOK, task)
	}
}
