package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

// EnqueueResponse is returned by every endpoint that queues work.
type EnqueueResponse struct {
	TaskID    int64  `json:"task_id,omitempty"`
	Kind      string `json:"kind"`
	UniqueKey string `json:"unique_key"`
	Duplicate bool   `json:"duplicate"`
}

// RespondEnqueued answers 201 for a new task and 200 when an identical task
// was already queued or running.
func RespondEnqueued(c echo.Context, req queue.Request, res queue.EnqueueResult) error {
	body := EnqueueResponse{
		TaskID:    res.TaskID,
		Kind:      req.Kind,
		UniqueKey: req.UniqKey,
		Duplicate: res.Skipped,
	}
	if res.Skipped {
		return c.JSON(http.StatusOK, body)
	}
	return c.JSON(http.StatusCreated, body)
}
