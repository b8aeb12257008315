package video_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

// HandleTranscribe queues a fresh transcription of a stored video. The new
// transcript replaces the old one and is followed by a new extraction.
func HandleTranscribe(q common.Queries, env *pipeline.Env, store queue.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		if _, err := q.GetVideo(ctx, id); err != nil {
			if db.IsNoRows(err) {
				return common.ErrBadRequest("invalid video id")
			}
			slog.Error("failed to load video", "video_id", id, "error", err)
			return common.ErrInternal("failed to load video")
		}

		task := env.TranscribeTask(id)
		res, err := store.Enqueue(ctx, task)
		if err != nil {
			slog.Error("failed to enqueue transcription", "video_id", id, "error", err)
			return common.ErrInternal("failed to enqueue")
		}
		return common.RespondEnqueued(c, task, res)
	}
}
