// package video_api provides video file and re-transcription handlers.
package video_api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/api/fileserver"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/internal/db"
)

// HandleFile serves the downloaded media of a video by its external id.
func HandleFile(q common.Queries, fs *fileserver.FileServer) echo.HandlerFunc {
	return func(c echo.Context) error {
		externalID := strings.TrimSpace(c.Param("id"))
		if externalID == "" {
			return common.ErrBadRequest("invalid id")
		}

		video, err := q.GetVideoByExternalID(c.Request().Context(), externalID)
		if err != nil {
			if db.IsNoRows(err) {
				return common.ErrNotFound("video not found")
			}
			slog.Error("failed to load video", "external_id", externalID, "error", err)
			return common.ErrInternal("failed to load video")
		}
		return fs.Serve(c, video.MediaPath, "private, max-age=3600")
	}
}
