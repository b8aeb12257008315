package recipe_api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/cmd/server/templates"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/pkg/utils/markdown"
)

type recipeDetail struct {
	*db.Recipe
	Video *db.Video `json:"video"`
}

// HandleShow returns one recipe with its source video, as JSON or HTML.
func HandleShow(q common.Queries) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		recipe, err := q.GetRecipe(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return common.ErrNotFound("recipe not found")
			}
			slog.Error("failed to load recipe", "recipe_id", id, "error", err)
			return common.ErrInternal("failed to load recipe")
		}

		if !common.WantsJSON(c) {
			md := markdown.Recipe(recipe.Title, recipe.Ingredients, recipe.Instructions)
			return common.Render(c, http.StatusOK, templates.RecipePage(recipe.Title, md.Render()))
		}

		video, err := q.GetVideo(ctx, recipe.VideoID)
		if err != nil && !db.IsNoRows(err) {
			slog.Error("failed to load recipe video", "recipe_id", id, "video_id", recipe.VideoID, "error", err)
			return common.ErrInternal("failed to load recipe")
		}
		if err != nil {
			video = nil
		}
		return c.JSON(http.StatusOK, recipeDetail{Recipe: recipe, Video: video})
	}
}
