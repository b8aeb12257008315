package recipe_api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/cmd/server/templates"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/pkg/utils/markdown"
)

// HandleIndex lists recipe ids and titles as JSON or as a page of links.
func HandleIndex(q common.Queries) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := q.ListRecipes(c.Request().Context())
		if err != nil {
			slog.Error("failed to list recipes", "error", err)
			return common.ErrInternal("failed to list recipes")
		}
		if rows == nil {
			rows = []*db.ListRecipesRow{}
		}

		if common.WantsJSON(c) {
			return c.JSON(http.StatusOK, rows)
		}

		links := make([]markdown.Link, 0, len(rows))
		for _, r := range rows {
			links = append(links, markdown.Link{Text: r.Title, Href: "/recipes/" + strconv.FormatInt(r.ID, 10)})
		}
		md := markdown.LinkList("Recipes", links, "No recipes yet.")
		return common.Render(c, http.StatusOK, templates.Page("Recipes", md.Render()))
	}
}
