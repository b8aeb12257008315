package common

import (
	"context"

	"thirdcoast.systems/reelrecipes/internal/db"
)

// Queries is the read side the handlers need. *db.Queries satisfies it.
type Queries interface {
	ListRecipes(ctx context.Context) ([]*db.ListRecipesRow, error)
	GetRecipe(ctx context.Context, id int64) (*db.Recipe, error)
	GetVideo(ctx context.Context, id int64) (*db.Video, error)
	GetVideoByExternalID(ctx context.Context, externalID string) (*db.Video, error)
}
