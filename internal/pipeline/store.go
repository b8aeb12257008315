package pipeline

import (
	"context"
	"fmt"
	"time"

	"thirdcoast.systems/reelrecipes/internal/completion"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/pkg/utils/language"
)

// DBVideoStore is the Postgres VideoStore.
type DBVideoStore struct {
	dbc *db.DatabaseConnection
}

func NewDBVideoStore(dbc *db.DatabaseConnection) *DBVideoStore {
	return &DBVideoStore{dbc: dbc}
}

var _ VideoStore = (*DBVideoStore)(nil)

func (s *DBVideoStore) GetVideo(ctx context.Context, id int64) (*db.Video, error) {
	v, err := s.dbc.Queries(ctx).GetVideo(ctx, id)
	if db.IsNoRows(err) {
		return nil, ErrVideoNotFound
	}
	return v, err
}

func (s *DBVideoStore) GetVideoByExternalID(ctx context.Context, externalID string) (*db.Video, error) {
	v, err := s.dbc.Queries(ctx).GetVideoByExternalID(ctx, externalID)
	if db.IsNoRows(err) {
		return nil, ErrVideoNotFound
	}
	return v, err
}

func (s *DBVideoStore) CreateVideo(ctx context.Context, arg *db.InsertVideoParams) (*db.Video, error) {
	q := s.dbc.Queries(ctx)
	v, err := q.InsertVideo(ctx, arg)
	if db.IsNoRows(err) {
		// Lost a race with another fetch of the same reel.
		return q.GetVideoByExternalID(ctx, arg.ExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert video %s: %w", arg.ExternalID, err)
	}
	return v, nil
}

func (s *DBVideoStore) SetTranscript(ctx context.Context, videoID int64, t *db.Transcript, lang language.Tag) error {
	n, err := s.dbc.Queries(ctx).SetVideoTranscript(ctx, &db.SetVideoTranscriptParams{
		ID:                 videoID,
		Transcript:         t,
		TranscriptLanguage: lang,
	})
	if err != nil {
		return fmt.Errorf("set transcript for video %d: %w", videoID, err)
	}
	if n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (s *DBVideoStore) SaveRecipes(ctx context.Context, videoID int64, recipes []completion.Recipe, generatedAt time.Time, replace bool) ([]*db.Recipe, error) {
	saved := make([]*db.Recipe, 0, len(recipes))
	err := s.dbc.InTx(ctx, func(q *db.Queries) error {
		if replace {
			if _, err := q.DeleteRecipesForVideo(ctx, videoID); err != nil {
				return fmt.Errorf("delete recipes for video %d: %w", videoID, err)
			}
		}
		for _, r := range recipes {
			row, err := q.InsertRecipe(ctx, &db.InsertRecipeParams{
				VideoID:      videoID,
				Title:        r.Title,
				Ingredients:  r.Ingredients,
				Instructions: r.Instructions,
				GeneratedAt:  db.Timestamptz(generatedAt),
			})
			if err != nil {
				return fmt.Errorf("insert recipe %q: %w", r.Title, err)
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
