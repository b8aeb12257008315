package pipeline

import (
	"context"
	"log/slog"

	"thirdcoast.systems/reelrecipes/internal/queue"
)

// Extract asks the completion service for the recipes in a video's caption
// and transcript and stores them. It is the last stage and runs on the
// caption alone when no transcript exists yet.
func (e *Env) Extract(ctx context.Context, p VideoPayload) ([]queue.Request, error) {
	video, err := e.loadVideo(ctx, KindExtract, p.VideoID)
	if err != nil {
		return nil, err
	}

	prompt, err := e.Prompt.Render(PromptData{
		Caption:    video.Info.Caption(),
		Transcript: video.Transcript.PlainText(),
	})
	if err != nil {
		return nil, stageErr(ErrInvalidInput, KindExtract, err)
	}

	recipes, err := e.Completion.Extract(ctx, prompt)
	if err != nil {
		return nil, classify(KindExtract, err)
	}

	saved, err := e.Videos.SaveRecipes(ctx, video.ID, recipes, e.now(), e.ReplaceRecipes)
	if err != nil {
		return nil, stageErr(ErrStore, KindExtract, err)
	}

	titles := make([]string, 0, len(saved))
	for _, r := range saved {
		titles = append(titles, r.Title)
	}
	slog.Info("recipes stored",
		"video_id", video.ID,
		"count", len(saved),
		"titles", titles,
		"has_transcript", video.Transcript != nil,
		"replaced", e.ReplaceRecipes)
	return nil, nil
}
