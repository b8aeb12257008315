package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thirdcoast.systems/reelrecipes/internal/queue"
	"thirdcoast.systems/reelrecipes/pkg/ffmpeg"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

// Runner dispatches leased tasks to the stage matching their kind.
type Runner struct {
	env *Env
}

func NewRunner(env *Env) *Runner {
	return &Runner{env: env}
}

var _ queue.Handler = (*Runner)(nil)

func (r *Runner) Handle(ctx context.Context, t *queue.Task) ([]queue.Request, error) {
	next, err := r.dispatch(ctx, t)
	if err != nil {
		logToolFailure(t, err)
	}
	return next, err
}

func (r *Runner) dispatch(ctx context.Context, t *queue.Task) ([]queue.Request, error) {
	switch t.Kind {
	case KindFetch:
		var p FetchPayload
		if err := decodePayload(t.Kind, t.Payload, &p); err != nil {
			return nil, err
		}
		return r.env.Fetch(ctx, p)
	case KindTranscribe:
		var p VideoPayload
		if err := decodePayload(t.Kind, t.Payload, &p); err != nil {
			return nil, err
		}
		return r.env.Transcribe(ctx, p)
	case KindExtract:
		var p VideoPayload
		if err := decodePayload(t.Kind, t.Payload, &p); err != nil {
			return nil, err
		}
		return r.env.Extract(ctx, p)
	default:
		return nil, stageErr(ErrInvalidInput, t.Kind, fmt.Errorf("unknown task kind %q", t.Kind))
	}
}

// logToolFailure writes the full stderr of a failed subprocess; the task's
// stored error only keeps the last line.
func logToolFailure(t *queue.Task, err error) {
	var ytErr *ytdlp.ExecError
	if errors.As(err, &ytErr) {
		slog.Warn("yt-dlp failed",
			"task_id", t.ID,
			"exit_code", ytErr.ExitCode,
			"args", ytErr.Args,
			"stderr", ytErr.Stderr)
		return
	}
	var ffErr *ffmpeg.Error
	if errors.As(err, &ffErr) {
		slog.Warn("ffmpeg failed",
			"task_id", t.ID,
			"exit_code", ffErr.ExitCode(),
			"command", ffErr.Command(),
			"stderr", ffErr.Stderr)
	}
}
