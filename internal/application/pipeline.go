// Package application assembles the process-wide handles from configuration.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/reelrecipes/internal/completion"
	"thirdcoast.systems/reelrecipes/internal/config"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/whisper"
	"thirdcoast.systems/reelrecipes/pkg/ffmpeg"
	"thirdcoast.systems/reelrecipes/pkg/utils/language"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

// NewPipelineEnv builds the stage environment. Misconfiguration such as an
// unsupported completion protocol is reported here rather than on the first
// extraction.
func NewPipelineEnv(conf config.Config, videos pipeline.VideoStore) (*pipeline.Env, error) {
	if err := os.MkdirAll(conf.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	lang, err := language.Parse(conf.WhisperLanguage)
	if err != nil {
		return nil, err
	}

	maxUpload, err := conf.WhisperMaxUploadBytes()
	if err != nil {
		return nil, err
	}

	adapter, err := completion.New(completion.Options{
		Protocol: completion.Protocol(conf.CompletionProtocol),
		URL:      conf.CompletionURL,
		Key:      conf.CompletionKey,
		Model:    conf.CompletionModel,
		Timeout:  conf.HTTPTimeout(),
	})
	if err != nil {
		return nil, err
	}

	prompt, err := pipeline.LoadPromptTemplate(conf.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	downloader := ytdlp.New()
	if conf.YtdlpPath != "" {
		downloader.Path = conf.YtdlpPath
	}
	downloader.CookiesFile = conf.YtdlpCookies

	env := &pipeline.Env{
		Videos:     videos,
		Downloader: downloader,
		Audio:      ffmpeg.NewRunner(conf.FFmpegPath),
		Transcriber: whisper.NewClient(whisper.Options{
			URL:            conf.WhisperURL,
			Key:            conf.WhisperKey,
			Timeout:        conf.HTTPTimeout(),
			MaxUploadBytes: maxUpload,
		}),
		Completion:   adapter,
		Prompt:       prompt,
		StorageDir:   conf.StorageDir,
		DownloadArgs: conf.YtdlpExtraArgs(),
		WhisperModel: conf.WhisperModel,
		Language:     lang,
		Retries: pipeline.RetryPolicy{
			Fetch:      conf.FetchMaxRetries,
			Transcribe: conf.TranscribeMaxRetries,
			Extract:    conf.ExtractMaxRetries,
		},
		ReplaceRecipes: conf.ExtractReplaceRecipes,
	}

	fields := []any{
		"storage_dir", env.StorageDir,
		"completion_protocol", conf.CompletionProtocol,
		"completion_model", conf.CompletionModel,
		"whisper_model", env.WhisperModel,
		"language", lang.String(),
	}
	if maxUpload > 0 {
		fields = append(fields, "whisper_max_upload", humanize.Bytes(uint64(maxUpload)))
	}
	slog.Info("pipeline configured", fields...)
	return env, nil
}

// LogToolVersions records which yt-dlp binary the workers will run. A
// missing binary is logged, not fatal; fetches will fail and retry.
func LogToolVersions(ctx context.Context, env *pipeline.Env) {
	yt, ok := env.Downloader.(*ytdlp.Client)
	if !ok {
		return
	}
	v, err := yt.Version(ctx)
	if err != nil {
		slog.Warn("yt-dlp unavailable", "path", yt.PathOrDefault(), "error", err)
		return
	}
	slog.Info("yt-dlp found", "path", yt.PathOrDefault(), "version", v)
}
