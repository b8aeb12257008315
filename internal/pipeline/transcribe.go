package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/queue"
	"thirdcoast.systems/reelrecipes/internal/whisper"
	"thirdcoast.systems/reelrecipes/pkg/utils/language"
)

// Transcribe derives speech audio from the stored media, sends it to the
// transcription service and stores the result, replacing any earlier
// transcript. Audio left by an earlier attempt is reused.
func (e *Env) Transcribe(ctx context.Context, p VideoPayload) ([]queue.Request, error) {
	video, err := e.loadVideo(ctx, KindTranscribe, p.VideoID)
	if err != nil {
		return nil, err
	}

	audio := e.audioPath(video)
	if st, err := os.Stat(audio); err == nil && st.Size() > 0 {
		slog.Info("reusing extracted audio", "video_id", video.ID, "audio_path", audio)
	} else {
		if _, err := os.Stat(video.MediaPath); err != nil {
			return nil, stageErr(ErrRecordNotFound, KindTranscribe, fmt.Errorf("media file for video %d: %w", video.ID, err))
		}
		if err := e.Audio.ExtractSpeechAudio(ctx, video.MediaPath, audio); err != nil {
			return nil, classify(KindTranscribe, err)
		}
		if st, err := os.Stat(audio); err == nil {
			slog.Info("audio extracted", "video_id", video.ID, "audio_path", audio, "size", humanize.Bytes(uint64(st.Size())))
		}
	}

	params := whisper.Params{Model: e.WhisperModel, AudioPath: audio}
	if e.Language != language.Und {
		params.Language = e.Language.String()
	}
	transcript, err := e.Transcriber.Transcribe(ctx, params)
	if err != nil {
		return nil, classify(KindTranscribe, err)
	}

	lang := e.transcriptLanguage(transcript)
	if err := e.Videos.SetTranscript(ctx, video.ID, transcript, lang); err != nil {
		if errors.Is(err, ErrVideoNotFound) {
			return nil, stageErr(ErrRecordNotFound, KindTranscribe, err)
		}
		return nil, stageErr(ErrStore, KindTranscribe, err)
	}

	slog.Info("transcript stored",
		"video_id", video.ID,
		"segments", len(transcript.Segments),
		"chars", len(transcript.Text),
		"language", lang.String())
	return []queue.Request{e.ExtractTask(video.ID)}, nil
}

// transcriptLanguage is the configured language, or the one the service
// reports when it detected it itself.
func (e *Env) transcriptLanguage(t *db.Transcript) language.Tag {
	if e.Language != language.Und {
		return e.Language
	}
	raw, ok := t.Extra["language"]
	if !ok {
		return language.Und
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return language.Und
	}
	tag, err := language.Parse(s)
	if err != nil {
		// whisper reports names like "english"
		return language.Und
	}
	return tag
}

func (e *Env) loadVideo(ctx context.Context, stage string, id int64) (*db.Video, error) {
	video, err := e.Videos.GetVideo(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVideoNotFound) {
			return nil, stageErr(ErrRecordNotFound, stage, fmt.Errorf("video %d: %w", id, err))
		}
		return nil, stageErr(ErrStore, stage, err)
	}
	return video, nil
}
