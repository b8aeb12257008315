// Package pipeline implements the fetch, transcribe and extract stages that
// turn a reel URL into stored recipes.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"thirdcoast.systems/reelrecipes/internal/completion"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/whisper"
	"thirdcoast.systems/reelrecipes/pkg/utils/language"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

type Downloader interface {
	Download(ctx context.Context, url string, destDir string, extraArgs ...string) (*ytdlp.Result, error)
}

type AudioExtractor interface {
	ExtractSpeechAudio(ctx context.Context, input, output string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, p whisper.Params) (*db.Transcript, error)
}

// VideoStore persists videos and recipes. Lookups that match nothing return
// ErrVideoNotFound.
type VideoStore interface {
	GetVideo(ctx context.Context, id int64) (*db.Video, error)
	GetVideoByExternalID(ctx context.Context, externalID string) (*db.Video, error)
	// CreateVideo inserts the video, or returns the existing row when the
	// external id is already stored.
	CreateVideo(ctx context.Context, arg *db.InsertVideoParams) (*db.Video, error)
	SetTranscript(ctx context.Context, videoID int64, t *db.Transcript, lang language.Tag) error
	// SaveRecipes stores recipes for a video. With replace set, recipes from
	// earlier runs are removed in the same transaction.
	SaveRecipes(ctx context.Context, videoID int64, recipes []completion.Recipe, generatedAt time.Time, replace bool) ([]*db.Recipe, error)
}

// RetryPolicy is the per-kind retry budget.
type RetryPolicy struct {
	Fetch      int
	Transcribe int
	Extract    int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Fetch: 3, Transcribe: 3, Extract: 0}
}

// Env holds everything the stages share. It is built once at startup and
// not modified afterwards.
type Env struct {
	Videos      VideoStore
	Downloader  Downloader
	Audio       AudioExtractor
	Transcriber Transcriber
	Completion  completion.Adapter
	Prompt      *PromptTemplate

	// StorageDir holds one directory per external id with the media file,
	// its metadata sidecar and the derived audio.
	StorageDir   string
	DownloadArgs []string

	WhisperModel string
	// Language is sent to the transcription service; Und lets it detect.
	Language language.Tag

	Retries        RetryPolicy
	ReplaceRecipes bool

	// Now defaults to time.Now.
	Now func() time.Time
}

const (
	audioFileName = "audio.mp3"
	spoolDirName  = ".spool"
)

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) videoDir(externalID string) string {
	return filepath.Join(e.StorageDir, externalID)
}

func (e *Env) audioPath(v *db.Video) string {
	return filepath.Join(e.videoDir(v.ExternalID), audioFileName)
}

func (e *Env) spoolDir() string {
	return filepath.Join(e.StorageDir, spoolDirName)
}
