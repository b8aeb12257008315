package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/reelrecipes/internal/completion"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/queue"
	"thirdcoast.systems/reelrecipes/internal/whisper"
	"thirdcoast.systems/reelrecipes/pkg/utils/language"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedStore() (*queue.MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := queue.NewMemoryStore()
	s.Now = clock.Now
	return s, clock
}

func TestFetchTask_DuplicateSubmissionIsSkipped(t *testing.T) {
	ctx := context.Background()
	env, _ := newTestEnv(t)
	s, _ := newClockedStore()

	req, err := env.FetchTask("https://example.com/reel/ABC123/")
	require.NoError(t, err)
	require.Equal(t, KindFetch, req.Kind)
	require.Equal(t, "fetch_reel:ABC123", req.UniqKey)
	require.Equal(t, 3, req.MaxRetries)
	require.JSONEq(t, `{"url":"https://example.com/reel/ABC123/"}`, string(req.Payload))

	first, err := s.Enqueue(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Skipped)

	// Same reel, different spelling.
	again, err := env.FetchTask("http://example.com/reels/ABC123?utm=x")
	require.NoError(t, err)
	second, err := s.Enqueue(ctx, again)
	require.NoError(t, err)
	require.True(t, second.Skipped)

	require.Len(t, s.Tasks(), 1)
}

func TestFetchTask_InvalidURL(t *testing.T) {
	env, _ := newTestEnv(t)

	_, err := env.FetchTask("https://example.com/about")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.False(t, queue.IsRetryable(err))
}

func TestVideoTasks_RetryBudgets(t *testing.T) {
	env, _ := newTestEnv(t)

	tr := env.TranscribeTask(7)
	require.Equal(t, KindTranscribe, tr.Kind)
	require.Equal(t, "extract_transcript:7", tr.UniqKey)
	require.Equal(t, 3, tr.MaxRetries)

	ex := env.ExtractTask(7)
	require.Equal(t, KindExtract, ex.Kind)
	require.Equal(t, "extract_recipes:7", ex.UniqKey)
	require.Equal(t, 0, ex.MaxRetries)
	require.JSONEq(t, `{"video_id":7}`, string(ex.Payload))
}

func TestFetch_DownloadsAndStoresVideo(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)

	next, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)
	require.Equal(t, 1, d.downloader.Calls())

	video, err := d.videos.GetVideoByExternalID(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(env.StorageDir, "ABC123", "reel.mp4"), video.MediaPath)
	require.Equal(t, "https://example.com/reel/ABC123/", video.SourceURL)
	require.Equal(t, "Easy soup: boil water, add salt.", video.Info.Caption())
	require.NotContains(t, video.Info, "formats")
	require.FileExists(t, filepath.Join(env.StorageDir, "ABC123", "reel.info.json"))

	require.Len(t, next, 1)
	require.Equal(t, env.TranscribeTask(video.ID), next[0])

	// Spool directories are cleaned up.
	entries, err := os.ReadDir(filepath.Join(env.StorageDir, spoolDirName))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFetch_ReusesFilesOnDisk(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	d.downloader.err = errors.New("downloader must not run")

	dir := filepath.Join(env.StorageDir, "ABC123")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.webm"), []byte("cached"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.info.json"), []byte(testInfoJSON), 0o644))

	next, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)
	require.Zero(t, d.downloader.Calls())

	video, err := d.videos.GetVideoByExternalID(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "reel.webm"), video.MediaPath)
	require.Equal(t, []queue.Request{env.TranscribeTask(video.ID)}, next)
}

func TestFetch_TranscribedVideoIsNoop(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	video, err := d.videos.CreateVideo(ctx, &db.InsertVideoParams{ExternalID: "ABC123", SourceURL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)
	require.NoError(t, d.videos.SetTranscript(ctx, video.ID, &db.Transcript{Text: "hello"}, language.Und))

	next, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)
	require.Empty(t, next)
	require.Zero(t, d.downloader.Calls())
}

// The video row commits before the fetch task does. Running the fetch again
// after a crash in between must still hand the video to transcription.
func TestFetch_RerunAfterCrashStillEnqueuesTranscribe(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	s, _ := newClockedStore()

	first, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	// first is lost with the crashed worker.

	req, err := env.FetchTask("https://example.com/reel/ABC123/")
	require.NoError(t, err)
	res, err := s.Enqueue(ctx, req)
	require.NoError(t, err)

	pool := queue.NewPool(s, NewRunner(env), queue.PoolOptions{})
	require.NoError(t, pool.RunOnce(ctx))
	require.Equal(t, 1, d.downloader.Calls())

	video, err := d.videos.GetVideoByExternalID(ctx, "ABC123")
	require.NoError(t, err)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	require.Equal(t, res.TaskID, tasks[0].ID)
	require.Equal(t, queue.StateDone, tasks[0].State)
	require.Equal(t, env.TranscribeTask(video.ID).UniqKey, tasks[1].UniqKey)
	require.Equal(t, queue.StatePending, tasks[1].State)
}

func TestFetch_UnreadableSidecarDropsCache(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	d.downloader.err = errors.New("offline")

	dir := filepath.Join(env.StorageDir, "ABC123")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.mp4"), []byte("cached"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.info.json"), []byte("null"), 0o644))

	_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.ErrorIs(t, err, ErrExternalTool)
	require.True(t, queue.IsRetryable(err))
	require.NoDirExists(t, dir)
}

// A downloader exiting 1 reschedules the fetch after 60s and keeps backing
// off until the retry budget is spent.
func TestFetch_DownloaderFailureBacksOffThenFails(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	d.downloader.err = &ytdlp.ExecError{Cmd: "yt-dlp", ExitCode: 1, Stderr: "ERROR: [Instagram] ABC123: login required"}

	s, clock := newClockedStore()
	req, err := env.FetchTask("https://example.com/reel/ABC123/")
	require.NoError(t, err)
	res, err := s.Enqueue(ctx, req)
	require.NoError(t, err)

	pool := queue.NewPool(s, NewRunner(env), queue.PoolOptions{})
	start := clock.Now()
	require.NoError(t, pool.RunOnce(ctx))

	task, err := s.Get(ctx, res.TaskID)
	require.NoError(t, err)
	require.Equal(t, queue.StatePending, task.State)
	require.Equal(t, 1, task.Attempts)
	require.Equal(t, start.Add(60*time.Second), task.ScheduledAt)
	require.Contains(t, task.LastError, "login required")
	require.Contains(t, task.LastError, "external tool failure")

	for _, wait := range []time.Duration{60 * time.Second, 120 * time.Second, 240 * time.Second} {
		clock.Advance(wait)
		require.NoError(t, pool.RunOnce(ctx))
	}

	task, err = s.Get(ctx, res.TaskID)
	require.NoError(t, err)
	require.Equal(t, queue.StateFailed, task.State)
	require.Equal(t, 4, d.downloader.Calls())

	clock.Advance(24 * time.Hour)
	require.ErrorIs(t, pool.RunOnce(ctx), queue.ErrNoTask)
}

func TestTranscribe_StoresTranscriptAndChainsExtract(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	env.Language = mustTag(t, "en")

	_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)
	video, err := d.videos.GetVideoByExternalID(ctx, "ABC123")
	require.NoError(t, err)

	next, err := env.Transcribe(ctx, VideoPayload{VideoID: video.ID})
	require.NoError(t, err)
	require.Equal(t, []queue.Request{env.ExtractTask(video.ID)}, next)
	require.Equal(t, 1, d.audio.calls)
	require.Equal(t, []whisper.Params{{
		Model:     "whisper-1",
		Language:  "en",
		AudioPath: filepath.Join(env.StorageDir, "ABC123", audioFileName),
	}}, d.transcriber.params)

	video, err = d.videos.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, "Boil the water and add a pinch of salt.", video.Transcript.PlainText())
	require.Equal(t, "en", video.TranscriptLanguage.String())

	// Second run reuses the audio and replaces the transcript.
	d.transcriber.out = &db.Transcript{Text: "Updated."}
	_, err = env.Transcribe(ctx, VideoPayload{VideoID: video.ID})
	require.NoError(t, err)
	require.Equal(t, 1, d.audio.calls)
	video, _ = d.videos.GetVideo(ctx, video.ID)
	require.Equal(t, "Updated.", video.Transcript.Text)
}

func TestTranscribe_DetectedLanguage(t *testing.T) {
	env, _ := newTestEnv(t)

	tr := &db.Transcript{Extra: map[string]json.RawMessage{"language": json.RawMessage(`"de"`)}}
	require.Equal(t, "de", env.transcriptLanguage(tr).String())

	tr.Extra["language"] = json.RawMessage(`"english"`)
	require.Equal(t, language.Und, env.transcriptLanguage(tr))
}

func TestTranscribe_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing video", func(t *testing.T) {
		env, _ := newTestEnv(t)
		_, err := env.Transcribe(ctx, VideoPayload{VideoID: 42})
		require.ErrorIs(t, err, ErrRecordNotFound)
		require.False(t, queue.IsRetryable(err))
	})

	t.Run("service error", func(t *testing.T) {
		env, d := newTestEnv(t)
		_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
		require.NoError(t, err)
		d.transcriber.err = &whisper.StatusError{StatusCode: 503, Body: "busy"}

		_, err = env.Transcribe(ctx, VideoPayload{VideoID: 1})
		require.ErrorIs(t, err, ErrUpstreamService)
		require.True(t, queue.IsRetryable(err))
	})

	t.Run("unexpected service answer", func(t *testing.T) {
		env, d := newTestEnv(t)
		_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
		require.NoError(t, err)
		d.transcriber.err = &whisper.ShapeError{Detail: "well-formed JSON without text or segments"}

		_, err = env.Transcribe(ctx, VideoPayload{VideoID: 1})
		require.True(t, queue.IsRetryable(err))
	})
}

// Extract runs on the caption alone when there is no transcript yet.
func TestExtract_CaptionOnly(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)

	next, err := env.Extract(ctx, VideoPayload{VideoID: 1})
	require.NoError(t, err)
	require.Empty(t, next)

	require.Len(t, d.completion.prompts, 1)
	require.Contains(t, d.completion.prompts[0], "Easy soup: boil water, add salt.")
	require.NotContains(t, d.completion.prompts[0], "Transcript:")

	recipes := d.videos.recipesFor(1)
	require.Len(t, recipes, 1)
	require.Equal(t, "Soup", recipes[0].Title)
	require.Equal(t, []string{"water", "salt"}, recipes[0].Ingredients)
}

func TestExtract_ReplaceOrAppend(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
	require.NoError(t, err)

	for range 2 {
		_, err = env.Extract(ctx, VideoPayload{VideoID: 1})
		require.NoError(t, err)
	}
	require.Len(t, d.videos.recipesFor(1), 1)

	env.ReplaceRecipes = false
	_, err = env.Extract(ctx, VideoPayload{VideoID: 1})
	require.NoError(t, err)
	require.Len(t, d.videos.recipesFor(1), 2)
}

func TestExtract_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing video", func(t *testing.T) {
		env, _ := newTestEnv(t)
		_, err := env.Extract(ctx, VideoPayload{VideoID: 9})
		require.ErrorIs(t, err, ErrRecordNotFound)
		require.False(t, queue.IsRetryable(err))
	})

	t.Run("unreadable model output", func(t *testing.T) {
		env, d := newTestEnv(t)
		_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
		require.NoError(t, err)
		d.completion.err = &completion.ShapeError{Stage: "normalize recipes", Err: errors.New("unexpected token")}

		_, err = env.Extract(ctx, VideoPayload{VideoID: 1})
		require.ErrorIs(t, err, ErrResponseShape)
		require.False(t, queue.IsRetryable(err))
	})

	t.Run("service status", func(t *testing.T) {
		env, d := newTestEnv(t)
		_, err := env.Fetch(ctx, FetchPayload{URL: "https://example.com/reel/ABC123/"})
		require.NoError(t, err)
		d.completion.err = &completion.StatusError{StatusCode: 502, Body: "bad gateway"}

		_, err = env.Extract(ctx, VideoPayload{VideoID: 1})
		require.ErrorIs(t, err, ErrUpstreamService)
		require.True(t, queue.IsRetryable(err))
	})
}

// One submission flows through every stage to stored recipes.
func TestRunner_FullPipeline(t *testing.T) {
	ctx := context.Background()
	env, d := newTestEnv(t)
	s := queue.NewMemoryStore()

	req, err := env.FetchTask("https://www.instagram.com/reel/ABC123/?igsh=abc")
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, req)
	require.NoError(t, err)

	pool := queue.NewPool(s, NewRunner(env), queue.PoolOptions{})
	for {
		err := pool.RunOnce(ctx)
		if errors.Is(err, queue.ErrNoTask) {
			break
		}
		require.NoError(t, err)
	}

	tasks := s.Tasks()
	require.Len(t, tasks, 3)
	for i, kind := range []string{KindFetch, KindTranscribe, KindExtract} {
		require.Equal(t, kind, tasks[i].Kind)
		require.Equal(t, queue.StateDone, tasks[i].State, tasks[i].LastError)
	}

	recipes := d.videos.recipesFor(1)
	require.Len(t, recipes, 1)
	require.Contains(t, d.completion.prompts[0], "Transcript:")
	require.Contains(t, d.completion.prompts[0], "pinch of salt")
}

func TestRunner_UnknownKindFails(t *testing.T) {
	ctx := context.Background()
	env, _ := newTestEnv(t)
	s := queue.NewMemoryStore()
	res, err := s.Enqueue(ctx, queue.Request{Kind: "summarize", UniqKey: "summarize:1", MaxRetries: 3})
	require.NoError(t, err)

	require.NoError(t, queue.NewPool(s, NewRunner(env), queue.PoolOptions{}).RunOnce(ctx))

	task, err := s.Get(ctx, res.TaskID)
	require.NoError(t, err)
	require.Equal(t, queue.StateFailed, task.State)
	require.Contains(t, task.LastError, "unknown task kind")
}

func TestRunner_BadPayloadFails(t *testing.T) {
	env, _ := newTestEnv(t)
	_, err := NewRunner(env).Handle(context.Background(), &queue.Task{Kind: KindExtract, Payload: json.RawMessage(`"seven"`)})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func mustTag(t *testing.T, s string) language.Tag {
	t.Helper()
	tag, err := language.Parse(s)
	require.NoError(t, err)
	return tag
}
