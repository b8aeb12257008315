package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"thirdcoast.systems/reelrecipes/internal/completion"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/whisper"
	"thirdcoast.systems/reelrecipes/pkg/utils/language"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

type memVideos struct {
	mu      sync.Mutex
	nextID  int64
	videos  map[int64]*db.Video
	recipes []*db.Recipe
}

func newMemVideos() *memVideos {
	return &memVideos{videos: map[int64]*db.Video{}}
}

func (m *memVideos) GetVideo(_ context.Context, id int64) (*db.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, ErrVideoNotFound
	}
	c := *v
	return &c, nil
}

func (m *memVideos) GetVideoByExternalID(_ context.Context, externalID string) (*db.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.videos {
		if v.ExternalID == externalID {
			c := *v
			return &c, nil
		}
	}
	return nil, ErrVideoNotFound
}

func (m *memVideos) CreateVideo(_ context.Context, arg *db.InsertVideoParams) (*db.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.videos {
		if v.ExternalID == arg.ExternalID {
			return v, nil
		}
	}
	m.nextID++
	v := &db.Video{
		ID:         m.nextID,
		ExternalID: arg.ExternalID,
		SourceURL:  arg.SourceURL,
		MediaPath:  arg.MediaPath,
		Info:       arg.Info,
	}
	m.videos[v.ID] = v
	return v, nil
}

func (m *memVideos) SetTranscript(_ context.Context, videoID int64, t *db.Transcript, lang language.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok {
		return ErrVideoNotFound
	}
	v.Transcript = t
	v.TranscriptLanguage = lang
	return nil
}

func (m *memVideos) SaveRecipes(_ context.Context, videoID int64, recipes []completion.Recipe, generatedAt time.Time, replace bool) ([]*db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if replace {
		kept := m.recipes[:0]
		for _, r := range m.recipes {
			if r.VideoID != videoID {
				kept = append(kept, r)
			}
		}
		m.recipes = kept
	}
	var out []*db.Recipe
	for _, r := range recipes {
		row := &db.Recipe{
			ID:           int64(len(m.recipes) + 1),
			VideoID:      videoID,
			Title:        r.Title,
			Ingredients:  r.Ingredients,
			Instructions: r.Instructions,
			GeneratedAt:  db.Timestamptz(generatedAt),
		}
		m.recipes = append(m.recipes, row)
		out = append(out, row)
	}
	return out, nil
}

func (m *memVideos) recipesFor(videoID int64) []*db.Recipe {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.Recipe
	for _, r := range m.recipes {
		if r.VideoID == videoID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

const testInfoJSON = `{"id":"ABC123","title":"Weeknight soup","description":"Easy soup: boil water, add salt.","uploader":"chef","formats":[{"format_id":"1"}]}`

// fakeDownloader writes the media/sidecar pair like yt-dlp, or fails with err.
type fakeDownloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, url string, destDir string, _ ...string) (*ytdlp.Result, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	res := &ytdlp.Result{
		MediaPath: filepath.Join(destDir, ytdlp.DownloadBaseName+".mp4"),
		InfoPath:  filepath.Join(destDir, ytdlp.DownloadBaseName+".info.json"),
	}
	if err := os.WriteFile(res.MediaPath, []byte("video bytes"), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.InfoPath, []byte(testInfoJSON), 0o644); err != nil {
		return nil, err
	}
	return res, nil
}

func (f *fakeDownloader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAudio struct {
	calls int
	err   error
}

func (f *fakeAudio) ExtractSpeechAudio(_ context.Context, input, output string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("mp3 of "+filepath.Base(input)), 0o644)
}

type fakeTranscriber struct {
	params []whisper.Params
	out    *db.Transcript
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, p whisper.Params) (*db.Transcript, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeCompletion struct {
	prompts []string
	out     []completion.Recipe
	err     error
}

func (f *fakeCompletion) Extract(_ context.Context, prompt string) ([]completion.Recipe, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type testDeps struct {
	videos      *memVideos
	downloader  *fakeDownloader
	audio       *fakeAudio
	transcriber *fakeTranscriber
	completion  *fakeCompletion
}

func newTestEnv(t *testing.T) (*Env, *testDeps) {
	t.Helper()
	d := &testDeps{
		videos:     newMemVideos(),
		downloader: &fakeDownloader{},
		audio:      &fakeAudio{},
		transcriber: &fakeTranscriber{out: &db.Transcript{
			Text:     "Boil the water and add a pinch of salt.",
			Segments: []db.Segment{{ID: 0, Start: 0, End: 2.5, Text: "Boil the water and add a pinch of salt."}},
		}},
		completion: &fakeCompletion{out: []completion.Recipe{
			{Title: "Soup", Ingredients: []string{"water", "salt"}, Instructions: []string{"boil", "season"}},
		}},
	}
	env := &Env{
		Videos:         d.videos,
		Downloader:     d.downloader,
		Audio:          d.audio,
		Transcriber:    d.transcriber,
		Completion:     d.completion,
		Prompt:         DefaultPromptTemplate(),
		StorageDir:     t.TempDir(),
		WhisperModel:   "whisper-1",
		Retries:        DefaultRetryPolicy(),
		ReplaceRecipes: true,
	}
	return env, d
}
