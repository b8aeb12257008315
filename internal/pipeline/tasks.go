package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"

	"thirdcoast.systems/reelrecipes/internal/queue"
	"thirdcoast.systems/reelrecipes/internal/videoid"
)

// Task kinds.
const (
	KindFetch      = "fetch_reel"
	KindTranscribe = "extract_transcript"
	KindExtract    = "extract_recipes"
)

type FetchPayload struct {
	URL string `json:"url"`
}

// VideoPayload is the payload of transcribe and extract tasks.
type VideoPayload struct {
	VideoID int64 `json:"video_id"`
}

// FetchTask validates rawURL and builds the fetch request for it. The
// uniqueness key is derived from the external id, so differently spelled
// URLs for the same reel collapse into one task.
func (e *Env) FetchTask(rawURL string) (queue.Request, error) {
	reel, err := videoid.ParseReelURL(rawURL)
	if err != nil {
		return queue.Request{}, stageErr(ErrInvalidInput, KindFetch, fmt.Errorf("%q: %w", rawURL, err))
	}
	return queue.Request{
		Kind:       KindFetch,
		Payload:    mustJSON(FetchPayload{URL: reel.URL}),
		UniqKey:    KindFetch + ":" + reel.ExternalID,
		MaxRetries: e.Retries.Fetch,
	}, nil
}

func (e *Env) TranscribeTask(videoID int64) queue.Request {
	return videoTask(KindTranscribe, videoID, e.Retries.Transcribe)
}

func (e *Env) ExtractTask(videoID int64) queue.Request {
	return videoTask(KindExtract, videoID, e.Retries.Extract)
}

func videoTask(kind string, videoID int64, maxRetries int) queue.Request {
	return queue.Request{
		Kind:       kind,
		Payload:    mustJSON(VideoPayload{VideoID: videoID}),
		UniqKey:    kind + ":" + strconv.FormatInt(videoID, 10),
		MaxRetries: maxRetries,
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func decodePayload(stage string, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return stageErr(ErrInvalidInput, stage, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}
