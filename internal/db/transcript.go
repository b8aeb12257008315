package db

import (
	"encoding/json"
	"strings"
)

// Segment is one timed span of a transcript.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the speech-to-text result stored on a video. Fields the
// service returns beyond text and segments are kept verbatim in Extra so they
// survive a round trip through the database.
type Transcript struct {
	Text     string                     `json:"text"`
	Segments []Segment                  `json:"segments"`
	Extra    map[string]json.RawMessage `json:"-"`
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Extra)+2)
	for k, v := range t.Extra {
		out[k] = v
	}

	text, err := json.Marshal(t.Text)
	if err != nil {
		return nil, err
	}
	segments := t.Segments
	if segments == nil {
		segments = []Segment{}
	}
	segs, err := json.Marshal(segments)
	if err != nil {
		return nil, err
	}
	out["text"] = text
	out["segments"] = segs
	return json.Marshal(out)
}

func (t *Transcript) UnmarshalJSON(data []byte) error {
	var known struct {
		Text     string    `json:"text"`
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "text")
	delete(all, "segments")
	if len(all) == 0 {
		all = nil
	}

	t.Text = known.Text
	t.Segments = known.Segments
	t.Extra = all
	return nil
}

// PlainText returns the transcript text, falling back to the joined segments.
func (t *Transcript) PlainText() string {
	if t == nil {
		return ""
	}
	if s := strings.TrimSpace(t.Text); s != "" {
		return s
	}
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if s := strings.TrimSpace(seg.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
