package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// SourceInfo is the downloader's metadata sidecar stored in a JSONB column.
// Bulky keys that carry no meaning for recipes are dropped on the way in.
type SourceInfo map[string]any

var droppedInfoKeys = []string{
	"formats",
	"requested_formats",
	"requested_downloads",
	"thumbnails",
	"automatic_captions",
	"subtitles",
	"http_headers",
}

// ParseSourceInfo decodes a metadata sidecar.
func ParseSourceInfo(raw []byte) (SourceInfo, error) {
	var m SourceInfo
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse source info: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("parse source info: expected a JSON object")
	}
	for _, k := range droppedInfoKeys {
		delete(m, k)
	}
	return m, nil
}

func (s SourceInfo) str(key string) string {
	if v, ok := s[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Caption is the post text written by the uploader.
func (s SourceInfo) Caption() string { return s.str("description") }

func (s SourceInfo) Title() string { return s.str("title") }

func (s SourceInfo) Uploader() string {
	if v := s.str("uploader"); v != "" {
		return v
	}
	return s.str("channel")
}

// Scan implements sql.Scanner for reading from the database.
func (s *SourceInfo) Scan(value any) error {
	if value == nil {
		*s = SourceInfo{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("db.SourceInfo.Scan: expected []byte or string, got %T", value)
	}
}

// Value implements driver.Valuer for writing to the database.
func (s SourceInfo) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(s))
}

// ScanText implements the pgtype.TextScanner interface for pgx v5.
func (s *SourceInfo) ScanText(v pgtype.Text) error {
	if !v.Valid {
		*s = SourceInfo{}
		return nil
	}
	return json.Unmarshal([]byte(v.String), s)
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (s SourceInfo) TextValue() (pgtype.Text, error) {
	if s == nil {
		return pgtype.Text{String: "{}", Valid: true}, nil
	}
	b, err := json.Marshal(map[string]any(s))
	if err != nil {
		return pgtype.Text{}, err
	}
	return pgtype.Text{String: string(b), Valid: true}, nil
}
