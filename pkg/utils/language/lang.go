// Package language wraps x/text/language tags so they can be stored in
// Postgres text columns and encoded as JSON.
package language

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
)

type Tag language.Tag

// Und is the undetermined language.
var Und = Tag(language.Und)

// Parse reads a BCP 47 tag ("en", "pt-BR"). Blank input yields Und.
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Und, nil
	}
	t, err := language.Parse(s)
	if err != nil {
		return Und, fmt.Errorf("language: parse %q: %w", s, err)
	}
	return Tag(t), nil
}

func (t Tag) String() string {
	return language.Tag(t).String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan implements the sql.Scanner interface.
func (t *Tag) Scan(value any) error {
	if value == nil {
		*t = Und
		return nil
	}

	tag, ok := value.(string)
	if !ok {
		return fmt.Errorf("language.Tag.Scan: expected string, got %T", value)
	}
	return t.UnmarshalText([]byte(tag))
}

// Value implements the driver.Valuer interface.
func (t Tag) Value() (driver.Value, error) {
	if t == Und {
		return nil, nil
	}
	return t.String(), nil
}

// ScanText implements the pgtype.TextScanner interface for pgx v5.
func (t *Tag) ScanText(v pgtype.Text) error {
	if !v.Valid {
		*t = Und
		return nil
	}
	return t.UnmarshalText([]byte(v.String))
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (t Tag) TextValue() (pgtype.Text, error) {
	if t == Und {
		return pgtype.Text{Valid: false}, nil
	}
	return pgtype.Text{String: t.String(), Valid: true}, nil
}
