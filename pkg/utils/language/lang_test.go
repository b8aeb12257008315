package language

import (
	"database/sql/driver"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tag, err := Parse(" en ")
	require.NoError(t, err)
	require.Equal(t, "en", tag.String())

	tag, err = Parse("")
	require.NoError(t, err)
	require.Equal(t, Und, tag)

	_, err = Parse("not a language tag!")
	require.Error(t, err)
}

func TestTag_Scan_and_Value(t *testing.T) {
	var t1 Tag
	require.NoError(t, t1.Scan("en-US"))
	require.Equal(t, "en-US", t1.String())

	val, err := t1.Value()
	require.NoError(t, err)
	require.Equal(t, "en-US", val)

	// nil scan -> Und
	var t2 Tag
	require.NoError(t, t2.Scan(nil))
	require.Equal(t, Und, t2)

	v, err := t2.Value()
	require.NoError(t, err)
	require.Nil(t, v)

	require.Error(t, t2.Scan(42))

	// compile-time interface check
	var _ driver.Valuer = Und
}

func TestTag_ScanText_and_TextValue(t *testing.T) {
	var t1 Tag
	require.NoError(t, t1.ScanText(pgtype.Text{String: "fr", Valid: true}))
	require.Equal(t, "fr", t1.String())

	text, err := t1.TextValue()
	require.NoError(t, err)
	require.Equal(t, pgtype.Text{String: "fr", Valid: true}, text)

	var t2 Tag
	require.NoError(t, t2.ScanText(pgtype.Text{Valid: false}))
	require.Equal(t, Und, t2)
}

func TestTag_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Lang Tag `json:"lang"`
	}{Lang: Tag{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"lang":"und"}`, string(out))

	var in struct {
		Lang Tag `json:"lang"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"lang":"pt-BR"}`), &in))
	require.Equal(t, "pt-BR", in.Lang.String())
}
