package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownload_FindsMediaAndSidecar(t *testing.T) {
	dir := t.TempDir()
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		require.Equal(t, "https://example.com/reel/ABC123/", args[len(args)-1])
		require.Contains(t, args, "--write-info-json")
		require.Contains(t, args, "--no-playlist")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.mp4"), []byte("video"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.info.json"), []byte(`{"id":"ABC123"}`), 0o644))
		return nil, nil, nil
	}

	res, err := c.Download(context.Background(), "https://example.com/reel/ABC123/", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "reel.mp4"), res.MediaPath)
	require.Equal(t, filepath.Join(dir, "reel.info.json"), res.InfoPath)
}

func TestDownload_RequiresURLAndDir(t *testing.T) {
	c := New()
	_, err := c.Download(context.Background(), " ", t.TempDir())
	require.Error(t, err)
	_, err = c.Download(context.Background(), "https://example.com/reel/X/", "")
	require.Error(t, err)
}

func TestDownload_NonZeroExit(t *testing.T) {
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("ERROR: Unsupported URL"), exitErr{code: 1}
	}

	_, err := c.Download(context.Background(), "https://example.com/reel/X/", t.TempDir())
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 1, ee.ExitCode)
	require.Equal(t, "ERROR: Unsupported URL", ee.Stderr)
}

func TestFindDownload_SkipsPartialFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := FindDownload(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.info.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.mp4.part"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.mp4.partial"), []byte("x"), 0o644))
	_, err = FindDownload(dir)
	require.ErrorContains(t, err, "no media file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "reel.webm"), []byte("x"), 0o644))
	res, err := FindDownload(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "reel.webm"), res.MediaPath)
}
