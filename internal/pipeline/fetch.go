package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/queue"
	"thirdcoast.systems/reelrecipes/internal/videoid"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

// Fetch downloads a reel with its metadata sidecar, stores the video and
// hands it on to transcription. Files already on disk are reused without
// running the downloader. A video that is already stored is not fetched again,
// but one without a transcript is handed on again so a crash between storing
// the video and completing this task cannot strand it.
func (e *Env) Fetch(ctx context.Context, p FetchPayload) ([]queue.Request, error) {
	reel, err := videoid.ParseReelURL(p.URL)
	if err != nil {
		return nil, stageErr(ErrInvalidInput, KindFetch, fmt.Errorf("%q: %w", p.URL, err))
	}

	existing, err := e.Videos.GetVideoByExternalID(ctx, reel.ExternalID)
	switch {
	case err == nil:
		slog.Info("video already fetched", "external_id", reel.ExternalID, "video_id", existing.ID)
		if existing.Transcript == nil {
			return []queue.Request{e.TranscribeTask(existing.ID)}, nil
		}
		return nil, nil
	case !errors.Is(err, ErrVideoNotFound):
		return nil, stageErr(ErrStore, KindFetch, err)
	}

	dir := e.videoDir(reel.ExternalID)
	files, err := ytdlp.FindDownload(dir)
	if err == nil {
		slog.Info("reusing downloaded reel", "external_id", reel.ExternalID, "media_path", files.MediaPath)
	} else {
		files, err = e.download(ctx, reel.URL, dir)
		if err != nil {
			return nil, err
		}
	}

	raw, err := os.ReadFile(files.InfoPath)
	if err != nil {
		return nil, stageErr(ErrExternalTool, KindFetch, fmt.Errorf("read metadata sidecar: %w", err))
	}
	info, err := db.ParseSourceInfo(raw)
	if err != nil {
		// Drop the cache so the next attempt downloads a fresh copy.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("failed to remove unreadable download", "dir", dir, "error", rmErr)
		}
		return nil, stageErr(ErrExternalTool, KindFetch, fmt.Errorf("parse metadata sidecar: %w", err))
	}

	video, err := e.Videos.CreateVideo(ctx, &db.InsertVideoParams{
		ExternalID: reel.ExternalID,
		SourceURL:  reel.URL,
		MediaPath:  files.MediaPath,
		Info:       info,
	})
	if err != nil {
		return nil, stageErr(ErrStore, KindFetch, err)
	}

	slog.Info("video stored", "video_id", video.ID, "external_id", video.ExternalID, "title", info.Title(), "uploader", info.Uploader())
	return []queue.Request{e.TranscribeTask(video.ID)}, nil
}

// download runs the downloader in a private spool directory and moves the
// result into dir once both files exist.
func (e *Env) download(ctx context.Context, url, dir string) (*ytdlp.Result, error) {
	spool := filepath.Join(e.spoolDir(), uuid.NewString())
	if err := os.MkdirAll(spool, 0o755); err != nil {
		return nil, stageErr(ErrExternalTool, KindFetch, fmt.Errorf("create spool dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(spool); err != nil {
			slog.Warn("failed to clean spool dir", "dir", spool, "error", err)
		}
	}()

	res, err := e.Downloader.Download(ctx, url, spool, e.DownloadArgs...)
	if err != nil {
		return nil, classify(KindFetch, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, stageErr(ErrExternalTool, KindFetch, fmt.Errorf("create video dir: %w", err))
	}
	// Media first: the sidecar marks the pair as complete for FindDownload.
	out := &ytdlp.Result{
		MediaPath: filepath.Join(dir, filepath.Base(res.MediaPath)),
		InfoPath:  filepath.Join(dir, filepath.Base(res.InfoPath)),
	}
	if err := moveOrCopyFile(res.MediaPath, out.MediaPath); err != nil {
		return nil, stageErr(ErrExternalTool, KindFetch, fmt.Errorf("move media: %w", err))
	}
	if err := moveOrCopyFile(res.InfoPath, out.InfoPath); err != nil {
		return nil, stageErr(ErrExternalTool, KindFetch, fmt.Errorf("move metadata sidecar: %w", err))
	}

	if st, err := os.Stat(out.MediaPath); err == nil {
		slog.Info("reel downloaded", "url", url, "media_path", out.MediaPath, "size", humanize.Bytes(uint64(st.Size())))
	}
	return out, nil
}

func moveOrCopyFile(srcPath, destPath string) error {
	if err := os.Rename(srcPath, destPath); err == nil {
		return nil
	}
	if err := copyFile(srcPath, destPath); err != nil {
		return err
	}
	_ = os.Remove(srcPath)
	return nil
}

// copyFile writes dst under a temporary name so a crash never leaves a
// truncated file at dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
