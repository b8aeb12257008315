package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DownloadBaseName is the file stem Download asks yt-dlp to write under.
const DownloadBaseName = "reel"

// Result names the files a download produced.
type Result struct {
	MediaPath string
	InfoPath  string
}

// Download fetches url into destDir together with its metadata sidecar:
//
//	<destDir>/reel.<ext>
//	<destDir>/reel.info.json
//
// destDir should be empty so the produced pair can be found unambiguously.
func (c *Client) Download(ctx context.Context, url string, destDir string, extraArgs ...string) (*Result, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return nil, fmt.Errorf("ytdlp: destDir is required")
	}

	args := []string{
		"-o", filepath.Join(destDir, DownloadBaseName+".%(ext)s"),
		"--write-info-json",
		"--no-playlist",
		"--no-colors",
		"--format", "best[ext=mp4]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best",
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	if _, err := c.run(ctx, args...); err != nil {
		return nil, err
	}

	return FindDownload(destDir)
}

// FindDownload locates the media file and sidecar written by Download.
func FindDownload(dir string) (*Result, error) {
	res := &Result{InfoPath: filepath.Join(dir, DownloadBaseName+".info.json")}
	if _, err := os.Stat(res.InfoPath); err != nil {
		return nil, fmt.Errorf("ytdlp: metadata sidecar missing: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, DownloadBaseName+".*"))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		name := filepath.Base(m)
		if strings.HasSuffix(name, ".info.json") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".partial") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		res.MediaPath = m
		break
	}
	if res.MediaPath == "" {
		return nil, fmt.Errorf("ytdlp: no media file in %s", dir)
	}
	return res, nil
}
