// Package fileserver serves cached media from the storage directory.
package fileserver

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type etagEntry struct {
	size    int64
	modTime time.Time
	etag    string
}

// FileServer serves files under a root directory with weak ETags and Range
// support. ETags are memoized and dropped when size or modtime change.
type FileServer struct {
	root string

	mu    sync.RWMutex
	etags map[string]etagEntry
}

func NewFileServer(root string) *FileServer {
	return &FileServer{root: root, etags: make(map[string]etagEntry)}
}

// Contains reports whether path lies inside the served root.
func (fs *FileServer) Contains(path string) bool {
	root, err := filepath.Abs(fs.root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (fs *FileServer) etag(path string, info os.FileInfo) string {
	fs.mu.RLock()
	e, ok := fs.etags[path]
	fs.mu.RUnlock()
	if ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		return e.etag
	}

	tag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().Unix(), info.Size())
	fs.mu.Lock()
	fs.etags[path] = etagEntry{size: info.Size(), modTime: info.ModTime(), etag: tag}
	fs.mu.Unlock()
	return tag
}

// The system mime table often lacks video types.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// Serve writes the file at path. Paths outside the root and missing files
// are 404s.
func (fs *FileServer) Serve(c echo.Context, path string, cacheControl string) error {
	if !fs.Contains(path) {
		return echo.ErrNotFound
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return echo.ErrNotFound
	}

	etag := fs.etag(path, info)
	if inm := c.Request().Header.Get("If-None-Match"); inm != "" && strings.TrimSpace(inm) == etag {
		return c.NoContent(http.StatusNotModified)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, cacheControl)
	h.Set("ETag", etag)
	if ct := contentType(path); ct != "" {
		h.Set(echo.HeaderContentType, ct)
	}

	f, err := os.Open(path)
	if err != nil {
		return echo.ErrNotFound
	}
	defer f.Close()

	// http.ServeContent handles Range and If-Modified-Since for video players.
	http.ServeContent(c.Response(), c.Request(), filepath.Base(path), info.ModTime(), f)
	return nil
}
