package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// ContentType guesses the MIME type of a media file from its name.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Streamer writes media content to a response, honoring Range requests.
type Streamer interface {
	ServeFile(w http.ResponseWriter, r *http.Request, path string) error
	ServeContent(w http.ResponseWriter, r *http.Request, name string, content io.ReadSeeker, size int64) error
}

// Server is the default Streamer.
type Server struct {
	logger *slog.Logger
}

// NewServer returns a Server.
func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

// ServeFile streams the file at path. A missing file is answered with 404.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "media not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat media: %w", err)
	}
	return s.ServeContent(w, r, path, f, info.Size())
}

// ServeContent streams size bytes of content. name is used only to pick
// the Content-Type.
func (s *Server) ServeContent(w http.ResponseWriter, r *http.Request, name string, content io.ReadSeeker, size int64) error {
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", ContentType(name))

	span, err := ParseByteRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrMalformedRange):
		// Ignore a bad header and send the whole resource.
		span = nil
	case err != nil:
		return err
	}

	if span == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		if _, err := io.Copy(w, content); err != nil && s.logger != nil {
			s.logger.Debug("media copy interrupted", "error", err)
		}
		return nil
	}

	if _, err := content.Seek(span.First, io.SeekStart); err != nil {
		return fmt.Errorf("seek media: %w", err)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(span.Len(), 10))
	w.Header().Set("Content-Range", span.Header(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := io.CopyN(w, content, span.Len()); err != nil && s.logger != nil {
		s.logger.Debug("media copy interrupted", "error", err)
	}
	return nil
}
