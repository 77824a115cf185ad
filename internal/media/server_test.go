package media

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestServeContent(t *testing.T) {
	body := "0123456789"
	tests := []struct {
		name       string
		rangeHdr   string
		wantStatus int
		wantBody   string
		wantRange  string
	}{
		{"no range", "", http.StatusOK, body, ""},
		{"partial", "bytes=2-5", http.StatusPartialContent, "2345", "bytes 2-5/10"},
		{"suffix", "bytes=-3", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"malformed ignored", "pages=1", http.StatusOK, body, ""},
		{"unsatisfiable", "bytes=20-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */10"},
	}

	s := NewServer(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/media", nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rec := httptest.NewRecorder()

			if err := s.ServeContent(rec, req, "clip.mp4", strings.NewReader(body), int64(len(body))); err != nil {
				t.Fatalf("ServeContent() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
				t.Errorf("Accept-Ranges = %q", got)
			}
		})
	}
}

func TestServeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewServer(testLogger())

	req := httptest.NewRequest(http.MethodGet, "/media", nil)
	req.Header.Set("Range", "bytes=5-9")
	rec := httptest.NewRecorder()
	if err := s.ServeFile(rec, req, path); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "video" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}

	rec = httptest.NewRecorder()
	if err := s.ServeFile(rec, httptest.NewRequest(http.MethodGet, "/media", nil), filepath.Join(dir, "gone.mp4")); err != nil {
		t.Fatalf("ServeFile(missing) error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", rec.Code)
	}
}
