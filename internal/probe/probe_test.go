package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParse(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001"},
			{"codec_type": "audio", "codec_name": "aac"}
		],
		"format": {"duration": "12.480000"}
	}`)

	res, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Duration != 12.48 {
		t.Errorf("Duration = %v, want 12.48", res.Duration)
	}
	if !res.HasVideo || !res.HasAudio || res.Codec != "h264" || res.AudioCodec != "aac" {
		t.Errorf("streams = %+v", res)
	}
	if res.Width != 1920 || res.Height != 1080 {
		t.Errorf("size = %dx%d", res.Width, res.Height)
	}
	if math.Abs(res.FrameRate-29.97) > 0.01 {
		t.Errorf("FrameRate = %v", res.FrameRate)
	}
}

func TestParseStreamDurationFallback(t *testing.T) {
	res, err := Parse([]byte(`{"streams": [{"codec_type": "audio", "codec_name": "mp3", "duration": "3.5"}], "format": {}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Duration != 3.5 || res.HasVideo {
		t.Errorf("res = %+v", res)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("Parse(garbage) error = nil")
	}
	if _, err := Parse([]byte(`{"streams": [], "format": {"duration": "N/A"}}`)); !errors.Is(err, ErrNoDuration) {
		t.Errorf("Parse(no duration) error = %v, want ErrNoDuration", err)
	}
}

func TestFFprobeMissingBinary(t *testing.T) {
	p := NewFFprobe(filepath.Join(t.TempDir(), "no-such-ffprobe"), 0, testLogger())
	if p.Available() {
		t.Error("Available() = true for missing binary")
	}
	if _, err := p.Probe(context.Background(), "clip.mp4"); err == nil {
		t.Error("Probe() with missing binary succeeded")
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	os.WriteFile(a, []byte("same content"), 0644)
	os.WriteFile(b, []byte("same content"), 0644)

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fb, _ := Fingerprint(b)
	if fa != fb || len(fa) != 64 {
		t.Errorf("fingerprints = %q, %q", fa, fb)
	}
	if _, err := Fingerprint(filepath.Join(dir, "missing")); err == nil {
		t.Error("Fingerprint(missing) error = nil")
	}
}

type countingProber struct {
	calls int
	res   *Result
	err   error
}

func (p *countingProber) Probe(context.Context, string) (*Result, error) {
	p.calls++
	return p.res, p.err
}

func TestCachedProber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	os.WriteFile(path, []byte("video"), 0644)

	inner := &countingProber{res: &Result{Duration: 7}}
	p := NewCachedProber(inner, NewMemoryCache(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := p.Probe(ctx, path)
		if err != nil || res.Duration != 7 {
			t.Fatalf("Probe() = %+v, %v", res, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}

	failing := NewCachedProber(&countingProber{err: errors.New("boom")}, NewMemoryCache(), testLogger())
	if _, err := failing.Probe(ctx, path); err == nil {
		t.Error("Probe() error = nil, want inner error")
	}
}
