// Package probe reads media durations and stream details with ffprobe.
package probe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const fingerprintSize = 64 * 1024

// ErrNoDuration is returned when a file has no readable duration.
var ErrNoDuration = errors.New("media has no duration")

// Result describes a probed media file.
type Result struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Codec      string  `json:"codec,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	HasVideo   bool    `json:"has_video"`
	HasAudio   bool    `json:"has_audio"`
}

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Result, error)
}

// FFprobe runs the ffprobe binary.
type FFprobe struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFprobe returns a prober using binary, bounded by timeout per call.
func NewFFprobe(binary string, timeout time.Duration, logger *slog.Logger) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary, timeout: timeout, logger: logger}
}

// Available reports whether the ffprobe binary can be found.
func (f *FFprobe) Available() bool {
	_, err := exec.LookPath(f.binary)
	return err == nil
}

func (f *FFprobe) Probe(ctx context.Context, path string) (*Result, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	res, err := Parse(out)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	if f.logger != nil {
		f.logger.Debug("probed media", "path", path, "duration", res.Duration, "codec", res.Codec)
	}
	return res, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// Parse decodes ffprobe's JSON output.
func Parse(data []byte) (*Result, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	res := &Result{}
	res.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if res.HasVideo {
				continue
			}
			res.HasVideo = true
			res.Codec = s.CodecName
			res.Width = s.Width
			res.Height = s.Height
			res.FrameRate = parseRate(s.AvgFrameRate)
		case "audio":
			if res.HasAudio {
				continue
			}
			res.HasAudio = true
			res.AudioCodec = s.CodecName
		}
		if res.Duration <= 0 {
			res.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		}
	}

	if !(res.Duration > 0) {
		return nil, ErrNoDuration
	}
	return res, nil
}

// parseRate reads ffprobe rates such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// Fingerprint hashes the first 64KB of a file. It identifies media content
// cheaply enough to key caches by.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, io.LimitReader(f, fingerprintSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
