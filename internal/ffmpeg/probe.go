// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ZSC714725/rmvbconv/internal/logger"
)

// DefaultProbeTimeout bounds a single ffprobe invocation
const DefaultProbeTimeout = 30 * time.Second

// Seconds decodes ffprobe durations, which come as quoted strings or numbers.
// Anything unparsable (e.g. "N/A") decodes as 0.
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	str := strings.Trim(strings.TrimSpace(string(data)), `"`)
	x, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = Seconds(x)
	return nil
}

// MediaInfo is the subset of `ffprobe -show_format -show_streams` we use
type MediaInfo struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

// Format section of ffprobe output
type Format struct {
	Filename       string  `json:"filename"`
	FormatName     string  `json:"format_name"`
	FormatLongName string  `json:"format_long_name"`
	Duration       Seconds `json:"duration"`
	Size           string  `json:"size"`
	BitRate        string  `json:"bit_rate"`
	NbStreams      int     `json:"nb_streams"`
}

// Stream section of ffprobe output
type Stream struct {
	Index         int     `json:"index"`
	CodecName     string  `json:"codec_name"`
	CodecLongName string  `json:"codec_long_name"`
	CodecType     string  `json:"codec_type"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	AvgFrameRate  string  `json:"avg_frame_rate"`
	SampleRate    string  `json:"sample_rate"`
	Channels      int     `json:"channels"`
	Duration      Seconds `json:"duration"`
}

// Prober queries ffprobe for media metadata
type Prober struct {
	binary  string
	logger  logger.Logger
	Timeout time.Duration
}

// NewProber creates a prober for the given ffprobe binary
func NewProber(binary string, log logger.Logger) *Prober {
	if log == nil {
		log = logger.Nop()
	}
	return &Prober{binary: binary, logger: log, Timeout: DefaultProbeTimeout}
}

// Binary returns the ffprobe path in use
func (p *Prober) Binary() string {
	return p.binary
}

// Duration returns the container duration in seconds. Every failure collapses
// to false; the caller treats that as "progress unavailable".
func (p *Prober) Duration(ctx context.Context, path string) (float64, bool) {
	info, err := p.run(ctx, path, false)
	if err != nil {
		p.logger.Debug("probe duration of %s: %v", path, err)
		return 0, false
	}
	d := float64(info.Format.Duration)
	if d <= 0 {
		p.logger.Debug("probe duration of %s: no duration in format section", path)
		return 0, false
	}
	return d, true
}

// Info returns format and stream metadata
func (p *Prober) Info(ctx context.Context, path string) (*MediaInfo, error) {
	return p.run(ctx, path, true)
}

func (p *Prober) run(ctx context.Context, path string, streams bool) (*MediaInfo, error) {
	if p.binary == "" {
		return nil, fmt.Errorf("no ffprobe binary configured")
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-v", "quiet", "-print_format", "json", "-show_format"}
	if streams {
		args = append(args, "-show_streams")
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, p.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ffprobe timed out after %s", timeout)
		}
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	info := &MediaInfo{}
	if err := json.Unmarshal(stdout.Bytes(), info); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return info, nil
}
