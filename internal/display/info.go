// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package display

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ZSC714725/rmvbconv/internal/ffmpeg"
)

// Duration formats seconds as h:mm:ss
func Duration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d:%02d:%02d", h, m, d/time.Second)
}

// FileSize returns the humanized size of path, or "" if it cannot be read
func FileSize(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return humanize.Bytes(uint64(st.Size()))
}

// Info prints a media summary in the style of `ffprobe -show_format -show_streams`
func Info(w io.Writer, info *ffmpeg.MediaInfo) {
	f := info.Format
	fmt.Fprintf(w, "File:     %s\n", f.Filename)
	fmt.Fprintf(w, "Format:   %s", f.FormatName)
	if f.FormatLongName != "" {
		fmt.Fprintf(w, " (%s)", f.FormatLongName)
	}
	fmt.Fprintln(w)
	if f.Duration > 0 {
		fmt.Fprintf(w, "Duration: %s\n", Duration(float64(f.Duration)))
	}
	if size, err := strconv.ParseUint(f.Size, 10, 64); err == nil {
		fmt.Fprintf(w, "Size:     %s\n", humanize.Bytes(size))
	}
	if rate, err := strconv.ParseFloat(f.BitRate, 64); err == nil {
		fmt.Fprintf(w, "Bitrate:  %s\n", humanize.SIWithDigits(rate, 1, "b/s"))
	}

	for _, s := range info.Streams {
		fmt.Fprintf(w, "Stream #%d: %s %s", s.Index, s.CodecType, s.CodecName)
		switch strings.ToLower(s.CodecType) {
		case "video":
			if s.Width > 0 && s.Height > 0 {
				fmt.Fprintf(w, ", %dx%d", s.Width, s.Height)
			}
			if fps, ok := frameRate(s.AvgFrameRate); ok {
				fmt.Fprintf(w, ", %s fps", humanize.FtoaWithDigits(fps, 2))
			}
		case "audio":
			if s.SampleRate != "" {
				fmt.Fprintf(w, ", %s Hz", s.SampleRate)
			}
			if s.Channels > 0 {
				fmt.Fprintf(w, ", %d ch", s.Channels)
			}
		}
		fmt.Fprintln(w)
	}
}

// frameRate parses ffprobe rationals such as "24000/1001"
func frameRate(r string) (float64, bool) {
	num, den, found := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if !found {
		return n, n > 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, n > 0
}
