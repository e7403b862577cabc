// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package parse

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// 匹配 time=00:01:23.45，同时覆盖 -progress 输出中的 out_time=
var reTime = regexp.MustCompile(`time=([0-9]+):([0-9]+):([0-9]+(?:\.[0-9]*)?)`)

// Time extracts the position of a `time=HH:MM:SS[.fraction]` marker in seconds.
// The hour field may have any width.
func Time(line string) (float64, bool) {
	m := reTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	mm, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return 0, false
	}
	s, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(mm)*60 + s, true
}

// IsEnd reports whether the line is the final `progress=end` record
func IsEnd(line string) bool {
	return strings.Contains(line, "progress=") && strings.Contains(line, "end")
}

// Percent converts a position into a percentage of duration, clamped to [0, 100].
// It returns false when duration is unknown.
func Percent(position, duration float64) (float64, bool) {
	if duration <= 0 {
		return 0, false
	}
	pct := position / duration * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, true
}

// Progress holds FFmpeg progress info parsed from the -progress stream
type Progress struct {
	Frame uint64  `json:"frame"`
	FPS   float64 `json:"fps"`
	Size  uint64  `json:"size_bytes"`
	Time  float64 `json:"time_seconds"`
	Speed float64 `json:"speed"`
	Drop  uint64  `json:"drop"`
	Dup   uint64  `json:"dup"`
	Done  bool    `json:"done"`
}

// Parser accumulates Progress from key=value lines
type Parser interface {
	Parse(line string)
	Progress() Progress
	ResetStats()
}

type parser struct {
	progress Progress
	lock     sync.RWMutex
}

// New creates a Parser
func New() Parser {
	return &parser{}
}

func (p *parser) Parse(line string) {
	line = strings.TrimSpace(line)
	i := strings.IndexByte(line, '=')
	if i <= 0 {
		return
	}
	key, value := line[:i], strings.TrimSpace(line[i+1:])

	p.lock.Lock()
	defer p.lock.Unlock()

	switch key {
	case "frame":
		if x, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.progress.Frame = x
		}
	case "fps":
		if x, err := strconv.ParseFloat(value, 64); err == nil {
			p.progress.FPS = x
		}
	case "total_size":
		if x, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.progress.Size = x
		}
	case "out_time", "time":
		if x, ok := Time(line); ok {
			p.progress.Time = x
		}
	case "out_time_us":
		if x, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.progress.Time = float64(x) / 1000000.0
		}
	case "speed":
		if x, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			p.progress.Speed = x
		}
	case "drop_frames":
		if x, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.progress.Drop = x
		}
	case "dup_frames":
		if x, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.progress.Dup = x
		}
	case "progress":
		p.progress.Done = value == "end"
	}
}

func (p *parser) ResetStats() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.progress = Progress{}
}

func (p *parser) Progress() Progress {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.progress
}
