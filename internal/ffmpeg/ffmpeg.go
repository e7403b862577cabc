// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZSC714725/rmvbconv/internal/ffmpeg/skills"
	"github.com/ZSC714725/rmvbconv/internal/logger"
)

// DefaultCheckTimeout bounds the startup `ffmpeg -version` check
const DefaultCheckTimeout = 10 * time.Second

// FFmpeg holds the resolved ffmpeg/ffprobe binaries and their skills
type FFmpeg interface {
	Binary() string
	Prober() *Prober
	Skills() skills.Skills
	ReloadSkills(ctx context.Context) error
}

// Config for FFmpeg
type Config struct {
	Binary string
	// ProbeBinary is optional; see resolveProbe
	ProbeBinary  string
	CheckTimeout time.Duration
	Logger       logger.Logger
}

type ffmpeg struct {
	binary       string
	prober       *Prober
	checkTimeout time.Duration
	skills       skills.Skills
	skillsLock   sync.RWMutex
}

// New resolves the binaries and checks that ffmpeg runs. Any error here is a
// configuration error.
func New(config Config) (FFmpeg, error) {
	if config.Binary == "" {
		config.Binary = "ffmpeg"
	}
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	f := &ffmpeg{
		binary:       binary,
		checkTimeout: config.CheckTimeout,
	}
	if f.checkTimeout <= 0 {
		f.checkTimeout = DefaultCheckTimeout
	}

	if err := f.ReloadSkills(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid ffmpeg: %w", err)
	}

	probe, err := resolveProbe(config.ProbeBinary, binary)
	if err != nil {
		log.Warn("ffprobe not found (%v), progress percentage will be unavailable", err)
	}
	f.prober = NewProber(probe, log.With("ffprobe"))

	return f, nil
}

func (f *ffmpeg) Binary() string {
	return f.binary
}

func (f *ffmpeg) Prober() *Prober {
	return f.prober
}

func (f *ffmpeg) Skills() skills.Skills {
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return f.skills
}

func (f *ffmpeg) ReloadSkills(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, f.checkTimeout)
	defer cancel()

	s, err := skills.New(ctx, f.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	f.skillsLock.Lock()
	f.skills = s
	f.skillsLock.Unlock()
	return nil
}

// resolveProbe picks the ffprobe binary: the explicit path if given, else an
// ffprobe next to the ffmpeg binary, else ffprobe from $PATH.
func resolveProbe(explicit, ffmpegBinary string) (string, error) {
	if explicit != "" {
		return exec.LookPath(explicit)
	}

	sibling := filepath.Join(filepath.Dir(ffmpegBinary), "ffprobe"+filepath.Ext(ffmpegBinary))
	if st, err := os.Stat(sibling); err == nil && !st.IsDir() {
		return sibling, nil
	}

	return exec.LookPath("ffprobe")
}
