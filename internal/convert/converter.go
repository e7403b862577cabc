// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具
//
// Package convert turns one RMVB file (or a directory of them) into H.264/AAC
// MP4 by probing the input and supervising an ffmpeg run.

package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZSC714725/rmvbconv/internal/ffmpeg"
	"github.com/ZSC714725/rmvbconv/internal/logger"
	"github.com/ZSC714725/rmvbconv/internal/process"
	"github.com/ZSC714725/rmvbconv/internal/task"
)

// ErrorPercent is the percentage of progress events that report a failure
const ErrorPercent = -1.0

// SourceExt is the extension conversion inputs are expected to have
const SourceExt = ".rmvb"

// ProgressFunc receives progress events. A percentage of ErrorPercent marks a
// failure; the message then carries the reason.
type ProgressFunc func(percent float64, message string)

// Prober reports the duration of a media file in seconds
type Prober interface {
	Duration(ctx context.Context, path string) (float64, bool)
}

// Runner runs one ffmpeg process to completion
type Runner interface {
	Run(ctx context.Context, config process.Config) (process.Outcome, error)
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, config process.Config) (process.Outcome, error)

func (f RunnerFunc) Run(ctx context.Context, config process.Config) (process.Outcome, error) {
	return f(ctx, config)
}

// Observer is notified about conversion milestones
type Observer interface {
	ObserveProbe(ok bool)
	ObserveStart()
	ObserveFinish(success bool, seconds float64)
	ObserveSkip()
}

// Request describes one conversion
type Request struct {
	Input string
	// Output defaults to Input with its extension replaced by .mp4
	Output    string
	Quality   string
	Overwrite bool
	// Reference groups tasks, e.g. all files of one batch
	Reference string
}

// Config for a Converter
type Config struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg".
	Binary   string
	Prober   Prober
	Runner   Runner
	Store    task.Store
	Observer Observer
	// Matcher selects batch inputs and decides the format warning.
	// Defaults to the .rmvb extension, ignoring case.
	Matcher ffmpeg.Matcher
	Logger  logger.Logger
}

// Converter converts files one at a time
type Converter struct {
	binary   string
	prober   Prober
	runner   Runner
	store    task.Store
	observer Observer
	matcher  ffmpeg.Matcher
	logger   logger.Logger
}

// New creates a converter
func New(config Config) *Converter {
	c := &Converter{
		binary:   config.Binary,
		prober:   config.Prober,
		runner:   config.Runner,
		store:    config.Store,
		observer: config.Observer,
		matcher:  config.Matcher,
		logger:   config.Logger,
	}

	if c.binary == "" {
		c.binary = "ffmpeg"
	}
	if c.runner == nil {
		c.runner = RunnerFunc(process.Run)
	}
	if c.store == nil {
		c.store = task.NewStore(nil)
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.matcher == nil {
		c.matcher = ffmpeg.NewExtensionMatcher(SourceExt)
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}

	return c
}

// Store returns the registry of conversion tasks
func (c *Converter) Store() task.Store {
	return c.store
}

// Convert runs one conversion and reports whether ffmpeg exited with code 0.
// It never panics; every failure is logged and, once ffmpeg is involved, also
// reported to progress as an ErrorPercent event.
func (c *Converter) Convert(ctx context.Context, req Request, progress ProgressFunc) bool {
	return c.Run(ctx, req, progress) == nil
}

// Run is Convert returning the reason of a failure
func (c *Converter) Run(ctx context.Context, req Request, progress ProgressFunc) (err error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	var t *task.Task
	running := false

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("conversion error: %v", r)
		c.logger.Error("converting %s: %v", req.Input, err)
		if running {
			c.observer.ObserveFinish(false, 0)
		}
		if t != nil {
			t.Progress(ErrorPercent, err.Error())
			if s := t.Status().State; s == task.StatePending || s == task.StateRunning {
				t.Finish(false, -1, "", 0)
			}
		}
		// the sink itself may be what panicked
		func() {
			defer func() { _ = recover() }()
			progress(ErrorPercent, err.Error())
		}()
	}()

	input := req.Input
	if _, statErr := os.Stat(input); statErr != nil {
		c.logger.Error("input file does not exist: %s", input)
		return fmt.Errorf("%w: %s", ErrInputNotFound, input)
	}

	if !c.matcher.Match(input) {
		c.logger.Warn("input file is not RMVB: %s", input)
	}

	output := req.Output
	if output == "" {
		output = OutputPath(input)
	}

	if _, statErr := os.Stat(output); statErr == nil && !req.Overwrite {
		c.logger.Error("output file already exists: %s, use overwrite to replace it", output)
		c.observer.ObserveSkip()
		return fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	if dir := filepath.Dir(output); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			c.logger.Error("create output dir %s: %v", dir, mkErr)
			return fmt.Errorf("create output dir: %w", mkErr)
		}
	}

	quality, settings, ok := LookupQuality(req.Quality)
	if !ok {
		c.logger.Warn("unknown quality %q, using %s", req.Quality, quality)
	}

	duration := 0.0
	if c.prober != nil {
		duration, ok = c.prober.Duration(ctx, input)
	} else {
		ok = false
	}
	c.observer.ObserveProbe(ok)
	if !ok {
		c.logger.Warn("cannot get video duration, progress may be inaccurate")
		duration = 0
	}

	t, err = c.store.Add(&task.Config{
		Reference: req.Reference,
		Input:     input,
		Output:    output,
		Quality:   string(quality),
		CRF:       settings.CRF,
		Preset:    settings.Preset,
		Overwrite: req.Overwrite,
	})
	if err != nil {
		c.logger.Error("register task for %s: %v", input, err)
		return err
	}
	log := c.logger.With(t.ID)

	report := func(pct float64, msg string) {
		t.Progress(pct, msg)
		progress(pct, msg)
	}

	log.Info("converting %s -> %s", input, output)
	log.Info("quality: %s (crf %d, preset %s)", quality, settings.CRF, settings.Preset)

	report(0, "starting conversion...")

	running = true
	c.observer.ObserveStart()

	outcome, runErr := c.runner.Run(ctx, process.Config{
		Binary:     c.binary,
		Args:       WithProgress(t.Config.CreateCommand()),
		Duration:   duration,
		OnProgress: process.ProgressFunc(report),
		OnStart:    t.Started,
		Parser:     t.Parser(),
		Monitor:    t.Monitor(),
		Logger:     log,
	})

	running = false
	success := runErr == nil && outcome.Success()
	c.observer.ObserveFinish(success, outcome.Elapsed.Seconds())

	if runErr != nil {
		log.Error("conversion error: %v", runErr)
		t.Finish(false, outcome.ExitCode, "", outcome.Elapsed)
		report(ErrorPercent, fmt.Sprintf("conversion error: %v", runErr))
		return runErr
	}

	t.Finish(success, outcome.ExitCode, outcome.Stderr, outcome.Elapsed)

	if !success {
		log.Error("conversion failed (exit code %d): %s", outcome.ExitCode, outcome.Stderr)
		report(ErrorPercent, "conversion failed: "+outcome.Stderr)
		return fmt.Errorf("%w: exit code %d: %s", ErrTranscodeFailed, outcome.ExitCode, strings.TrimSpace(outcome.Stderr))
	}

	log.Info("conversion succeeded: %s", output)
	report(100, "conversion complete!")
	return nil
}

// IsSkipped reports whether err means the conversion did not start because
// its output was already there
func IsSkipped(err error) bool {
	return errors.Is(err, ErrOutputExists)
}

type nopObserver struct{}

func (nopObserver) ObserveProbe(bool)           {}
func (nopObserver) ObserveStart()               {}
func (nopObserver) ObserveFinish(bool, float64) {}
func (nopObserver) ObserveSkip()                {}
