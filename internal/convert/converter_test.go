// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/rmvbconv/internal/process"
	"github.com/ZSC714725/rmvbconv/internal/task"
)

type spyProber struct {
	duration float64
	ok       bool
	calls    []string
}

func (p *spyProber) Duration(ctx context.Context, path string) (float64, bool) {
	p.calls = append(p.calls, path)
	return p.duration, p.ok
}

type spyRunner struct {
	mu      sync.Mutex
	configs []process.Config
	outcome process.Outcome
	err     error
	// run is called instead of returning outcome/err when set
	run func(config process.Config) (process.Outcome, error)
}

func (r *spyRunner) Run(ctx context.Context, config process.Config) (process.Outcome, error) {
	r.mu.Lock()
	r.configs = append(r.configs, config)
	r.mu.Unlock()
	if r.run != nil {
		return r.run(config)
	}
	return r.outcome, r.err
}

func (r *spyRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

type event struct {
	percent float64
	message string
}

type recorder struct {
	events []event
}

func (r *recorder) progress(percent float64, message string) {
	r.events = append(r.events, event{percent, message})
}

func (r *recorder) last() event {
	if len(r.events) == 0 {
		return event{}
	}
	return r.events[len(r.events)-1]
}

type spyObserver struct {
	probes, starts, skips int
	finished              []bool
}

func (o *spyObserver) ObserveProbe(ok bool) { o.probes++ }
func (o *spyObserver) ObserveStart()        { o.starts++ }
func (o *spyObserver) ObserveFinish(success bool, seconds float64) {
	o.finished = append(o.finished, success)
}
func (o *spyObserver) ObserveSkip() { o.skips++ }

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func newTestConverter(prober *spyProber, runner *spyRunner) (*Converter, *spyObserver) {
	obs := &spyObserver{}
	return New(Config{
		Binary:   "/usr/bin/ffmpeg",
		Prober:   prober,
		Runner:   runner,
		Observer: obs,
	}), obs
}

func TestConvertMissingInput(t *testing.T) {
	prober := &spyProber{duration: 10, ok: true}
	runner := &spyRunner{}
	c, _ := newTestConverter(prober, runner)
	rec := &recorder{}

	err := c.Run(context.Background(), Request{Input: filepath.Join(t.TempDir(), "missing.rmvb")}, rec.progress)

	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.Empty(t, prober.calls)
	assert.Zero(t, runner.calls())
	assert.Empty(t, rec.events)
}

func TestConvertOutputExists(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))
	touch(t, filepath.Join(dir, "movie.mp4"))

	runner := &spyRunner{}
	c, obs := newTestConverter(&spyProber{ok: true, duration: 1}, runner)

	ok := c.Convert(context.Background(), Request{Input: in}, nil)
	assert.False(t, ok)
	assert.Zero(t, runner.calls())
	assert.Equal(t, 1, obs.skips)

	err := c.Run(context.Background(), Request{Input: in}, nil)
	assert.True(t, IsSkipped(err))
}

func TestConvertSuccess(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	prober := &spyProber{duration: 5400.25, ok: true}
	runner := &spyRunner{outcome: process.Outcome{ExitCode: 0, Elapsed: 2 * time.Second}}
	c, obs := newTestConverter(prober, runner)
	rec := &recorder{}

	ok := c.Convert(context.Background(), Request{Input: in}, rec.progress)
	require.True(t, ok)

	assert.Equal(t, []string{in}, prober.calls)
	require.Equal(t, 1, runner.calls())

	cfg := runner.configs[0]
	out := filepath.Join(dir, "movie.mp4")
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.Binary)
	assert.Equal(t, 5400.25, cfg.Duration)
	assert.Equal(t, []string{
		"-i", in,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-crf", "23",
		"-preset", "medium",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		out,
	}, cfg.Args)

	require.Len(t, rec.events, 2)
	assert.Equal(t, 0.0, rec.events[0].percent)
	assert.Equal(t, 100.0, rec.last().percent)

	assert.Equal(t, 1, obs.probes)
	assert.Equal(t, 1, obs.starts)
	assert.Equal(t, []bool{true}, obs.finished)

	tasks := c.Store().List(nil, "")
	require.Len(t, tasks, 1)
	st := tasks[0].Status()
	assert.Equal(t, task.StateFinished, st.State)
	assert.Equal(t, 100.0, st.Percent)
	assert.Equal(t, out, tasks[0].Config.Output)
}

func TestConvertFailureCarriesStderr(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	runner := &spyRunner{outcome: process.Outcome{ExitCode: 1, Stderr: "X"}}
	c, obs := newTestConverter(&spyProber{ok: true, duration: 10}, runner)
	rec := &recorder{}

	err := c.Run(context.Background(), Request{Input: in}, rec.progress)
	require.ErrorIs(t, err, ErrTranscodeFailed)
	assert.Contains(t, err.Error(), "X")

	last := rec.last()
	assert.Equal(t, ErrorPercent, last.percent)
	assert.Contains(t, last.message, "X")
	assert.Equal(t, []bool{false}, obs.finished)

	st := c.Store().List(nil, "")[0].Status()
	assert.Equal(t, task.StateFailed, st.State)
	assert.Equal(t, 1, st.ExitCode)
	assert.Equal(t, "X", st.Stderr)
}

func TestConvertOverwriteAndQuality(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))
	out := touch(t, filepath.Join(dir, "custom", "out.mp4"))

	runner := &spyRunner{}
	c, _ := newTestConverter(&spyProber{ok: true, duration: 10}, runner)

	ok := c.Convert(context.Background(), Request{Input: in, Output: out, Quality: "high", Overwrite: true}, nil)
	require.True(t, ok)

	args := runner.configs[0].Args
	assert.Equal(t, []string{"-crf", "18", "-preset", "slow"}, args[6:10])
	assert.Equal(t, []string{"-y", "-progress", "pipe:1", out}, args[len(args)-4:])
}

func TestConvertUnknownQualityFallsBack(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	runner := &spyRunner{}
	c, _ := newTestConverter(&spyProber{ok: true, duration: 10}, runner)

	require.True(t, c.Convert(context.Background(), Request{Input: in, Quality: "ultra"}, nil))
	assert.Equal(t, []string{"-crf", "23", "-preset", "medium"}, runner.configs[0].Args[6:10])
}

func TestConvertUnknownDurationStillRuns(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.avi"))

	runner := &spyRunner{}
	c, obs := newTestConverter(&spyProber{ok: false, duration: 99}, runner)

	require.True(t, c.Convert(context.Background(), Request{Input: in}, nil))
	assert.Equal(t, 0.0, runner.configs[0].Duration)
	assert.Equal(t, 1, obs.probes)
}

func TestConvertCreatesOutputDir(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))
	out := filepath.Join(dir, "a", "b", "movie.mp4")

	c, _ := newTestConverter(&spyProber{}, &spyRunner{})
	require.True(t, c.Convert(context.Background(), Request{Input: in, Output: out}, nil))

	st, err := os.Stat(filepath.Dir(out))
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestConvertForwardsProgress(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	runner := &spyRunner{run: func(cfg process.Config) (process.Outcome, error) {
		cfg.OnStart(1234)
		cfg.OnProgress(12.5, "converting... 12.5%")
		cfg.OnProgress(50, "converting... 50.0%")
		return process.Outcome{}, nil
	}}
	c, _ := newTestConverter(&spyProber{ok: true, duration: 10}, runner)
	rec := &recorder{}

	require.True(t, c.Convert(context.Background(), Request{Input: in}, rec.progress))

	var pcts []float64
	for _, e := range rec.events {
		pcts = append(pcts, e.percent)
	}
	assert.Equal(t, []float64{0, 12.5, 50, 100}, pcts)
	assert.Equal(t, 1234, c.Store().List(nil, "")[0].Status().PID)
}

func TestConvertStartError(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	runner := &spyRunner{outcome: process.Outcome{ExitCode: -1}, err: errors.New("exec: not found")}
	c, obs := newTestConverter(&spyProber{ok: true, duration: 10}, runner)
	rec := &recorder{}

	assert.False(t, c.Convert(context.Background(), Request{Input: in}, rec.progress))
	assert.Equal(t, ErrorPercent, rec.last().percent)
	assert.Contains(t, rec.last().message, "exec: not found")
	assert.Equal(t, []bool{false}, obs.finished)
}

func TestConvertRecoversPanic(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	runner := &spyRunner{run: func(process.Config) (process.Outcome, error) {
		panic("boom")
	}}
	c, obs := newTestConverter(&spyProber{ok: true, duration: 10}, runner)
	rec := &recorder{}

	var ok bool
	require.NotPanics(t, func() {
		ok = c.Convert(context.Background(), Request{Input: in}, rec.progress)
	})
	assert.False(t, ok)
	assert.Equal(t, ErrorPercent, rec.last().percent)
	assert.Contains(t, rec.last().message, "boom")
	assert.Equal(t, []bool{false}, obs.finished)
	assert.Equal(t, task.StateFailed, c.Store().List(nil, "")[0].Status().State)
}

func TestConvertRecoversSinkPanic(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	c, _ := newTestConverter(&spyProber{ok: true, duration: 10}, &spyRunner{})

	var ok bool
	require.NotPanics(t, func() {
		ok = c.Convert(context.Background(), Request{Input: in}, func(float64, string) {
			panic("sink")
		})
	})
	assert.False(t, ok)
}

func TestLookupQuality(t *testing.T) {
	tests := []struct {
		name    string
		want    Quality
		crf     int
		preset  string
		matched bool
	}{
		{"low", QualityLow, 28, "fast", true},
		{"medium", QualityMedium, 23, "medium", true},
		{"high", QualityHigh, 18, "slow", true},
		{" HIGH ", QualityHigh, 18, "slow", true},
		{"", QualityMedium, 23, "medium", false},
		{"best", QualityMedium, 23, "medium", false},
	}
	for _, tt := range tests {
		q, s, ok := LookupQuality(tt.name)
		assert.Equal(t, tt.want, q, tt.name)
		assert.Equal(t, QualitySettings{CRF: tt.crf, Preset: tt.preset}, s, tt.name)
		assert.Equal(t, tt.matched, ok, tt.name)
	}
	assert.Equal(t, []string{"low", "medium", "high"}, Qualities())
}

func TestWithProgress(t *testing.T) {
	assert.Equal(t,
		[]string{"-i", "a", "-y", "-progress", "pipe:1", "b.mp4"},
		WithProgress([]string{"-i", "a", "-y", "b.mp4"}))
	assert.Equal(t, []string{"-progress", "pipe:1", "out"}, WithProgress([]string{"out"}))

	in := []string{"-i", "a", "b"}
	WithProgress(in)
	assert.Equal(t, []string{"-i", "a", "b"}, in)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/v/movie.mp4", OutputPath("/v/movie.rmvb"))
	assert.Equal(t, "/v/movie.part1.mp4", OutputPath("/v/movie.part1.RMVB"))
	assert.Equal(t, "/v.d/movie.mp4", OutputPath("/v.d/movie"))
	assert.Equal(t, "/v/.rmvb.mp4", OutputPath("/v/.rmvb"))
}

// TestConvertWithProcess runs the real supervisor against a scripted ffmpeg.
func TestConvertWithProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "movie.rmvb"))

	bin := filepath.Join(dir, "ffmpeg")
	script := `#!/bin/sh
for last in "$@"; do :; done
echo "frame=1 fps=0.0 time=00:00:00.00" >&2
printf 'frame=10\nout_time=00:00:02.500000\nprogress=continue\n'
printf 'frame=20\nout_time=00:00:05.000000\nprogress=continue\n'
printf 'frame=30\nout_time=00:00:10.000000\nprogress=end\n'
echo done > "$last"
`
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	c := New(Config{Binary: bin, Prober: &spyProber{ok: true, duration: 10}})
	rec := &recorder{}

	require.True(t, c.Convert(context.Background(), Request{Input: in}, rec.progress))

	var pcts []float64
	for _, e := range rec.events {
		pcts = append(pcts, e.percent)
	}
	assert.Equal(t, []float64{0, 25, 50, 100, 100}, pcts)
	assert.FileExists(t, filepath.Join(dir, "movie.mp4"))

	st := c.Store().List(nil, "")[0].Status()
	assert.Equal(t, task.StateFinished, st.State)
	assert.Equal(t, uint64(30), st.Progress.Frame)
}
