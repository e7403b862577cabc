// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具
//
// Package process runs an FFmpeg child to completion, turning its progress
// stream into percentage callbacks and capturing its diagnostic stream.

package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ZSC714725/rmvbconv/internal/ffmpeg/parse"
)

const (
	// progressStep is the minimum advance in percentage points between callbacks
	progressStep = 1.0
	// waitDelay is how long an interrupted child gets before it is killed. It
	// also bounds the stderr copy once the child has exited, in case a
	// grandchild still holds the pipe open.
	waitDelay = 5 * time.Second
)

// ProgressFunc receives throttled progress updates
type ProgressFunc func(percent float64, message string)

// Config for a process
type Config struct {
	Binary string
	Args   []string
	// Duration of the input in seconds. 0 disables percentage reporting.
	Duration   float64
	OnProgress ProgressFunc
	OnStart    func(pid int)
	Parser     Parser
	Monitor    Monitor
	Logger     Logger
	// WaitDelay is passed to exec.Cmd. Defaults to 5s.
	WaitDelay time.Duration
}

// Outcome of a finished process. The exit code is not interpreted here.
type Outcome struct {
	ExitCode int
	Stderr   string
	Elapsed  time.Duration
}

// Success reports whether the child exited with code 0
func (o Outcome) Success() bool {
	return o.ExitCode == 0
}

// Status of a process
type Status struct {
	State    string
	PID      int
	Percent  float64
	Duration time.Duration
	Time     time.Time
	CPU      float64
	Memory   uint64
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	stateIdle     stateType = "idle"
	stateStarting stateType = "starting"
	stateRunning  stateType = "running"
	stateFinished stateType = "finished"
	stateFailed   stateType = "failed"
	stateKilled   stateType = "killed"
)

func (s stateType) String() string { return string(s) }

// Process supervises one run of an external command
type Process struct {
	binary     string
	args       []string
	duration   float64
	waitDelay  time.Duration
	parser     Parser
	monitor    Monitor
	logger     Logger
	onProgress ProgressFunc
	onStart    func(pid int)

	state struct {
		state   stateType
		time    time.Time
		pid     int
		percent float64
		lock    sync.Mutex
	}
}

// New creates a new process
func New(config Config) (*Process, error) {
	p := &Process{
		binary:     config.Binary,
		args:       config.Args,
		duration:   config.Duration,
		waitDelay:  config.WaitDelay,
		parser:     config.Parser,
		monitor:    config.Monitor,
		logger:     config.Logger,
		onProgress: config.OnProgress,
		onStart:    config.OnStart,
	}

	if len(p.binary) == 0 {
		return nil, fmt.Errorf("no valid binary given")
	}
	if p.waitDelay <= 0 {
		p.waitDelay = waitDelay
	}
	if p.parser == nil {
		p.parser = &nullParser{}
	}
	if p.monitor == nil {
		p.monitor = NewNullMonitor()
	}
	if p.logger == nil {
		p.logger = &nopLogger{}
	}

	p.setState(stateIdle)
	return p, nil
}

// Run is a shorthand for New followed by Process.Run
func Run(ctx context.Context, config Config) (Outcome, error) {
	p, err := New(config)
	if err != nil {
		return Outcome{ExitCode: -1}, err
	}
	return p.Run(ctx)
}

func (p *Process) setState(state stateType) {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	p.state.state = state
	p.state.time = time.Now()
}

func (p *Process) setPercent(pct float64) {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	p.state.percent = pct
}

// Status returns a snapshot that is safe to read while Run is in progress
func (p *Process) Status() Status {
	cpu, memory := p.monitor.Current()

	p.state.lock.Lock()
	defer p.state.lock.Unlock()

	return Status{
		State:    p.state.state.String(),
		PID:      p.state.pid,
		Percent:  p.state.percent,
		Duration: time.Since(p.state.time),
		Time:     p.state.time,
		CPU:      cpu,
		Memory:   memory,
	}
}

// Run starts the command and blocks until it has exited. An error is returned
// only when the command could not be started.
func (p *Process) Run(ctx context.Context) (Outcome, error) {
	p.setState(stateStarting)

	cmd := exec.CommandContext(ctx, p.binary, p.args...)
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = p.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.setState(stateFailed)
		return Outcome{ExitCode: -1}, err
	}

	// exec 自己拷贝 stderr，Wait 会等拷贝结束，尾部不会丢
	diag := &bytes.Buffer{}
	cmd.Stderr = diag

	started := time.Now()
	if err := cmd.Start(); err != nil {
		p.setState(stateFailed)
		return Outcome{ExitCode: -1}, fmt.Errorf("start %s: %w", p.binary, err)
	}

	pid := cmd.Process.Pid
	p.state.lock.Lock()
	p.state.pid = pid
	p.state.lock.Unlock()

	if err := p.monitor.Start(pid); err != nil {
		p.logger.Debug("monitor pid %d: %v", pid, err)
	}
	defer p.monitor.Stop()

	p.setState(stateRunning)
	p.logger.Debug("started %s (pid %d)", p.binary, pid)
	if p.onStart != nil {
		p.onStart(pid)
	}

	// The child must be reaped even if the progress callback panics.
	defer func() {
		if r := recover(); r != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			p.setState(stateKilled)
			panic(r)
		}
	}()

	p.reader(stdout)

	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		// 子进程已正常退出，只是 stderr 仍被占用
		p.logger.Debug("stderr of pid %d still open %s after exit", pid, cmd.WaitDelay)
		waitErr = nil
	}

	outcome := Outcome{
		ExitCode: exitCode(waitErr),
		Stderr:   diag.String(),
		Elapsed:  time.Since(started),
	}

	switch {
	case outcome.ExitCode == 0:
		p.setState(stateFinished)
	case outcome.ExitCode < 0:
		p.setState(stateKilled)
	default:
		p.setState(stateFailed)
	}
	p.logger.Debug("pid %d exited with code %d after %s", pid, outcome.ExitCode, outcome.Elapsed)

	return outcome, nil
}

func (p *Process) reader(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Split(scanLine)

	last := 0.0
	for scanner.Scan() {
		line := scanner.Text()
		p.parser.Parse(line)

		if t, ok := parse.Time(line); ok {
			if pct, ok := parse.Percent(t, p.duration); ok && pct-last >= progressStep {
				last = pct
				p.setPercent(pct)
				if p.onProgress != nil {
					p.onProgress(pct, fmt.Sprintf("converting... %.1f%%", pct))
				}
			}
		}

		if parse.IsEnd(line) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Debug("read progress: %v", err)
	}

	// Keep draining so a late writer never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
