// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package task

import (
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ZSC714725/rmvbconv/internal/ffmpeg/parse"
	"github.com/ZSC714725/rmvbconv/internal/process"
)

// Task states
const (
	StatePending  = "pending"
	StateRunning  = "running"
	StateFinished = "finished"
	StateFailed   = "failed"
)

// Task is one conversion attempt
type Task struct {
	ID        string
	Reference string
	Config    *Config
	CreatedAt int64

	monitor process.Monitor
	parser  parse.Parser

	lock      sync.RWMutex
	updatedAt int64
	state     string
	percent   float64
	message   string
	pid       int
	exitCode  int
	stderr    string
	elapsed   time.Duration
}

// Status is a point-in-time copy of a task
type Status struct {
	State     string
	Percent   float64
	Message   string
	PID       int
	ExitCode  int
	Stderr    string
	UpdatedAt int64
	Elapsed   time.Duration
	CPU       float64
	Memory    uint64
	Progress  parse.Progress
}

// Monitor samples the task's child process
func (t *Task) Monitor() process.Monitor {
	return t.monitor
}

// Parser collects the task's progress statistics
func (t *Task) Parser() parse.Parser {
	return t.parser
}

// Status returns a snapshot of the task
func (t *Task) Status() Status {
	cpu, memory := t.monitor.Current()

	t.lock.RLock()
	defer t.lock.RUnlock()

	return Status{
		State:     t.state,
		Percent:   t.percent,
		Message:   t.message,
		PID:       t.pid,
		ExitCode:  t.exitCode,
		Stderr:    t.stderr,
		UpdatedAt: t.updatedAt,
		Elapsed:   t.elapsed,
		CPU:       cpu,
		Memory:    memory,
		Progress:  t.parser.Progress(),
	}
}

// IsRunning returns whether the child process is running
func (t *Task) IsRunning() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.state == StateRunning
}

// Started records the child's pid
func (t *Task) Started(pid int) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.state = StateRunning
	t.pid = pid
	t.touch()
}

// Progress records a progress event. Negative percentages are error events
// and leave the last percentage untouched.
func (t *Task) Progress(percent float64, message string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if percent >= 0 {
		t.percent = percent
	}
	t.message = message
	t.touch()
}

// Finish records the final verdict
func (t *Task) Finish(success bool, exitCode int, stderr string, elapsed time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if success {
		t.state = StateFinished
	} else {
		t.state = StateFailed
	}
	t.exitCode = exitCode
	t.stderr = stderr
	t.elapsed = elapsed
	t.touch()
}

func (t *Task) touch() {
	t.updatedAt = time.Now().Unix()
}

// Store manages tasks in memory
type Store interface {
	Add(config *Config) (*Task, error)
	Get(id string) (*Task, error)
	List(ids []string, reference string) []*Task
	Delete(id string) error
}

type store struct {
	newMonitor func() process.Monitor
	tasks      map[string]*Task
	seq        map[string]int
	next       int
	mu         sync.RWMutex
}

// NewStore creates a task store. newMonitor may be nil.
func NewStore(newMonitor func() process.Monitor) Store {
	if newMonitor == nil {
		newMonitor = process.NewNullMonitor
	}
	return &store{
		newMonitor: newMonitor,
		tasks:      make(map[string]*Task),
		seq:        make(map[string]int),
	}
}

func (s *store) Add(config *Config) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(config.ID) == 0 {
		config.ID = shortuuid.New()
	}
	if len(config.Input) == 0 || len(config.Output) == 0 {
		return nil, ErrInvalidConfig
	}
	if _, exists := s.tasks[config.ID]; exists {
		return nil, ErrTaskExists
	}

	now := time.Now().Unix()
	task := &Task{
		ID:        config.ID,
		Reference: config.Reference,
		Config:    config,
		CreatedAt: now,
		monitor:   s.newMonitor(),
		parser:    parse.New(),
		updatedAt: now,
		state:     StatePending,
	}

	s.tasks[config.ID] = task
	s.seq[config.ID] = s.next
	s.next++

	return task, nil
}

func (s *store) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns tasks in the order they were added
func (s *store) List(ids []string, reference string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, t := range s.tasks {
		if len(reference) > 0 && t.Reference != reference {
			continue
		}
		if len(ids) > 0 {
			found := false
			for _, id := range ids {
				if t.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out
}

func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if t.IsRunning() {
		t.monitor.Stop()
	}
	delete(s.tasks, id)
	delete(s.seq, id)
	return nil
}
