// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package api

// Task represents a conversion in API responses
type Task struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Reference string      `json:"reference"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt int64       `json:"updated_at"`
	Config    *TaskConfig `json:"config,omitempty"`
	State     *TaskState  `json:"state,omitempty"`
	Report    *TaskReport `json:"report,omitempty"`
}

// TaskConfig in API format
type TaskConfig struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Quality   string `json:"quality"`
	CRF       int    `json:"crf"`
	Preset    string `json:"preset"`
	Overwrite bool   `json:"overwrite"`
}

// TaskState for API
type TaskState struct {
	State    string    `json:"exec"`
	Percent  float64   `json:"percent"`
	Message  string    `json:"message"`
	PID      int       `json:"pid"`
	ExitCode int       `json:"exit_code"`
	Runtime  float64   `json:"runtime_seconds"`
	Progress *Progress `json:"progress"`
	Memory   uint64    `json:"memory_bytes"`
	CPU      float64   `json:"cpu_usage"`
	Command  []string  `json:"command"`
}

// Progress from the FFmpeg progress stream
type Progress struct {
	Frame uint64  `json:"frame"`
	FPS   float64 `json:"fps"`
	Size  uint64  `json:"size_bytes"`
	Time  float64 `json:"time_seconds"`
	Speed float64 `json:"speed"`
	Drop  uint64  `json:"drop"`
	Dup   uint64  `json:"dup"`
}

// TaskReport carries the diagnostic output of a finished run
type TaskReport struct {
	ExitCode int      `json:"exit_code"`
	Log      []string `json:"log"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
