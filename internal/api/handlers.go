// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/rmvbconv/internal/convert"
	"github.com/ZSC714725/rmvbconv/internal/ffmpeg"
	"github.com/ZSC714725/rmvbconv/internal/task"
)

// Handler holds dependencies
type Handler struct {
	store  task.Store
	ffmpeg ffmpeg.FFmpeg
}

// NewHandler creates API handler
func NewHandler(store task.Store, ff ffmpeg.FFmpeg) *Handler {
	return &Handler{store: store, ffmpeg: ff}
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// ListTasks GET /api/v1/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	filter := c.DefaultQuery("filter", "")
	reference := c.DefaultQuery("reference", "")
	idStr := c.DefaultQuery("id", "")

	var ids []string
	if idStr != "" {
		ids = strings.FieldsFunc(idStr, func(r rune) bool { return r == ',' })
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
	}

	tasks := h.store.List(ids, reference)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToAPI(t, filter))
	}

	c.JSON(http.StatusOK, out)
}

// GetTask GET /api/v1/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	t, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, taskToAPI(t, c.DefaultQuery("filter", "")))
}

// GetState GET /api/v1/tasks/:id/state
func (h *Handler) GetState(c *gin.Context) {
	t, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, taskToState(t))
}

// GetReport GET /api/v1/tasks/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	t, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, taskToReport(t))
}

// DeleteTask DELETE /api/v1/tasks/:id
func (h *Handler) DeleteTask(c *gin.Context) {
	t, ok := h.lookup(c)
	if !ok {
		return
	}

	// 运行中的任务由转换流程持有，不能删除
	if t.IsRunning() {
		errResp(c, http.StatusConflict, "Task is running", "")
		return
	}

	if err := h.store.Delete(t.ID); err != nil {
		errResp(c, http.StatusInternalServerError, "Delete failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// Skills GET /api/v1/skills
func (h *Handler) Skills(c *gin.Context) {
	c.JSON(http.StatusOK, h.skills())
}

// ReloadSkills POST /api/v1/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.ffmpeg.ReloadSkills(c.Request.Context()); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.skills())
}

// Qualities GET /api/v1/qualities
func (h *Handler) Qualities(c *gin.Context) {
	out := make(map[string]convert.QualitySettings)
	for _, name := range convert.Qualities() {
		_, settings, _ := convert.LookupQuality(name)
		out[name] = settings
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) skills() SkillsResponse {
	resp := skillsToAPI(h.ffmpeg.Skills())
	resp.FFmpeg.Binary = h.ffmpeg.Binary()
	if p := h.ffmpeg.Prober(); p != nil {
		resp.FFmpeg.Probe = p.Binary()
	}
	return resp
}

func (h *Handler) lookup(c *gin.Context) (*task.Task, bool) {
	t, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			errResp(c, http.StatusNotFound, "Unknown task ID", err.Error())
		} else {
			errResp(c, http.StatusInternalServerError, "Lookup failed", err.Error())
		}
		return nil, false
	}
	return t, true
}

func taskToConfig(t *task.Task) *TaskConfig {
	return &TaskConfig{
		ID:        t.ID,
		Reference: t.Reference,
		Input:     t.Config.Input,
		Output:    t.Config.Output,
		Quality:   t.Config.Quality,
		CRF:       t.Config.CRF,
		Preset:    t.Config.Preset,
		Overwrite: t.Config.Overwrite,
	}
}

func taskToState(t *task.Task) *TaskState {
	status := t.Status()
	prog := status.Progress

	return &TaskState{
		State:    status.State,
		Percent:  status.Percent,
		Message:  status.Message,
		PID:      status.PID,
		ExitCode: status.ExitCode,
		Runtime:  status.Elapsed.Seconds(),
		Memory:   status.Memory,
		CPU:      status.CPU,
		Command:  convert.WithProgress(t.Config.CreateCommand()),
		Progress: &Progress{
			Frame: prog.Frame, FPS: prog.FPS, Size: prog.Size, Time: prog.Time,
			Speed: prog.Speed, Drop: prog.Drop, Dup: prog.Dup,
		},
	}
}

func taskToReport(t *task.Task) *TaskReport {
	status := t.Status()
	report := &TaskReport{ExitCode: status.ExitCode, Log: []string{}}
	for _, line := range strings.Split(status.Stderr, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			report.Log = append(report.Log, line)
		}
	}
	return report
}

func taskToAPI(t *task.Task, filter string) Task {
	out := Task{
		ID:        t.ID,
		Type:      "ffmpeg",
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.Status().UpdatedAt,
	}

	includeAll := filter == ""
	if includeAll || strings.Contains(filter, "config") {
		out.Config = taskToConfig(t)
	}
	if includeAll || strings.Contains(filter, "state") {
		out.State = taskToState(t)
	}
	if includeAll || strings.Contains(filter, "report") {
		out.Report = taskToReport(t)
	}

	return out
}
