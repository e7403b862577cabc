// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/rmvbconv/internal/ffmpeg"
	"github.com/ZSC714725/rmvbconv/internal/ffmpeg/skills"
	"github.com/ZSC714725/rmvbconv/internal/task"
)

type fakeFFmpeg struct {
	skills    skills.Skills
	reloadErr error
	reloads   int
}

func (f *fakeFFmpeg) Binary() string         { return "/usr/bin/ffmpeg" }
func (f *fakeFFmpeg) Prober() *ffmpeg.Prober { return ffmpeg.NewProber("/usr/bin/ffprobe", nil) }
func (f *fakeFFmpeg) Skills() skills.Skills  { return f.skills }
func (f *fakeFFmpeg) ReloadSkills(context.Context) error {
	f.reloads++
	return f.reloadErr
}

func newFakeFFmpeg() *fakeFFmpeg {
	s := skills.Skills{}
	s.FFmpeg.Version = "6.1.1"
	s.Codecs.Video = []skills.Codec{{Id: "h264", Name: "H.264", Encoders: []string{"libx264"}}}
	s.Codecs.Audio = []skills.Codec{{Id: "aac", Name: "AAC", Encoders: []string{"aac"}, Decoders: []string{"aac"}}}
	s.Formats.Muxers = []skills.Format{{Id: "mp4", Name: "MP4"}}
	return &fakeFFmpeg{skills: s}
}

func setup(t *testing.T) (http.Handler, task.Store, *fakeFFmpeg) {
	t.Helper()
	store := task.NewStore(nil)
	ff := newFakeFFmpeg()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "rmvbconv_conversions_total 0\n")
	})
	return NewRouter(NewHandler(store, ff), metrics), store, ff
}

func do(t *testing.T, h http.Handler, method, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestListAndGetTasks(t *testing.T) {
	h, store, _ := setup(t)

	a, err := store.Add(&task.Config{Reference: "batch", Input: "a.rmvb", Output: "a.mp4", Quality: "high", CRF: 18, Preset: "slow"})
	require.NoError(t, err)
	_, err = store.Add(&task.Config{Input: "b.rmvb", Output: "b.mp4"})
	require.NoError(t, err)

	a.Started(99)
	a.Progress(42.5, "converting... 42.5%")
	a.Parser().Parse("frame=120")

	var list []Task
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/tasks", &list))
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)

	list = nil
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/tasks?reference=batch&filter=config", &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Config)
	assert.Nil(t, list[0].State)
	assert.Equal(t, "a.rmvb", list[0].Config.Input)
	assert.Equal(t, 18, list[0].Config.CRF)

	var one Task
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/tasks/"+a.ID, &one))
	require.NotNil(t, one.State)
	assert.Equal(t, task.StateRunning, one.State.State)
	assert.Equal(t, 42.5, one.State.Percent)
	assert.Equal(t, 99, one.State.PID)
	assert.Equal(t, uint64(120), one.State.Progress.Frame)
	assert.Contains(t, one.State.Command, "pipe:1")
	assert.Equal(t, "a.mp4", one.State.Command[len(one.State.Command)-1])
}

func TestStateAndReport(t *testing.T) {
	h, store, _ := setup(t)

	a, err := store.Add(&task.Config{Input: "a.rmvb", Output: "a.mp4"})
	require.NoError(t, err)
	a.Finish(false, 1, "line one\r\nline two\n", 3*time.Second)

	var state TaskState
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/tasks/"+a.ID+"/state", &state))
	assert.Equal(t, task.StateFailed, state.State)
	assert.Equal(t, 1, state.ExitCode)
	assert.Equal(t, 3.0, state.Runtime)

	var report TaskReport
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/tasks/"+a.ID+"/report", &report))
	assert.Equal(t, []string{"line one", "line two"}, report.Log)
}

func TestUnknownTask(t *testing.T) {
	h, _, _ := setup(t)

	var resp ErrorResponse
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/v1/tasks/nope", &resp))
	assert.Equal(t, "Unknown task ID", resp.Message)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/api/v1/tasks/nope", nil))
}

func TestDeleteTask(t *testing.T) {
	h, store, _ := setup(t)

	a, err := store.Add(&task.Config{Input: "a.rmvb", Output: "a.mp4"})
	require.NoError(t, err)

	a.Started(1)
	assert.Equal(t, http.StatusConflict, do(t, h, "DELETE", "/api/v1/tasks/"+a.ID, nil))

	a.Finish(true, 0, "", time.Second)
	assert.Equal(t, http.StatusOK, do(t, h, "DELETE", "/api/v1/tasks/"+a.ID, nil))

	_, err = store.Get(a.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestSkills(t *testing.T) {
	h, _, ff := setup(t)

	var resp SkillsResponse
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/skills", &resp))
	assert.Equal(t, "6.1.1", resp.FFmpeg.Version)
	assert.Equal(t, "/usr/bin/ffmpeg", resp.FFmpeg.Binary)
	assert.Equal(t, "/usr/bin/ffprobe", resp.FFmpeg.Probe)
	assert.True(t, resp.Ready)
	require.Len(t, resp.Codecs.Video, 1)
	assert.Equal(t, []string{"libx264"}, resp.Codecs.Video[0].Encoders)

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/skills/reload", nil))
	assert.Equal(t, 1, ff.reloads)

	ff.reloadErr = errors.New("exit status 1")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "POST", "/api/v1/skills/reload", nil))

	ff.skills.Formats.Muxers = nil
	resp = SkillsResponse{}
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/skills", &resp))
	assert.False(t, resp.Ready)
}

func TestQualities(t *testing.T) {
	h, _, _ := setup(t)

	var resp map[string]struct {
		CRF    int    `json:"crf"`
		Preset string `json:"preset"`
	}
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/qualities", &resp))
	assert.Len(t, resp, 3)
	assert.Equal(t, 28, resp["low"].CRF)
	assert.Equal(t, "slow", resp["high"].Preset)
}

func TestMetricsRoute(t *testing.T) {
	h, _, _ := setup(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rmvbconv_conversions_total")
}

func TestServer(t *testing.T) {
	h, _, _ := setup(t)

	s, err := Listen("127.0.0.1:0", h, nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/api/v1/tasks")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
