// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package task

import "strconv"

// Config for a conversion task
type Config struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Quality   string `json:"quality"`
	CRF       int    `json:"crf"`
	Preset    string `json:"preset"`
	Overwrite bool   `json:"overwrite"`
}

// CreateCommand builds FFmpeg args from config. The output path is always
// the last argument.
func (c *Config) CreateCommand() []string {
	cmd := []string{
		"-i", c.Input,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-crf", strconv.Itoa(c.CRF),
		"-preset", c.Preset,
		// moov atom 前置，便于网络播放
		"-movflags", "+faststart",
	}
	if c.Overwrite {
		cmd = append(cmd, "-y")
	}
	cmd = append(cmd, c.Output)
	return cmd
}
