// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Convert ConvertConfig `yaml:"convert"`
	Log     LogConfig     `yaml:"log"`
	Status  StatusConfig  `yaml:"status"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path string `yaml:"path"`
	// ProbePath is the ffprobe binary. Empty means next to Path, then $PATH.
	ProbePath string `yaml:"probe_path"`
}

// ConvertConfig 转换默认参数
type ConvertConfig struct {
	Quality   string `yaml:"quality"`
	Overwrite bool   `yaml:"overwrite"`
}

// LogConfig 日志配置
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// StatusConfig for the optional status API. Empty Bind disables it.
type StatusConfig struct {
	Bind string `yaml:"bind"`
}

const (
	defaultFFmpeg  = "ffmpeg"
	defaultQuality = "high"
	defaultLogFile = "video_converter.log"
	defaultLevel   = "info"
)

// Default 返回默认配置
func Default() *Config {
	return &Config{
		FFmpeg:  FFmpegConfig{Path: defaultFFmpeg},
		Convert: ConvertConfig{Quality: defaultQuality},
		Log:     LogConfig{File: defaultLogFile, Level: defaultLevel},
	}
}

// Load 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 填充空值
	if cfg.FFmpeg.Path == "" {
		cfg.FFmpeg.Path = defaultFFmpeg
	}
	if cfg.Convert.Quality == "" {
		cfg.Convert.Quality = defaultQuality
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLevel
	}

	return cfg, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.FFmpeg.Path == "" {
		result = multierror.Append(result, fmt.Errorf("ffmpeg.path must not be empty"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Convert.Quality)) {
	case "low", "medium", "high":
	default:
		result = multierror.Append(result, fmt.Errorf("convert.quality '%s' is not one of low, medium, high", c.Convert.Quality))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}

	return result.ErrorOrNil()
}
