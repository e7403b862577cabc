// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package task

import "errors"

var (
	ErrNotFound      = errors.New("task not found")
	ErrTaskExists    = errors.New("task already exists")
	ErrInvalidConfig = errors.New("invalid config: need an input and an output")
)
