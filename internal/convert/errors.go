// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package convert

import "errors"

var (
	ErrInputNotFound   = errors.New("input file does not exist")
	ErrOutputExists    = errors.New("output file already exists")
	ErrTranscodeFailed = errors.New("transcode failed")
)
