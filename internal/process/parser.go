// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package process

// Parser receives every line of the progress stream (FFmpeg -progress pipe:1)
type Parser interface {
	Parse(line string)
}

type nullParser struct{}

func (p *nullParser) Parse(line string) {}
