// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package convert

import (
	"path/filepath"
	"strings"
)

// OutputExt is the extension of converted files
const OutputExt = ".mp4"

// WithProgress inserts `-progress pipe:1` right before the output path, which
// must be the last argument.
func WithProgress(args []string) []string {
	out := make([]string, 0, len(args)+2)
	if len(args) == 0 {
		return append(out, "-progress", "pipe:1")
	}
	out = append(out, args[:len(args)-1]...)
	out = append(out, "-progress", "pipe:1")
	return append(out, args[len(args)-1])
}

// OutputPath replaces the extension of input with .mp4
func OutputPath(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	// ".rmvb" alone is a hidden file name, not an extension
	if ext == base {
		ext = ""
	}
	return strings.TrimSuffix(input, ext) + OutputExt
}
