// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ZSC714725/rmvbconv/internal/convert"
)

// qualityValue restricts --quality to the known tiers
type qualityValue string

var _ pflag.Value = (*qualityValue)(nil)

func (q *qualityValue) String() string {
	return string(*q)
}

func (q *qualityValue) Set(s string) error {
	name, _, ok := convert.LookupQuality(s)
	if !ok {
		return fmt.Errorf("must be one of %s", strings.Join(convert.Qualities(), ", "))
	}
	*q = qualityValue(name)
	return nil
}

func (q *qualityValue) Type() string {
	return "quality"
}
