// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package ffmpeg

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher decides whether a file name is eligible as conversion input
type Matcher interface {
	Match(name string) bool
}

type matcher struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// NewMatcher creates a Matcher from allow/block expressions applied to the
// base name. Empty expressions are ignored; no allow expressions allows all.
func NewMatcher(allow, block []string) (Matcher, error) {
	m := &matcher{}

	for _, exp := range allow {
		re, err := compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid allow expression '%s': %w", exp, err)
		}
		if re != nil {
			m.allow = append(m.allow, re)
		}
	}

	for _, exp := range block {
		re, err := compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid block expression '%s': %w", exp, err)
		}
		if re != nil {
			m.block = append(m.block, re)
		}
	}

	return m, nil
}

// NewExtensionMatcher matches file names by extension, ignoring case
func NewExtensionMatcher(exts ...string) Matcher {
	allow := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		allow = append(allow, `(?i)\.`+regexp.QuoteMeta(ext)+`$`)
	}
	m, _ := NewMatcher(allow, nil)
	return m
}

func compile(exp string) (*regexp.Regexp, error) {
	exp = strings.TrimSpace(exp)
	if exp == "" {
		return nil, nil
	}
	return regexp.Compile(exp)
}

func (m *matcher) Match(name string) bool {
	base := filepath.Base(name)
	for _, e := range m.block {
		if e.MatchString(base) {
			return false
		}
	}
	if len(m.allow) == 0 {
		return true
	}
	for _, e := range m.allow {
		if e.MatchString(base) {
			return true
		}
	}
	return false
}
