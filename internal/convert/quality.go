// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package convert

import "strings"

// Quality tier
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"

	DefaultQuality = QualityMedium
)

// QualitySettings are the x264 parameters of a tier
type QualitySettings struct {
	CRF    int    `json:"crf"`
	Preset string `json:"preset"`
}

var qualityTable = map[Quality]QualitySettings{
	QualityLow:    {CRF: 28, Preset: "fast"},
	QualityMedium: {CRF: 23, Preset: "medium"},
	QualityHigh:   {CRF: 18, Preset: "slow"},
}

// Qualities lists the known tiers, lowest first
func Qualities() []string {
	return []string{string(QualityLow), string(QualityMedium), string(QualityHigh)}
}

// LookupQuality resolves a tier name. Unknown names resolve to DefaultQuality
// with ok set to false.
func LookupQuality(name string) (q Quality, settings QualitySettings, ok bool) {
	q = Quality(strings.ToLower(strings.TrimSpace(name)))
	if settings, ok = qualityTable[q]; ok {
		return q, settings, true
	}
	return DefaultQuality, qualityTable[DefaultQuality], false
}
