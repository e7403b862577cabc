// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package metrics

import "github.com/ZSC714725/rmvbconv/internal/convert"

type conversionObserver struct {
	m *Metrics
}

// NewObserver creates a convert.Observer that records into m
func NewObserver(m *Metrics) convert.Observer {
	return &conversionObserver{m: m}
}

func (o *conversionObserver) ObserveProbe(ok bool) {
	status := "ok"
	if !ok {
		status = "unknown"
	}
	o.m.ProbeTotal.WithLabelValues(status).Inc()
}

func (o *conversionObserver) ObserveStart() {
	o.m.ConversionsInFlight.Inc()
}

func (o *conversionObserver) ObserveFinish(success bool, seconds float64) {
	o.m.ConversionsInFlight.Dec()
	o.m.ConversionDuration.Observe(seconds)
	if success {
		o.m.ConversionsTotal.WithLabelValues(ResultSuccess).Inc()
	} else {
		o.m.ConversionsTotal.WithLabelValues(ResultFailed).Inc()
	}
}

func (o *conversionObserver) ObserveSkip() {
	o.m.ConversionsTotal.WithLabelValues(ResultSkipped).Inc()
}
