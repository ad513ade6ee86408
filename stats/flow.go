// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync/atomic"
)

// 全局流量统计
var (
	DecodeFlow = NewFlow() // 所有解码器的流量
	EncodeFlow = NewFlow() // 所有编码器的流量
)

// FlowSample 流统计采样
type FlowSample struct {
	InBytes   int64 `json:"inbytes"`
	OutBytes  int64 `json:"outbytes"`
	InFrames  int64 `json:"inframes"`  // 输入的帧或访问单元数
	OutFrames int64 `json:"outframes"` // 输出的帧或包数
}

// Flow 流统计接口
type Flow interface {
	AddIn(size, frames int64)  // 增加输入
	AddOut(size, frames int64) // 增加输出
	GetSample() FlowSample     // 获取当前时点采样
}

func (fs *FlowSample) clone() FlowSample {
	return FlowSample{
		InBytes:   atomic.LoadInt64(&fs.InBytes),
		OutBytes:  atomic.LoadInt64(&fs.OutBytes),
		InFrames:  atomic.LoadInt64(&fs.InFrames),
		OutFrames: atomic.LoadInt64(&fs.OutFrames),
	}
}

func (fs *FlowSample) addIn(size, frames int64) {
	atomic.AddInt64(&fs.InBytes, size)
	atomic.AddInt64(&fs.InFrames, frames)
}

func (fs *FlowSample) addOut(size, frames int64) {
	atomic.AddInt64(&fs.OutBytes, size)
	atomic.AddInt64(&fs.OutFrames, frames)
}

// Add 采样累加
func (fs *FlowSample) Add(f FlowSample) {
	fs.InBytes += f.InBytes
	fs.OutBytes += f.OutBytes
	fs.InFrames += f.InFrames
	fs.OutFrames += f.OutFrames
}

// Sub 返回两次采样之间的差值
func (fs FlowSample) Sub(prev FlowSample) FlowSample {
	return FlowSample{
		InBytes:   fs.InBytes - prev.InBytes,
		OutBytes:  fs.OutBytes - prev.OutBytes,
		InFrames:  fs.InFrames - prev.InFrames,
		OutFrames: fs.OutFrames - prev.OutFrames,
	}
}

type flow struct {
	sample FlowSample
}

// NewFlow 创建流量统计
func NewFlow() Flow {
	return &flow{}
}

func (r *flow) AddIn(size, frames int64)  { r.sample.addIn(size, frames) }
func (r *flow) AddOut(size, frames int64) { r.sample.addOut(size, frames) }
func (r *flow) GetSample() FlowSample     { return r.sample.clone() }

type childFlow struct {
	parent Flow
	sample FlowSample
}

// NewChildFlow 创建子流量计数，它会把自己的计数Add到parent上
func NewChildFlow(parent Flow) Flow {
	return &childFlow{
		parent: parent,
	}
}

func (r *childFlow) AddIn(size, frames int64) {
	r.sample.addIn(size, frames)
	r.parent.AddIn(size, frames)
}

func (r *childFlow) AddOut(size, frames int64) {
	r.sample.addOut(size, frames)
	r.parent.AddOut(size, frames)
}

func (r *childFlow) GetSample() FlowSample {
	return r.sample.clone()
}
