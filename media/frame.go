// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"sync"
	"sync/atomic"
)

// Channels 解码输出图像的通道数 (RGB24)
const Channels = 3

// Frame 解码后的 RGB24 图像。
//
// GetFrame 把帧的所有权转移给调用者，调用者用完后必须调用 Release
// 把像素缓冲区归还给解码器。Release 可以重复调用，之后 Data 返回 nil。
//
// Index 由解码器对引擎输出的图像计数得到，而不是引擎报告的计数，
// 相当于 libavcodec 的 frame_number：按引擎输出顺序（显示顺序）严格递增，
// 与 B 帧引起的解码重排无关。Pts 才是引擎给出的时间戳。
type Frame struct {
	Width    int   // 宽度
	Height   int   // 高度
	Channels int   // 通道数，固定为 3
	Index    int64 // 输出序号，从 1 开始
	Pts      int64 // 引擎给出的时间戳
	KeyFrame bool  // 是否关键帧

	data     []byte
	pool     *framePool
	released atomic.Bool
}

// Data 返回像素数据，按行紧凑排列，行宽 Width*Channels
func (f *Frame) Data() []byte {
	if f.released.Load() {
		return nil
	}
	return f.data
}

// Stride 行宽（字节）
func (f *Frame) Stride() int {
	return f.Width * f.Channels
}

// Size 像素数据字节数
func (f *Frame) Size() int {
	return f.Width * f.Height * f.Channels
}

// Release 释放帧，归还像素缓冲区
func (f *Frame) Release() {
	if !f.released.CompareAndSwap(false, true) {
		return
	}
	data := f.data
	f.data = nil
	if f.pool != nil {
		f.pool.put(data)
	}
}

// framePool 固定大小像素缓冲区的池
type framePool struct {
	size int
	pool sync.Pool
}

func newFramePool(size int) *framePool {
	p := &framePool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

func (p *framePool) get() []byte {
	return *(p.pool.Get().(*[]byte))
}

func (p *framePool) put(buf []byte) {
	if cap(buf) < p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}

// newFrame 从池中分配一个帧
func (p *framePool) newFrame(width, height int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: Channels,
		data:     p.get(),
		pool:     p,
	}
}
