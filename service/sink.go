// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"image"
	"sync"
	"time"

	"github.com/cnotch/vstream/media"
)

// FrameSink 解码帧的最终消费者，负责释放收到的帧
type FrameSink interface {
	Consume(f *media.Frame)
}

// FrameSinkFunc 把函数适配成 FrameSink
type FrameSinkFunc func(f *media.Frame)

// Consume 调用 fn(f)
func (fn FrameSinkFunc) Consume(f *media.Frame) { fn(f) }

// Snapshot 最近一帧的拷贝
type Snapshot struct {
	Index    int64
	Pts      int64
	KeyFrame bool
	At       time.Time
	Image    *image.RGBA
}

// snapshotSink 保留最近一帧，供 API 查看
type snapshotSink struct {
	mu     sync.Mutex
	frames int64
	last   Snapshot
	next   FrameSink
}

func newSnapshotSink(next FrameSink) *snapshotSink {
	return &snapshotSink{next: next}
}

func (s *snapshotSink) Consume(f *media.Frame) {
	s.mu.Lock()
	s.frames++
	img := s.last.Image
	if img == nil || img.Rect.Dx() != f.Width || img.Rect.Dy() != f.Height {
		img = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	}
	rgbToRGBA(img, f.Data(), f.Stride())
	s.last = Snapshot{
		Index:    f.Index,
		Pts:      f.Pts,
		KeyFrame: f.KeyFrame,
		At:       time.Now(),
		Image:    img,
	}
	s.mu.Unlock()

	if s.next != nil {
		s.next.Consume(f)
		return
	}
	f.Release()
}

// Frames 收到的帧数
func (s *snapshotSink) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Snapshot 返回最近一帧，还没有收到帧时返回 false
func (s *snapshotSink) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.Image == nil {
		return Snapshot{}, false
	}
	snap := s.last
	snap.Image = &image.RGBA{
		Pix:    append([]byte(nil), s.last.Image.Pix...),
		Stride: s.last.Image.Stride,
		Rect:   s.last.Image.Rect,
	}
	return snap, true
}

func rgbToRGBA(dst *image.RGBA, src []byte, stride int) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for y := 0; y < h; y++ {
		in := src[y*stride : y*stride+w*media.Channels]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			out[x*4] = in[x*3]
			out[x*4+1] = in[x*3+1]
			out[x*4+2] = in[x*3+2]
			out[x*4+3] = 0xff
		}
	}
}
