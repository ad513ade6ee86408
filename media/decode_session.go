// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/colorspace"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

// decodeSession 驱动引擎解码一个个访问单元，把输出的图像转换成 RGB24 帧入列
type decodeSession struct {
	session
	dec    codec.Decoder
	conv   colorspace.Converter
	queue  *FrameQueue
	pool   *framePool
	width  int
	height int
	rgb    codec.Picture // 转换目标，指向当前帧的缓冲区
	count  atomic.Int64  // 已输出的帧数
	flow   stats.Flow
	logger *xlog.Logger
}

func newDecodeSession(dec codec.Decoder, conv colorspace.Converter, queue *FrameQueue,
	width, height int, flow stats.Flow, logger *xlog.Logger) *decodeSession {
	return &decodeSession{
		dec:    dec,
		conv:   conv,
		queue:  queue,
		pool:   newFramePool(width * height * Channels),
		width:  width,
		height: height,
		rgb: codec.Picture{
			Format:  codec.PixelFormatRGB24,
			Width:   width,
			Height:  height,
			Strides: [3]int{width * Channels},
		},
		flow:   flow,
		logger: logger,
	}
}

// submit 发送一个访问单元，并取出引擎当前能输出的全部图像
func (s *decodeSession) submit(unit []byte) error {
	if err := s.check("submit"); err != nil {
		return err
	}

	s.state.CompareAndSwap(SessionIdle, SessionDraining)
	if err := s.dec.SendPacket(unit); err != nil {
		return s.fail(newError(ErrDecode, "send packet", err))
	}
	s.flow.AddIn(0, 1)
	if err := s.receive(); err != nil {
		return s.fail(err)
	}
	s.state.CompareAndSwap(SessionDraining, SessionIdle)
	return nil
}

// drain 通知引擎输入结束，取出引擎缓存的全部图像
func (s *decodeSession) drain() error {
	if err := s.check("drain"); err != nil {
		return err
	}

	s.state.CompareAndSwap(SessionIdle, SessionDraining)
	if err := s.dec.SendPacket(nil); err != nil {
		return s.fail(newError(ErrDecode, "drain", err))
	}
	if err := s.receive(); err != nil {
		return s.fail(err)
	}
	s.state.CompareAndSwap(SessionDraining, SessionIdle)
	return nil
}

func (s *decodeSession) receive() error {
	for {
		pic, err := s.dec.ReceivePicture()
		if errors.Is(err, codec.ErrAgain) || errors.Is(err, codec.ErrEOF) {
			return nil
		}
		if err != nil {
			return newError(ErrDecode, "receive picture", err)
		}
		if err = s.emit(pic); err != nil {
			return err
		}
	}
}

// emit 把图像转换成帧并入列
func (s *decodeSession) emit(pic *codec.Picture) error {
	if pic.Width != s.width || pic.Height != s.height {
		return newError(ErrDecode, "convert",
			fmt.Errorf("picture size %dx%d, expected %dx%d", pic.Width, pic.Height, s.width, s.height))
	}

	f := s.pool.newFrame(s.width, s.height)
	s.rgb.Planes[0] = f.data
	err := s.conv.Convert(pic, &s.rgb)
	s.rgb.Planes[0] = nil
	if err != nil {
		f.Release()
		return newError(ErrDecode, "convert", err)
	}

	f.Index = s.count.Add(1)
	f.Pts = pic.Pts
	f.KeyFrame = pic.KeyFrame
	if err = s.queue.Enqueue(f); err != nil {
		return newError(ErrClosed, "enqueue", nil)
	}
	s.flow.AddOut(int64(f.Size()), 1)

	if s.logger.LevelEnabled(xlog.DebugLevel) {
		s.logger.Debugf("frame %d decoded, pts = %d, key = %v", f.Index, f.Pts, f.KeyFrame)
	}
	return nil
}

func (s *decodeSession) close() error {
	if s.state.Swap(SessionClosed) == SessionClosed {
		return nil
	}
	closeConverter(s.conv)
	return s.dec.Close()
}
