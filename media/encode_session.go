// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"sync/atomic"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/colorspace"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

// encodeSession 把 RGB24 图像转换成引擎要求的 YUV420P 后编码，
// 每次调用按输出顺序返回引擎输出的包
type encodeSession struct {
	session
	enc    codec.Encoder
	conv   colorspace.Converter
	yuv    *codec.Picture // 持久的编码输入图像，每次调用复用
	rgb    codec.Picture  // 指向调用者的像素数据
	pts    atomic.Int64   // 下一个图像的显示时间
	flow   stats.Flow
	logger *xlog.Logger
}

func newEncodeSession(enc codec.Encoder, conv colorspace.Converter, cfg codec.EncoderConfig,
	flow stats.Flow, logger *xlog.Logger) (*encodeSession, error) {
	yuv, err := codec.NewPicture(codec.PixelFormatYUV420P, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	return &encodeSession{
		enc:  enc,
		conv: conv,
		yuv:  yuv,
		rgb: codec.Picture{
			Format: codec.PixelFormatRGB24,
			Width:  cfg.Width,
			Height: cfg.Height,
		},
		flow:   flow,
		logger: logger,
	}, nil
}

// encode 编码一幅 RGB24 图像，返回这次调用得到的全部包（可能为空）
func (s *encodeSession) encode(pixels []byte, stride int) ([]codec.Packet, error) {
	if err := s.check("encode"); err != nil {
		return nil, err
	}

	if stride == 0 {
		stride = s.rgb.Width * Channels
	}
	s.rgb.Planes[0] = pixels
	s.rgb.Strides[0] = stride
	err := s.conv.Convert(&s.rgb, s.yuv)
	s.rgb.Planes[0] = nil
	if err != nil {
		return nil, s.fail(newError(ErrEncode, "convert", err))
	}

	// 每次调用递增一次，和输出的包数无关
	s.yuv.Pts = s.pts.Add(1) - 1

	s.state.CompareAndSwap(SessionIdle, SessionDraining)
	if err = s.enc.SendPicture(s.yuv); err != nil {
		return nil, s.fail(newError(ErrEncode, "send picture", err))
	}
	s.flow.AddIn(int64(len(pixels)), 1)

	out, err := s.receive()
	if err != nil {
		return nil, s.fail(err)
	}
	s.state.CompareAndSwap(SessionDraining, SessionIdle)

	if s.logger.LevelEnabled(xlog.DebugLevel) {
		s.logger.Debugf("picture %d encoded, %d packets out", s.yuv.Pts, len(out))
	}
	return out, nil
}

// flush 通知引擎输入结束，返回引擎缓存的全部包
func (s *encodeSession) flush() ([]codec.Packet, error) {
	if err := s.check("flush"); err != nil {
		return nil, err
	}

	s.state.CompareAndSwap(SessionIdle, SessionDraining)
	if err := s.enc.SendPicture(nil); err != nil {
		return nil, s.fail(newError(ErrEncode, "flush", err))
	}
	out, err := s.receive()
	if err != nil {
		return nil, s.fail(err)
	}
	s.state.CompareAndSwap(SessionDraining, SessionIdle)
	return out, nil
}

// receive 取出引擎当前能输出的全部包。引擎可能复用包的缓冲区，这里复制数据
func (s *encodeSession) receive() ([]codec.Packet, error) {
	var out []codec.Packet
	size := 0
	for {
		pkt, err := s.enc.ReceivePacket()
		if errors.Is(err, codec.ErrAgain) || errors.Is(err, codec.ErrEOF) {
			s.flow.AddOut(int64(size), int64(len(out)))
			return out, nil
		}
		if err != nil {
			return nil, newError(ErrEncode, "receive packet", err)
		}
		out = append(out, codec.Packet{
			Data:     append([]byte(nil), pkt.Data...),
			Pts:      pkt.Pts,
			Dts:      pkt.Dts,
			KeyFrame: pkt.KeyFrame,
		})
		size += len(pkt.Data)
	}
}

// joinPackets 按顺序拼接包的数据
func joinPackets(packets []codec.Packet) []byte {
	size := 0
	for i := range packets {
		size += len(packets[i].Data)
	}
	if size == 0 {
		return nil
	}
	out := make([]byte, 0, size)
	for i := range packets {
		out = append(out, packets[i].Data...)
	}
	return out
}

func (s *encodeSession) close() error {
	if s.state.Swap(SessionClosed) == SessionClosed {
		return nil
	}
	closeConverter(s.conv)
	return s.enc.Close()
}
