// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zyuv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/codec/h264"
	"github.com/klauspost/compress/zstd"
)

type encoder struct {
	cfg     codec.EncoderConfig
	zenc    *zstd.Encoder
	ref     []byte // 上一幅图像
	cur     []byte
	scratch []byte
	count   int64 // 已编码图像数
	dts     int64

	delayed  []*codec.Packet // 等待输出的包，模拟 B 帧的重排序延迟
	ready    []*codec.Packet
	flushing bool
	closed   bool
}

func newEncoder(cfg codec.EncoderConfig) (*encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Codec != Name {
		return nil, fmt.Errorf("%w: %q", codec.ErrCodecNotFound, cfg.Codec)
	}

	zenc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(levelFor(cfg)),
		zstd.WithLowerEncoderMem(true))
	if err != nil {
		return nil, err
	}

	return &encoder{cfg: cfg, zenc: zenc}, nil
}

// levelFor 根据每像素的目标码率选择压缩级别，码率越低压缩越强
func levelFor(cfg codec.EncoderConfig) zstd.EncoderLevel {
	if cfg.BitRate == 0 {
		return zstd.SpeedDefault
	}

	bpp := float64(cfg.BitRate) / float64(cfg.Width*cfg.Height*cfg.FrameRate)
	switch {
	case bpp >= 1:
		return zstd.SpeedFastest
	case bpp >= 0.1:
		return zstd.SpeedDefault
	case bpp >= 0.02:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (e *encoder) isKey() bool {
	return e.ref == nil || e.cfg.GopSize <= 1 || e.count%int64(e.cfg.GopSize) == 0
}

func (e *encoder) SendPicture(pic *codec.Picture) error {
	if e.closed {
		return errors.New("zyuv: encoder is closed")
	}
	if e.flushing {
		return errors.New("zyuv: encoder is flushing")
	}

	if pic == nil {
		e.flushing = true
		e.ready = append(e.ready, e.delayed...)
		e.delayed = e.delayed[:0]
		return nil
	}

	if pic.Format != codec.PixelFormatYUV420P ||
		pic.Width != e.cfg.Width || pic.Height != e.cfg.Height {
		return fmt.Errorf("zyuv: unexpected picture %s %dx%d", pic.Format, pic.Width, pic.Height)
	}
	if err := pic.Validate(); err != nil {
		return err
	}

	e.delayed = append(e.delayed, e.encode(pic))
	e.count++
	if len(e.delayed) > e.cfg.MaxBFrames {
		e.ready = append(e.ready, e.delayed[0])
		e.delayed = append(e.delayed[:0], e.delayed[1:]...)
	}
	return nil
}

func (e *encoder) encode(pic *codec.Picture) *codec.Packet {
	key := e.isKey()
	e.cur = pack(e.cur[:0], pic)

	var au []byte
	au = h264.AppendNalu(au, audHeader, []byte{0xf0})

	header := byte(sliceHeader)
	if key {
		seq := sequence{
			width:     e.cfg.Width,
			height:    e.cfg.Height,
			frameRate: e.cfg.FrameRate,
			gopSize:   e.cfg.GopSize,
		}
		au = h264.AppendNalu(au, spsHeader, seq.appendRBSP(e.scratch[:0]))
		header = idrHeader
	}

	// 片数据：marker, pts, 压缩的图像(差分图像与参考图像异或)
	src := e.cur
	if !key {
		e.scratch = append(e.scratch[:0], e.cur...)
		xorInto(e.scratch, e.ref)
		src = e.scratch
	}
	rbsp := []byte{firstMbMarker}
	rbsp = binary.AppendUvarint(rbsp, uint64(pic.Pts))
	rbsp = e.zenc.EncodeAll(src, rbsp)
	rbsp = append(rbsp, rbspTrailing)
	au = h264.AppendNalu(au, header, rbsp)

	e.ref, e.cur = e.cur, e.ref

	pkt := &codec.Packet{Data: au, Pts: pic.Pts, Dts: e.dts, KeyFrame: key}
	e.dts++
	return pkt
}

func (e *encoder) ReceivePacket() (*codec.Packet, error) {
	if len(e.ready) > 0 {
		pkt := e.ready[0]
		e.ready[0] = nil
		e.ready = e.ready[1:]
		return pkt, nil
	}
	if e.flushing {
		return nil, codec.ErrEOF
	}
	return nil, codec.ErrAgain
}

func (e *encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.delayed, e.ready = nil, nil
	return e.zenc.Close()
}
