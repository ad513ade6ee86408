// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build ffmpeg

package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/cnotch/vstream/av/codec"
)

type encoder struct {
	ctx   *astiav.CodecContext
	frame *astiav.Frame
	pkt   *astiav.Packet
	out   codec.Packet
	buf   []byte
}

func newEncoder(cfg codec.EncoderConfig) (*encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := astiav.FindEncoderByName(cfg.Codec)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", codec.ErrCodecNotFound, cfg.Codec)
	}

	ctx := astiav.AllocCodecContext(c)
	if ctx == nil {
		return nil, fmt.Errorf("ffmpeg: could not allocate %s encoder context", cfg.Codec)
	}
	ctx.SetBitRate(cfg.BitRate)
	ctx.SetWidth(cfg.Width)
	ctx.SetHeight(cfg.Height)
	ctx.SetTimeBase(astiav.NewRational(1, cfg.FrameRate))
	ctx.SetFramerate(astiav.NewRational(cfg.FrameRate, 1))
	ctx.SetGopSize(cfg.GopSize)
	ctx.SetMaxBFrames(cfg.MaxBFrames)
	ctx.SetPixelFormat(astiav.PixelFormatYuv420P)

	opts := astiav.NewDictionary()
	defer opts.Free()
	if cfg.Codec == "libx264" {
		if err := opts.Set("preset", "slow", astiav.NewDictionaryFlags()); err != nil {
			ctx.Free()
			return nil, err
		}
	}

	if err := ctx.Open(c, opts); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("ffmpeg: could not open %s encoder: %w", cfg.Codec, err)
	}

	frame := astiav.AllocFrame()
	frame.SetWidth(cfg.Width)
	frame.SetHeight(cfg.Height)
	frame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		ctx.Free()
		return nil, fmt.Errorf("ffmpeg: could not allocate frame buffer: %w", err)
	}

	return &encoder{ctx: ctx, frame: frame, pkt: astiav.AllocPacket()}, nil
}

func (e *encoder) SendPicture(pic *codec.Picture) error {
	if pic == nil {
		return mapError(e.ctx.SendFrame(nil))
	}
	if err := pic.Validate(); err != nil {
		return err
	}

	// 紧凑排列后交给 libav 按自己的 linesize 拷贝
	e.buf = e.buf[:0]
	cw, ch := codec.ChromaSize(pic.Width, pic.Height)
	e.buf = packPlane(e.buf, pic.Planes[0], pic.Strides[0], pic.Width, pic.Height)
	e.buf = packPlane(e.buf, pic.Planes[1], pic.Strides[1], cw, ch)
	e.buf = packPlane(e.buf, pic.Planes[2], pic.Strides[2], cw, ch)

	if err := e.frame.MakeWritable(); err != nil {
		return err
	}
	if err := e.frame.Data().SetBytes(e.buf, 1); err != nil {
		return err
	}
	e.frame.SetPts(pic.Pts)
	return mapError(e.ctx.SendFrame(e.frame))
}

func packPlane(dst, plane []byte, stride, width, height int) []byte {
	for y := 0; y < height; y++ {
		dst = append(dst, plane[y*stride:y*stride+width]...)
	}
	return dst
}

func (e *encoder) ReceivePacket() (*codec.Packet, error) {
	e.pkt.Unref()
	if err := e.ctx.ReceivePacket(e.pkt); err != nil {
		return nil, mapError(err)
	}

	e.out = codec.Packet{
		Data:     append(e.out.Data[:0], e.pkt.Data()...),
		Pts:      e.pkt.Pts(),
		Dts:      e.pkt.Dts(),
		KeyFrame: e.pkt.Flags().Has(astiav.PacketFlagKey),
	}
	return &e.out, nil
}

func (e *encoder) Close() error {
	if e.ctx != nil {
		e.pkt.Free()
		e.frame.Free()
		e.ctx.Free()
		e.ctx = nil
	}
	return nil
}
