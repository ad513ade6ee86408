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

type decoder struct {
	ctx   *astiav.CodecContext
	pkt   *astiav.Packet
	frame *astiav.Frame
	pic   *codec.Picture
	buf   []byte
}

func newDecoder(cfg codec.DecoderConfig) (*decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := astiav.FindDecoderByName(cfg.Codec)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", codec.ErrCodecNotFound, cfg.Codec)
	}

	ctx := astiav.AllocCodecContext(c)
	if ctx == nil {
		return nil, fmt.Errorf("ffmpeg: could not allocate %s decoder context", cfg.Codec)
	}
	ctx.SetWidth(cfg.Width)
	ctx.SetHeight(cfg.Height)
	if err := ctx.Open(c, nil); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("ffmpeg: could not open %s decoder: %w", cfg.Codec, err)
	}

	return &decoder{
		ctx:   ctx,
		pkt:   astiav.AllocPacket(),
		frame: astiav.AllocFrame(),
	}, nil
}

func (d *decoder) SendPacket(data []byte) error {
	if data == nil {
		return mapError(d.ctx.SendPacket(nil))
	}

	if err := d.pkt.FromData(data); err != nil {
		return err
	}
	defer d.pkt.Unref()
	return mapError(d.ctx.SendPacket(d.pkt))
}

func (d *decoder) ReceivePicture() (*codec.Picture, error) {
	d.frame.Unref()
	if err := d.ctx.ReceiveFrame(d.frame); err != nil {
		return nil, mapError(err)
	}

	if d.frame.PixelFormat() != astiav.PixelFormatYuv420P {
		return nil, fmt.Errorf("ffmpeg: unsupported decoded pixel format %s", d.frame.PixelFormat())
	}

	var err error
	if d.buf, err = d.frame.Data().Bytes(1); err != nil {
		return nil, err
	}

	w, h := d.frame.Width(), d.frame.Height()
	cw, ch := codec.ChromaSize(w, h)
	ySize, cSize := w*h, cw*ch
	if len(d.buf) < ySize+2*cSize {
		return nil, fmt.Errorf("ffmpeg: decoded frame too small: %d bytes", len(d.buf))
	}

	d.pic = &codec.Picture{
		Format:   codec.PixelFormatYUV420P,
		Width:    w,
		Height:   h,
		Pts:      d.frame.Pts(),
		KeyFrame: d.frame.KeyFrame(),
		Strides:  [3]int{w, cw, cw},
	}
	d.pic.Planes[0] = d.buf[:ySize]
	d.pic.Planes[1] = d.buf[ySize : ySize+cSize]
	d.pic.Planes[2] = d.buf[ySize+cSize : ySize+2*cSize]
	return d.pic, nil
}

func (d *decoder) Close() error {
	if d.ctx != nil {
		d.frame.Free()
		d.pkt.Free()
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}
