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

type decoder struct {
	seq  sequence
	zdec *zstd.Decoder
	ref  []byte // 参考图像，也是输出图像的存储
	tmp  []byte
	pic  codec.Picture

	ready    bool
	draining bool
	closed   bool
}

func newDecoder(cfg codec.DecoderConfig) (*decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Codec != Name {
		return nil, fmt.Errorf("%w: %q", codec.ErrCodecNotFound, cfg.Codec)
	}

	zdec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, err
	}

	return &decoder{
		seq:  sequence{width: cfg.Width, height: cfg.Height},
		zdec: zdec,
	}, nil
}

func (d *decoder) SendPacket(data []byte) error {
	if d.closed {
		return errors.New("zyuv: decoder is closed")
	}
	if d.draining {
		return errors.New("zyuv: decoder is draining")
	}
	if data == nil {
		d.draining = true
		return nil
	}
	if d.ready {
		return errors.New("zyuv: previous picture not received")
	}

	slices := 0
	for _, nalu := range h264.SplitAnnexB(data) {
		switch h264.NalType(nalu[0]) {
		case h264.NalAud:
		case h264.NalSps:
			if err := d.seq.decode(h264.RemoveEmulationPrevention(nalu[1:])); err != nil {
				return err
			}
		case h264.NalIdrSlice, h264.NalSlice:
			if slices > 0 {
				return fmt.Errorf("%w: more than one slice in access unit", errMalformed)
			}
			slices++
			if err := d.decodeSlice(nalu); err != nil {
				return err
			}
		default:
			// 其他单元忽略
		}
	}
	return nil
}

func (d *decoder) decodeSlice(nalu []byte) error {
	key := h264.IsIdrSlice(nalu[0])
	if !key && d.ref == nil {
		return fmt.Errorf("%w: delta picture without reference", errMalformed)
	}

	rbsp := h264.RemoveEmulationPrevention(nalu[1:])
	if len(rbsp) < 2 || rbsp[0] != firstMbMarker || rbsp[len(rbsp)-1] != rbspTrailing {
		return fmt.Errorf("%w: slice header", errMalformed)
	}
	rbsp = rbsp[1 : len(rbsp)-1]
	pts, n := binary.Uvarint(rbsp)
	if n <= 0 {
		return fmt.Errorf("%w: slice pts", errMalformed)
	}

	var err error
	d.tmp, err = d.zdec.DecodeAll(rbsp[n:], d.tmp[:0])
	if err != nil {
		return fmt.Errorf("zyuv: %w", err)
	}

	size := frameSize(d.seq.width, d.seq.height)
	if len(d.tmp) != size {
		return fmt.Errorf("%w: picture data %d bytes, expected %d", errMalformed, len(d.tmp), size)
	}

	if key {
		d.ref, d.tmp = d.tmp, d.ref
	} else {
		if len(d.ref) != size {
			return fmt.Errorf("%w: reference size changed", errMalformed)
		}
		xorInto(d.ref, d.tmp)
	}

	d.pic = codec.Picture{
		Format:   codec.PixelFormatYUV420P,
		Width:    d.seq.width,
		Height:   d.seq.height,
		Pts:      int64(pts),
		KeyFrame: key,
	}
	unpack(&d.pic, d.ref)
	d.ready = true
	return nil
}

func (d *decoder) ReceivePicture() (*codec.Picture, error) {
	if d.ready {
		d.ready = false
		return &d.pic, nil
	}
	if d.draining {
		return nil, codec.ErrEOF
	}
	return nil, codec.ErrAgain
}

func (d *decoder) Close() error {
	if !d.closed {
		d.closed = true
		d.zdec.Close()
	}
	return nil
}
