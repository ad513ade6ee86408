// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build ffmpeg

package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/colorspace"
)

// Converter 基于 swscale 的像素格式转换器，实现 colorspace.Converter
type Converter struct {
	ssc      *astiav.SoftwareScaleContext
	src, dst *astiav.Frame
	buf      []byte
}

var _ colorspace.Converter = (*Converter)(nil)

// NewConverter 创建 swscale 转换器，签名和 colorspace.NewConverter 一致
func NewConverter(width, height int, src, dst codec.PixelFormat) (colorspace.Converter, error) {
	sf, err := avPixelFormat(src)
	if err != nil {
		return nil, err
	}
	df, err := avPixelFormat(dst)
	if err != nil {
		return nil, err
	}

	ssc, err := astiav.CreateSoftwareScaleContext(width, height, sf, width, height, df,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: create swscale context: %w", err)
	}

	c := &Converter{ssc: ssc, src: astiav.AllocFrame(), dst: astiav.AllocFrame()}
	c.src.SetWidth(width)
	c.src.SetHeight(height)
	c.src.SetPixelFormat(sf)
	if err := c.src.AllocBuffer(1); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func avPixelFormat(pf codec.PixelFormat) (astiav.PixelFormat, error) {
	switch pf {
	case codec.PixelFormatYUV420P:
		return astiav.PixelFormatYuv420P, nil
	case codec.PixelFormatRGB24:
		return astiav.PixelFormatRgb24, nil
	default:
		return astiav.PixelFormatNone, fmt.Errorf("ffmpeg: unsupported pixel format %d", pf)
	}
}

// Convert 实现 colorspace.Converter
func (c *Converter) Convert(src, dst *codec.Picture) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}

	c.buf = c.buf[:0]
	cw, ch := codec.ChromaSize(src.Width, src.Height)
	switch src.Format {
	case codec.PixelFormatYUV420P:
		c.buf = packPlane(c.buf, src.Planes[0], src.Strides[0], src.Width, src.Height)
		c.buf = packPlane(c.buf, src.Planes[1], src.Strides[1], cw, ch)
		c.buf = packPlane(c.buf, src.Planes[2], src.Strides[2], cw, ch)
	default:
		c.buf = packPlane(c.buf, src.Planes[0], src.Strides[0], src.Width*3, src.Height)
	}
	if err := c.src.Data().SetBytes(c.buf, 1); err != nil {
		return err
	}

	c.dst.Unref()
	if err := c.ssc.ScaleFrame(c.src, c.dst); err != nil {
		return err
	}
	out, err := c.dst.Data().Bytes(1)
	if err != nil {
		return err
	}

	return unpackInto(dst, out)
}

// unpackInto 把紧凑排列的数据按 dst 的 stride 拷入
func unpackInto(dst *codec.Picture, data []byte) error {
	rows := [3]int{dst.Height}
	widths := [3]int{dst.Width * 3}
	if dst.Format == codec.PixelFormatYUV420P {
		cw, ch := codec.ChromaSize(dst.Width, dst.Height)
		rows = [3]int{dst.Height, ch, ch}
		widths = [3]int{dst.Width, cw, cw}
	}

	for i := 0; i < dst.Format.Planes(); i++ {
		for y := 0; y < rows[i]; y++ {
			if len(data) < widths[i] {
				return fmt.Errorf("ffmpeg: converted frame too small")
			}
			copy(dst.Planes[i][y*dst.Strides[i]:], data[:widths[i]])
			data = data[widths[i]:]
		}
	}
	return nil
}

// Close 释放 swscale 资源
func (c *Converter) Close() error {
	c.src.Free()
	c.dst.Free()
	c.ssc.Free()
	return nil
}
