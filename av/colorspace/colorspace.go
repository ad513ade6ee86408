// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package colorspace 图像像素格式转换。
//
// 默认转换器使用 JFIF (BT.601 全范围) 系数，和 image/color 一致。
package colorspace

import (
	"fmt"
	"image/color"

	"github.com/cnotch/vstream/av/codec"
)

// Converter 固定尺寸的像素格式转换器。
// Convert 不分配内存，dst 由调用者提供。
type Converter interface {
	Convert(src, dst *codec.Picture) error
}

// ConverterFactory 创建转换器
type ConverterFactory func(width, height int, src, dst codec.PixelFormat) (Converter, error)

// NewConverter 创建纯 Go 实现的转换器，支持 YUV420P 和 RGB24 之间互转
func NewConverter(width, height int, src, dst codec.PixelFormat) (Converter, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("colorspace: invalid size %dx%d", width, height)
	}

	base := converter{width: width, height: height, src: src, dst: dst}
	switch {
	case src == codec.PixelFormatYUV420P && dst == codec.PixelFormatRGB24:
		return yuvToRGB{base}, nil
	case src == codec.PixelFormatRGB24 && dst == codec.PixelFormatYUV420P:
		return rgbToYUV{base}, nil
	default:
		return nil, fmt.Errorf("colorspace: unsupported conversion %s -> %s", src, dst)
	}
}

type converter struct {
	width, height int
	src, dst      codec.PixelFormat
}

func (c converter) check(src, dst *codec.Picture) error {
	if src.Format != c.src || dst.Format != c.dst {
		return fmt.Errorf("colorspace: expected %s -> %s, got %s -> %s", c.src, c.dst, src.Format, dst.Format)
	}
	if src.Width != c.width || src.Height != c.height ||
		dst.Width != c.width || dst.Height != c.height {
		return fmt.Errorf("colorspace: expected size %dx%d", c.width, c.height)
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("colorspace: source %w", err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("colorspace: destination %w", err)
	}
	return nil
}

type yuvToRGB struct{ converter }

func (c yuvToRGB) Convert(src, dst *codec.Picture) error {
	if err := c.check(src, dst); err != nil {
		return err
	}

	yp, up, vp := src.Planes[0], src.Planes[1], src.Planes[2]
	rgb := dst.Planes[0]
	for y := 0; y < c.height; y++ {
		yRow := y * src.Strides[0]
		cRow := (y / 2) * src.Strides[1]
		vRow := (y / 2) * src.Strides[2]
		out := y * dst.Strides[0]
		for x := 0; x < c.width; x++ {
			r, g, b := color.YCbCrToRGB(yp[yRow+x], up[cRow+x/2], vp[vRow+x/2])
			rgb[out] = r
			rgb[out+1] = g
			rgb[out+2] = b
			out += 3
		}
	}
	return nil
}

type rgbToYUV struct{ converter }

func (c rgbToYUV) Convert(src, dst *codec.Picture) error {
	if err := c.check(src, dst); err != nil {
		return err
	}

	rgb := src.Planes[0]
	yp, up, vp := dst.Planes[0], dst.Planes[1], dst.Planes[2]
	for y := 0; y < c.height; y++ {
		in := y * src.Strides[0]
		out := y * dst.Strides[0]
		for x := 0; x < c.width; x++ {
			yy, _, _ := color.RGBToYCbCr(rgb[in], rgb[in+1], rgb[in+2])
			yp[out+x] = yy
			in += 3
		}
	}

	// 色度取 2x2 块的平均颜色
	cw, ch := codec.ChromaSize(c.width, c.height)
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var r, g, b, n int
			for dy := 0; dy < 2; dy++ {
				y := cy*2 + dy
				if y >= c.height {
					break
				}
				for dx := 0; dx < 2; dx++ {
					x := cx*2 + dx
					if x >= c.width {
						break
					}
					i := y*src.Strides[0] + x*3
					r += int(rgb[i])
					g += int(rgb[i+1])
					b += int(rgb[i+2])
					n++
				}
			}
			_, cb, cr := color.RGBToYCbCr(uint8((r+n/2)/n), uint8((g+n/2)/n), uint8((b+n/2)/n))
			up[cy*dst.Strides[1]+cx] = cb
			vp[cy*dst.Strides[2]+cx] = cr
		}
	}
	return nil
}
