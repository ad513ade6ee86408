// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"fmt"
	"strings"
)

// PixelFormat 像素格式
type PixelFormat int

// 像素格式常量
const (
	PixelFormatNone    PixelFormat = iota - 1
	PixelFormatYUV420P                    // planar YUV 4:2:0, 12bpp, (1 Cr & Cb sample per 2x2 Y samples)
	PixelFormatRGB24                      // packed RGB 8:8:8, 24bpp, RGBRGB...
)

// String returns a lower-case ASCII representation of the pixel format.
func (pf PixelFormat) String() string {
	switch pf {
	case PixelFormatYUV420P:
		return "yuv420p"
	case PixelFormatRGB24:
		return "rgb24"
	default:
		return ""
	}
}

// MarshalText marshals the PixelFormat to text.
func (pf PixelFormat) MarshalText() ([]byte, error) {
	return []byte(pf.String()), nil
}

// UnmarshalText unmarshals text to a PixelFormat.
func (pf *PixelFormat) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "yuv420p":
		*pf = PixelFormatYUV420P
	case "rgb24":
		*pf = PixelFormatRGB24
	default:
		return fmt.Errorf("unrecognized pixel format: %q", text)
	}
	return nil
}

// Planes 返回像素格式的平面数
func (pf PixelFormat) Planes() int {
	switch pf {
	case PixelFormatYUV420P:
		return 3
	case PixelFormatRGB24:
		return 1
	default:
		return 0
	}
}

// Picture 图像，一个未压缩的视频帧
//
// YUV420P 使用 Planes[0..2]，RGB24 只使用 Planes[0]。
type Picture struct {
	Format   PixelFormat
	Width    int
	Height   int
	Planes   [3][]byte
	Strides  [3]int
	Pts      int64
	KeyFrame bool
}

// NewPicture 分配一个紧凑排列的图像
func NewPicture(format PixelFormat, width, height int) (*Picture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid picture size: %dx%d", width, height)
	}

	pic := &Picture{Format: format, Width: width, Height: height}
	switch format {
	case PixelFormatYUV420P:
		cw, ch := ChromaSize(width, height)
		buf := make([]byte, width*height+2*cw*ch)
		pic.Planes[0] = buf[:width*height:width*height]
		pic.Planes[1] = buf[width*height : width*height+cw*ch : width*height+cw*ch]
		pic.Planes[2] = buf[width*height+cw*ch:]
		pic.Strides = [3]int{width, cw, cw}
	case PixelFormatRGB24:
		pic.Planes[0] = make([]byte, width*height*3)
		pic.Strides[0] = width * 3
	default:
		return nil, fmt.Errorf("unsupported pixel format: %d", format)
	}
	return pic, nil
}

// ChromaSize 返回 4:2:0 色度平面的宽高
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// Validate 检查平面大小是否足以容纳图像
func (p *Picture) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid picture size: %dx%d", p.Width, p.Height)
	}

	switch p.Format {
	case PixelFormatYUV420P:
		cw, ch := ChromaSize(p.Width, p.Height)
		if err := checkPlane("Y", p.Planes[0], p.Strides[0], p.Width, p.Height); err != nil {
			return err
		}
		if err := checkPlane("U", p.Planes[1], p.Strides[1], cw, ch); err != nil {
			return err
		}
		return checkPlane("V", p.Planes[2], p.Strides[2], cw, ch)
	case PixelFormatRGB24:
		return checkPlane("RGB", p.Planes[0], p.Strides[0], p.Width*3, p.Height)
	default:
		return fmt.Errorf("unsupported pixel format: %d", p.Format)
	}
}

func checkPlane(name string, plane []byte, stride, rowBytes, rows int) error {
	if stride < rowBytes {
		return fmt.Errorf("%s plane stride too small: got %d, expected at least %d", name, stride, rowBytes)
	}
	need := stride*(rows-1) + rowBytes
	if len(plane) < need {
		return fmt.Errorf("%s plane too small: got %d, expected %d", name, len(plane), need)
	}
	return nil
}

// Packet 压缩后的数据包
type Packet struct {
	Data     []byte // 压缩数据
	Pts      int64  // 显示时间
	Dts      int64  // 解码时间
	KeyFrame bool   // 是否关键帧
}
