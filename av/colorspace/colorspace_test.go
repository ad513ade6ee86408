// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package colorspace

import (
	"testing"

	"github.com/cnotch/vstream/av/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRoundTripSolidColor(t *testing.T) {
	colors := [][3]byte{
		{0, 0, 0},
		{255, 255, 255},
		{200, 30, 60},
		{10, 180, 240},
	}
	const w, h = 7, 5

	toYUV, err := NewConverter(w, h, codec.PixelFormatRGB24, codec.PixelFormatYUV420P)
	require.NoError(t, err)
	toRGB, err := NewConverter(w, h, codec.PixelFormatYUV420P, codec.PixelFormatRGB24)
	require.NoError(t, err)

	for _, c := range colors {
		rgb, _ := codec.NewPicture(codec.PixelFormatRGB24, w, h)
		for i := 0; i < len(rgb.Planes[0]); i += 3 {
			copy(rgb.Planes[0][i:], c[:])
		}
		yuv, _ := codec.NewPicture(codec.PixelFormatYUV420P, w, h)
		out, _ := codec.NewPicture(codec.PixelFormatRGB24, w, h)

		require.NoError(t, toYUV.Convert(rgb, yuv))
		require.NoError(t, toRGB.Convert(yuv, out))

		for i, v := range out.Planes[0] {
			if absDiff(v, c[i%3]) > 3 {
				t.Fatalf("color %v: pixel %d = %d", c, i, v)
			}
		}
	}
}

func TestStride(t *testing.T) {
	const w, h = 4, 2
	toRGB, err := NewConverter(w, h, codec.PixelFormatYUV420P, codec.PixelFormatRGB24)
	require.NoError(t, err)

	// 带行填充的源图像
	src := &codec.Picture{Format: codec.PixelFormatYUV420P, Width: w, Height: h}
	src.Planes[0] = make([]byte, 8*h)
	src.Planes[1] = make([]byte, 8)
	src.Planes[2] = make([]byte, 8)
	src.Strides = [3]int{8, 8, 8}
	for i := range src.Planes[0] {
		src.Planes[0][i] = 235
	}
	for i := range src.Planes[1] {
		src.Planes[1][i] = 128
		src.Planes[2][i] = 128
	}

	dst, _ := codec.NewPicture(codec.PixelFormatRGB24, w, h)
	require.NoError(t, toRGB.Convert(src, dst))
	for _, v := range dst.Planes[0] {
		assert.Equal(t, byte(235), v)
	}
}

func TestConverterErrors(t *testing.T) {
	_, err := NewConverter(4, 4, codec.PixelFormatRGB24, codec.PixelFormatRGB24)
	assert.Error(t, err)
	_, err = NewConverter(0, 4, codec.PixelFormatRGB24, codec.PixelFormatYUV420P)
	assert.Error(t, err)

	c, err := NewConverter(4, 4, codec.PixelFormatRGB24, codec.PixelFormatYUV420P)
	require.NoError(t, err)

	small, _ := codec.NewPicture(codec.PixelFormatRGB24, 2, 2)
	yuv, _ := codec.NewPicture(codec.PixelFormatYUV420P, 4, 4)
	assert.Error(t, c.Convert(small, yuv))

	rgb, _ := codec.NewPicture(codec.PixelFormatRGB24, 4, 4)
	rgb.Planes[0] = rgb.Planes[0][:10]
	assert.Error(t, c.Convert(rgb, yuv))
	assert.Error(t, c.Convert(yuv, rgb))
}
