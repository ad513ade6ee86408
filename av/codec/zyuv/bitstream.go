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
)

// NAL 头，nal_ref_idc 固定为 3
const (
	audHeader   = h264.NalAud
	spsHeader   = 0x60 | h264.NalSps
	idrHeader   = 0x60 | h264.NalIdrSlice
	sliceHeader = 0x40 | h264.NalSlice

	firstMbMarker = 0x80 // first_mb_in_slice = 0 的 ue(v) 编码
	rbspTrailing  = 0x80
)

var errMalformed = errors.New("zyuv: malformed bitstream")

// sequence 序列参数，key 图像前携带
type sequence struct {
	width, height int
	frameRate     int
	gopSize       int
}

func (s sequence) appendRBSP(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(s.width))
	dst = binary.AppendUvarint(dst, uint64(s.height))
	dst = binary.AppendUvarint(dst, uint64(s.frameRate))
	dst = binary.AppendUvarint(dst, uint64(s.gopSize))
	return append(dst, rbspTrailing)
}

func (s *sequence) decode(rbsp []byte) error {
	var vals [4]uint64
	for i := range vals {
		v, n := binary.Uvarint(rbsp)
		if n <= 0 {
			return fmt.Errorf("%w: sequence header", errMalformed)
		}
		vals[i] = v
		rbsp = rbsp[n:]
	}
	if len(rbsp) == 0 || rbsp[0] != rbspTrailing {
		return fmt.Errorf("%w: sequence header trailing bits", errMalformed)
	}
	if vals[0] == 0 || vals[1] == 0 || vals[0] > 1<<14 || vals[1] > 1<<14 {
		return fmt.Errorf("%w: picture size %dx%d", errMalformed, vals[0], vals[1])
	}

	s.width, s.height = int(vals[0]), int(vals[1])
	s.frameRate, s.gopSize = int(vals[2]), int(vals[3])
	return nil
}

// frameSize 返回紧凑排列的 YUV420P 图像字节数
func frameSize(width, height int) int {
	cw, ch := codec.ChromaSize(width, height)
	return width*height + 2*cw*ch
}

// pack 把图像按行拷贝成紧凑排列的三个平面
func pack(dst []byte, pic *codec.Picture) []byte {
	cw, ch := codec.ChromaSize(pic.Width, pic.Height)
	dst = packPlane(dst, pic.Planes[0], pic.Strides[0], pic.Width, pic.Height)
	dst = packPlane(dst, pic.Planes[1], pic.Strides[1], cw, ch)
	return packPlane(dst, pic.Planes[2], pic.Strides[2], cw, ch)
}

func packPlane(dst, plane []byte, stride, width, height int) []byte {
	for y := 0; y < height; y++ {
		dst = append(dst, plane[y*stride:y*stride+width]...)
	}
	return dst
}

// unpack 把紧凑排列的数据设置为图像平面
func unpack(pic *codec.Picture, data []byte) {
	cw, ch := codec.ChromaSize(pic.Width, pic.Height)
	ySize, cSize := pic.Width*pic.Height, cw*ch
	pic.Planes[0] = data[:ySize:ySize]
	pic.Planes[1] = data[ySize : ySize+cSize : ySize+cSize]
	pic.Planes[2] = data[ySize+cSize : ySize+2*cSize]
	pic.Strides = [3]int{pic.Width, cw, cw}
}

// xorInto dst[i] ^= src[i]
func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
