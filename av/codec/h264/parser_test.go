// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStream 返回一个码流以及其中的访问单元
func testStream() ([]byte, [][]byte) {
	var units [][]byte

	// AUD + SPS + PPS + IDR
	au := AppendNalu(nil, NalAud, []byte{0xf0})
	au = AppendNalu(au, NalSps|0x60, []byte{0x42, 0, 0, 0x1e, 0x80})
	au = AppendNalu(au, NalPps|0x60, []byte{0xce, 0x80})
	au = AppendNalu(au, NalIdrSlice|0x60, []byte{0x88, 0, 0, 1, 2, 0x80})
	units = append(units, au)

	// 无 AUD，两个片组成一个图像
	au = AppendNalu(nil, NalSlice|0x40, []byte{0x9a, 1, 2, 0x80})
	au = AppendNalu(au, NalSlice|0x40, []byte{0x42, 3, 4, 0x80})
	units = append(units, au)

	// SEI + 片
	au = AppendNalu(nil, NalSei, []byte{0x05, 0x01, 0xaa, 0x80})
	au = AppendNalu(au, NalSlice|0x40, []byte{0x9a, 5, 0x80})
	units = append(units, au)

	// 三字节起始码
	au = []byte{0, 0, 1, NalSlice | 0x40, 0x9a, 6, 0x80}
	units = append(units, au)

	var stream []byte
	for _, u := range units {
		stream = append(stream, u...)
	}
	return stream, units
}

func parseAll(t *testing.T, stream []byte, step int) [][]byte {
	p := NewAccessUnitParser()
	var units [][]byte
	for len(stream) > 0 {
		end := step
		if end > len(stream) {
			end = len(stream)
		}
		in := stream[:end]
		for len(in) > 0 {
			n, unit, err := p.Parse(in)
			require.NoError(t, err)
			require.True(t, n >= 0 && n <= len(in))
			require.True(t, n > 0 || unit != nil, "no progress")
			if unit != nil {
				units = append(units, append([]byte(nil), unit...))
			}
			in = in[n:]
		}
		stream = stream[end:]
	}

	_, unit, err := p.Parse(nil)
	require.NoError(t, err)
	if unit != nil {
		units = append(units, append([]byte(nil), unit...))
	}
	return units
}

func TestAccessUnitParser(t *testing.T) {
	stream, want := testStream()

	for _, step := range []int{1, 2, 3, 5, 7, 4096} {
		got := parseAll(t, stream, step)
		assert.Equal(t, want, got, "step %d", step)
	}
}

func TestAccessUnitParserFlush(t *testing.T) {
	p := NewAccessUnitParser()

	_, unit, err := p.Parse(nil)
	assert.NoError(t, err)
	assert.Nil(t, unit)

	au := AppendNalu(nil, NalIdrSlice|0x60, []byte{0x88, 0x80})
	n, unit, err := p.Parse(au)
	require.NoError(t, err)
	assert.Equal(t, len(au), n)
	assert.Nil(t, unit)

	_, unit, err = p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, au, unit)

	// 输出后解析器被重置
	_, unit, err = p.Parse(nil)
	assert.NoError(t, err)
	assert.Nil(t, unit)
}

func TestAccessUnitParserMaxSize(t *testing.T) {
	p := NewAccessUnitParser()
	p.maxSize = 16

	au := AppendNalu(nil, NalIdrSlice|0x60, make([]byte, 32))
	n, _, err := p.Parse(au)
	assert.Error(t, err)
	assert.True(t, n < 0)
}
