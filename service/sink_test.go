// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"testing"

	"github.com/cnotch/vstream/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodePattern 编码后解码 n 幅彩条图像
func decodePattern(t *testing.T, n int) []*media.Frame {
	enc, err := media.NewEncoder(testEncoderConfig())
	require.NoError(t, err)
	defer enc.Close()
	dec, err := media.NewDecoder(testWidth, testHeight, enc.DecoderName())
	require.NoError(t, err)
	defer dec.Close()

	pattern := NewTestPattern(testWidth, testHeight)
	for i := 0; i < n; i++ {
		out, err := enc.EncodeFrame(pattern.Next(), 0)
		require.NoError(t, err)
		require.NoError(t, dec.SupplyBytes(out))
	}
	tail, err := enc.Flush()
	require.NoError(t, err)
	require.NoError(t, dec.SupplyBytes(tail))
	require.NoError(t, dec.Flush())

	frames := make([]*media.Frame, n)
	for i := range frames {
		frames[i], err = dec.GetFrame()
		require.NoError(t, err)
	}
	return frames
}

func TestSnapshotSink(t *testing.T) {
	frames := decodePattern(t, 3)

	var forwarded []int64
	sink := newSnapshotSink(FrameSinkFunc(func(f *media.Frame) {
		forwarded = append(forwarded, f.Index)
		f.Release()
	}))

	_, ok := sink.Snapshot()
	assert.False(t, ok)

	for _, f := range frames {
		sink.Consume(f)
	}
	assert.Equal(t, []int64{1, 2, 3}, forwarded)
	assert.Equal(t, int64(3), sink.Frames())

	snap, ok := sink.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int64(3), snap.Index)
	assert.Equal(t, int64(2), snap.Pts)
	assert.Equal(t, testWidth, snap.Image.Bounds().Dx())

	// 第三幅图像彩条左移了 8 个像素，最左边是第二个彩条（黄）
	c := snap.Image.RGBAAt(0, 0)
	assert.InDelta(t, 235, int(c.R), 6)
	assert.InDelta(t, 235, int(c.G), 6)
	assert.InDelta(t, 16, int(c.B), 6)
	assert.Equal(t, uint8(0xff), c.A)

	// 快照是拷贝
	snap.Image.Pix[0] = 1
	again, _ := sink.Snapshot()
	assert.NotEqual(t, uint8(1), again.Image.Pix[0])
}

func TestSnapshotSinkReleases(t *testing.T) {
	frames := decodePattern(t, 1)
	sink := newSnapshotSink(nil)
	sink.Consume(frames[0])
	assert.Nil(t, frames[0].Data())

	_, ok := sink.Snapshot()
	assert.True(t, ok)
}
