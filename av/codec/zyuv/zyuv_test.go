// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zyuv

import (
	"errors"
	"testing"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/codec/h264"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() codec.EncoderConfig {
	return codec.EncoderConfig{
		Codec:       Name,
		Width:       33,
		Height:      17,
		BitRate:     400000,
		PixelFormat: codec.PixelFormatYUV420P,
		FrameRate:   25,
		GopSize:     3,
		MaxBFrames:  1,
	}
}

func testPicture(t *testing.T, w, h int, seed byte) *codec.Picture {
	pic, err := codec.NewPicture(codec.PixelFormatYUV420P, w, h)
	require.NoError(t, err)
	for i := range pic.Planes {
		for j := range pic.Planes[i] {
			pic.Planes[i][j] = seed + byte(i*31+j%7)
		}
	}
	return pic
}

func receiveAll(t *testing.T, enc codec.Encoder) []*codec.Packet {
	var pkts []*codec.Packet
	for {
		pkt, err := enc.ReceivePacket()
		if errors.Is(err, codec.ErrAgain) || errors.Is(err, codec.ErrEOF) {
			return pkts
		}
		require.NoError(t, err)
		pkts = append(pkts, pkt)
	}
}

func TestRegistered(t *testing.T) {
	e, err := codec.FindEncoder(Name)
	require.NoError(t, err)
	assert.Equal(t, Name, e.DecoderFor(Name))
	assert.Equal(t, InputPadding, e.InputPadding())

	_, err = e.NewEncoder(codec.EncoderConfig{Codec: Name})
	assert.Error(t, err)
}

func TestEncoderDelayAndGop(t *testing.T) {
	cfg := testConfig()
	enc, err := newEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	var pkts []*codec.Packet
	for i := 0; i < 5; i++ {
		pic := testPicture(t, cfg.Width, cfg.Height, byte(i))
		pic.Pts = int64(i)
		require.NoError(t, enc.SendPicture(pic))
		out := receiveAll(t, enc)
		if i == 0 {
			assert.Empty(t, out, "first picture is delayed")
		} else {
			assert.Len(t, out, 1)
		}
		pkts = append(pkts, out...)
	}

	require.NoError(t, enc.SendPicture(nil))
	pkts = append(pkts, receiveAll(t, enc)...)
	require.Len(t, pkts, 5)

	_, err = enc.ReceivePacket()
	assert.True(t, errors.Is(err, codec.ErrEOF))
	assert.Error(t, enc.SendPicture(testPicture(t, cfg.Width, cfg.Height, 0)))

	for i, pkt := range pkts {
		assert.Equal(t, int64(i), pkt.Pts)
		assert.Equal(t, i%cfg.GopSize == 0, pkt.KeyFrame, "packet %d", i)
	}
}

func TestEncoderRejectsPicture(t *testing.T) {
	enc, err := newEncoder(testConfig())
	require.NoError(t, err)
	defer enc.Close()

	assert.Error(t, enc.SendPicture(testPicture(t, 8, 8, 0)))
}

func TestRoundTrip(t *testing.T) {
	cfg := testConfig()
	enc, err := newEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	var pics []*codec.Picture
	var stream []byte
	for i := 0; i < 7; i++ {
		pic := testPicture(t, cfg.Width, cfg.Height, byte(i*3))
		pic.Pts = int64(i)
		pics = append(pics, pic)
		require.NoError(t, enc.SendPicture(pic))
		for _, pkt := range receiveAll(t, enc) {
			stream = append(stream, pkt.Data...)
		}
	}
	require.NoError(t, enc.SendPicture(nil))
	for _, pkt := range receiveAll(t, enc) {
		stream = append(stream, pkt.Data...)
	}

	dec, err := newDecoder(codec.DecoderConfig{Codec: Name, Width: cfg.Width, Height: cfg.Height})
	require.NoError(t, err)
	defer dec.Close()

	parser := h264.NewAccessUnitParser()
	var got []*codec.Picture
	submit := func(unit []byte) {
		require.NoError(t, dec.SendPacket(unit))
		for {
			pic, err := dec.ReceivePicture()
			if errors.Is(err, codec.ErrAgain) || errors.Is(err, codec.ErrEOF) {
				return
			}
			require.NoError(t, err)
			clone, err := codec.NewPicture(pic.Format, pic.Width, pic.Height)
			require.NoError(t, err)
			copy(clone.Planes[0], pic.Planes[0])
			copy(clone.Planes[1], pic.Planes[1])
			copy(clone.Planes[2], pic.Planes[2])
			clone.Pts = pic.Pts
			got = append(got, clone)
		}
	}

	for len(stream) > 0 {
		n, unit, err := parser.Parse(stream)
		require.NoError(t, err)
		if unit != nil {
			submit(unit)
		}
		stream = stream[n:]
	}
	if _, unit, _ := parser.Parse(nil); unit != nil {
		submit(unit)
	}
	submit(nil)

	require.Len(t, got, len(pics))
	for i := range pics {
		assert.Equal(t, pics[i].Pts, got[i].Pts)
		assert.Equal(t, pics[i].Planes, got[i].Planes, "picture %d", i)
	}
}

func TestDecoderErrors(t *testing.T) {
	dec, err := newDecoder(codec.DecoderConfig{Codec: Name, Width: 16, Height: 16})
	require.NoError(t, err)
	defer dec.Close()

	// 没有参考图像的差分图像
	delta := h264.AppendNalu(nil, sliceHeader, []byte{firstMbMarker, 0, rbspTrailing})
	assert.Error(t, dec.SendPacket(delta))

	// 损坏的片头
	idr := h264.AppendNalu(nil, idrHeader, []byte{0x01, rbspTrailing})
	assert.Error(t, dec.SendPacket(idr))

	_, err = dec.ReceivePicture()
	assert.True(t, errors.Is(err, codec.ErrAgain))

	require.NoError(t, dec.SendPacket(nil))
	_, err = dec.ReceivePicture()
	assert.True(t, errors.Is(err, codec.ErrEOF))

	_, err = newDecoder(codec.DecoderConfig{Codec: "h264", Width: 16, Height: 16})
	assert.True(t, errors.Is(err, codec.ErrCodecNotFound))
}
