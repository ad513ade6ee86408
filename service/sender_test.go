// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"bufio"
	"io"
	"net"
	"testing"

	"github.com/cnotch/vstream/av/format/rtp"
	"github.com/cnotch/vstream/config"
	"github.com/cnotch/vstream/media"
	"github.com/cnotch/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillColor(pixels []byte, r, g, b byte) {
	for i := 0; i+2 < len(pixels); i += media.Channels {
		pixels[i], pixels[i+1], pixels[i+2] = r, g, b
	}
}

func TestSenderCopiesFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	dec, err := media.NewDecoder(testWidth, testHeight, "zyuv")
	require.NoError(t, err)

	received := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := server.Read(buf)
			if n > 0 {
				if err := dec.SupplyBytes(buf[:n]); err != nil {
					received <- err
					return
				}
			}
			if err == io.EOF {
				received <- dec.Flush()
				return
			}
			if err != nil {
				received <- err
				return
			}
		}
	}()

	s, err := NewSender(client, testEncoderConfig(), config.FramingRaw, 0, xlog.L())
	require.NoError(t, err)

	// 同一个缓冲区提交后立即改写
	pixels := make([]byte, testWidth*testHeight*media.Channels)
	colors := [][3]byte{{220, 20, 20}, {20, 220, 20}, {20, 20, 220}}
	for _, c := range colors {
		fillColor(pixels, c[0], c[1], c[2])
		require.NoError(t, s.SendFrame(pixels, 0))
	}
	fillColor(pixels, 0, 0, 0)
	require.NoError(t, s.Close())
	require.NoError(t, <-received)

	for _, c := range colors {
		f, err := dec.GetFrame()
		require.NoError(t, err)
		px := f.Data()[:3]
		for k := 0; k < 3; k++ {
			assert.InDelta(t, int(c[k]), int(px[k]), 4)
		}
		f.Release()
	}
	_, err = dec.GetFrame()
	assert.Equal(t, io.EOF, err)
	dec.Close()
}

func TestSenderRTPTimestamps(t *testing.T) {
	const frames = 6
	server, client := net.Pipe()
	defer server.Close()

	type stamp struct {
		ts     uint32
		marker bool
	}
	stamps := make(chan []stamp, 1)
	go func() {
		var got []stamp
		defer func() { stamps <- got }()

		r := bufio.NewReader(server)
		if _, err := readAnnounce(r); err != nil {
			return
		}
		for {
			p, err := rtp.ReadPacket(r, rtp.DefaultChannelConfig)
			if err != nil {
				return
			}
			if p.Channel == rtp.ChannelVideo {
				got = append(got, stamp{p.Timestamp, p.Marker})
			}
		}
	}()

	cfg := testEncoderConfig()
	s, err := NewSender(client, cfg, config.FramingRTP, 1400, xlog.L())
	require.NoError(t, err)

	pattern := NewTestPattern(testWidth, testHeight)
	for i := 0; i < frames; i++ {
		require.NoError(t, s.SendFrame(pattern.Next(), 0))
	}
	require.NoError(t, s.Close())

	// 每个访问单元以 marker 结束，时间戳等于该访问单元自身的显示时间
	meta := cfg.Meta("zyuv")
	pz, err := rtp.NewH264Packetizer(&meta, 0, 1400)
	require.NoError(t, err)

	var want, ends []uint32
	for i := 0; i < frames; i++ {
		want = append(want, pz.Timestamp(int64(i)))
	}
	for _, st := range <-stamps {
		if st.marker {
			ends = append(ends, st.ts)
		}
	}
	assert.Equal(t, want, ends)
}
