// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sdp

import (
	"testing"

	"github.com/cnotch/vstream/av/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sdpRaw = `v=0
o=- 0 0 IN IP4 127.0.0.1
s=No Name
c=IN IP4 127.0.0.1
t=0 0
a=tool:libavformat 58.20.100
m=video 0 RTP/AVP 96
b=AS:2500
a=rtpmap:96 H264/90000
a=fmtp:96 packetization-mode=1; profile-level-id=64001F
a=control:streamid=0
m=audio 0 RTP/AVP 97
b=AS:160
a=rtpmap:97 MPEG4-GENERIC/44100/2
a=control:streamid=1
`

func TestParseMetadata(t *testing.T) {
	var video codec.VideoMeta
	require.NoError(t, ParseMetadata(sdpRaw, &video))
	assert.Equal(t, "H264", video.Codec)
	assert.Equal(t, 90000, video.ClockRate)
	assert.Equal(t, float64(2500), video.DataRate)
	assert.Zero(t, video.Width)
}

func TestParseMetadataNoVideo(t *testing.T) {
	raw := `v=0
o=- 0 0 IN IP4 127.0.0.1
s=No Name
t=0 0
m=audio 0 RTP/AVP 97
a=rtpmap:97 MPEG4-GENERIC/44100/2
`
	var video codec.VideoMeta
	assert.Equal(t, ErrNoVideo, ParseMetadata(raw, &video))
}

func TestAnnounceRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		host string
		meta codec.VideoMeta
	}{
		{"zyuv", "192.168.1.10", codec.VideoMeta{Codec: "zyuv", Width: 640, Height: 480, FrameRate: 25, DataRate: 10000, ClockRate: 90000}},
		{"h264_ipv6", "::1", codec.VideoMeta{Codec: "h264", Width: 1280, Height: 720, FrameRate: 29.97, ClockRate: 90000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Announce(&tt.meta, tt.host, 96)
			assert.Contains(t, raw, "a=rtpmap:96 "+tt.meta.Codec+"/90000\r\n")

			var got codec.VideoMeta
			require.NoError(t, ParseMetadata(raw, &got))
			assert.Equal(t, tt.meta, got)
		})
	}
}
