// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sdp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cnotch/vstream/av/codec"
)

// Announce 生成只含一路视频的会话描述，
// 图像尺寸和帧率通过 fmtp 传递给接收端
func Announce(video *codec.VideoMeta, host string, payloadType int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	ipver := "IP4"
	if strings.Contains(host, ":") {
		ipver = "IP6"
	}

	var b strings.Builder
	b.WriteString("v=0\r\n")
	fmt.Fprintf(&b, "o=- 0 0 IN %s %s\r\n", ipver, host)
	b.WriteString("s=vstream\r\n")
	fmt.Fprintf(&b, "c=IN %s %s\r\n", ipver, host)
	b.WriteString("t=0 0\r\n")
	fmt.Fprintf(&b, "m=video 0 RTP/AVP %d\r\n", payloadType)
	if video.DataRate > 0 {
		fmt.Fprintf(&b, "b=AS:%d\r\n", int(video.DataRate))
	}
	fmt.Fprintf(&b, "a=rtpmap:%d %s/%d\r\n", payloadType, video.Codec, video.ClockRate)
	fmt.Fprintf(&b, "a=fmtp:%d %s=%d;%s=%d;%s=%s\r\n", payloadType,
		paramWidth, video.Width,
		paramHeight, video.Height,
		paramFrameRate, strconv.FormatFloat(video.FrameRate, 'f', -1, 64))
	b.WriteString("a=control:streamid=0\r\n")
	return b.String()
}
