// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sdp

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cnotch/vstream/av/codec"
	"github.com/pixelbender/go-sdp/sdp"
)

// fmtp 中携带的图像参数
const (
	paramWidth     = "width"
	paramHeight    = "height"
	paramFrameRate = "framerate"
)

// ErrNoVideo 会话描述中没有视频媒体
var ErrNoVideo = errors.New("sdp: no video media")

// ParseMetadata 从会话描述中解析视频元数据
func ParseMetadata(rawsdp string, video *codec.VideoMeta) error {
	sess, err := sdp.ParseString(rawsdp)
	if err != nil {
		return err
	}

	for _, media := range sess.Media {
		if media.Type != "video" || len(media.Format) == 0 {
			continue
		}

		format := media.Format[0]
		video.Codec = format.Name
		if video.Codec == "" {
			continue
		}
		for _, bw := range media.Bandwidth {
			if bw.Type == "AS" {
				video.DataRate = float64(bw.Value)
			}
		}
		parseVideoMeta(format, video)
		return nil
	}
	return ErrNoVideo
}

func parseVideoMeta(m *sdp.Format, video *codec.VideoMeta) {
	if m.ClockRate > 0 {
		video.ClockRate = m.ClockRate
	}

	for _, p := range m.Params {
		for _, token := range strings.Split(p, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(token), "=")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(name) {
			case paramWidth:
				video.Width, _ = strconv.Atoi(value)
			case paramHeight:
				video.Height, _ = strconv.Atoi(value)
			case paramFrameRate:
				video.FrameRate, _ = strconv.ParseFloat(value, 64)
			}
		}
	}
}
