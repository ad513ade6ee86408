// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import "fmt"

// VideoMeta 视频元数据
type VideoMeta struct {
	Codec     string  `json:"codec"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"framerate,omitempty"`
	DataRate  float64 `json:"datarate,omitempty"` // kbps
	ClockRate int     `json:"clockrate,omitempty"`
}

// DecoderConfig 解码器构造参数
type DecoderConfig struct {
	Codec  string // 解码器名称
	Width  int
	Height int
}

// Validate 检查参数
func (c DecoderConfig) Validate() error {
	if c.Codec == "" {
		return fmt.Errorf("decoder name is empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid decoder frame size: %dx%d", c.Width, c.Height)
	}
	return nil
}

// EncoderConfig 编码器构造参数
type EncoderConfig struct {
	Codec       string      `json:"codec"`        // 编码器名称
	Width       int         `json:"width"`        // 图像宽度
	Height      int         `json:"height"`       // 图像高度
	BitRate     int64       `json:"bitrate"`      // 目标码率 bps
	PixelFormat PixelFormat `json:"pixel_format"` // 编码器输入像素格式
	FrameRate   int         `json:"framerate"`    // 帧率
	GopSize     int         `json:"gop_size"`     // 关键帧间隔
	MaxBFrames  int         `json:"max_b_frames"` // 最大连续B帧数
}

// Validate 检查参数
func (c EncoderConfig) Validate() error {
	if c.Codec == "" {
		return fmt.Errorf("encoder name is empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid encoder frame size: %dx%d", c.Width, c.Height)
	}
	if c.PixelFormat != PixelFormatYUV420P {
		return fmt.Errorf("unsupported encoder pixel format: %q", c.PixelFormat.String())
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate: %d", c.FrameRate)
	}
	if c.GopSize < 0 || c.MaxBFrames < 0 {
		return fmt.Errorf("invalid gop size %d or max b-frames %d", c.GopSize, c.MaxBFrames)
	}
	if c.BitRate < 0 {
		return fmt.Errorf("invalid bitrate: %d", c.BitRate)
	}
	return nil
}

// Meta 返回编码参数对应的视频元数据
func (c EncoderConfig) Meta(codecName string) VideoMeta {
	return VideoMeta{
		Codec:     codecName,
		Width:     c.Width,
		Height:    c.Height,
		FrameRate: float64(c.FrameRate),
		DataRate:  float64(c.BitRate) / 1000,
		ClockRate: 90000,
	}
}
