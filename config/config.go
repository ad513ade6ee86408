// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"

	"github.com/cnotch/vstream/av/codec"
)

// 运行模式
const (
	ModeReceive = "receive" // 接收、解码
	ModeSend    = "send"    // 编码、发送
)

// 码流在连接上的封装方式
const (
	FramingRaw = "raw" // 直接传输 Annex B 字节流
	FramingRTP = "rtp" // SDP 通告之后传输交织的 RTP 包
)

// config 服务配置
type config struct {
	Mode       string        `json:"mode"`    // 运行模式
	ListenAddr string        `json:"listen"`  // 码流接收侦听地址和端口
	HTTPAddr   string        `json:"http"`    // API 和 websocket 侦听地址
	Target     string        `json:"target"`  // 发送模式下接收端的地址
	Framing    string        `json:"framing"` // 码流封装方式
	Frames     int           `json:"frames"`  // 发送模式下发送的帧数，0 表示不限
	Profile    bool          `json:"profile"` // 是否启动Profile
	Decoder    DecoderConfig `json:"decoder"` // 接收端解码配置
	Encoder    EncoderConfig `json:"encoder"` // 发送端编码配置
	Log        LogConfig     `json:"log"`     // 日志配置
}

// DecoderConfig 接收端解码配置
type DecoderConfig struct {
	Codec      string `json:"codec"`      // 解码器名称
	Width      int    `json:"width"`      // 输出图像宽度
	Height     int    `json:"height"`     // 输出图像高度
	ChunkSize  int    `json:"chunksize"`  // 解码器输入块大小
	BufferSize int    `json:"buffersize"` // 每次从连接读取的字节数
}

// EncoderConfig 发送端编码配置
type EncoderConfig struct {
	codec.EncoderConfig
	MTU int `json:"mtu"` // RTP 封装时包的最大长度
}

func (c *config) initFlags() {
	flag.StringVar(&c.Mode, "mode", ModeReceive, "Set run mode (receive|send)")
	flag.StringVar(&c.ListenAddr, "listen", ":17098", "Set stream listen address")
	flag.StringVar(&c.HTTPAddr, "http", ":17099", "Set api and websocket listen address")
	flag.StringVar(&c.Target, "target", "127.0.0.1:17098", "Set receiver address in send mode")
	flag.StringVar(&c.Framing, "framing", FramingRaw, "Set stream framing (raw|rtp)")
	flag.IntVar(&c.Frames, "frames", 0, "Set number of test pattern frames to send, 0 means unlimited")
	flag.BoolVar(&c.Profile, "pprof", false,
		"Determines if profile enabled")

	c.Decoder.initFlags()
	c.Encoder.initFlags()
	// 初始化日志配置
	c.Log.initFlags()
}

func (c *DecoderConfig) initFlags() {
	flag.StringVar(&c.Codec, "decoder", "zyuv", "Set decoder name")
	flag.IntVar(&c.Width, "frame-width", 640, "Set decoded frame width")
	flag.IntVar(&c.Height, "frame-height", 480, "Set decoded frame height")
	flag.IntVar(&c.ChunkSize, "chunksize", 4096, "Set decoder input chunk size")
	flag.IntVar(&c.BufferSize, "buffersize", 4096, "Set stream read buffer size")
}

func (c *EncoderConfig) initFlags() {
	c.PixelFormat = codec.PixelFormatYUV420P
	flag.StringVar(&c.Codec, "encoder", "zyuv", "Set encoder name")
	flag.IntVar(&c.Width, "encoder-width", 640, "Set encoded frame width")
	flag.IntVar(&c.Height, "encoder-height", 480, "Set encoded frame height")
	flag.Int64Var(&c.BitRate, "bitrate", 10000000, "Set encoder target bitrate")
	flag.IntVar(&c.FrameRate, "fps", 25, "Set encoder frame rate")
	flag.IntVar(&c.GopSize, "gop", 10, "Set encoder gop size")
	flag.IntVar(&c.MaxBFrames, "max-b-frames", 1, "Set encoder max b-frames")
	flag.IntVar(&c.MTU, "mtu", 1400, "Set rtp packet mtu")
}

func defaultConfig() *config {
	return &config{
		Mode:       ModeReceive,
		ListenAddr: ":17098",
		HTTPAddr:   ":17099",
		Target:     "127.0.0.1:17098",
		Framing:    FramingRaw,
		Decoder: DecoderConfig{
			Codec:      "zyuv",
			Width:      640,
			Height:     480,
			ChunkSize:  4096,
			BufferSize: 4096,
		},
		Encoder: EncoderConfig{
			EncoderConfig: codec.EncoderConfig{
				Codec:       "zyuv",
				Width:       640,
				Height:      480,
				BitRate:     10000000,
				PixelFormat: codec.PixelFormatYUV420P,
				FrameRate:   25,
				GopSize:     10,
				MaxBFrames:  1,
			},
			MTU: 1400,
		},
	}
}
