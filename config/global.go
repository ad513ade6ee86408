// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/cnotch/loader"
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/xlog"
)

// 服务名
const (
	Vendor  = "CAOHONGJU"
	Name    = "vstream"
	Version = "V1.0.0"
)

var (
	globalC  *config
	defaultC = defaultConfig()
)

// InitConfig 初始化 Config
func InitConfig() {
	exe, err := os.Executable()
	if err != nil {
		xlog.Panic(err.Error())
	}

	configPath := filepath.Join(filepath.Dir(exe), Name+".conf")

	globalC = new(config)
	globalC.initFlags()

	// 创建或加载配置文件
	if err := cfg.Load(globalC,
		&cfg.JSONLoader{Path: configPath, CreatedIfNonExsit: true},
		&cfg.EnvLoader{Prefix: strings.ToUpper(Name)},
		&cfg.FlagLoader{}); err != nil {
		// 异常，直接退出
		xlog.Panic(err.Error())
	}

	if err := globalC.validate(); err != nil {
		xlog.Panic(err.Error())
	}

	// 初始化日志
	globalC.Log.initLogger()
}

func (c *config) validate() error {
	switch c.Mode {
	case ModeReceive, ModeSend:
	default:
		return fmt.Errorf("unknown mode: %q", c.Mode)
	}
	switch c.Framing {
	case FramingRaw, FramingRTP:
	default:
		return fmt.Errorf("unknown stream framing: %q", c.Framing)
	}
	if c.Decoder.Width <= 0 || c.Decoder.Height <= 0 {
		return fmt.Errorf("invalid frame size: %dx%d", c.Decoder.Width, c.Decoder.Height)
	}
	if c.Decoder.BufferSize <= 0 {
		c.Decoder.BufferSize = defaultC.Decoder.BufferSize
	}
	return c.Encoder.Validate()
}

func current() *config {
	if globalC == nil {
		return defaultC
	}
	return globalC
}

// Mode 运行模式
func Mode() string {
	return current().Mode
}

// Addr 码流侦听地址
func Addr() string {
	return current().ListenAddr
}

// HTTPAddr API 和 websocket 侦听地址
func HTTPAddr() string {
	return current().HTTPAddr
}

// Target 发送模式下接收端地址
func Target() string {
	return current().Target
}

// Framing 码流封装方式
func Framing() string {
	return current().Framing
}

// Frames 发送模式下发送的帧数
func Frames() int {
	return current().Frames
}

// Profile 是否启动 Http Profile
func Profile() bool {
	return current().Profile
}

// Decoder 接收端解码配置
func Decoder() DecoderConfig {
	return current().Decoder
}

// Encoder 发送端编码参数
func Encoder() codec.EncoderConfig {
	return current().Encoder.EncoderConfig
}

// MTU RTP 包的最大长度
func MTU() int {
	return current().Encoder.MTU
}

// NetTimeout 返回网络超时设置
func NetTimeout() time.Duration {
	return time.Second * 45
}

// NetBufferSize 网络通讯时的BufferSize
func NetBufferSize() int {
	return 128 * 1024
}

// NetFlushRate 网络刷新频率
func NetFlushRate() int {
	return 30
}

// StatsInterval 统计日志的输出间隔
func StatsInterval() time.Duration {
	return time.Minute
}
