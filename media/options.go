// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/colorspace"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

// DefaultChunkSize 输入分块的默认大小
const DefaultChunkSize = 4096

type options struct {
	logger    *xlog.Logger
	chunkSize int
	engine    codec.Engine
	converter colorspace.ConverterFactory
	flow      stats.Flow
}

func newOptions(opts []Option) options {
	o := options{
		chunkSize: DefaultChunkSize,
		converter: colorspace.NewConverter,
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.logger == nil {
		o.logger = xlog.L()
	}
	if o.flow == nil {
		o.flow = stats.NewFlow()
	}
	return o
}

// Option 配置 Decoder 和 Encoder 的选项接口
type Option interface {
	apply(*options)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// Logger 日志选项
func Logger(logger *xlog.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

// ChunkSize 解码输入分块大小选项
func ChunkSize(size int) Option {
	return optionFunc(func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	})
}

// Engine 指定编解码引擎，不再按名称从注册表查找
func Engine(e codec.Engine) Option {
	return optionFunc(func(o *options) {
		o.engine = e
	})
}

// Converter 像素格式转换器选项
func Converter(factory colorspace.ConverterFactory) Option {
	return optionFunc(func(o *options) {
		if factory != nil {
			o.converter = factory
		}
	})
}

// Flow 流量统计选项，通常传入 stats.NewChildFlow 的结果
func Flow(flow stats.Flow) Option {
	return optionFunc(func(o *options) {
		o.flow = flow
	})
}
