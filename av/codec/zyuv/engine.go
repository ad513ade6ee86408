// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package zyuv 纯 Go 实现的参考编解码引擎。
//
// 码流采用 H.264 Annex B 语法：每个访问单元由 AUD、关键图像前的序列参数
// 以及一个片组成，片数据是经 zstd 压缩的 YUV420P 图像，非关键图像和上一幅
// 图像做异或差分。编码是无损的。
package zyuv

import (
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/codec/h264"
)

// Name 编解码器名称
const Name = "zyuv"

// InputPadding 解析器输入缓冲区的填充字节数，和 AV_INPUT_BUFFER_PADDING_SIZE 一致
const InputPadding = 64

func init() {
	codec.Register(engine{})
}

type engine struct{}

func (engine) Name() string                 { return Name }
func (engine) Decoders() []string           { return []string{Name} }
func (engine) Encoders() []string           { return []string{Name} }
func (engine) DecoderFor(enc string) string { return Name }
func (engine) InputPadding() int            { return InputPadding }

func (engine) NewParser(decoder string) (codec.Parser, error) {
	return h264.NewAccessUnitParser(), nil
}

func (engine) NewDecoder(config codec.DecoderConfig) (codec.Decoder, error) {
	dec, err := newDecoder(config)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

func (engine) NewEncoder(config codec.EncoderConfig) (codec.Encoder, error) {
	enc, err := newEncoder(config)
	if err != nil {
		return nil, err
	}
	return enc, nil
}
