// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build ffmpeg

package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/codec/h264"
)

// Name 引擎名称
const Name = "ffmpeg"

// inputPadding AV_INPUT_BUFFER_PADDING_SIZE
const inputPadding = 64

func init() {
	codec.Register(engine{})
}

type engine struct{}

func (engine) Name() string       { return Name }
func (engine) Decoders() []string { return []string{"h264"} }
func (engine) Encoders() []string { return []string{"libx264", "h264_nvenc", "h264_vaapi"} }
func (engine) InputPadding() int  { return inputPadding }

func (engine) DecoderFor(encoder string) string {
	return "h264"
}

func (engine) NewParser(decoder string) (codec.Parser, error) {
	if decoder != "h264" {
		return nil, fmt.Errorf("ffmpeg: no parser for %q", decoder)
	}
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

// mapError 把 libavcodec 的 EAGAIN/EOF 转换成引擎约定的错误
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return codec.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return codec.ErrEOF
	default:
		return err
	}
}
