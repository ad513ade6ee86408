// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

// Encoder 编码器，把 RGB24 图像编码成压缩字节流。
// Encoder 不是并发安全的，同一时间只能有一个 goroutine 调用。
type Encoder struct {
	cfg     codec.EncoderConfig
	decoder string // 能够解码输出的解码器名称
	session *encodeSession
	flow    stats.Flow
	logger  *xlog.Logger
}

// NewEncoder 按配置创建编码器，失败返回 ErrInitialization
func NewEncoder(cfg codec.EncoderConfig, opts ...Option) (*Encoder, error) {
	o := newOptions(opts)

	if err := cfg.Validate(); err != nil {
		return nil, newError(ErrInitialization, "new encoder", err)
	}

	engine := o.engine
	if engine == nil {
		var err error
		if engine, err = codec.FindEncoder(cfg.Codec); err != nil {
			return nil, newError(ErrInitialization, "new encoder", err)
		}
	}

	conv, err := o.converter(cfg.Width, cfg.Height, codec.PixelFormatRGB24, codec.PixelFormatYUV420P)
	if err != nil {
		return nil, newError(ErrInitialization, "new converter", err)
	}

	enc, err := engine.NewEncoder(cfg)
	if err != nil {
		closeConverter(conv)
		return nil, newError(ErrInitialization, "new encoder", err)
	}

	logger := o.logger.With(xlog.Fields(
		xlog.F("codec", cfg.Codec),
		xlog.F("engine", engine.Name())))
	session, err := newEncodeSession(enc, conv, cfg, o.flow, logger)
	if err != nil {
		enc.Close()
		closeConverter(conv)
		return nil, newError(ErrInitialization, "new encoder", err)
	}

	logger.Debugf("encoder created, size = %dx%d, bitrate = %d, fps = %d, gop = %d, max_b_frames = %d",
		cfg.Width, cfg.Height, cfg.BitRate, cfg.FrameRate, cfg.GopSize, cfg.MaxBFrames)
	return &Encoder{
		cfg:     cfg,
		decoder: engine.DecoderFor(cfg.Codec),
		session: session,
		flow:    o.flow,
		logger:  logger,
	}, nil
}

// EncodeFrame 编码一幅 RGB24 图像。
//
// pixels 按行排列，行宽 stride 字节，stride 为 0 时表示 3*Width。
// 返回这次调用引擎输出的全部压缩数据，可能为空（引擎缓存了图像），
// 也可能包含多个包；返回的数据归调用者所有。出错时返回 nil，
// 之前调用返回的数据不受影响。
func (e *Encoder) EncodeFrame(pixels []byte, stride int) ([]byte, error) {
	packets, err := e.session.encode(pixels, stride)
	if err != nil {
		return nil, err
	}
	return joinPackets(packets), nil
}

// EncodePackets 同 EncodeFrame，但按引擎输出顺序逐个返回包。
// 有 B 帧时包的 Pts 与输入顺序不同，需要逐包打时间戳的封装（如 RTP）应使用它。
func (e *Encoder) EncodePackets(pixels []byte, stride int) ([]codec.Packet, error) {
	return e.session.encode(pixels, stride)
}

// Flush 结束输入，返回引擎缓存的剩余压缩数据
func (e *Encoder) Flush() ([]byte, error) {
	packets, err := e.session.flush()
	if err != nil {
		return nil, err
	}
	return joinPackets(packets), nil
}

// FlushPackets 同 Flush，按输出顺序逐个返回包
func (e *Encoder) FlushPackets() ([]codec.Packet, error) {
	return e.session.flush()
}

// Close 释放引擎资源，可以重复调用
func (e *Encoder) Close() error {
	return e.session.close()
}

// Config 编码参数
func (e *Encoder) Config() codec.EncoderConfig { return e.cfg }

// DecoderName 能够解码本编码器输出的解码器名称
func (e *Encoder) DecoderName() string { return e.decoder }

// Meta 输出流的视频元数据
func (e *Encoder) Meta() codec.VideoMeta { return e.cfg.Meta(e.decoder) }

// Pts 下一幅图像的显示时间，从 0 开始每次 EncodeFrame 加 1
func (e *Encoder) Pts() int64 { return e.session.pts.Load() }

// State 会话状态
func (e *Encoder) State() int32 { return e.session.State() }

// Flow 流量统计，输入为图像字节和图像数，输出为压缩字节和包数
func (e *Encoder) Flow() stats.Flow { return e.flow }
