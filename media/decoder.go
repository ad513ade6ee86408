// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"context"
	"errors"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

// Decoder 解码器，把任意切分的压缩字节流解码成 RGB24 帧。
//
// SupplyBytes、Flush 和 Close 必须在同一个生产者 goroutine 中调用；
// GetFrame 可以在任意多个消费者 goroutine 中并发调用。
type Decoder struct {
	codecName string
	width     int
	height    int
	chunker   *chunker
	extractor *extractor
	session   *decodeSession
	queue     *FrameQueue
	flushed   bool
	flow      stats.Flow
	logger    *xlog.Logger
}

// NewDecoder 创建指定编解码器名称的解码器，失败返回 ErrInitialization
func NewDecoder(width, height int, codecName string, opts ...Option) (*Decoder, error) {
	o := newOptions(opts)

	cfg := codec.DecoderConfig{Codec: codecName, Width: width, Height: height}
	if err := cfg.Validate(); err != nil {
		return nil, newError(ErrInitialization, "new decoder", err)
	}

	engine := o.engine
	if engine == nil {
		var err error
		if engine, err = codec.FindDecoder(codecName); err != nil {
			return nil, newError(ErrInitialization, "new decoder", err)
		}
	}

	parser, err := engine.NewParser(codecName)
	if err != nil {
		return nil, newError(ErrInitialization, "new parser", err)
	}

	conv, err := o.converter(width, height, codec.PixelFormatYUV420P, codec.PixelFormatRGB24)
	if err != nil {
		return nil, newError(ErrInitialization, "new converter", err)
	}

	dec, err := engine.NewDecoder(cfg)
	if err != nil {
		closeConverter(conv)
		return nil, newError(ErrInitialization, "new decoder", err)
	}

	logger := o.logger.With(xlog.Fields(
		xlog.F("codec", codecName),
		xlog.F("engine", engine.Name())))
	queue := NewFrameQueue()
	d := &Decoder{
		codecName: codecName,
		width:     width,
		height:    height,
		chunker:   newChunker(o.chunkSize, engine.InputPadding()),
		extractor: &extractor{parser: parser},
		session:   newDecodeSession(dec, conv, queue, width, height, o.flow, logger),
		queue:     queue,
		flow:      o.flow,
		logger:    logger,
	}

	logger.Debugf("decoder created, size = %dx%d, chunk = %d", width, height, o.chunkSize)
	return d, nil
}

// SupplyBytes 提供压缩数据，在调用者的 goroutine 中同步完成解析和解码。
// 返回时 data 已经全部消费，得到的帧都已入列。空数据什么也不做。
func (d *Decoder) SupplyBytes(data []byte) error {
	const op = "supply bytes"
	if err := d.session.check(op); err != nil {
		return err
	}
	if d.flushed {
		return newError(ErrClosed, op, errors.New("decoder is flushed"))
	}
	if len(data) == 0 {
		return nil
	}

	d.flow.AddIn(int64(len(data)), 0)
	for chunk := range d.chunker.Chunks(data) {
		for unit, err := range d.extractor.Units(chunk) {
			if err != nil {
				return d.session.fail(err)
			}
			if err = d.session.submit(unit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush 结束输入：解码解析器和引擎中缓存的数据，然后标记帧队列输入结束，
// 消费者取完剩余的帧后 GetFrame 返回 io.EOF。
func (d *Decoder) Flush() error {
	if err := d.session.check("flush"); err != nil {
		return err
	}
	if d.flushed {
		return nil
	}

	unit, err := d.extractor.Flush()
	if err != nil {
		return d.session.fail(err)
	}
	if unit != nil {
		if err = d.session.submit(unit); err != nil {
			return err
		}
	}
	if err = d.session.drain(); err != nil {
		return err
	}

	d.flushed = true
	d.queue.CloseInput()
	d.logger.Debugf("decoder flushed, %d frames", d.FrameCount())
	return nil
}

// GetFrame 取出最早的帧，没有帧时阻塞。帧的所有权转移给调用者，
// 用完后必须调用 Frame.Release。
//
// Flush 之后帧取完时返回 io.EOF；Close 之后返回 ErrClosed。
func (d *Decoder) GetFrame() (*Frame, error) {
	return d.queue.Dequeue()
}

// GetFrameContext 同 GetFrame，ctx 结束时返回 ctx.Err()
func (d *Decoder) GetFrameContext(ctx context.Context) (*Frame, error) {
	return d.queue.DequeueContext(ctx)
}

// Abort 关闭帧队列：唤醒所有等待的消费者并释放队列中剩余的帧，
// 之后 SupplyBytes 返回 ErrClosed。它不释放引擎资源，
// 可以在生产者以外的 goroutine 中调用；引擎资源仍由生产者调用 Close 释放。
func (d *Decoder) Abort() {
	d.queue.Close()
}

// Close 释放引擎资源，唤醒所有等待的消费者，释放队列中剩余的帧。
// 只能在生产者 goroutine 中调用，可以重复调用。
func (d *Decoder) Close() error {
	err := d.session.close()
	d.queue.Close()
	return err
}

// Codec 编解码器名称
func (d *Decoder) Codec() string { return d.codecName }

// Width 帧宽度
func (d *Decoder) Width() int { return d.width }

// Height 帧高度
func (d *Decoder) Height() int { return d.height }

// FrameCount 已解码的帧数
func (d *Decoder) FrameCount() int64 { return d.session.count.Load() }

// Pending 队列中等待取出的帧数
func (d *Decoder) Pending() int { return d.queue.Len() }

// State 会话状态
func (d *Decoder) State() int32 { return d.session.State() }

// Flow 流量统计，输入为压缩字节和访问单元数，输出为帧字节和帧数
func (d *Decoder) Flow() stats.Flow { return d.flow }
