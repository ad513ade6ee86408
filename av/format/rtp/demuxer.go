// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"errors"
	"runtime/debug"
	"sync/atomic"

	"github.com/cnotch/queue"
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/xlog"
)

// 通知处理例程退出的哨兵包
var eosPacket = &Packet{Channel: ChannelCount}

// Demuxer 在独立的例程中把 RTP 包还原成码流
type Demuxer struct {
	closed    atomic.Bool
	recvQueue *queue.SyncQueue
	vdp       *H264Depacketizer
	done      chan struct{}
	logger    *xlog.Logger
}

// NewDemuxer 创建 rtp.Packet 解封装处理器，还原出的码流写入 w。
func NewDemuxer(video *codec.VideoMeta, w StreamWriter, logger *xlog.Logger) (*Demuxer, error) {
	if video.ClockRate <= 0 {
		return nil, errors.New("rtp demuxer requires video clock rate")
	}

	demuxer := &Demuxer{
		recvQueue: queue.NewSyncQueue(),
		vdp:       NewH264Depacketizer(video.ClockRate, w),
		done:      make(chan struct{}),
		logger:    logger,
	}

	go demuxer.process()
	return demuxer, nil
}

func (demuxer *Demuxer) process() {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			demuxer.logger.Errorf("rtp demuxer routine panic；r = %v \n %s", r, debug.Stack())
		}

		// 尽早通知GC，回收内存
		demuxer.recvQueue.Reset()
		close(demuxer.done)
	}()

	for {
		p := demuxer.recvQueue.Pop()
		if p == nil {
			continue
		}

		packet := p.(*Packet)
		var err error
		switch packet.Channel {
		case ChannelVideo:
			err = demuxer.vdp.Depacketize(packet)
		case ChannelVideoControl:
			err = demuxer.vdp.Control(packet)
		case ChannelCount:
			return
		}

		if err != nil {
			demuxer.logger.Errorf("rtp demuxer: depacketize rtp packet error :%s", err.Error())
		}
	}
}

// Close 处理完已收到的包后退出处理例程
func (demuxer *Demuxer) Close() error {
	if !demuxer.closed.CompareAndSwap(false, true) {
		return nil
	}

	demuxer.recvQueue.Push(eosPacket)
	<-demuxer.done
	return nil
}

// WriteRtpPacket 提交一个 RTP 包
func (demuxer *Demuxer) WriteRtpPacket(packet *Packet) error {
	if demuxer.closed.Load() {
		return errors.New("rtp demuxer closed")
	}
	demuxer.recvQueue.Push(packet)
	return nil
}

// Lost 丢包数
func (demuxer *Demuxer) Lost() int64 {
	return demuxer.vdp.Lost()
}
