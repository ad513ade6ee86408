// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"fmt"
	"sync/atomic"

	"github.com/cnotch/vstream/av/codec/h264"
)

// StreamWriter 接收还原出的 Annex B 字节流
type StreamWriter interface {
	WriteStream(data []byte) error
}

// StreamWriterFunc 把函数适配成 StreamWriter
type StreamWriterFunc func(data []byte) error

// WriteStream 调用 f(data)
func (f StreamWriterFunc) WriteStream(data []byte) error { return f(data) }

// Depacketizer 解包器
type Depacketizer interface {
	Control(p *Packet) error
	Depacketize(p *Packet) error
}

// H264Depacketizer 把 RFC 6184 RTP 包还原成 Annex B 字节流
type H264Depacketizer struct {
	fragments []*Packet // 分片包
	buf       []byte
	started   bool
	lastSeq   uint16
	lost      atomic.Int64
	syncClock SyncClock
	w         StreamWriter
}

var _ Depacketizer = (*H264Depacketizer)(nil)

// NewH264Depacketizer 实例化 H264 解包器
func NewH264Depacketizer(clockRate int, w StreamWriter) *H264Depacketizer {
	dp := &H264Depacketizer{
		fragments: make([]*Packet, 0, 16),
		w:         w,
	}
	dp.syncClock.Init(clockRate)
	return dp
}

// Control 处理控制通道的包
func (dp *H264Depacketizer) Control(p *Packet) error {
	dp.syncClock.Decode(p.Data)
	return nil
}

// Lost 按序号统计的丢包数
func (dp *H264Depacketizer) Lost() int64 {
	return dp.lost.Load()
}

// SyncClock 最近一次发送者报告建立的同步时钟
func (dp *H264Depacketizer) SyncClock() SyncClock {
	return dp.syncClock
}

// Depacketize 处理视频通道的包
func (dp *H264Depacketizer) Depacketize(packet *Packet) (err error) {
	if dp.started && packet.SequenceNumber != dp.lastSeq+1 {
		dp.lost.Add(int64(packet.SequenceNumber - dp.lastSeq - 1))
	}
	dp.started = true
	dp.lastSeq = packet.SequenceNumber

	payload := packet.Payload()
	if len(payload) < 1 {
		return
	}

	// +---------------+
	// |0|1|2|3|4|5|6|7|
	// +-+-+-+-+-+-+-+-+
	// |F|NRI|  Type   |
	// +---------------+
	naluType := payload[0] & h264.NalTypeBitmask

	dp.buf = dp.buf[:0]
	switch {
	case naluType < h264.NalStapaInRtp:
		dp.appendNalu(payload)
	case naluType == h264.NalStapaInRtp:
		err = dp.depacketizeStapa(payload)
	case naluType == h264.NalFuAInRtp:
		dp.depacketizeFuA(packet)
	default:
		err = fmt.Errorf("nalu type %d is currently not handled", naluType)
	}

	if err == nil && len(dp.buf) > 0 {
		err = dp.w.WriteStream(dp.buf)
	}
	return
}

func (dp *H264Depacketizer) appendNalu(nalu []byte) {
	dp.buf = append(dp.buf, h264.StartCode...)
	dp.buf = append(dp.buf, nalu...)
}

func (dp *H264Depacketizer) depacketizeStapa(payload []byte) error {
	//  +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//  |STAP-A NAL HDR |         NALU 1 Size           | NALU 1 HDR    |
	//  +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//  |                         NALU 1 Data                           |
	//  :                                                               :
	//  +               +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//  |               | NALU 2 Size                   | NALU 2 HDR    |
	//  +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	off := 1 // 跳过 STAP-A NAL HDR
	for off+2 <= len(payload) {
		nalSize := int(payload[off])<<8 | int(payload[off+1])
		off += 2
		if nalSize < 1 || off+nalSize > len(payload) {
			return fmt.Errorf("invalid STAP-A nalu size %d", nalSize)
		}
		dp.appendNalu(payload[off : off+nalSize])
		off += nalSize
	}
	return nil
}

func (dp *H264Depacketizer) depacketizeFuA(packet *Packet) {
	payload := packet.Payload()
	if len(payload) < fuHeaderSize {
		return
	}
	header := payload[0]

	// +---------------+
	// |0|1|2|3|4|5|6|7|
	// +-+-+-+-+-+-+-+-+
	// |S|E|R|  Type   |
	// +---------------+
	fuHeader := payload[1]

	if (fuHeader>>7)&1 == 1 { // 第一个分片包
		dp.fragments = dp.fragments[:0]
	} else if len(dp.fragments) == 0 {
		return // 丢失了起始分片
	}
	if len(dp.fragments) != 0 &&
		dp.fragments[len(dp.fragments)-1].SequenceNumber != packet.SequenceNumber-1 {
		// 丢包，放弃整个 NAL
		dp.fragments = dp.fragments[:0]
		return
	}

	dp.fragments = append(dp.fragments, packet)

	if (fuHeader>>6)&1 == 1 { // 最后一个片段
		dp.buf = append(dp.buf, h264.StartCode...)
		dp.buf = append(dp.buf, (header&0x60)|(fuHeader&h264.NalTypeBitmask))
		for _, fragment := range dp.fragments {
			dp.buf = append(dp.buf, fragment.Payload()[fuHeaderSize:]...)
		}
		dp.fragments = dp.fragments[:0]
	}
}
