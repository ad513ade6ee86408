// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"errors"
	"time"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/codec/h264"
	"github.com/pion/rtp"
)

// 封包参数默认值
const (
	DefaultMTU         = 1400 // RTP 包（含包头）的最大长度
	DefaultPayloadType = 96   // 动态负载类型
	rtpHeaderSize      = 12
	fuHeaderSize       = 2
)

// H264Packetizer 按 RFC 6184 把 Annex B 访问单元封装成 RTP 包。
// NAL 单元小于 MTU 时使用单 NAL 包，否则使用 FU-A 分片。
// 访问单元的最后一个包设置 Marker 位。
type H264Packetizer struct {
	mtu         int
	payloadType uint8
	ssrc        uint32
	seq         uint16
	clockRate   int
	frameRate   float64
	lastTs      uint32
	packets     uint32
	octets      uint32
	syncClock   SyncClock
}

// NewH264Packetizer 创建 H264 封包器
func NewH264Packetizer(meta *codec.VideoMeta, ssrc uint32, mtu int) (*H264Packetizer, error) {
	if meta.ClockRate <= 0 || meta.FrameRate <= 0 {
		return nil, errors.New("rtp packetizer requires clock rate and frame rate")
	}
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	if mtu <= rtpHeaderSize+fuHeaderSize {
		return nil, errors.New("rtp packetizer mtu too small")
	}

	pz := &H264Packetizer{
		mtu:         mtu,
		payloadType: DefaultPayloadType,
		ssrc:        ssrc,
		clockRate:   meta.ClockRate,
		frameRate:   meta.FrameRate,
	}
	pz.syncClock.Init(meta.ClockRate)
	return pz, nil
}

// Timestamp 返回 pts 对应的 RTP 时间戳
func (pz *H264Packetizer) Timestamp(pts int64) uint32 {
	return uint32(float64(pts) * float64(pz.clockRate) / pz.frameRate)
}

// Packetize 封装一个或多个访问单元（pts 为第一个访问单元的显示序号），
// 生成的包依次写入 w
func (pz *H264Packetizer) Packetize(pts int64, au []byte, w PacketWriter) error {
	nalus := h264.SplitAnnexB(au)
	ts := pz.Timestamp(pts)
	pz.lastTs = ts

	maxPayload := pz.mtu - rtpHeaderSize
	for i, nalu := range nalus {
		last := i == len(nalus)-1
		if len(nalu) <= maxPayload {
			if err := pz.writePacket(ts, last, nalu, w); err != nil {
				return err
			}
			continue
		}

		// FU-A 分片，丢弃原 NAL 头，类型放在 FU header 中
		indicator := nalu[0]&0x60 | h264.NalFuAInRtp
		naluType := nalu[0] & h264.NalTypeBitmask
		data := nalu[1:]
		start := true
		for len(data) > 0 {
			n := min(len(data), maxPayload-fuHeaderSize)
			fuHeader := naluType
			if start {
				fuHeader |= 0x80
			}
			end := n == len(data)
			if end {
				fuHeader |= 0x40
			}

			payload := make([]byte, 0, fuHeaderSize+n)
			payload = append(payload, indicator, fuHeader)
			payload = append(payload, data[:n]...)
			if err := pz.writePacket(ts, last && end, payload, w); err != nil {
				return err
			}
			data = data[n:]
			start = false
		}
	}
	return nil
}

func (pz *H264Packetizer) writePacket(ts uint32, marker bool, payload []byte, w PacketWriter) error {
	rp := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    pz.payloadType,
			SequenceNumber: pz.seq,
			Timestamp:      ts,
			SSRC:           pz.ssrc,
		},
		Payload: payload,
	}
	data, err := rp.Marshal()
	if err != nil {
		return err
	}

	pz.seq++
	pz.packets++
	pz.octets += uint32(len(payload))

	p := &Packet{
		Channel: ChannelVideo,
		Data:    data,
		Header:  rp.Header,
	}
	p.PayloadOffset = len(data) - len(payload)
	return w.WriteRtpPacket(p)
}

// SenderReport 生成控制通道的 RTCP 发送者报告，
// 把最近一次封包的 RTP 时间戳和 now 对应起来
func (pz *H264Packetizer) SenderReport(now time.Time) *Packet {
	return &Packet{
		Channel: ChannelVideoControl,
		Data:    pz.syncClock.Encode(pz.ssrc, now, pz.lastTs, pz.packets, pz.octets),
	}
}

// NextSequenceNumber 下一个包的序号
func (pz *H264Packetizer) NextSequenceNumber() uint16 {
	return pz.seq
}
