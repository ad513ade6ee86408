// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/pion/rtp"
)

const (
	// TransferPrefix RTP 包在流式连接上传输时的前缀
	TransferPrefix = byte(0x24) // $
)

// 预定义 RTP 通道类型
const (
	ChannelVideo        = iota         // 视频通道
	ChannelVideoControl                // 视频控制通道
	ChannelCount                       // 支持的 RTP 通道类型数量
	ChannelMin          = ChannelVideo // 支持的 RTP 通道类型最小值
)

// DefaultChannelConfig 默认的通道配置
var DefaultChannelConfig = []int{
	ChannelVideo,
	ChannelVideoControl,
}

var (
	errPrefix  = errors.New("RTP Pack must start with `$`")
	errChannel = errors.New("RTP Packet illegal channel")
)

// ChannelName 通道名
func ChannelName(channel int) string {
	switch channel {
	case ChannelVideo:
		return "video"
	case ChannelVideoControl:
		return "video control"
	}
	return "unknow"
}

// Packet RTP 数据包
type Packet struct {
	Channel    byte   // 通道
	Data       []byte // 数据
	rtp.Header        // 视频通道的包头
}

// PacketWriter 包装 WriteRtpPacket 方法的接口
type PacketWriter interface {
	WriteRtpPacket(packet *Packet) error
}

// ReadPacket 从 r 中读取一个以 `$` 开头的交织 RTP 包.
// channelConfig 提供通道类型所在通道的配置信息
func ReadPacket(r *bufio.Reader, channelConfig []int) (*Packet, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	if prefix[0] != TransferPrefix {
		return nil, errPrefix
	}

	channel := int(prefix[1])
	rtpLen := int(binary.BigEndian.Uint16(prefix[2:]))

	rtpBytes := make([]byte, rtpLen)
	if _, err := io.ReadFull(r, rtpBytes); err != nil {
		return nil, err
	}

	for i, v := range channelConfig {
		if v != channel {
			continue
		}
		p := &Packet{Channel: byte(i), Data: rtpBytes}
		if p.Channel == ChannelVideo {
			if err := p.Header.Unmarshal(p.Data); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
	return nil, errChannel
}

// Write 将 RTP 包以交织格式输出到 w
// channelConfig 提供通道类型所在通道的配置信息
func (p *Packet) Write(w io.Writer, channelConfig []int) error {
	if p.Channel >= ChannelCount {
		return errChannel
	}

	ch := channelConfig[p.Channel]
	if ch < 0 || ch > 255 { // 未订阅，忽略
		return nil
	}

	var prefix [4]byte
	prefix[0] = TransferPrefix
	prefix[1] = byte(ch)
	binary.BigEndian.PutUint16(prefix[2:], uint16(len(p.Data)))

	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(p.Data)
	return err
}

// Size 包在交织传输中的总大小
func (p *Packet) Size() int {
	return len(p.Data) + 4
}

// Payload 数据包中实际的载荷
// 如果是控制通道，返回nil
func (p *Packet) Payload() []byte {
	if p.Channel == ChannelVideo {
		return p.Data[p.PayloadOffset:]
	}
	return nil
}
