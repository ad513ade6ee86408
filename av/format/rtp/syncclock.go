// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"encoding/binary"
	"time"
)

const (
	jan1970          = 0x83aa7e80 // 1900 到 1970 年的秒数
	rtcpSenderReport = 200
	senderReportSize = 28
)

// SyncClock 通过 RTCP 发送者报告把 RTP 时间戳映射到绝对时间
type SyncClock struct {
	// NTP 时间戳，此处转换成自 1970 年以来的纳秒数
	NTPTime int64
	// 与 NTPTime 对应的 RTP 时间戳
	RTPTime     uint32
	RTPTimeUnit float64 // 每个 RTP 时间单位的纳秒数

	initOn time.Time
}

// Init 初始化同步时钟
func (sc *SyncClock) Init(clockRate int) {
	sc.initOn = time.Now()
	sc.NTPTime = sc.initOn.UnixNano()
	sc.RTPTimeUnit = float64(time.Second) / float64(clockRate)
}

// LocalTime 本地时间
func (sc *SyncClock) LocalTime() time.Time {
	return time.Unix(0, sc.NTPTime).In(time.Local)
}

// Decode 解析发送者报告，非 SR 包返回 false
func (sc *SyncClock) Decode(data []byte) (ok bool) {
	if len(data) < senderReportSize || data[1] != rtcpSenderReport {
		return false
	}
	msw := binary.BigEndian.Uint32(data[8:])
	lsw := binary.BigEndian.Uint32(data[12:])
	sc.RTPTime = binary.BigEndian.Uint32(data[16:])
	sc.NTPTime = int64(msw-jan1970)*int64(time.Second) + (int64(lsw)*1000_000_000)>>32
	return true
}

// Encode 生成发送者报告
func (sc *SyncClock) Encode(ssrc uint32, now time.Time, rtpTime, packets, octets uint32) []byte {
	sc.NTPTime = now.UnixNano()
	sc.RTPTime = rtpTime

	sec := sc.NTPTime / int64(time.Second)
	frac := ((sc.NTPTime % int64(time.Second)) << 32) / int64(time.Second)

	data := make([]byte, senderReportSize)
	data[0] = 0x80 // V=2, P=0, RC=0
	data[1] = rtcpSenderReport
	binary.BigEndian.PutUint16(data[2:], senderReportSize/4-1)
	binary.BigEndian.PutUint32(data[4:], ssrc)
	binary.BigEndian.PutUint32(data[8:], uint32(sec+jan1970))
	binary.BigEndian.PutUint32(data[12:], uint32(frac))
	binary.BigEndian.PutUint32(data[16:], rtpTime)
	binary.BigEndian.PutUint32(data[20:], packets)
	binary.BigEndian.PutUint32(data[24:], octets)
	return data
}

// RelativeNtp 返回 rtptime 相对于同步点的纳秒数
func (sc *SyncClock) RelativeNtp(rtptime uint32) int64 {
	diff := int64(int32(rtptime - sc.RTPTime))
	return int64(float64(diff) * sc.RTPTimeUnit)
}

// AbsoluteNtp 返回 rtptime 对应的绝对时间（纳秒）
func (sc *SyncClock) AbsoluteNtp(rtptime uint32) int64 {
	return sc.NTPTime + sc.RelativeNtp(rtptime)
}
