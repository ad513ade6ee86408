// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"strconv"
	"sync/atomic"
)

// SessionType 会话类型，由码流接入的方式决定
type SessionType uint32

// 预定义会话类型
const (
	TCPSession       SessionType = iota // TCP 直连
	WebsocketSession                    // websocket 接入

	maxSessionSequence = 0x3fff_ffff
)

// SID session ID
// type(2bits)+sequence(30bits)
type SID uint32

// String 类型的字串表示
func (t SessionType) String() string {
	switch t {
	case TCPSession:
		return "TCP"
	case WebsocketSession:
		return "WEBSOCKET"
	default:
		return "Unknown"
	}
}

// NewSID 创建新的会话ID
func NewSID(sessionType SessionType, sequenceSeed *uint32) SID {
	localid := atomic.AddUint32(sequenceSeed, 1)
	if localid >= maxSessionSequence {
		localid = 1
		atomic.StoreUint32(sequenceSeed, localid)
	}
	return SID(sessionType<<30) | SID(localid&maxSessionSequence)
}

// ParseSID 从十进制字串解析会话ID
func ParseSID(s string) (SID, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	return SID(id), err
}

// Type 获取会话类型
func (id SID) Type() SessionType {
	return SessionType((id >> 30) & 0x3)
}

// Sequence 获取会话序号
func (id SID) Sequence() uint32 {
	return uint32(id & SID(maxSessionSequence))
}

// String 十进制表示
func (id SID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
