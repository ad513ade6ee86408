// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"io"
	"sync/atomic"

	"github.com/cnotch/vstream/av/colorspace"
)

// 会话状态
const (
	SessionIdle     int32 = iota // 没有未完成的工作
	SessionDraining              // 已向引擎发送数据，正在取出结果
	SessionClosed                // 资源已释放
	SessionFailed                // 发生致命错误，不能再使用
)

var sessionStateNames = []string{"idle", "draining", "closed", "failed"}

// SessionStateString 会话状态的字串表示
func SessionStateString(state int32) string {
	if state < 0 || int(state) >= len(sessionStateNames) {
		return "unknown"
	}
	return sessionStateNames[state]
}

// session 解码和编码会话共有的状态机。
// 会话只在一次调用内部处于 Draining，调用返回前回到 Idle 或 Failed。
type session struct {
	state   atomic.Int32
	failure error
}

// State 返回会话状态
func (s *session) State() int32 {
	return s.state.Load()
}

// check 检查会话是否可用
func (s *session) check(op string) error {
	switch s.state.Load() {
	case SessionClosed:
		return newError(ErrClosed, op, nil)
	case SessionFailed:
		return newError(ErrSessionFailed, op, s.failure)
	}
	return nil
}

// fail 使会话进入失败状态，返回 err
func (s *session) fail(err error) error {
	if s.state.Load() != SessionClosed {
		s.failure = err
		s.state.Store(SessionFailed)
	}
	return err
}

// closeConverter 释放转换器持有的资源
func closeConverter(conv colorspace.Converter) {
	if closer, ok := conv.(io.Closer); ok {
		closer.Close()
	}
}
