// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"fmt"
)

// 错误分类，使用 errors.Is 判断
var (
	// ErrParse 码流解析失败
	ErrParse = errors.New("parse error")
	// ErrDecode 解码失败
	ErrDecode = errors.New("decode error")
	// ErrEncode 编码失败
	ErrEncode = errors.New("encode error")
	// ErrInitialization 构造编解码器失败
	ErrInitialization = errors.New("initialization error")
	// ErrClosed 已经关闭
	ErrClosed = errors.New("closed")
	// ErrSessionFailed 会话曾经发生致命错误，必须重新创建
	ErrSessionFailed = errors.New("session failed")
)

// Error 带分类的错误，同时包装分类和引起错误的原因
type Error struct {
	Kind error  // 错误分类
	Op   string // 出错的操作
	Err  error  // 原因，可能为 nil
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("media: %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap 返回分类和原因
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
