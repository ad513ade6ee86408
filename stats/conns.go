// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync/atomic"
)

// 全局连接统计
var (
	StreamConns    = NewConns() // TCP 码流连接
	WebsocketConns = NewConns() // websocket 码流连接
	SenderConns    = NewConns() // 发送端到接收端的连接
)

// ConnsSample 连接计数采样
type ConnsSample struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Rejected int64 `json:"rejected"` // 超过连接上限被拒绝
}

// Conns 连接统计
type Conns interface {
	Add() int64
	Release() int64
	Reject()
	GetSample() ConnsSample
}

type conns struct {
	total    atomic.Int64
	active   atomic.Int64
	rejected atomic.Int64
}

// NewConns 新建连接计数
func NewConns() Conns {
	return &conns{}
}

func (c *conns) Add() int64 {
	c.total.Add(1)
	return c.active.Add(1)
}

func (c *conns) Release() int64 {
	return c.active.Add(-1)
}

func (c *conns) Reject() {
	c.rejected.Add(1)
}

func (c *conns) GetSample() ConnsSample {
	return ConnsSample{
		Total:    c.total.Load(),
		Active:   c.active.Load(),
		Rejected: c.rejected.Load(),
	}
}
