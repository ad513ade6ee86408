// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffered

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kelindar/rate"
)

const (
	defaultRate       = 50
	defaultBufferSize = 64 * 1024
	minBufferSize     = 8 * 1024
)

// Conn 带缓冲的连接。写入的数据先进入缓冲区，
// 按刷新频率合并成较大的块写到底层连接；
// 缓冲的数据最多停留一个刷新间隔，之后由定时器写出。
type Conn struct {
	socket     net.Conn      // 底层连接
	reader     *bufio.Reader // 读缓冲
	writer     *bytes.Buffer // 写缓冲
	limit      *rate.Limiter // 写刷新频率
	bufferSize int           // 读写缓冲大小
	flushDelay time.Duration // 数据在缓冲区中的最长停留时间
	written    atomic.Int64  // 已写到底层连接的字节数

	mu    sync.Mutex  // 保护写缓冲和定时器
	timer *time.Timer // 延迟刷新
	armed bool        // 定时器等待触发
	werr  error       // 延迟刷新遇到的错误，之后的写直接返回
}

// NewConn 包装 c，c 已经是 *Conn 时只应用选项
func NewConn(c net.Conn, options ...Option) *Conn {
	conn, ok := c.(*Conn)
	if !ok {
		conn = &Conn{
			socket: c,
		}
	}

	for _, option := range options {
		option.apply(conn)
	}

	// 设置默认值刷新频率
	if conn.limit == nil {
		conn.limit = rate.New(defaultRate, time.Second)
		conn.flushDelay = time.Second / defaultRate
	}

	if conn.bufferSize <= 0 {
		conn.bufferSize = defaultBufferSize
	}

	// 设置IO缓冲对象
	conn.reader = bufio.NewReaderSize(conn.socket, conn.bufferSize)
	conn.writer = bytes.NewBuffer(make([]byte, 0, conn.bufferSize))
	return conn
}

// Buffered 返回缓冲区中尚未写出的字节数
func (m *Conn) Buffered() (n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writer.Len()
}

// Reader 返回内部的 bufio.Reader
func (m *Conn) Reader() *bufio.Reader {
	return m.reader
}

// Written 返回已写到底层连接的字节数
func (m *Conn) Written() int64 {
	return m.written.Load()
}

// Flush 把缓冲区的数据全部写到底层连接
func (m *Conn) Flush() (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flush()
}

func (m *Conn) flush() (n int, err error) {
	if m.armed {
		m.timer.Stop()
		m.armed = false
	}
	if m.werr != nil {
		return 0, m.werr
	}
	if m.writer.Len() == 0 {
		return 0, nil
	}

	n, err = m.writeFull(m.writer.Bytes())
	m.writer.Reset()
	if err != nil {
		m.werr = err
	}
	return
}

// delayFlush 缓冲区有数据时确保定时器在等待
func (m *Conn) delayFlush() {
	if m.armed || m.flushDelay <= 0 {
		return
	}
	m.armed = true
	if m.timer == nil {
		m.timer = time.AfterFunc(m.flushDelay, m.onFlushTimer)
		return
	}
	m.timer.Reset(m.flushDelay)
}

func (m *Conn) onFlushTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.armed {
		m.armed = false
		m.flush()
	}
}

// Read 从读缓冲读取数据
func (m *Conn) Read(p []byte) (int, error) {
	return m.reader.Read(p)
}

// Write 写入数据，未到刷新间隔时只写入缓冲区
func (m *Conn) Write(p []byte) (nn int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.werr != nil {
		return 0, m.werr
	}

	var n int
	// 没有足够的空间容纳 p
	for len(p) > m.bufferSize-m.writer.Len() && err == nil {
		if m.writer.Len() == 0 {
			// 缓冲区为空，直接写避免拷贝
			n, err = m.writeFull(p)
		} else {
			// 填满缓冲区后刷新
			n, _ = m.writer.Write(p[:m.bufferSize-m.writer.Len()])
			_, err = m.flush()
		}
		nn += n
		p = p[n:]
	}

	if err != nil {
		return nn, err
	}

	// 未到达时间频率的间隔，写到缓存等待定时刷新
	if m.limit.Limit() {
		n, _ = m.writer.Write(p)
		if m.writer.Len() > 0 {
			m.delayFlush()
		}
		return nn + n, nil
	}

	// 缓存中有数据，flush
	if m.writer.Len() > 0 {
		n, _ = m.writer.Write(p)
		_, err = m.flush()
		return nn + n, err
	}

	// 缓存中无数据，直接写避免内存拷贝
	n, err = m.writeFull(p)
	return nn + n, err
}

func (m *Conn) writeFull(p []byte) (nn int, err error) {
	var n int
	for len(p) > 0 && err == nil {
		n, err = m.socket.Write(p)
		nn += n
		p = p[n:]
	}
	m.written.Add(int64(nn))
	return nn, err
}

// Close 关闭底层连接，缓冲区中的数据被丢弃，需要的话先调用 Flush
func (m *Conn) Close() error {
	m.mu.Lock()
	if m.armed {
		m.timer.Stop()
		m.armed = false
	}
	m.writer.Reset()
	m.mu.Unlock()
	return m.socket.Close()
}

// LocalAddr 本地地址
func (m *Conn) LocalAddr() net.Addr {
	return m.socket.LocalAddr()
}

// RemoteAddr 对端地址
func (m *Conn) RemoteAddr() net.Addr {
	return m.socket.RemoteAddr()
}

// SetDeadline 设置读写超时
func (m *Conn) SetDeadline(t time.Time) error {
	return m.socket.SetDeadline(t)
}

// SetReadDeadline 设置读超时
func (m *Conn) SetReadDeadline(t time.Time) error {
	return m.socket.SetReadDeadline(t)
}

// SetWriteDeadline 设置写超时
func (m *Conn) SetWriteDeadline(t time.Time) error {
	return m.socket.SetWriteDeadline(t)
}

// Option 配置 Conn 的选项接口
type Option interface {
	apply(*Conn)
}

// OptionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Conn)

func (f optionFunc) apply(c *Conn) {
	f(c)
}

// FlushRate Conn 写操作的每秒刷新频率
func FlushRate(r int) Option {
	return optionFunc(func(c *Conn) {
		if r < 1 { // 如果不合规，设置成默认值
			r = defaultRate
		}
		c.limit = rate.New(r, time.Second)
		c.flushDelay = time.Second / time.Duration(r)
	})
}

// BufferSize Conn 缓冲大小
func BufferSize(bufferSize int) Option {
	return optionFunc(func(c *Conn) {
		if bufferSize < minBufferSize { // 如果不合规，设置成最小值
			bufferSize = minBufferSize
		}
		c.bufferSize = bufferSize
	})
}
