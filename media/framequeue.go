// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"context"
	"io"
	"sync"

	"github.com/cnotch/queue"
)

// FrameQueue 解码帧的队列，它并发安全。
//
// 入列从不阻塞；出列阻塞直到有帧可用、输入结束或者队列关闭。
// 多个消费者并发出列时，每一帧只会交给其中一个。
type FrameQueue struct {
	cond        *sync.Cond
	frames      queue.Queue
	inputClosed bool // 不会再有新的帧
	closed      bool
}

// NewFrameQueue 创建帧队列
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{
		cond: sync.NewCond(&sync.Mutex{}),
	}
}

// Enqueue 入列帧并通知一个等待者。
// 队列关闭或输入结束后入列返回 ErrClosed，帧被释放。
func (fq *FrameQueue) Enqueue(f *Frame) error {
	fq.cond.L.Lock()
	if fq.closed || fq.inputClosed {
		fq.cond.L.Unlock()
		f.Release()
		return ErrClosed
	}
	fq.frames.Push(f)
	fq.cond.Signal()
	fq.cond.L.Unlock()
	return nil
}

// Dequeue 出列最早的帧，没有帧时阻塞。
// 输入结束且队列为空时返回 io.EOF；队列关闭时返回 ErrClosed。
func (fq *FrameQueue) Dequeue() (*Frame, error) {
	return fq.DequeueContext(context.Background())
}

// DequeueContext 同 Dequeue，ctx 结束时返回 ctx.Err()
func (fq *FrameQueue) DequeueContext(ctx context.Context) (*Frame, error) {
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, fq.Broadcast)
		defer stop()
	}

	fq.cond.L.Lock()
	defer fq.cond.L.Unlock()
	for {
		if fq.closed {
			return nil, ErrClosed
		}
		if v, ok := fq.frames.Pop(); ok {
			return v.(*Frame), nil
		}
		if fq.inputClosed {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fq.cond.Wait()
	}
}

// CloseInput 标记输入结束，消费者取完剩余的帧后得到 io.EOF
func (fq *FrameQueue) CloseInput() {
	fq.cond.L.Lock()
	fq.inputClosed = true
	fq.cond.Broadcast()
	fq.cond.L.Unlock()
}

// Close 关闭队列，释放队列中剩余的帧并唤醒所有等待者
func (fq *FrameQueue) Close() {
	fq.cond.L.Lock()
	if fq.closed {
		fq.cond.L.Unlock()
		return
	}
	fq.closed = true
	frames := make([]*Frame, 0, fq.frames.Len())
	for {
		v, ok := fq.frames.Pop()
		if !ok {
			break
		}
		frames = append(frames, v.(*Frame))
	}
	fq.cond.Broadcast()
	fq.cond.L.Unlock()

	for _, f := range frames {
		f.Release()
	}
}

// Broadcast 广播信号，唤醒所有等待者重新检查状态
func (fq *FrameQueue) Broadcast() {
	fq.cond.L.Lock()
	fq.cond.Broadcast()
	fq.cond.L.Unlock()
}

// Len 队列长度
func (fq *FrameQueue) Len() int {
	fq.cond.L.Lock()
	defer fq.cond.L.Unlock()
	return fq.frames.Len()
}
