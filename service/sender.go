// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cnotch/queue"
	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/format/rtp"
	"github.com/cnotch/vstream/av/format/sdp"
	"github.com/cnotch/vstream/config"
	"github.com/cnotch/vstream/media"
	"github.com/cnotch/vstream/network"
	"github.com/cnotch/vstream/network/socket/buffered"
	"github.com/cnotch/vstream/network/websocket"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

// ErrSenderClosed 发送者已关闭
var ErrSenderClosed = errors.New("sender closed")

// 通知发送例程结束的哨兵
var eosFrame = &rawFrame{}

type rawFrame struct {
	pixels []byte
	stride int
}

// Sender 把 RGB24 图像编码后发送到接收端。
// SendFrame 只把图像放入队列，编码和发送在独立的例程中完成。
type Sender struct {
	encoder    *media.Encoder
	conn       *buffered.Conn
	framing    string
	packetizer *rtp.H264Packetizer
	lastReport time.Time
	recvQueue  *queue.SyncQueue
	closed     atomic.Bool
	done       chan struct{}
	err        atomic.Pointer[error]
	conns      stats.Conns
	logger     *xlog.Logger
}

// NewSender 在连接 c 上创建发送者
func NewSender(c net.Conn, cfg codec.EncoderConfig, framing string, mtu int, logger *xlog.Logger) (*Sender, error) {
	enc, err := media.NewEncoder(cfg,
		media.Logger(logger),
		media.Flow(stats.NewChildFlow(stats.EncodeFlow)))
	if err != nil {
		return nil, err
	}

	s := &Sender{
		encoder: enc,
		conn: buffered.NewConn(c,
			buffered.FlushRate(config.NetFlushRate()),
			buffered.BufferSize(config.NetBufferSize())),
		framing:   framing,
		recvQueue: queue.NewSyncQueue(),
		done:      make(chan struct{}),
		conns:     stats.SenderConns,
		logger:    logger,
	}

	if framing == config.FramingRTP {
		if err = s.announce(mtu); err != nil {
			enc.Close()
			return nil, err
		}
	}

	s.conns.Add()
	go s.process()
	return s, nil
}

// announce 发送 SDP 通告，以空行结束
func (s *Sender) announce(mtu int) error {
	meta := s.encoder.Meta()
	pz, err := rtp.NewH264Packetizer(&meta, rand.Uint32(), mtu)
	if err != nil {
		return err
	}
	s.packetizer = pz

	host := network.GetIP(s.conn.LocalAddr())
	if _, err = s.conn.Write([]byte(sdp.Announce(&meta, host, rtp.DefaultPayloadType) + "\r\n")); err != nil {
		return err
	}
	_, err = s.conn.Flush()
	return err
}

// SendFrame 提交一帧 RGB24 图像，stride 为 0 表示紧密排列。
// 图像数据被复制后入列，返回后调用者可以立即复用 pixels。
func (s *Sender) SendFrame(pixels []byte, stride int) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}
	if err := s.Err(); err != nil {
		return err
	}
	s.recvQueue.Push(&rawFrame{pixels: append([]byte(nil), pixels...), stride: stride})
	return nil
}

// Err 发送例程遇到的错误
func (s *Sender) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Pending 等待编码的帧数
func (s *Sender) Pending() int {
	return s.recvQueue.Len()
}

// Encoder 使用的编码器
func (s *Sender) Encoder() *media.Encoder {
	return s.encoder
}

func (s *Sender) process() {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			s.logger.Errorf("sender routine panic；r = %v \n %s", r, debug.Stack())
		}

		// 尽早通知GC，回收内存
		s.recvQueue.Reset()
		close(s.done)
	}()

	for {
		p := s.recvQueue.Pop()
		if p == nil {
			continue
		}

		frame := p.(*rawFrame)
		if frame == eosFrame {
			break
		}
		if s.Err() != nil {
			continue // 出错之后丢弃剩余的帧
		}

		packets, err := s.encoder.EncodePackets(frame.pixels, frame.stride)
		if err == nil {
			err = s.write(packets)
		}
		if err != nil {
			s.fail(err)
		}
	}

	if s.Err() == nil {
		packets, err := s.encoder.FlushPackets()
		if err == nil {
			err = s.write(packets)
		}
		if err != nil {
			s.fail(err)
		}
	}
}

func (s *Sender) fail(err error) {
	s.err.CompareAndSwap(nil, &err)
	s.logger.Errorf("send frame failed: %s", err.Error())
}

// write 按输出顺序写出编码得到的包，RTP 时间戳取自包自身的 Pts
func (s *Sender) write(packets []codec.Packet) error {
	written := false
	for i := range packets {
		pkt := &packets[i]
		if len(pkt.Data) == 0 {
			continue
		}

		if s.packetizer == nil {
			if _, err := s.conn.Write(pkt.Data); err != nil {
				return err
			}
			continue
		}

		if err := s.packetizer.Packetize(pkt.Pts, pkt.Data, s); err != nil {
			return err
		}
		written = true
	}

	if !written {
		return nil
	}
	if now := time.Now(); now.Sub(s.lastReport) >= time.Second {
		s.lastReport = now
		return s.WriteRtpPacket(s.packetizer.SenderReport(now))
	}
	return nil
}

// WriteRtpPacket 以交织格式写出 RTP 包
func (s *Sender) WriteRtpPacket(p *rtp.Packet) error {
	return p.Write(s.conn, rtp.DefaultChannelConfig)
}

// Close 编码并发送队列中剩余的帧，刷新编码器后关闭连接
func (s *Sender) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.recvQueue.Push(eosFrame)
	<-s.done

	_, ferr := s.conn.Flush()
	s.encoder.Close()
	cerr := s.conn.Close()
	s.conns.Release()

	sample := s.encoder.Flow().GetSample()
	s.logger.Infof("sender closed, frames = %d, bytes = %d, written = %d",
		sample.InFrames, sample.OutBytes, s.conn.Written())

	if err := s.Err(); err != nil {
		return err
	}
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Dial 连接到接收端，target 为 ws:// 地址时使用 websocket
func Dial(ctx context.Context, target string) (net.Conn, error) {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		return websocket.Dial(target)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", target)
}

// RunSender 按帧率向接收端发送彩条图像，直到 ctx 取消或发送完 frames 帧
func RunSender(ctx context.Context, target string, cfg codec.EncoderConfig, framing string, mtu, frames int, logger *xlog.Logger) error {
	conn, err := Dial(ctx, target)
	if err != nil {
		return err
	}

	s, err := NewSender(conn, cfg, framing, mtu, logger)
	if err != nil {
		conn.Close()
		return err
	}
	logger.Infof("sending to %s, %dx%d@%d %s", target, cfg.Width, cfg.Height, cfg.FrameRate, cfg.Codec)

	pattern := NewTestPattern(cfg.Width, cfg.Height)
	ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer ticker.Stop()

	for n := 0; frames <= 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-ticker.C:
		}
		if err = s.SendFrame(pattern.Next(), 0); err != nil {
			break
		}
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}
