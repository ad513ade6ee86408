// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cnotch/vstream/av/codec"
	"github.com/cnotch/vstream/av/format/rtp"
	"github.com/cnotch/vstream/av/format/sdp"
	"github.com/cnotch/vstream/config"
	"github.com/cnotch/vstream/media"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
)

const maxAnnounceSize = 64 * 1024

var errAnnounceTooLarge = errors.New("stream announce too large")

// session 码流接入会话：连接上的数据送入解码器，
// 另一个例程取出解码帧交给 sink
type session struct {
	id       SID
	startOn  time.Time
	conn     net.Conn
	framing  string
	config   config.DecoderConfig
	decoder  atomic.Pointer[media.Decoder]
	demuxer  atomic.Pointer[rtp.Demuxer]
	sink     *snapshotSink
	conns    stats.Conns
	closed   atomic.Bool
	consumed chan struct{}
	logger   *xlog.Logger
}

func newSession(id SID, conn net.Conn, framing string, dc config.DecoderConfig,
	conns stats.Conns, sink FrameSink, logger *xlog.Logger) *session {
	return &session{
		id:       id,
		startOn:  time.Now(),
		conn:     conn,
		framing:  framing,
		config:   dc,
		sink:     newSnapshotSink(sink),
		conns:    conns,
		consumed: make(chan struct{}),
		logger: logger.With(xlog.Fields(
			xlog.F("session", id.String()),
			xlog.F("remote", conn.RemoteAddr().String()))),
	}
}

func (s *session) process() {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			s.logger.Errorf("session routine panic；r = %v \n %s", r, debug.Stack())
		}

		s.Close()
		if d := s.decoder.Load(); d != nil {
			d.Close()
		}
		unregist(s)
		s.conns.Release()
	}()

	s.logger.Infof("stream session started, framing = %s", s.framing)

	var err error
	if s.framing == config.FramingRTP {
		err = s.receiveRTP()
	} else {
		err = s.receiveRaw()
	}

	d := s.decoder.Load()
	if err == nil && d != nil {
		err = d.Flush()
	}
	if err != nil {
		if !s.closed.Load() {
			s.logger.Warnf("receive stream failed: %s", err.Error())
		}
		// 唤醒等待帧的消费例程
		s.Close()
	}
	if d != nil {
		<-s.consumed
		// 接收例程（含 RTP 解包例程）均已结束，此处释放引擎资源
		d.Close()
	}

	s.logger.Infof("stream session finished, frames = %d", s.sink.Frames())
}

func (s *session) startDecoder(width, height int, codecName string) (*media.Decoder, error) {
	d, err := media.NewDecoder(width, height, codecName,
		media.Logger(s.logger),
		media.ChunkSize(s.config.ChunkSize),
		media.Flow(stats.NewChildFlow(stats.DecodeFlow)))
	if err != nil {
		return nil, err
	}

	s.decoder.Store(d)
	go s.consume(d)
	if s.closed.Load() { // Close 先于解码器创建完成
		d.Abort()
	}
	return d, nil
}

func (s *session) receiveRaw() error {
	d, err := s.startDecoder(s.config.Width, s.config.Height, s.config.Codec)
	if err != nil {
		return err
	}

	buf := make([]byte, s.config.BufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if err := d.SupplyBytes(buf[:n]); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *session) receiveRTP() error {
	r := bufio.NewReaderSize(s.conn, config.NetBufferSize())
	raw, err := readAnnounce(r)
	if err != nil {
		return err
	}

	var meta codec.VideoMeta
	if err = sdp.ParseMetadata(raw, &meta); err != nil {
		return err
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		meta.Width, meta.Height = s.config.Width, s.config.Height
	}
	if meta.ClockRate <= 0 {
		meta.ClockRate = 90000
	}
	s.logger.Infof("stream announced: %s %dx%d@%g", meta.Codec, meta.Width, meta.Height, meta.FrameRate)

	d, err := s.startDecoder(meta.Width, meta.Height, meta.Codec)
	if err != nil {
		return err
	}

	demuxer, err := rtp.NewDemuxer(&meta, rtp.StreamWriterFunc(d.SupplyBytes), s.logger)
	if err != nil {
		return err
	}
	s.demuxer.Store(demuxer)
	defer demuxer.Close() // 解码器刷新之前处理完收到的包

	for {
		p, err := rtp.ReadPacket(r, rtp.DefaultChannelConfig)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if d.State() == media.SessionFailed {
			return fmt.Errorf("decoder failed, state = %s", media.SessionStateString(d.State()))
		}
		if err = demuxer.WriteRtpPacket(p); err != nil {
			return err
		}
	}
}

// readAnnounce 读取以空行结束的 SDP 通告
func readAnnounce(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			return b.String(), nil
		}
		if b.Len()+len(line) > maxAnnounceSize {
			return "", errAnnounceTooLarge
		}
		b.WriteString(line)
	}
}

func (s *session) consume(d *media.Decoder) {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			s.logger.Errorf("consume routine panic；r = %v \n %s", r, debug.Stack())
		}
		close(s.consumed)
	}()

	for {
		f, err := d.GetFrame()
		if err != nil {
			if err != io.EOF && !errors.Is(err, media.ErrClosed) {
				s.logger.Warnf("get frame failed: %s", err.Error())
			}
			return
		}
		s.sink.Consume(f)
	}
}

// Close 关闭连接并中止解码器的帧队列，可以在任意例程中调用。
// 解码引擎由 process 例程在接收结束后释放，避免与 SupplyBytes 并发。
func (s *session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.conn.Close()
	if d := s.decoder.Load(); d != nil {
		d.Abort()
	}
	return err
}

func (s *session) pending() int {
	if d := s.decoder.Load(); d != nil {
		return d.Pending()
	}
	return 0
}

// SessionInfo 会话信息
type SessionInfo struct {
	ID       uint32           `json:"id"`
	Type     string           `json:"type"`
	Remote   string           `json:"remote"`
	Framing  string           `json:"framing"`
	StartOn  string           `json:"start_on"`
	Codec    string           `json:"codec,omitempty"`
	Width    int              `json:"width,omitempty"`
	Height   int              `json:"height,omitempty"`
	State    string           `json:"state"`
	Decoded  int64            `json:"decoded"`  // 解码输出的帧数
	Consumed int64            `json:"consumed"` // 交给 sink 的帧数
	Pending  int              `json:"pending"`  // 队列中待取的帧数
	Lost     int64            `json:"lost"`     // RTP 丢包数
	Flow     stats.FlowSample `json:"flow"`     // 转换成 K
}

// Info 获取会话信息
func (s *session) Info() *SessionInfo {
	info := &SessionInfo{
		ID:       uint32(s.id),
		Type:     s.id.Type().String(),
		Remote:   s.conn.RemoteAddr().String(),
		Framing:  s.framing,
		StartOn:  s.startOn.Format(time.RFC3339Nano),
		State:    media.SessionStateString(media.SessionIdle),
		Consumed: s.sink.Frames(),
	}

	if d := s.decoder.Load(); d != nil {
		flow := d.Flow().GetSample()
		flow.InBytes /= 1024
		flow.OutBytes /= 1024

		info.Codec = d.Codec()
		info.Width = d.Width()
		info.Height = d.Height()
		info.State = media.SessionStateString(d.State())
		info.Decoded = d.FrameCount()
		info.Pending = d.Pending()
		info.Flow = flow
	}
	if dm := s.demuxer.Load(); dm != nil {
		info.Lost = dm.Lost()
	}
	return info
}
